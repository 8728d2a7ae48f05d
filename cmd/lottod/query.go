package main

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolotto/internal/contract"
	"poolotto/internal/replay"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Inspect a contract state snapshot",
		RunE:  runQuery,
	}

	cmd.Flags().String("snapshot", "./data/state.json", "contract state snapshot path")
	cmd.Flags().Int64("pool", -1, "pool id to show")
	cmd.Flags().Uint32("rank", 0, "reward rank to show (requires --pool)")
	cmd.Flags().String("staker", "", "participant address to show (requires --pool)")

	return cmd
}

func runQuery(cmd *cobra.Command, _ []string) error {
	snapshotPath, _ := cmd.Flags().GetString("snapshot")
	poolFlag, _ := cmd.Flags().GetInt64("pool")
	rank, _ := cmd.Flags().GetUint32("rank")
	staker, _ := cmd.Flags().GetString("staker")

	state, ok, err := replay.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no snapshot at %s", snapshotPath)
	}

	instance := contract.New(state, zap.NewNop())

	if poolFlag < 0 {
		return printJSON(map[string]interface{}{
			"seqno":        instance.Seqno(),
			"owner_pubkey": instance.OwnerPubkeyHex(),
			"balance":      instance.Balance().Dec(),
			"pools":        instance.GetPools(),
		})
	}

	poolID := uint32(poolFlag)
	switch {
	case rank > 0:
		reward, err := instance.GetReward(poolID, rank)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"pool_id": poolID, "rank": rank, "reward": reward.Dec()})
	case staker != "":
		entry, err := instance.GetParticipant(poolID, common.HexToAddress(staker))
		if err != nil {
			return err
		}
		return printJSON(entry)
	default:
		view, err := instance.GetPool(poolID)
		if err != nil {
			return err
		}
		return printJSON(view)
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
