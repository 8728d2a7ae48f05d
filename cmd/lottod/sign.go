package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"poolotto/internal/model"
	"poolotto/internal/wire"
)

func newSignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Build a signed owner command envelope",
		RunE:  runSign,
	}

	cmd.Flags().String("key", "./data/owner.key", "owner seed file")
	cmd.Flags().String("command", "", "create | cancel | close | withdraw | upgrade")
	cmd.Flags().Uint32("seqno", 0, "current contract sequence number")
	cmd.Flags().Uint32("time", 0, "logical chain time at delivery")
	cmd.Flags().Uint32("valid-for", 30, "validity window in seconds")
	cmd.Flags().Uint32("pool", 0, "pool id (create, cancel, close)")
	cmd.Flags().Uint32("start", 0, "pool start time (create)")
	cmd.Flags().Uint32("end", 0, "pool end time (create)")
	cmd.Flags().Uint32("max", 0, "max participants (create)")
	cmd.Flags().String("stake", "0", "stake amount, decimal (create)")
	cmd.Flags().String("code-hash", "", "new code hash, hex (upgrade)")
	cmd.Flags().String("journal", "", "append the envelope to this inbound journal")

	return cmd
}

func runSign(cmd *cobra.Command, _ []string) error {
	keyPath, _ := cmd.Flags().GetString("key")
	command, _ := cmd.Flags().GetString("command")
	seqno, _ := cmd.Flags().GetUint32("seqno")
	now, _ := cmd.Flags().GetUint32("time")
	validFor, _ := cmd.Flags().GetUint32("valid-for")
	poolID, _ := cmd.Flags().GetUint32("pool")

	key, err := loadSigningKey(keyPath)
	if err != nil {
		return err
	}

	var op uint32
	var payload []byte
	switch command {
	case "create":
		start, _ := cmd.Flags().GetUint32("start")
		end, _ := cmd.Flags().GetUint32("end")
		max, _ := cmd.Flags().GetUint32("max")
		stakeStr, _ := cmd.Flags().GetString("stake")
		stake, err := uint256.FromDecimal(stakeStr)
		if err != nil {
			return fmt.Errorf("parse stake: %w", err)
		}
		op = wire.OpCreatePool
		payload, err = wire.EncodeCreatePool(wire.CreatePoolPayload{
			PoolID:          poolID,
			StartTime:       start,
			EndTime:         end,
			MaxParticipants: max,
			StakeAmount:     stake,
		})
		if err != nil {
			return err
		}
	case "cancel":
		op = wire.OpCancelPool
		payload = wire.EncodePoolID(poolID)
	case "close":
		op = wire.OpClosePool
		payload = wire.EncodePoolID(poolID)
	case "withdraw":
		op = wire.OpWithdraw
	case "upgrade":
		codeHashStr, _ := cmd.Flags().GetString("code-hash")
		codeHash, err := hexutil.Decode(codeHashStr)
		if err != nil {
			return fmt.Errorf("parse code hash: %w", err)
		}
		op = wire.OpUpgrade
		payload = wire.EncodeUpgrade(common.BytesToHash(codeHash))
	default:
		return fmt.Errorf("unknown command %q", command)
	}

	envelope := wire.SignEnvelope(key, seqno, now+validFor, op, payload)
	fmt.Println(hexutil.Encode(envelope))

	journalPath, _ := cmd.Flags().GetString("journal")
	if journalPath == "" {
		return nil
	}
	return appendInbound(journalPath, model.InboundRecord{
		Kind:     model.KindExternal,
		Time:     now,
		Envelope: envelope,
	})
}

func appendInbound(path string, record model.InboundRecord) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	return writer.Flush()
}
