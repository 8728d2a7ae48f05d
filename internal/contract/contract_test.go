package contract

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"poolotto/internal/wire"
)

var (
	ownerAddr   = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	selfAddr    = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	coordAddr   = common.HexToAddress("0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	oneStake    = uint256.NewInt(1_000_000_000)
	fixedSeed   = uint256.NewInt(0x123456789)
	testQueryID = uint64(7777)
)

func testOwnerKey() ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(bytes.Repeat([]byte{0x42}, ed25519.SeedSize))
}

func newTestContract(t *testing.T) (*Contract, ed25519.PrivateKey) {
	t.Helper()
	priv := testOwnerKey()
	state, err := NewState(DeployConfig{
		Seqno:        12,
		OwnerPubKey:  priv.Public().(ed25519.PublicKey),
		OwnerAddress: ownerAddr,
		Self:         selfAddr,
		Coordinator:  coordAddr,
	})
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	return New(state, nil), priv
}

// sendCommand signs a command with the contract's current seqno and a
// 30-second validity window.
func sendCommand(c *Contract, priv ed25519.PrivateKey, now, op uint32, payload []byte) ([]Outbound, error) {
	raw := wire.SignEnvelope(priv, c.Seqno(), now+30, op, payload)
	return c.HandleExternal(now, raw)
}

func createTestPool(t *testing.T, c *Contract, priv ed25519.PrivateKey, now, poolID uint32) {
	t.Helper()
	payload, err := wire.EncodeCreatePool(wire.CreatePoolPayload{
		PoolID:          poolID,
		StartTime:       380,
		EndTime:         410,
		MaxParticipants: 100,
		StakeAmount:     oneStake,
	})
	if err != nil {
		t.Fatalf("encode create: %v", err)
	}
	if _, err := sendCommand(c, priv, now, wire.OpCreatePool, payload); err != nil {
		t.Fatalf("create pool: %v", err)
	}
}

func joinPool(c *Contract, now uint32, sender common.Address, value *uint256.Int, poolID uint32) []Outbound {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, wire.OpJoinPool)
	body = append(body, wire.EncodeJoin(wire.JoinBody{QueryID: testQueryID, PoolID: poolID})...)
	return c.HandleInternal(now, Internal{Sender: sender, Value: value, Body: body})
}

func deliverRandomness(c *Contract, now uint32, sender common.Address, seed *uint256.Int) []Outbound {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, wire.OpRandomnessCallback)
	body = append(body, wire.EncodeRandomnessCallback(seed)...)
	return c.HandleInternal(now, Internal{Sender: sender, Value: uint256.NewInt(0), Body: body})
}

func staker(i byte) common.Address {
	return common.BytesToAddress([]byte{0x10, i})
}

func TestEndToEndLottery(t *testing.T) {
	c, priv := newTestContract(t)
	createTestPool(t, c, priv, 400, 121)

	for i := byte(0); i < 10; i++ {
		if outs := joinPool(c, 405, staker(i), oneStake, 121); len(outs) != 0 {
			t.Fatalf("join %d bounced: %+v", i, outs)
		}
	}

	view, err := c.GetPool(121)
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if view.CurrentCount != 10 || view.Status != "open" {
		t.Fatalf("unexpected pool view: %+v", view)
	}

	outs, err := sendCommand(c, priv, 420, wire.OpClosePool, wire.EncodePoolID(121))
	if err != nil {
		t.Fatalf("close pool: %v", err)
	}
	if len(outs) != 1 || outs[0].Op != wire.OpSubscribeRandom || outs[0].To != coordAddr {
		t.Fatalf("expected subscribe message, got %+v", outs)
	}
	consumer, err := wire.DecodeSubscribe(outs[0].Body)
	if err != nil || consumer != selfAddr {
		t.Fatalf("subscribe consumer mismatch: %s %v", consumer, err)
	}

	transfers := deliverRandomness(c, 425, coordAddr, fixedSeed)
	if len(transfers) != 10 {
		t.Fatalf("expected 10 reward transfers, got %d", len(transfers))
	}

	total := uint256.NewInt(0)
	prev := (*uint256.Int)(nil)
	for rank := uint32(1); rank <= 10; rank++ {
		reward, err := c.GetReward(121, rank)
		if err != nil {
			t.Fatalf("get reward %d: %v", rank, err)
		}
		if prev != nil && reward.Cmp(prev) >= 0 {
			t.Fatalf("reward curve not strictly decreasing at rank %d: %s >= %s", rank, reward, prev)
		}
		total.Add(total, reward)
		prev = reward
	}
	pot := new(uint256.Int).Mul(oneStake, uint256.NewInt(10))
	if !total.Eq(pot) {
		t.Fatalf("rewards sum %s != pot %s", total, pot)
	}

	// Transfers match the persisted curve, one per participant.
	transferSum := uint256.NewInt(0)
	for _, transfer := range transfers {
		transferSum.Add(transferSum, transfer.Value)
	}
	if !transferSum.Eq(pot) {
		t.Fatalf("transfer sum %s != pot %s", transferSum, pot)
	}
}

func TestRewardCurveDeterministicAcrossRuns(t *testing.T) {
	run := func() []*uint256.Int {
		c, priv := newTestContract(t)
		createTestPool(t, c, priv, 400, 121)
		for i := byte(0); i < 10; i++ {
			joinPool(c, 405, staker(i), oneStake, 121)
		}
		if _, err := sendCommand(c, priv, 420, wire.OpClosePool, wire.EncodePoolID(121)); err != nil {
			t.Fatalf("close pool: %v", err)
		}
		deliverRandomness(c, 425, coordAddr, fixedSeed)

		rewards := make([]*uint256.Int, 0, 10)
		for rank := uint32(1); rank <= 10; rank++ {
			reward, err := c.GetReward(121, rank)
			if err != nil {
				t.Fatalf("get reward: %v", err)
			}
			rewards = append(rewards, reward)
		}
		return rewards
	}

	first := run()
	second := run()
	for i := range first {
		if !first[i].Eq(second[i]) {
			t.Fatalf("rank %d differs across runs: %s != %s", i+1, first[i], second[i])
		}
	}
}

func TestStrayRandomnessCallbackIgnored(t *testing.T) {
	c, priv := newTestContract(t)
	createTestPool(t, c, priv, 400, 121)
	joinPool(c, 405, staker(1), oneStake, 121)

	// No pool awaiting randomness yet.
	if outs := deliverRandomness(c, 406, coordAddr, fixedSeed); len(outs) != 0 {
		t.Fatalf("unsolicited callback produced messages: %+v", outs)
	}

	if _, err := sendCommand(c, priv, 420, wire.OpClosePool, wire.EncodePoolID(121)); err != nil {
		t.Fatalf("close pool: %v", err)
	}

	// Wrong sender while awaiting.
	if outs := deliverRandomness(c, 421, staker(9), fixedSeed); len(outs) != 0 {
		t.Fatalf("callback from stranger produced messages: %+v", outs)
	}
	view, _ := c.GetPool(121)
	if view.Status != "awaiting_randomness" {
		t.Fatalf("stray callback changed status to %s", view.Status)
	}

	// Valid callback resolves; a second one is ignored.
	deliverRandomness(c, 422, coordAddr, fixedSeed)
	if outs := deliverRandomness(c, 423, coordAddr, fixedSeed); len(outs) != 0 {
		t.Fatalf("duplicate callback produced messages: %+v", outs)
	}
}

func TestUnknownInternalOpBounces(t *testing.T) {
	c, _ := newTestContract(t)

	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, 101)
	value := uint256.NewInt(10_000_000)
	outs := c.HandleInternal(400, Internal{Sender: staker(1), Value: value, Body: body})

	if len(outs) != 1 {
		t.Fatalf("expected one reply, got %d", len(outs))
	}
	if outs[0].Comment != "Unknown op!" || !outs[0].Value.Eq(value) || outs[0].To != staker(1) {
		t.Fatalf("unexpected reply: %+v", outs[0])
	}
}

func TestDepositCreditsBalance(t *testing.T) {
	c, _ := newTestContract(t)

	value := uint256.NewInt(123_450_000)
	if outs := c.HandleInternal(400, Internal{Sender: ownerAddr, Value: value, Body: nil}); len(outs) != 0 {
		t.Fatalf("deposit produced messages: %+v", outs)
	}
	if !c.Balance().Eq(value) {
		t.Fatalf("balance %s != %s", c.Balance(), value)
	}
}

func TestCommentDepositCreditsBalance(t *testing.T) {
	c, _ := newTestContract(t)

	body := append(make([]byte, 4), []byte("top up")...)
	value := uint256.NewInt(123_450_000)
	if outs := c.HandleInternal(400, Internal{Sender: ownerAddr, Value: value, Body: body}); len(outs) != 0 {
		t.Fatalf("comment deposit produced replies: %+v", outs)
	}
	if !c.Balance().Eq(value) {
		t.Fatalf("balance %s != %s", c.Balance(), value)
	}
}

func TestWithdrawLeavesEscrowedPots(t *testing.T) {
	c, priv := newTestContract(t)

	// Owner tops up, then one staker escrows into a pool.
	free := uint256.NewInt(2_000_000_000)
	c.HandleInternal(400, Internal{Sender: ownerAddr, Value: free, Body: nil})
	createTestPool(t, c, priv, 400, 121)
	joinPool(c, 405, staker(1), oneStake, 121)

	outs, err := sendCommand(c, priv, 406, wire.OpWithdraw, nil)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if len(outs) != 1 || outs[0].To != ownerAddr {
		t.Fatalf("expected one transfer to owner, got %+v", outs)
	}

	expected := new(uint256.Int).Sub(free, storageReserve)
	if !outs[0].Value.Eq(expected) {
		t.Fatalf("withdrew %s, expected %s", outs[0].Value, expected)
	}

	// The pot plus reserve stays behind.
	remaining := new(uint256.Int).Add(oneStake, storageReserve)
	if !c.Balance().Eq(remaining) {
		t.Fatalf("balance %s != %s", c.Balance(), remaining)
	}
}

func TestUpgradeRecordsCodeHash(t *testing.T) {
	c, priv := newTestContract(t)

	codeHash := common.HexToHash("0xabcdef0000000000000000000000000000000000000000000000000000000001")
	if _, err := sendCommand(c, priv, 400, wire.OpUpgrade, wire.EncodeUpgrade(codeHash)); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if c.State().CodeHash != codeHash {
		t.Fatalf("code hash %s != %s", c.State().CodeHash, codeHash)
	}
}
