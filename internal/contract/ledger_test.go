package contract

import (
	"testing"

	"github.com/holiman/uint256"

	"poolotto/internal/wire"
)

func expectBounce(t *testing.T, outs []Outbound, value *uint256.Int, code uint32) {
	t.Helper()
	if len(outs) != 1 {
		t.Fatalf("expected one bounce, got %d messages", len(outs))
	}
	out := outs[0]
	if out.Op != wire.OpJoinPool {
		t.Fatalf("bounce op %#x, want %#x", out.Op, wire.OpJoinPool)
	}
	if !out.Value.Eq(value) {
		t.Fatalf("bounce value %s, want %s", out.Value, value)
	}
	queryID, gotCode, err := wire.DecodeBounce(out.Body)
	if err != nil {
		t.Fatalf("decode bounce: %v", err)
	}
	if queryID != testQueryID {
		t.Fatalf("bounce query id %d, want %d", queryID, testQueryID)
	}
	if gotCode != code {
		t.Fatalf("bounce code %d, want %d", gotCode, code)
	}
}

func TestJoinAssignsEntryIndexes(t *testing.T) {
	c, priv := newTestContract(t)
	createTestPool(t, c, priv, 400, 121)

	for i := byte(0); i < 3; i++ {
		if outs := joinPool(c, 405, staker(i), oneStake, 121); len(outs) != 0 {
			t.Fatalf("join %d bounced: %+v", i, outs)
		}
	}

	for i := byte(0); i < 3; i++ {
		entry, err := c.GetParticipant(121, staker(i))
		if err != nil {
			t.Fatalf("get participant %d: %v", i, err)
		}
		if entry.EntryIndex != uint32(i) {
			t.Fatalf("entry index %d, want %d", entry.EntryIndex, i)
		}
		if !entry.StakeAmount.Eq(oneStake) {
			t.Fatalf("entry stake %s, want %s", entry.StakeAmount, oneStake)
		}
	}
}

func TestJoinWrongStakeBounces(t *testing.T) {
	c, priv := newTestContract(t)
	createTestPool(t, c, priv, 400, 121)

	for _, value := range []*uint256.Int{
		uint256.NewInt(999_999_999),
		uint256.NewInt(1_000_000_001),
	} {
		outs := joinPool(c, 405, staker(1), value, 121)
		expectBounce(t, outs, value, CodeWrongStake)
	}

	// The attempted stake came back; the pool pot is untouched.
	view, err := c.GetPool(121)
	if err != nil {
		t.Fatalf("get pool: %v", err)
	}
	if view.CurrentCount != 0 {
		t.Fatalf("rejected join was recorded: %+v", view)
	}
	if !c.Balance().IsZero() {
		t.Fatalf("balance retained rejected stake: %s", c.Balance())
	}
}

func TestJoinTwiceBounces(t *testing.T) {
	c, priv := newTestContract(t)
	createTestPool(t, c, priv, 400, 121)

	if outs := joinPool(c, 405, staker(1), oneStake, 121); len(outs) != 0 {
		t.Fatalf("first join bounced: %+v", outs)
	}
	outs := joinPool(c, 406, staker(1), oneStake, 121)
	expectBounce(t, outs, oneStake, CodeAlreadyJoined)
}

func TestJoinAfterEndTimeBounces(t *testing.T) {
	c, priv := newTestContract(t)
	createTestPool(t, c, priv, 400, 121)

	outs := joinPool(c, 411, staker(1), oneStake, 121)
	expectBounce(t, outs, oneStake, CodePoolNotOpen)
}

func TestJoinUnknownPoolBounces(t *testing.T) {
	c, _ := newTestContract(t)

	outs := joinPool(c, 405, staker(1), oneStake, 999)
	expectBounce(t, outs, oneStake, CodePoolNotFound)
}

func TestJoinFullPoolBounces(t *testing.T) {
	c, priv := newTestContract(t)

	payload, err := wire.EncodeCreatePool(wire.CreatePoolPayload{
		PoolID: 5, StartTime: 380, EndTime: 410, MaxParticipants: 2, StakeAmount: oneStake,
	})
	if err != nil {
		t.Fatalf("encode create: %v", err)
	}
	if _, err := sendCommand(c, priv, 400, wire.OpCreatePool, payload); err != nil {
		t.Fatalf("create pool: %v", err)
	}

	joinPool(c, 405, staker(1), oneStake, 5)
	joinPool(c, 405, staker(2), oneStake, 5)
	outs := joinPool(c, 405, staker(3), oneStake, 5)
	expectBounce(t, outs, oneStake, CodePoolNotOpen)
}

func TestJoinNotOpenPoolBounces(t *testing.T) {
	c, priv := newTestContract(t)
	createTestPool(t, c, priv, 400, 121)
	joinPool(c, 405, staker(1), oneStake, 121)

	if _, err := sendCommand(c, priv, 420, wire.OpClosePool, wire.EncodePoolID(121)); err != nil {
		t.Fatalf("close pool: %v", err)
	}

	outs := joinPool(c, 420, staker(2), oneStake, 121)
	expectBounce(t, outs, oneStake, CodePoolNotOpen)
}
