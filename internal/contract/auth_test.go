package contract

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"testing"

	"poolotto/internal/wire"
)

func TestSeqnoAdvancesOnlyOnAcceptedCommands(t *testing.T) {
	c, priv := newTestContract(t)
	start := c.Seqno()

	payload, err := wire.EncodeCreatePool(wire.CreatePoolPayload{
		PoolID: 121, StartTime: 380, EndTime: 410, MaxParticipants: 100, StakeAmount: oneStake,
	})
	if err != nil {
		t.Fatalf("encode create: %v", err)
	}

	if _, err := sendCommand(c, priv, 400, wire.OpCreatePool, payload); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if c.Seqno() != start+1 {
		t.Fatalf("seqno %d, want %d", c.Seqno(), start+1)
	}

	// Duplicate pool id: authenticated but rejected, seqno unchanged.
	if _, err := sendCommand(c, priv, 400, wire.OpCreatePool, payload); err == nil {
		t.Fatalf("expected duplicate pool rejection")
	}
	if c.Seqno() != start+1 {
		t.Fatalf("rejected command advanced seqno to %d", c.Seqno())
	}
}

func TestRejectsWrongSeqno(t *testing.T) {
	c, priv := newTestContract(t)

	for _, seqno := range []uint32{c.Seqno() - 1, c.Seqno() + 1} {
		raw := wire.SignEnvelope(priv, seqno, 430, wire.OpWithdraw, nil)
		_, err := c.HandleExternal(400, raw)
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("seqno %d: expected auth error, got %v", seqno, err)
		}
	}
	if c.Seqno() != 12 {
		t.Fatalf("seqno moved to %d", c.Seqno())
	}
}

func TestRejectsForeignSignature(t *testing.T) {
	c, _ := newTestContract(t)

	stranger := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{0x99}, ed25519.SeedSize))
	raw := wire.SignEnvelope(stranger, c.Seqno(), 430, wire.OpWithdraw, nil)

	_, err := c.HandleExternal(400, raw)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestRejectsElapsedValidityWindow(t *testing.T) {
	c, priv := newTestContract(t)

	raw := wire.SignEnvelope(priv, c.Seqno(), 400, wire.OpWithdraw, nil)
	_, err := c.HandleExternal(400, raw)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestRejectsWhenInactive(t *testing.T) {
	c, priv := newTestContract(t)
	c.State().Active = false

	raw := wire.SignEnvelope(priv, c.Seqno(), 430, wire.OpWithdraw, nil)
	_, err := c.HandleExternal(400, raw)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestRejectsTamperedPayload(t *testing.T) {
	c, priv := newTestContract(t)

	raw := wire.SignEnvelope(priv, c.Seqno(), 430, wire.OpClosePool, wire.EncodePoolID(121))
	raw[len(raw)-1] ^= 0xff

	_, err := c.HandleExternal(400, raw)
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected auth error, got %v", err)
	}
}
