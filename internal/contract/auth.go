package contract

import (
	"crypto/ed25519"

	"poolotto/internal/wire"
)

// authenticate verifies an owner command envelope: the contract must be
// active, the signature must cover Keccak256(op || payload) under the owner
// key, the sequence number must match exactly (lower and higher both fail),
// and the validity bound must not have elapsed.
func (c *Contract) authenticate(now uint32, env wire.Envelope) error {
	if !c.state.Active {
		return &AuthError{Reason: "contract is not active"}
	}
	if len(env.Signature) != ed25519.SignatureSize {
		return &AuthError{Reason: "malformed signature"}
	}
	if !ed25519.Verify(c.state.ownerKey(), wire.CommandDigest(env.Op, env.Payload), env.Signature) {
		return &AuthError{Reason: "invalid signature"}
	}
	if env.Seqno != c.state.Seqno {
		return &AuthError{Reason: "sequence number mismatch"}
	}
	if env.ValidUntil <= now {
		return &AuthError{Reason: "validity window elapsed"}
	}
	return nil
}
