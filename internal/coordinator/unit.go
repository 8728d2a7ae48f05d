package coordinator

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"poolotto/internal/wire"
)

// Unit simulates the external randomness coordinator contract for local runs
// and tests. It tracks subscriptions in arrival order and fulfills them
// first-in-first-out with a deterministic pseudo-VRF value. Real
// verifiable-randomness proofs are out of scope; consumers only see the
// callback message contract.
type Unit struct {
	addr    common.Address
	owner   common.Address
	secret  *uint256.Int
	counter uint64
	pending []common.Address
	logger  *zap.Logger
}

// NewUnit builds a coordinator unit with a fixed secret scalar.
func NewUnit(addr, owner common.Address, secret *uint256.Int, logger *zap.Logger) *Unit {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Unit{
		addr:   addr,
		owner:  owner,
		secret: secret.Clone(),
		logger: logger,
	}
}

// Address returns the coordinator's own address.
func (u *Unit) Address() common.Address {
	return u.addr
}

// Owner returns the address that operates this unit.
func (u *Unit) Owner() common.Address {
	return u.owner
}

// Unfulfilled returns the number of pending subscriptions.
func (u *Unit) Unfulfilled() int {
	return len(u.pending)
}

// HandleSubscribe queues a subscription request body (consumer address).
func (u *Unit) HandleSubscribe(body []byte) error {
	consumer, err := wire.DecodeSubscribe(body)
	if err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	u.pending = append(u.pending, consumer)
	u.logger.Debug("subscription queued", zap.Stringer("consumer", consumer), zap.Int("unfulfilled", len(u.pending)))
	return nil
}

// Fulfill produces the callback for the oldest subscription. The returned
// body is a complete internal message body (opcode plus 256-bit value) to be
// delivered with the coordinator as sender.
func (u *Unit) Fulfill() (common.Address, []byte, error) {
	if len(u.pending) == 0 {
		return common.Address{}, nil, fmt.Errorf("no unfulfilled subscriptions")
	}
	consumer := u.pending[0]
	u.pending = u.pending[1:]

	value := u.nextValue()
	body := make([]byte, 4, 4+32)
	binary.BigEndian.PutUint32(body, wire.OpRandomnessCallback)
	body = append(body, wire.EncodeRandomnessCallback(value)...)

	u.logger.Info("randomness fulfilled",
		zap.Stringer("consumer", consumer),
		zap.Uint64("proof_counter", u.counter),
		zap.String("value", value.Hex()),
	)
	return consumer, body, nil
}

// nextValue derives Keccak256(secret || proofCounter) and advances the
// counter, so repeated runs with the same secret replay identically.
func (u *Unit) nextValue() *uint256.Int {
	secret := u.secret.Bytes32()
	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], u.counter)
	u.counter++
	return new(uint256.Int).SetBytes(crypto.Keccak256(secret[:], counter[:]))
}
