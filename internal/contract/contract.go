package contract

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"poolotto/internal/wire"
)

// Internal is an inbound value-bearing message. The first four bytes of the
// body, when present, are the big-endian opcode; an empty body or op 0 (a
// text-comment transfer) is a deposit.
type Internal struct {
	Sender common.Address
	Value  *uint256.Int
	Body   []byte
}

// Outbound is a message the contract emits. Each outbound transfer is
// independent: delivery failure of one never rolls back the others.
type Outbound struct {
	To      common.Address
	Value   *uint256.Int
	Op      uint32
	Body    []byte
	Comment string
}

// Contract executes the staking-pool lottery protocol over a State. Handlers
// run single-threaded and to completion; rejections leave state untouched.
type Contract struct {
	state  *State
	logger *zap.Logger
}

// New builds a Contract over deployed state.
func New(state *State, logger *zap.Logger) *Contract {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Contract{state: state, logger: logger}
}

// State exposes the underlying state for snapshots and queries.
func (c *Contract) State() *State {
	return c.state
}

// HandleExternal authenticates and executes an owner command envelope. The
// sequence counter advances only when the command is accepted.
func (c *Contract) HandleExternal(now uint32, raw []byte) ([]Outbound, error) {
	env, err := wire.ParseEnvelope(raw)
	if err != nil {
		return nil, &AuthError{Reason: err.Error()}
	}

	if err := c.authenticate(now, env); err != nil {
		c.logger.Warn("command rejected", zap.Uint32("op", env.Op), zap.Error(err))
		return nil, err
	}

	outs, err := c.dispatchCommand(now, env.Op, env.Payload)
	if err != nil {
		c.logger.Warn("command failed", zap.Uint32("op", env.Op), zap.Uint32("seqno", env.Seqno), zap.Error(err))
		return nil, err
	}

	c.state.Seqno++
	c.logger.Info("command accepted", zap.Uint32("op", env.Op), zap.Uint32("seqno", c.state.Seqno))
	return outs, nil
}

func (c *Contract) dispatchCommand(now uint32, op uint32, payload []byte) ([]Outbound, error) {
	switch op {
	case wire.OpCreatePool:
		return c.createPool(payload)
	case wire.OpCancelPool:
		return c.cancelPool(payload)
	case wire.OpClosePool:
		return c.closePool(now, payload)
	case wire.OpWithdraw:
		return c.withdraw()
	case wire.OpUpgrade:
		return c.upgrade(payload)
	default:
		return nil, &AuthError{Reason: "unknown command opcode"}
	}
}

// HandleInternal executes a value-bearing message. The attached value is
// credited to the contract balance before dispatch; rejection paths return
// it through an outbound message rather than un-crediting silently.
func (c *Contract) HandleInternal(now uint32, msg Internal) []Outbound {
	value := msg.Value
	if value == nil {
		value = uint256.NewInt(0)
	}
	c.state.Balance = new(uint256.Int).Add(c.state.Balance, value)

	if len(msg.Body) < 4 {
		// Plain deposit.
		c.logger.Debug("deposit", zap.Stringer("sender", msg.Sender), zap.String("value", value.Dec()))
		return nil
	}

	op := binary.BigEndian.Uint32(msg.Body[:4])
	body := msg.Body[4:]

	switch op {
	case 0:
		// Transfer with a text comment, credited the same as a bare deposit.
		c.logger.Debug("deposit", zap.Stringer("sender", msg.Sender), zap.String("value", value.Dec()), zap.ByteString("comment", body))
		return nil
	case wire.OpJoinPool:
		return c.handleJoin(now, msg.Sender, value, body)
	case wire.OpRandomnessCallback:
		return c.handleRandomnessCallback(msg.Sender, body)
	default:
		c.logger.Debug("unknown internal op", zap.Uint32("op", op), zap.Stringer("sender", msg.Sender))
		return []Outbound{c.refund(msg.Sender, value, "Unknown op!")}
	}
}

// refund returns value to a sender with a text comment, debiting the balance.
func (c *Contract) refund(to common.Address, value *uint256.Int, comment string) Outbound {
	c.state.Balance = new(uint256.Int).Sub(c.state.Balance, value)
	return Outbound{To: to, Value: value.Clone(), Comment: comment}
}
