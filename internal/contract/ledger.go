package contract

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"poolotto/internal/wire"
)

// handleJoin admits a staker into an Open pool. Join messages are
// unauthenticated and interleave arbitrarily with owner commands, so every
// precondition is re-checked here on every invocation. Rejections bounce the
// full attached value back to the sender with the original query id and a
// stable reason code; a malformed or unknown pool id is answered the same
// way rather than treated as a contract fault.
func (c *Contract) handleJoin(now uint32, sender common.Address, value *uint256.Int, body []byte) []Outbound {
	join, err := wire.DecodeJoin(body)
	if err != nil {
		c.logger.Debug("malformed join", zap.Stringer("sender", sender), zap.Error(err))
		return []Outbound{c.refund(sender, value, "Malformed join!")}
	}

	pool, ok := c.state.Pools[join.PoolID]
	if !ok {
		return c.bounceJoin(sender, value, join, CodePoolNotFound)
	}
	if pool.Status != StatusOpen || now > pool.EndTime {
		return c.bounceJoin(sender, value, join, CodePoolNotOpen)
	}
	if !value.Eq(pool.StakeAmount) {
		return c.bounceJoin(sender, value, join, CodeWrongStake)
	}
	if _, joined := pool.participant(sender); joined {
		return c.bounceJoin(sender, value, join, CodeAlreadyJoined)
	}
	if uint32(len(pool.Participants)) >= pool.MaxParticipants {
		return c.bounceJoin(sender, value, join, CodePoolNotOpen)
	}

	entry := pool.addParticipant(sender)
	c.logger.Info("staker joined",
		zap.Uint32("pool_id", pool.ID),
		zap.Stringer("staker", sender),
		zap.Uint32("entry_index", entry.EntryIndex),
	)
	return nil
}

func (c *Contract) bounceJoin(sender common.Address, value *uint256.Int, join wire.JoinBody, code uint32) []Outbound {
	c.logger.Debug("join rejected",
		zap.Uint32("pool_id", join.PoolID),
		zap.Stringer("sender", sender),
		zap.Uint32("code", code),
	)
	out := c.refund(sender, value, "")
	out.Op = wire.OpJoinPool
	out.Body = wire.EncodeBounce(join.QueryID, code)
	return []Outbound{out}
}
