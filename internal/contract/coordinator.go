package contract

import (
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolotto/internal/wire"
)

// subscribeMessage builds the subscription request sent to the randomness
// coordinator, naming this contract as the consumer.
func (c *Contract) subscribeMessage() Outbound {
	return Outbound{
		To:   c.state.Coordinator,
		Op:   wire.OpSubscribeRandom,
		Body: wire.EncodeSubscribe(c.state.Self),
	}
}

// handleRandomnessCallback routes a coordinator callback to the oldest pool
// awaiting randomness, stores the value once, transitions the pool to Closed
// and distributes rewards in the same handling step. Callbacks from any
// other sender, or arriving with no pool pending, are ignored: a stray
// message must not corrupt unrelated pool state.
func (c *Contract) handleRandomnessCallback(sender common.Address, body []byte) []Outbound {
	if sender != c.state.Coordinator {
		c.logger.Debug("randomness callback from unexpected sender", zap.Stringer("sender", sender))
		return nil
	}
	value, err := wire.DecodeRandomnessCallback(body)
	if err != nil {
		c.logger.Debug("malformed randomness callback", zap.Error(err))
		return nil
	}
	if len(c.state.PendingRandomness) == 0 {
		c.logger.Debug("randomness callback with no pool pending")
		return nil
	}

	poolID := c.state.PendingRandomness[0]
	pool, ok := c.state.Pools[poolID]
	if !ok || pool.Status != StatusAwaitingRandomness {
		// Queue head went stale; drop it and ignore the callback.
		c.state.PendingRandomness = c.state.PendingRandomness[1:]
		c.logger.Debug("randomness callback for stale pool", zap.Uint32("pool_id", poolID))
		return nil
	}

	c.state.PendingRandomness = c.state.PendingRandomness[1:]
	pool.RandomValue = value.Clone()
	pool.Status = StatusClosed

	c.logger.Info("randomness received", zap.Uint32("pool_id", poolID), zap.String("value", value.Hex()))
	return c.distributeRewards(pool)
}
