package contract

import (
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"poolotto/internal/wire"
)

// storageReserve is kept back from owner withdrawals so the contract always
// retains a minimal operating balance.
var storageReserve = uint256.NewInt(50_000_000)

func (c *Contract) createPool(payload []byte) ([]Outbound, error) {
	params, err := wire.DecodeCreatePool(payload)
	if err != nil {
		return nil, &AuthError{Reason: err.Error()}
	}
	if _, exists := c.state.Pools[params.PoolID]; exists {
		return nil, ErrDuplicatePool
	}

	pool := newPool(params.PoolID, params.StartTime, params.EndTime, params.MaxParticipants, params.StakeAmount)
	c.state.Pools[params.PoolID] = pool

	c.logger.Info("pool created",
		zap.Uint32("pool_id", pool.ID),
		zap.Uint32("start_time", pool.StartTime),
		zap.Uint32("end_time", pool.EndTime),
		zap.Uint32("max_participants", pool.MaxParticipants),
		zap.String("stake", pool.StakeAmount.Dec()),
	)
	return nil, nil
}

// cancelPool refunds every participant their exact stake, in entry order,
// then removes the pool. Only an Open pool can be cancelled; once a close is
// in flight it must run to completion.
func (c *Contract) cancelPool(payload []byte) ([]Outbound, error) {
	poolID, err := wire.DecodePoolID(payload)
	if err != nil {
		return nil, &AuthError{Reason: err.Error()}
	}
	pool, ok := c.state.Pools[poolID]
	if !ok {
		return nil, ErrPoolNotFound
	}
	if pool.Status != StatusOpen {
		return nil, ErrCloseWrongState
	}

	outs := make([]Outbound, 0, len(pool.Participants))
	for _, participant := range pool.Participants {
		c.state.Balance = new(uint256.Int).Sub(c.state.Balance, participant.StakeAmount)
		outs = append(outs, Outbound{To: participant.Staker, Value: participant.StakeAmount.Clone()})
	}

	pool.Status = StatusCancelled
	delete(c.state.Pools, poolID)

	c.logger.Info("pool cancelled", zap.Uint32("pool_id", poolID), zap.Int("refunds", len(outs)))
	return outs, nil
}

// closePool moves an Open pool to AwaitingRandomness and subscribes to the
// coordinator. The transition to Closed happens only in the callback handler.
func (c *Contract) closePool(now uint32, payload []byte) ([]Outbound, error) {
	poolID, err := wire.DecodePoolID(payload)
	if err != nil {
		return nil, &AuthError{Reason: err.Error()}
	}
	pool, ok := c.state.Pools[poolID]
	if !ok {
		return nil, ErrPoolNotFound
	}
	if pool.Status != StatusOpen {
		return nil, ErrCloseWrongState
	}
	if now <= pool.EndTime || len(pool.Participants) == 0 {
		return nil, ErrCloseNotReady
	}

	pool.Status = StatusAwaitingRandomness
	c.state.PendingRandomness = append(c.state.PendingRandomness, poolID)

	c.logger.Info("pool awaiting randomness", zap.Uint32("pool_id", poolID), zap.Int("participants", len(pool.Participants)))
	return []Outbound{c.subscribeMessage()}, nil
}

// withdraw sends the uncommitted balance to the owner. Escrowed pool pots
// and the storage reserve stay behind.
func (c *Contract) withdraw() ([]Outbound, error) {
	locked := c.state.committed()
	locked.Add(locked, storageReserve)

	if c.state.Balance.Cmp(locked) <= 0 {
		return nil, ErrNothingToDo
	}
	free := new(uint256.Int).Sub(c.state.Balance, locked)
	c.state.Balance = new(uint256.Int).Sub(c.state.Balance, free)

	c.logger.Info("withdraw", zap.String("amount", free.Dec()), zap.Stringer("owner", c.state.OwnerAddress))
	return []Outbound{{To: c.state.OwnerAddress, Value: free}}, nil
}

// upgrade records the new code hash; the state layout is preserved.
func (c *Contract) upgrade(payload []byte) ([]Outbound, error) {
	codeHash, err := wire.DecodeUpgrade(payload)
	if err != nil {
		return nil, &AuthError{Reason: err.Error()}
	}
	c.state.CodeHash = codeHash
	c.logger.Info("code upgraded", zap.Stringer("code_hash", codeHash))
	return nil, nil
}
