package contract

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// PoolView is the read-only projection of a pool returned by queries.
type PoolView struct {
	PoolID          uint32         `json:"pool_id"`
	StartTime       uint32         `json:"start_time"`
	EndTime         uint32         `json:"end_time"`
	MaxParticipants uint32         `json:"max_participants"`
	CurrentCount    uint32         `json:"current_count"`
	StakeAmount     *uint256.Int   `json:"stake_amount"`
	Status          string         `json:"status"`
	Participants    []*Participant `json:"participants,omitempty"`
	Ranking         []uint32       `json:"ranking,omitempty"`
	Rewards         []*uint256.Int `json:"rewards,omitempty"`
}

// ParticipantView is the read-only projection of one pool entry.
type ParticipantView struct {
	EntryIndex  uint32         `json:"entry_index"`
	Staker      common.Address `json:"staker"`
	StakeAmount *uint256.Int   `json:"stake_amount"`
}

// Seqno returns the current sequence counter.
func (c *Contract) Seqno() uint32 {
	return c.state.Seqno
}

// OwnerPubkeyHex returns the owner public key as a hex string.
func (c *Contract) OwnerPubkeyHex() string {
	return hexutil.Encode(c.state.OwnerPubKey)
}

// Balance returns the total contract balance.
func (c *Contract) Balance() *uint256.Int {
	return c.state.Balance.Clone()
}

// GetPool returns the view of one pool.
func (c *Contract) GetPool(poolID uint32) (PoolView, error) {
	pool, ok := c.state.Pools[poolID]
	if !ok {
		return PoolView{}, ErrPoolNotFound
	}
	return poolView(pool), nil
}

// GetPools returns views of all tracked pools, ordered by pool id.
func (c *Contract) GetPools() []PoolView {
	views := make([]PoolView, 0, len(c.state.Pools))
	for _, pool := range c.state.Pools {
		views = append(views, poolView(pool))
	}
	sort.Slice(views, func(a, b int) bool { return views[a].PoolID < views[b].PoolID })
	return views
}

// GetParticipant returns one staker's entry in a pool.
func (c *Contract) GetParticipant(poolID uint32, staker common.Address) (ParticipantView, error) {
	pool, ok := c.state.Pools[poolID]
	if !ok {
		return ParticipantView{}, ErrPoolNotFound
	}
	entry, ok := pool.participant(staker)
	if !ok {
		return ParticipantView{}, ErrPoolNotFound
	}
	return ParticipantView{
		EntryIndex:  entry.EntryIndex,
		Staker:      entry.Staker,
		StakeAmount: entry.StakeAmount.Clone(),
	}, nil
}

// GetReward returns the reward for a rank (1-based) in a resolved pool. It is
// pure and idempotent: repeated queries return identical values.
func (c *Contract) GetReward(poolID uint32, rank uint32) (*uint256.Int, error) {
	pool, ok := c.state.Pools[poolID]
	if !ok {
		return nil, ErrPoolNotFound
	}
	if pool.Status != StatusClosed || rank == 0 || int(rank) > len(pool.Rewards) {
		return nil, ErrNothingToDo
	}
	return pool.Rewards[rank-1].Clone(), nil
}

func poolView(pool *Pool) PoolView {
	view := PoolView{
		PoolID:          pool.ID,
		StartTime:       pool.StartTime,
		EndTime:         pool.EndTime,
		MaxParticipants: pool.MaxParticipants,
		CurrentCount:    uint32(len(pool.Participants)),
		StakeAmount:     pool.StakeAmount.Clone(),
		Status:          pool.Status.String(),
		Participants:    pool.Participants,
		Ranking:         pool.Ranking,
		Rewards:         pool.Rewards,
	}
	return view
}
