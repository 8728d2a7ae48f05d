package contract

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Status is a pool lifecycle state.
type Status uint8

const (
	StatusOpen Status = iota
	StatusAwaitingRandomness
	StatusClosed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusAwaitingRandomness:
		return "awaiting_randomness"
	case StatusClosed:
		return "closed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Participant is one staker's entry in a pool.
type Participant struct {
	Staker      common.Address `json:"staker"`
	EntryIndex  uint32         `json:"entry_index"`
	StakeAmount *uint256.Int   `json:"stake_amount"`
}

// Pool is one time-boxed staking round. StartTime, EndTime, MaxParticipants
// and StakeAmount are immutable after creation; RandomValue, Ranking and
// Rewards are set exactly once by the randomness callback.
type Pool struct {
	ID              uint32         `json:"id"`
	StartTime       uint32         `json:"start_time"`
	EndTime         uint32         `json:"end_time"`
	MaxParticipants uint32         `json:"max_participants"`
	StakeAmount     *uint256.Int   `json:"stake_amount"`
	Status          Status         `json:"status"`
	Participants    []*Participant `json:"participants"`
	Pot             *uint256.Int   `json:"pot"`
	RandomValue     *uint256.Int   `json:"random_value,omitempty"`
	Ranking         []uint32       `json:"ranking,omitempty"`
	Rewards         []*uint256.Int `json:"rewards,omitempty"`

	byStaker map[common.Address]int
}

func newPool(id, startTime, endTime, maxParticipants uint32, stake *uint256.Int) *Pool {
	return &Pool{
		ID:              id,
		StartTime:       startTime,
		EndTime:         endTime,
		MaxParticipants: maxParticipants,
		StakeAmount:     stake.Clone(),
		Status:          StatusOpen,
		Pot:             uint256.NewInt(0),
		byStaker:        make(map[common.Address]int),
	}
}

// reindex rebuilds the staker lookup after a snapshot load.
func (p *Pool) reindex() {
	p.byStaker = make(map[common.Address]int, len(p.Participants))
	for i, participant := range p.Participants {
		p.byStaker[participant.Staker] = i
	}
	if p.Pot == nil {
		p.Pot = uint256.NewInt(0)
	}
}

func (p *Pool) participant(staker common.Address) (*Participant, bool) {
	i, ok := p.byStaker[staker]
	if !ok {
		return nil, false
	}
	return p.Participants[i], true
}

func (p *Pool) addParticipant(staker common.Address) *Participant {
	entry := &Participant{
		Staker:      staker,
		EntryIndex:  uint32(len(p.Participants)),
		StakeAmount: p.StakeAmount.Clone(),
	}
	p.byStaker[staker] = len(p.Participants)
	p.Participants = append(p.Participants, entry)
	p.Pot = new(uint256.Int).Add(p.Pot, p.StakeAmount)
	return entry
}
