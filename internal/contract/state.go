package contract

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// State is the full persisted state of one contract instance. It is mutated
// only by successfully authenticated commands or validated internal
// messages, and is JSON-serializable for snapshots.
type State struct {
	Seqno        uint32           `json:"seqno"`
	OwnerPubKey  hexutil.Bytes    `json:"owner_pub_key"`
	OwnerAddress common.Address   `json:"owner_address"`
	Self         common.Address   `json:"self"`
	Coordinator  common.Address   `json:"coordinator"`
	FeeBps       uint32           `json:"fee_bps"`
	CodeHash     common.Hash      `json:"code_hash"`
	Active       bool             `json:"active"`
	Balance      *uint256.Int     `json:"balance"`
	Pools        map[uint32]*Pool `json:"pools"`

	// Pool ids awaiting a randomness callback, in subscription order. The
	// coordinator fulfills subscriptions in order, so callbacks route to the
	// head of this queue.
	PendingRandomness []uint32 `json:"pending_randomness,omitempty"`
}

// DeployConfig holds the parameters fixed at deployment.
type DeployConfig struct {
	Seqno        uint32
	OwnerPubKey  ed25519.PublicKey
	OwnerAddress common.Address
	Self         common.Address
	Coordinator  common.Address
	FeeBps       uint32
}

// NewState initializes deployed contract state.
func NewState(cfg DeployConfig) (*State, error) {
	if len(cfg.OwnerPubKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("owner public key must be %d bytes", ed25519.PublicKeySize)
	}
	if cfg.FeeBps >= 10_000 {
		return nil, fmt.Errorf("fee bps must be below 10000")
	}
	return &State{
		Seqno:        cfg.Seqno,
		OwnerPubKey:  hexutil.Bytes(cfg.OwnerPubKey),
		OwnerAddress: cfg.OwnerAddress,
		Self:         cfg.Self,
		Coordinator:  cfg.Coordinator,
		FeeBps:       cfg.FeeBps,
		Active:       true,
		Balance:      uint256.NewInt(0),
		Pools:        make(map[uint32]*Pool),
	}, nil
}

// Init restores in-memory indexes after a snapshot load.
func (s *State) Init() {
	if s.Balance == nil {
		s.Balance = uint256.NewInt(0)
	}
	if s.Pools == nil {
		s.Pools = make(map[uint32]*Pool)
	}
	for _, pool := range s.Pools {
		pool.reindex()
	}
}

func (s *State) ownerKey() ed25519.PublicKey {
	return ed25519.PublicKey(s.OwnerPubKey)
}

// committed returns the sum of all live pool pots. The single contract
// balance backs every pot at once, so this amount is never withdrawable.
func (s *State) committed() *uint256.Int {
	total := uint256.NewInt(0)
	for _, pool := range s.Pools {
		total.Add(total, pool.Pot)
	}
	return total
}
