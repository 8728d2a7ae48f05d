package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Inbound record kinds.
const (
	KindExternal = "external"
	KindInternal = "internal"
)

// InboundRecord is one journal line of a message delivered to the contract.
// External records carry a signed envelope; internal records carry sender,
// attached value, and body.
type InboundRecord struct {
	Kind     string         `json:"kind"`
	Time     uint32         `json:"time"`
	Envelope hexutil.Bytes  `json:"envelope,omitempty"`
	Sender   common.Address `json:"sender,omitempty"`
	Value    *uint256.Int   `json:"value,omitempty"`
	Body     hexutil.Bytes  `json:"body,omitempty"`
}

// OutboundRecord is one journal line of a message the contract emitted.
type OutboundRecord struct {
	Seq     uint64         `json:"seq"`
	Time    uint32         `json:"time"`
	To      common.Address `json:"to"`
	Value   *uint256.Int   `json:"value"`
	Op      uint32         `json:"op,omitempty"`
	Body    hexutil.Bytes  `json:"body,omitempty"`
	Comment string         `json:"comment,omitempty"`
}
