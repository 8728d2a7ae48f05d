package wire

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Wire layout of an external command envelope (big-endian):
//
//	signature[64] | seqno u32 | validUntil u32 | op u32 | payload
//
// The signature covers Keccak256(op || payload); replay protection comes from
// the seqno equality check in the authenticator, not from the digest.
const (
	SignatureSize  = ed25519.SignatureSize
	envelopeHeader = SignatureSize + 4 + 4 + 4

	// Coin amounts travel as fixed 16-byte big-endian fields.
	coinSize = 16
)

// Envelope is a decoded external command envelope.
type Envelope struct {
	Signature  []byte
	Seqno      uint32
	ValidUntil uint32
	Op         uint32
	Payload    []byte
}

// CommandDigest returns the digest an owner signature must cover.
func CommandDigest(op uint32, payload []byte) []byte {
	buf := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint32(buf, op)
	return crypto.Keccak256(buf, payload)
}

// SignEnvelope builds and signs an external command envelope.
func SignEnvelope(key ed25519.PrivateKey, seqno, validUntil, op uint32, payload []byte) []byte {
	sig := ed25519.Sign(key, CommandDigest(op, payload))

	buf := make([]byte, envelopeHeader+len(payload))
	copy(buf, sig)
	binary.BigEndian.PutUint32(buf[SignatureSize:], seqno)
	binary.BigEndian.PutUint32(buf[SignatureSize+4:], validUntil)
	binary.BigEndian.PutUint32(buf[SignatureSize+8:], op)
	copy(buf[envelopeHeader:], payload)
	return buf
}

// ParseEnvelope decodes an external command envelope.
func ParseEnvelope(raw []byte) (Envelope, error) {
	if len(raw) < envelopeHeader {
		return Envelope{}, fmt.Errorf("envelope too short: %d bytes", len(raw))
	}
	return Envelope{
		Signature:  raw[:SignatureSize],
		Seqno:      binary.BigEndian.Uint32(raw[SignatureSize:]),
		ValidUntil: binary.BigEndian.Uint32(raw[SignatureSize+4:]),
		Op:         binary.BigEndian.Uint32(raw[SignatureSize+8:]),
		Payload:    raw[envelopeHeader:],
	}, nil
}

// CreatePoolPayload carries the immutable parameters of a new pool.
type CreatePoolPayload struct {
	PoolID          uint32
	StartTime       uint32
	EndTime         uint32
	MaxParticipants uint32
	StakeAmount     *uint256.Int
}

// EncodeCreatePool encodes a create-pool payload.
func EncodeCreatePool(p CreatePoolPayload) ([]byte, error) {
	if p.StakeAmount == nil {
		return nil, fmt.Errorf("stake amount is required")
	}
	if p.StakeAmount.BitLen() > coinSize*8 {
		return nil, fmt.Errorf("stake amount does not fit in %d bytes", coinSize)
	}

	buf := make([]byte, 16+coinSize)
	binary.BigEndian.PutUint32(buf[0:], p.PoolID)
	binary.BigEndian.PutUint32(buf[4:], p.StartTime)
	binary.BigEndian.PutUint32(buf[8:], p.EndTime)
	binary.BigEndian.PutUint32(buf[12:], p.MaxParticipants)
	stake := p.StakeAmount.Bytes32()
	copy(buf[16:], stake[32-coinSize:])
	return buf, nil
}

// DecodeCreatePool decodes a create-pool payload.
func DecodeCreatePool(payload []byte) (CreatePoolPayload, error) {
	if len(payload) != 16+coinSize {
		return CreatePoolPayload{}, fmt.Errorf("create pool payload length %d", len(payload))
	}
	stake := new(uint256.Int).SetBytes(payload[16:])
	return CreatePoolPayload{
		PoolID:          binary.BigEndian.Uint32(payload[0:]),
		StartTime:       binary.BigEndian.Uint32(payload[4:]),
		EndTime:         binary.BigEndian.Uint32(payload[8:]),
		MaxParticipants: binary.BigEndian.Uint32(payload[12:]),
		StakeAmount:     stake,
	}, nil
}

// EncodePoolID encodes the single-pool-id payload used by cancel and close.
func EncodePoolID(poolID uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, poolID)
	return buf
}

// DecodePoolID decodes a single-pool-id payload.
func DecodePoolID(payload []byte) (uint32, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("pool id payload length %d", len(payload))
	}
	return binary.BigEndian.Uint32(payload), nil
}

// EncodeUpgrade encodes an upgrade payload carrying the new code hash.
func EncodeUpgrade(codeHash common.Hash) []byte {
	return codeHash.Bytes()
}

// DecodeUpgrade decodes an upgrade payload.
func DecodeUpgrade(payload []byte) (common.Hash, error) {
	if len(payload) != common.HashLength {
		return common.Hash{}, fmt.Errorf("upgrade payload length %d", len(payload))
	}
	return common.BytesToHash(payload), nil
}

// JoinBody is the body of an internal join message.
type JoinBody struct {
	QueryID uint64
	PoolID  uint32
}

// EncodeJoin encodes a join message body.
func EncodeJoin(b JoinBody) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint64(buf[0:], b.QueryID)
	binary.BigEndian.PutUint32(buf[8:], b.PoolID)
	return buf
}

// DecodeJoin decodes a join message body.
func DecodeJoin(body []byte) (JoinBody, error) {
	if len(body) != 12 {
		return JoinBody{}, fmt.Errorf("join body length %d", len(body))
	}
	return JoinBody{
		QueryID: binary.BigEndian.Uint64(body[0:]),
		PoolID:  binary.BigEndian.Uint32(body[8:]),
	}, nil
}

// EncodeRandomnessCallback encodes the coordinator callback body.
func EncodeRandomnessCallback(value *uint256.Int) []byte {
	buf := value.Bytes32()
	return buf[:]
}

// DecodeRandomnessCallback decodes the coordinator callback body.
func DecodeRandomnessCallback(body []byte) (*uint256.Int, error) {
	if len(body) != 32 {
		return nil, fmt.Errorf("randomness callback body length %d", len(body))
	}
	return new(uint256.Int).SetBytes(body), nil
}

// EncodeSubscribe encodes the subscribe-for-randomness body.
func EncodeSubscribe(consumer common.Address) []byte {
	return consumer.Bytes()
}

// DecodeSubscribe decodes the subscribe-for-randomness body.
func DecodeSubscribe(body []byte) (common.Address, error) {
	if len(body) != common.AddressLength {
		return common.Address{}, fmt.Errorf("subscribe body length %d", len(body))
	}
	return common.BytesToAddress(body), nil
}

// EncodeBounce encodes the body of a join rejection bounce.
func EncodeBounce(queryID uint64, code uint32) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint64(buf[0:], queryID)
	binary.BigEndian.PutUint32(buf[8:], code)
	return buf
}

// DecodeBounce decodes the body of a join rejection bounce.
func DecodeBounce(body []byte) (queryID uint64, code uint32, err error) {
	if len(body) != 12 {
		return 0, 0, fmt.Errorf("bounce body length %d", len(body))
	}
	return binary.BigEndian.Uint64(body[0:]), binary.BigEndian.Uint32(body[8:]), nil
}
