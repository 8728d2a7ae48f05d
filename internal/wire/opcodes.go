package wire

// Opcodes of the contract's message protocol. External opcodes arrive inside
// owner-signed envelopes; internal opcodes arrive on value-bearing messages.
const (
	// External (authenticated) commands.
	OpCreatePool uint32 = 0x1f
	OpCancelPool uint32 = 0x20
	OpClosePool  uint32 = 0x65
	OpWithdraw   uint32 = 0x07
	OpUpgrade    uint32 = 0x2a

	// Internal (value-bearing) messages.
	OpJoinPool           uint32 = 0x0b
	OpRandomnessCallback uint32 = 0x069ceca8
	OpSubscribeRandom    uint32 = 0xab4c4859
)
