package contract

import "fmt"

// Stable reason codes. Off-chain tooling dispatches on these numbers; they
// are never repurposed across versions.
const (
	CodeNotReady      uint32 = 40 // close before end time, without participants, or in wrong state
	CodePoolNotFound  uint32 = 43
	CodeDuplicatePool uint32 = 44
	CodePoolNotOpen   uint32 = 47 // not open, past end time, or at capacity
	CodeAlreadyJoined uint32 = 50
	CodeWrongStake    uint32 = 52
)

// Violation is a recoverable precondition failure. Authenticated commands
// surface it as a transaction failure; value-bearing joins surface it as a
// bounce message carrying the same code.
type Violation struct {
	Code   uint32
	Reason string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("violation %d: %s", v.Code, v.Reason)
}

var (
	ErrPoolNotFound  = &Violation{Code: CodePoolNotFound, Reason: "pool not found"}
	ErrDuplicatePool = &Violation{Code: CodeDuplicatePool, Reason: "pool id already in use"}
	ErrPoolNotOpen   = &Violation{Code: CodePoolNotOpen, Reason: "pool not open or past end time"}
	ErrPoolFull      = &Violation{Code: CodePoolNotOpen, Reason: "pool at capacity"}
	ErrAlreadyJoined = &Violation{Code: CodeAlreadyJoined, Reason: "staker already joined"}
	ErrWrongStake    = &Violation{Code: CodeWrongStake, Reason: "attached value does not equal stake amount"}

	// Close shares code 40 for both shapes but stays distinguishable by value.
	ErrCloseNotReady   = &Violation{Code: CodeNotReady, Reason: "pool end time not reached or no participants"}
	ErrCloseWrongState = &Violation{Code: CodeNotReady, Reason: "pool is not open"}
	ErrNothingToDo     = &Violation{Code: CodeNotReady, Reason: "nothing to withdraw"}
)

// AuthError is a fatal authentication failure: the command is dropped with no
// state change and no value movement.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}
