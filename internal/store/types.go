package store

import "github.com/roach88/reducerx/internal/value"

// Run is one journaled scenario run.
type Run struct {
	// Seq orders runs by insertion. Assigned by the store.
	Seq int64

	ID         string
	Scenario   string
	Variant    string
	Resettable bool
	Initial    value.Object

	// Pass records whether every expectation and assertion held.
	Pass bool
}

// Dispatch is one journaled reducer call.
type Dispatch struct {
	RunID      string
	Seq        int64
	ActionType string

	// Payload is nil when the action carried none.
	Payload value.Value

	Absent  bool
	State   value.Object
	Changed bool
	Initial bool
	Error   string
}
