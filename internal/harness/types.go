package harness

import "github.com/roach88/reducerx/internal/value"

// TraceEvent records one reducer call.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"`

	// Payload is nil when the action carried none.
	Payload value.Value `json:"payload,omitempty"`

	// Absent is true when the reducer received no current state.
	Absent bool `json:"absent,omitempty"`

	// State is the state after the call. On error it is the state the
	// reducer was called with, which the runner keeps.
	State value.Object `json:"state"`

	// Changed is true when the reducer returned a different reference than
	// the state it resolved (the current state, or initial when absent).
	Changed bool `json:"changed"`

	// Initial is true when the returned reference is the initial state.
	Initial bool `json:"initial"`

	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Final is the state after the last step.
	Final value.Object `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// ChangedCount returns how many events changed the state reference.
func (r *Result) ChangedCount() int {
	n := 0
	for _, e := range r.Trace {
		if e.Changed {
			n++
		}
	}
	return n
}

// ErrorCount returns how many events ended in a handler error.
func (r *Result) ErrorCount() int {
	n := 0
	for _, e := range r.Trace {
		if e.Error != "" {
			n++
		}
	}
	return n
}
