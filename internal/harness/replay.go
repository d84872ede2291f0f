package harness

import (
	"bytes"
	"fmt"

	"github.com/roach88/reducerx"
	"github.com/roach88/reducerx/internal/value"
)

// ReplayResult is the outcome of re-dispatching a recorded trace.
type ReplayResult struct {
	// Match is true when every replayed event equals its recorded event.
	Match bool

	// Replayed is the trace produced by the replay.
	Replayed []TraceEvent

	// Mismatches describes every differing event.
	Mismatches []string
}

// Replay rebuilds the scenario's reducer and dispatches the recorded
// actions again, in order and with the same absent flags. Reducers are
// pure, so every state must come out canonically identical.
func Replay(scenario *Scenario, recorded []TraceEvent) (*ReplayResult, error) {
	p, err := compile(scenario)
	if err != nil {
		return nil, err
	}
	r := newRunner(p)

	replayed := NewResult()
	var current *State
	for i, event := range recorded {
		var payload any
		if event.Payload != nil {
			payload = event.Payload
		}
		step := plannedStep{
			action: reducerx.NewAction(event.Type, payload),
			absent: event.Absent,
		}
		current = r.execute(i, step, current, replayed)
	}

	out := &ReplayResult{Match: true, Replayed: replayed.Trace}
	for i := range recorded {
		if msg := compareEvents(recorded[i], replayed.Trace[i]); msg != "" {
			out.Match = false
			out.Mismatches = append(out.Mismatches, fmt.Sprintf("seq %d (%s): %s", recorded[i].Seq, recorded[i].Type, msg))
		}
	}
	return out, nil
}

func compareEvents(want, got TraceEvent) string {
	if want.Error != got.Error {
		return fmt.Sprintf("error %q, replayed %q", want.Error, got.Error)
	}
	if want.Changed != got.Changed {
		return fmt.Sprintf("changed=%t, replayed %t", want.Changed, got.Changed)
	}
	if want.Initial != got.Initial {
		return fmt.Sprintf("initial=%t, replayed %t", want.Initial, got.Initial)
	}
	wantJSON, err := value.MarshalCanonical(want.State)
	if err != nil {
		return fmt.Sprintf("recorded state: %v", err)
	}
	gotJSON, err := value.MarshalCanonical(got.State)
	if err != nil {
		return fmt.Sprintf("replayed state: %v", err)
	}
	if !bytes.Equal(wantJSON, gotJSON) {
		return fmt.Sprintf("state %s, replayed %s", wantJSON, gotJSON)
	}
	return ""
}
