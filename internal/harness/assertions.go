package harness

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/reducerx/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes the trace so failures can be read without rerunning.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", event.Seq, event.Type)
			if event.Error != "" {
				fmt.Fprintf(&buf, " error=%q", event.Error)
			}
			fmt.Fprintf(&buf, " changed=%t\n", event.Changed)
		}
	}
	return buf.String()
}

// assertFinalState compares the whole final state.
func assertFinalState(final, want value.Object) error {
	if diff := cmp.Diff(want, final); diff != "" {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: "final state to match",
			Actual:   fmt.Sprintf("diff (-want +got):\n%s", diff),
		}
	}
	return nil
}

func assertCount(kind string, got, want int, trace []TraceEvent) error {
	if got != want {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%d", want),
			Actual:   fmt.Sprintf("%d", got),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that the types occur in the trace in the given
// order. Other events may occur between them.
func assertTraceOrder(trace []TraceEvent, types []string) error {
	next := 0
	for _, event := range trace {
		if next < len(types) && event.Type == types[next] {
			next++
		}
	}
	if next < len(types) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("types in order: %v", types),
			Actual:   fmt.Sprintf("%q not found after %v", types[next], types[:next]),
			Trace:    trace,
		}
	}
	return nil
}

// evaluateAssertions evaluates all assertions against the result and
// returns one message per failure. finalState holds the converted
// final_state expectations keyed by assertion index.
func evaluateAssertions(result *Result, assertions []Assertion, finalState map[int]State) []string {
	var errors []string

	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFinalState:
			err = assertFinalState(result.Final, finalState[i])
		case AssertDispatchCount:
			err = assertCount(a.Type, len(result.Trace), a.Count, result.Trace)
		case AssertChangedCount:
			err = assertCount(a.Type, result.ChangedCount(), a.Count, result.Trace)
		case AssertErrorCount:
			err = assertCount(a.Type, result.ErrorCount(), a.Count, result.Trace)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a.Types)
		default:
			err = fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
