package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reducerx/internal/value"
)

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Seq: 1, Type: "load", Changed: true},
		{Seq: 2, Type: "save", Error: "disk full"},
		{Seq: 3, Type: "load", Changed: true},
		{Seq: 4, Type: "done"},
	}
	r.Final = value.Object{"n": value.Int(2)}
	return r
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleResult().Trace

	assert.NoError(t, assertTraceOrder(trace, []string{"load", "save", "done"}))
	assert.NoError(t, assertTraceOrder(trace, []string{"save", "load"}), "later occurrences count")
	assert.NoError(t, assertTraceOrder(trace, []string{"load", "load"}))

	err := assertTraceOrder(trace, []string{"done", "save"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"save" not found after [done]`)

	err = assertTraceOrder(trace, []string{"missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Full trace:")
	assert.Contains(t, err.Error(), `[2] save error="disk full" changed=false`)
}

func TestAssertFinalState(t *testing.T) {
	assert.NoError(t, assertFinalState(value.Object{"n": value.Int(2)}, value.Object{"n": value.Int(2)}))

	err := assertFinalState(value.Object{"n": value.Int(2)}, value.Object{"n": value.Int(3)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Assertion failed: final_state")
	assert.Contains(t, err.Error(), "-want +got")
}

func TestEvaluateAssertions(t *testing.T) {
	result := sampleResult()
	assertions := []Assertion{
		{Type: AssertDispatchCount, Count: 4},
		{Type: AssertChangedCount, Count: 2},
		{Type: AssertErrorCount, Count: 1},
		{Type: AssertTraceOrder, Types: []string{"load", "done"}},
		{Type: AssertFinalState},
	}
	finalState := map[int]State{4: {"n": value.Int(2)}}
	assert.Empty(t, evaluateAssertions(result, assertions, finalState))
}

func TestEvaluateAssertionsFailures(t *testing.T) {
	result := sampleResult()
	assertions := []Assertion{
		{Type: AssertDispatchCount, Count: 3},
		{Type: AssertChangedCount, Count: 0},
		{Type: AssertErrorCount, Count: 0},
		{Type: "bogus"},
	}
	errs := evaluateAssertions(result, assertions, nil)
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "Assertion failed: dispatch_count")
	assert.Contains(t, errs[0], "Expected: 3")
	assert.Contains(t, errs[0], "Actual: 4")
	assert.Contains(t, errs[1], "changed_count")
	assert.Contains(t, errs[2], "error_count")
	assert.Equal(t, `assertions[3]: unknown assertion type "bogus"`, errs[3])
}

func TestRunEvaluatesAssertions(t *testing.T) {
	s := counterScenario(VariantReplace)
	s.Assertions = []Assertion{
		{Type: AssertFinalState, State: map[string]any{"count": 4}},
		{Type: AssertDispatchCount, Count: 2},
	}
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "final_state")
}
