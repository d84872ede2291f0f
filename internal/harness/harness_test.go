package harness

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reducerx"
	"github.com/roach88/reducerx/internal/value"
)

func boolPtr(b bool) *bool { return &b }

func counterScenario(variant string) *Scenario {
	return &Scenario{
		Name:        "counter_" + variant,
		Description: "counter",
		Variant:     variant,
		Initial:     map[string]any{"count": 0, "label": "c"},
		Handlers: map[string]HandlerSpec{
			"inc":  {CUE: "count: state.count + payload"},
			"fail": {Error: "nope"},
		},
		Steps: []Step{
			{Dispatch: &DispatchStep{Type: "inc", Payload: 2}},
			{Dispatch: &DispatchStep{Type: "inc", Payload: 3}},
		},
	}
}

func TestRunReplaceDropsFieldsTheHandlerOmits(t *testing.T) {
	result, err := Run(counterScenario(VariantReplace))
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, value.Object{"count": value.Int(5)}, result.Final)
}

func TestRunMergeKeepsFieldsThePatchOmits(t *testing.T) {
	result, err := Run(counterScenario(VariantMerge))
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, value.Object{"count": value.Int(5), "label": value.String("c")}, result.Final)
}

func TestRunTraceEvents(t *testing.T) {
	s := counterScenario(VariantMerge)
	s.Steps = append(s.Steps,
		Step{Dispatch: &DispatchStep{Type: "fail"}},
		Step{Dispatch: &DispatchStep{Type: "unknown"}, Absent: true},
	)
	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Trace, 4)

	first := result.Trace[0]
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "inc", first.Type)
	assert.Equal(t, value.Int(2), first.Payload)
	assert.True(t, first.Absent)
	assert.True(t, first.Changed)
	assert.False(t, first.Initial)

	failed := result.Trace[2]
	assert.Equal(t, "nope", failed.Error)
	assert.False(t, failed.Changed)
	assert.Nil(t, failed.Payload)
	assert.Equal(t, value.Int(5), failed.State["count"])

	absent := result.Trace[3]
	assert.True(t, absent.Absent)
	assert.True(t, absent.Initial)
	assert.False(t, absent.Changed)
	assert.Equal(t, value.Int(0), absent.State["count"])

	assert.Equal(t, 2, result.ChangedCount())
	assert.Equal(t, 1, result.ErrorCount())
	assert.Equal(t, value.Int(0), result.Final["count"], "the absent step threads the initial state forward")
}

func TestRunEmptyInitialState(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "empty",
		Description: "d",
		Variant:     VariantReplace,
		Steps:       []Step{{Dispatch: &DispatchStep{Type: "x"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, value.Object{}, result.Final)
	assert.True(t, result.Trace[0].Initial)
}

func TestRunExpectFailures(t *testing.T) {
	s := counterScenario(VariantReplace)
	s.Steps = []Step{
		{
			Dispatch: &DispatchStep{Type: "inc", Payload: 1},
			Expect: &Expect{
				State:   map[string]any{"count": 2},
				Changed: boolPtr(false),
				Initial: boolPtr(true),
			},
		},
		{
			Dispatch: &DispatchStep{Type: "fail"},
			Expect:   &Expect{Error: "other"},
		},
		{
			Dispatch: &DispatchStep{Type: "fail"},
		},
	}
	s.Steps[2].Expect = &Expect{}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "steps[0] (inc): state mismatch (-want +got)")
	assert.Contains(t, result.Errors[1], "steps[0] (inc): expected changed=false, got true")
	assert.Contains(t, result.Errors[2], "steps[0] (inc): expected initial=true, got false")
	assert.Contains(t, result.Errors[3], `steps[1] (fail): expected error "other", got "nope"`)
	assert.Contains(t, result.Errors[4], "steps[2] (fail): unexpected error: nope")
}

func TestRunExpectMissingError(t *testing.T) {
	s := counterScenario(VariantReplace)
	s.Steps = []Step{{
		Dispatch: &DispatchStep{Type: "inc", Payload: 1},
		Expect:   &Expect{Error: "boom"},
	}}
	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `expected error "boom", got none`)
}

func TestRunKeepHandler(t *testing.T) {
	for _, tt := range []struct {
		variant string
		changed bool
	}{
		{VariantReplace, false},
		{VariantMerge, true},
	} {
		t.Run(tt.variant, func(t *testing.T) {
			result, err := Run(&Scenario{
				Name:        "keep",
				Description: "d",
				Variant:     tt.variant,
				Initial:     map[string]any{"a": 1},
				Handlers:    map[string]HandlerSpec{"same": {Keep: true}},
				Steps:       []Step{{Dispatch: &DispatchStep{Type: "same"}}},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.changed, result.Trace[0].Changed)
			assert.Equal(t, value.Object{"a": value.Int(1)}, result.Final)
		})
	}
}

func TestRunCUEPayloadObject(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "rename",
		Description: "d",
		Variant:     VariantMerge,
		Initial:     map[string]any{"user": map[string]any{"name": "a"}, "n": 1},
		Handlers: map[string]HandlerSpec{
			"rename": {CUE: "user: {name: payload.name}\nrenamed: payload.name != state.user.name"},
		},
		Steps: []Step{{Dispatch: &DispatchStep{Type: "rename", Payload: map[string]any{"name": "b"}}}},
	})
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, value.Object{
		"user":    value.Object{"name": value.String("b")},
		"renamed": value.Bool(true),
		"n":       value.Int(1),
	}, result.Final)
}

func TestRunCUEIncompleteResultIsHandlerError(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "incomplete",
		Description: "d",
		Variant:     VariantReplace,
		Handlers:    map[string]HandlerSpec{"T": {CUE: "x: state.missing"}},
		Steps:       []Step{{Dispatch: &DispatchStep{Type: "T"}}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Trace[0].Error)
	assert.Contains(t, result.Trace[0].Error, `handlers["T"].cue`)
}

func TestRunRejectsBadPayload(t *testing.T) {
	s := counterScenario(VariantReplace)
	s.Steps = []Step{{Dispatch: &DispatchStep{Type: "inc", Payload: 1.5}}}
	_, err := Run(s)
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "steps[0].dispatch.payload", le.Field)
}

func TestRunResetSentinelHandlerViaLiteralKey(t *testing.T) {
	s := &Scenario{
		Name:        "override",
		Description: "d",
		Variant:     VariantMerge,
		Resettable:  true,
		Initial:     map[string]any{"a": 1, "b": 2},
		Handlers:    map[string]HandlerSpec{reducerx.ResetState: {Set: map[string]any{"a": 0}}},
		Steps:       []Step{{Reset: true}},
	}
	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, value.Object{"a": value.Int(0), "b": value.Int(2)}, result.Final)
	assert.False(t, result.Trace[0].Initial)
}

func TestRunWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Run(counterScenario(VariantReplace), WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "step dispatched")
	assert.Contains(t, buf.String(), "type=inc")
}

func TestReplayMatches(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/absent_state.yaml")
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)

	replay, err := Replay(s, result.Trace)
	require.NoError(t, err)
	assert.True(t, replay.Match, "mismatches: %v", replay.Mismatches)
	assert.Equal(t, result.Trace, replay.Replayed)
}

func TestReplayDetectsDivergence(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/handler_error.yaml")
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)

	recorded := append([]TraceEvent(nil), result.Trace...)
	recorded[0].State = value.Object{"count": value.Int(99)}
	recorded[1].Error = ""

	replay, err := Replay(s, recorded)
	require.NoError(t, err)
	assert.False(t, replay.Match)
	require.Len(t, replay.Mismatches, 2)
	assert.Contains(t, replay.Mismatches[0], `seq 1 (Inc): state {"count":99}, replayed {"count":2}`)
	assert.Contains(t, replay.Mismatches[1], `seq 2 (Boom): error "", replayed "kaboom"`)
}
