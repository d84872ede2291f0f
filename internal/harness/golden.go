package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/reducerx/internal/value"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	Scenario   string       `json:"scenario"`
	Variant    string       `json:"variant,omitempty"`
	Resettable bool         `json:"resettable,omitempty"`
	Trace      []TraceEvent `json:"trace"`
}

// toCanonicalMap converts the snapshot into plain maps so that
// value.MarshalCanonicalAny can serialize it.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"seq":     event.Seq,
			"type":    event.Type,
			"state":   event.State,
			"changed": event.Changed,
			"initial": event.Initial,
		}
		if event.Payload != nil {
			eventMap["payload"] = event.Payload
		}
		if event.Absent {
			eventMap["absent"] = true
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario": s.Scenario,
		"trace":    traceList,
	}
	if s.Variant != "" {
		result["variant"] = s.Variant
		result["resettable"] = s.Resettable
	}
	return result
}

// MarshalTrace renders the snapshot as canonical JSON.
func (s *TraceSnapshot) MarshalTrace() ([]byte, error) {
	return value.MarshalCanonicalAny(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := TraceSnapshot{
		Scenario:   scenario.Name,
		Variant:    scenario.Variant,
		Resettable: scenario.Resettable,
		Trace:      result.Trace,
	}
	traceJSON, err := snapshot.MarshalTrace()
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, traceJSON)

	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file
// without rerunning the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		Scenario: scenarioName,
		Trace:    result.Trace,
	}
	traceJSON, err := snapshot.MarshalTrace()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
