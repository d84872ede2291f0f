package harness

import (
	"bytes"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// Variant names accepted in a scenario's variant field.
const (
	VariantReplace = "replace"
	VariantMerge   = "merge"
)

// Scenario defines a reducer scenario: which factory to build, the initial
// state, the handler map, and the actions to dispatch through it.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Variant selects the result policy: "replace" or "merge".
	Variant string `yaml:"variant"`

	// Resettable builds the reset-aware factory.
	Resettable bool `yaml:"resettable,omitempty"`

	// Initial is the initial state. Must be a mapping; omitted means {}.
	Initial map[string]any `yaml:"initial,omitempty"`

	// Handlers maps action types to handler definitions.
	Handlers map[string]HandlerSpec `yaml:"handlers"`

	// Steps are dispatched in order, threading state between them.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and final state after all steps.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// HandlerSpec defines one handler. Exactly one field must be set.
//
// In the replace variant the handler result is the whole next state. In the
// merge variant it is the patch laid over a shallow copy of the state.
type HandlerSpec struct {
	// Set returns a literal object.
	Set map[string]any `yaml:"set,omitempty"`

	// CUE is the body of a CUE struct evaluated with `state` and `payload`
	// in scope, e.g. "count: state.count + payload".
	CUE string `yaml:"cue,omitempty"`

	// Error makes the handler fail with this message.
	Error string `yaml:"error,omitempty"`

	// Keep returns the state it was given (replace) or an empty patch
	// (merge).
	Keep bool `yaml:"keep,omitempty"`
}

// Step is a single reducer call.
type Step struct {
	// Dispatch sends an action with a caller-chosen type.
	Dispatch *DispatchStep `yaml:"dispatch,omitempty"`

	// Reset sends the reset sentinel action.
	Reset bool `yaml:"reset,omitempty"`

	// Absent calls the reducer with no current state for this step.
	Absent bool `yaml:"absent,omitempty"`

	// Expect validates the outcome of this step.
	Expect *Expect `yaml:"expect,omitempty"`
}

// DispatchStep is the action sent by a dispatch step.
type DispatchStep struct {
	Type    string `yaml:"type"`
	Payload any    `yaml:"payload,omitempty"`
}

// Expect validates a single step. Nil fields are not checked.
type Expect struct {
	// State is compared exactly against the next state.
	State map[string]any `yaml:"state,omitempty"`

	// Changed is whether the reducer returned a different reference.
	Changed *bool `yaml:"changed,omitempty"`

	// Initial is whether the reducer returned the initial state reference.
	Initial *bool `yaml:"initial,omitempty"`

	// Error is the expected handler error message.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// State is the expected final state (final_state).
	State map[string]any `yaml:"state,omitempty"`

	// Count is the expected number (dispatch_count, changed_count,
	// error_count).
	Count int `yaml:"count,omitempty"`

	// Types is the expected relative order of action types (trace_order).
	Types []string `yaml:"types,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState    = "final_state"
	AssertDispatchCount = "dispatch_count"
	AssertChangedCount  = "changed_count"
	AssertErrorCount    = "error_count"
	AssertTraceOrder    = "trace_order"
)

// LoadError reports an invalid scenario. Pos is set for errors raised by
// the CUE compiler.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func loadErrorf(field, format string, args ...any) *LoadError {
	return &LoadError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML from memory.
// Only the first structural problem is returned; use Validate for all.
func ParseScenario(data []byte) (*Scenario, error) {
	scenario, err := decodeScenario(data)
	if err != nil {
		return nil, err
	}
	if errs := validateScenario(scenario); len(errs) > 0 {
		return nil, fmt.Errorf("invalid scenario: %w", errs[0])
	}
	return scenario, nil
}

// ReadScenario reads and strictly decodes a scenario file without
// validating it, so that Validate can report every problem at once.
func ReadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return decodeScenario(data)
}

func decodeScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// Validate reports every structural problem in s, plus any handler that
// fails to compile. An empty slice means s can run.
func Validate(s *Scenario) []error {
	errs := validateScenario(s)
	if len(errs) > 0 {
		return errs
	}
	if _, err := compile(s); err != nil {
		return []error{err}
	}
	return nil
}

func validateScenario(s *Scenario) []error {
	var errs []error
	add := func(e *LoadError) { errs = append(errs, e) }

	if s.Name == "" {
		add(loadErrorf("name", "name is required"))
	}
	if s.Description == "" {
		add(loadErrorf("description", "description is required"))
	}
	switch s.Variant {
	case VariantReplace, VariantMerge:
	case "":
		add(loadErrorf("variant", "variant is required (replace or merge)"))
	default:
		add(loadErrorf("variant", "unknown variant %q (want replace or merge)", s.Variant))
	}
	if len(s.Steps) == 0 {
		add(loadErrorf("steps", "steps list is required and must be non-empty"))
	}

	for _, actionType := range sortedHandlerTypes(s.Handlers) {
		if err := validateHandler(s.Handlers[actionType]); err != "" {
			add(loadErrorf(fmt.Sprintf("handlers[%q]", actionType), "%s", err))
		}
	}

	for i, step := range s.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		switch {
		case step.Dispatch != nil && step.Reset:
			add(loadErrorf(field, "dispatch and reset are mutually exclusive"))
		case step.Dispatch == nil && !step.Reset:
			add(loadErrorf(field, "one of dispatch or reset is required"))
		case step.Dispatch != nil && step.Dispatch.Type == "":
			add(loadErrorf(field+".dispatch", "type is required"))
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != "" {
			add(loadErrorf(fmt.Sprintf("assertions[%d]", i), "%s", err))
		}
	}
	return errs
}

func validateHandler(h HandlerSpec) string {
	set := 0
	if h.Set != nil {
		set++
	}
	if h.CUE != "" {
		set++
	}
	if h.Error != "" {
		set++
	}
	if h.Keep {
		set++
	}
	if set != 1 {
		return "exactly one of set, cue, error or keep is required"
	}
	return ""
}

func validateAssertion(a Assertion) string {
	switch a.Type {
	case "":
		return "type is required"
	case AssertFinalState:
		if a.State == nil {
			return "state is required for final_state"
		}
	case AssertDispatchCount, AssertChangedCount, AssertErrorCount:
		if a.Count < 0 {
			return fmt.Sprintf("count must be non-negative for %s", a.Type)
		}
	case AssertTraceOrder:
		if len(a.Types) == 0 {
			return "types list is required for trace_order"
		}
	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
	return ""
}
