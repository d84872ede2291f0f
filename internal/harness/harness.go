package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/reducerx"
	"github.com/roach88/reducerx/internal/testutil"
	"github.com/roach88/reducerx/internal/value"
)

// Option configures a scenario run.
type Option func(*runner)

// WithLogger sets the logger that receives one debug record per step.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) {
		r.logger = logger
	}
}

type runner struct {
	plan   *plan
	reduce reducerx.Reducer[State]
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// The reducer is built with the factory the scenario names and called once
// per step. State threads from one step to the next; a step that fails
// keeps the previous state. Seq numbers come from a deterministic clock so
// traces are reproducible.
//
// The returned error is non-nil only when the scenario cannot be compiled.
// Failed expectations and assertions are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	p, err := compile(scenario)
	if err != nil {
		return nil, err
	}

	r := newRunner(p)
	for _, opt := range opts {
		opt(r)
	}

	result := NewResult()
	var current *State
	for i, step := range p.steps {
		current = r.execute(i, step, current, result)
	}
	if current == nil {
		current = p.initial
	}
	result.Final = *current

	for _, msg := range evaluateAssertions(result, scenario.Assertions, p.finalState) {
		result.AddError(msg)
	}
	return result, nil
}

func newRunner(p *plan) *runner {
	return &runner{
		plan:   p,
		reduce: p.reducer(),
		clock:  testutil.NewDeterministicClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs unless WithLogger
	}
}

// reducer builds the reducer for the scenario's variant.
func (p *plan) reducer() reducerx.Reducer[State] {
	switch {
	case p.scenario.Variant == VariantMerge && p.scenario.Resettable:
		return reducerx.NewResetMerge(p.initial, p.partials)
	case p.scenario.Variant == VariantMerge:
		return reducerx.NewMerge(p.initial, p.partials)
	case p.scenario.Resettable:
		return reducerx.NewResettable(p.initial, p.handlers)
	default:
		return reducerx.New(p.initial, p.handlers)
	}
}

// execute runs one step and returns the state to carry forward.
func (r *runner) execute(i int, step plannedStep, current *State, result *Result) *State {
	in := current
	if step.absent {
		in = nil
	}
	resolved := in
	if resolved == nil {
		resolved = r.plan.initial
	}

	event := TraceEvent{
		Seq:    r.clock.Next(),
		Type:   step.action.Type,
		Absent: in == nil,
	}
	if v, ok := step.action.Payload.(value.Value); ok {
		event.Payload = v
	}

	next, err := r.reduce(in, step.action)
	if err != nil {
		event.Error = err.Error()
		next = resolved
	} else {
		event.Changed = next != resolved
	}
	event.Initial = next == r.plan.initial
	if next != nil {
		event.State = *next
	}
	result.Trace = append(result.Trace, event)

	r.logger.Debug("step dispatched",
		"step", i,
		"seq", event.Seq,
		"type", event.Type,
		"changed", event.Changed,
		"error", event.Error,
	)

	if step.expect != nil {
		for _, msg := range checkExpect(i, step.expect, event) {
			result.AddError(msg)
		}
	}
	return next
}

func checkExpect(i int, e *plannedExpect, got TraceEvent) []string {
	var errs []string
	prefix := fmt.Sprintf("steps[%d] (%s)", i, got.Type)

	if e.err != got.Error {
		switch {
		case e.err == "":
			errs = append(errs, fmt.Sprintf("%s: unexpected error: %s", prefix, got.Error))
		case got.Error == "":
			errs = append(errs, fmt.Sprintf("%s: expected error %q, got none", prefix, e.err))
		default:
			errs = append(errs, fmt.Sprintf("%s: expected error %q, got %q", prefix, e.err, got.Error))
		}
	}
	if e.hasData {
		if diff := cmp.Diff(e.state, got.State); diff != "" {
			errs = append(errs, fmt.Sprintf("%s: state mismatch (-want +got):\n%s", prefix, diff))
		}
	}
	if e.changed != nil && *e.changed != got.Changed {
		errs = append(errs, fmt.Sprintf("%s: expected changed=%t, got %t", prefix, *e.changed, got.Changed))
	}
	if e.initial != nil && *e.initial != got.Initial {
		errs = append(errs, fmt.Sprintf("%s: expected initial=%t, got %t", prefix, *e.initial, got.Initial))
	}
	return errs
}
