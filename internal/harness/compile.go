package harness

import (
	"errors"
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/reducerx"
	"github.com/roach88/reducerx/internal/value"
)

// State is the state type scenarios thread through the reducers.
type State = value.Object

// plan is a scenario with every value converted and every handler compiled.
type plan struct {
	scenario   *Scenario
	initial    *State
	handlers   reducerx.HandlerMap[State]
	partials   reducerx.PartialHandlerMap[State]
	steps      []plannedStep
	finalState map[int]State
}

type plannedStep struct {
	action reducerx.Action
	absent bool
	expect *plannedExpect
}

type plannedExpect struct {
	state   State
	hasData bool
	changed *bool
	initial *bool
	err     string
}

// handlerFunc computes the object a handler produces. For the replace
// variant the object becomes the next state; for merge it is the patch.
// keep reports that the handler returns its input unchanged.
type handlerFunc struct {
	compute func(state State, payload any) (State, error)
	keep    bool
}

func compile(s *Scenario) (*plan, error) {
	initial, err := value.ObjectFromAny(s.Initial)
	if err != nil {
		return nil, &LoadError{Field: "initial", Message: err.Error()}
	}

	p := &plan{
		scenario:   s,
		initial:    &initial,
		finalState: make(map[int]State),
	}

	ctx := cuecontext.New()
	funcs := make(map[string]handlerFunc, len(s.Handlers))
	for _, actionType := range sortedHandlerTypes(s.Handlers) {
		fn, err := compileHandler(ctx, actionType, s.Handlers[actionType])
		if err != nil {
			return nil, err
		}
		funcs[actionType] = fn
	}

	if s.Variant == VariantMerge {
		p.partials = make(reducerx.PartialHandlerMap[State], len(funcs))
		for actionType, fn := range funcs {
			p.partials[actionType] = fn.partial()
		}
	} else {
		p.handlers = make(reducerx.HandlerMap[State], len(funcs))
		for actionType, fn := range funcs {
			p.handlers[actionType] = fn.replace()
		}
	}

	for i, step := range s.Steps {
		ps, err := compileStep(i, step)
		if err != nil {
			return nil, err
		}
		p.steps = append(p.steps, ps)
	}

	for i, a := range s.Assertions {
		if a.Type != AssertFinalState {
			continue
		}
		want, err := value.ObjectFromAny(a.State)
		if err != nil {
			return nil, loadErrorf(fmt.Sprintf("assertions[%d].state", i), "%v", err)
		}
		p.finalState[i] = want
	}
	return p, nil
}

func compileStep(i int, step Step) (plannedStep, error) {
	field := fmt.Sprintf("steps[%d]", i)
	ps := plannedStep{absent: step.Absent}

	if step.Reset {
		ps.action = reducerx.Reset()
	} else {
		var payload any
		if step.Dispatch.Payload != nil {
			v, err := value.FromAny(step.Dispatch.Payload)
			if err != nil {
				return ps, loadErrorf(field+".dispatch.payload", "%v", err)
			}
			payload = v
		}
		ps.action = reducerx.NewAction(step.Dispatch.Type, payload)
	}

	if step.Expect != nil {
		e := &plannedExpect{
			changed: step.Expect.Changed,
			initial: step.Expect.Initial,
			err:     step.Expect.Error,
		}
		if step.Expect.State != nil {
			st, err := value.ObjectFromAny(step.Expect.State)
			if err != nil {
				return ps, loadErrorf(field+".expect.state", "%v", err)
			}
			e.state, e.hasData = st, true
		}
		ps.expect = e
	}
	return ps, nil
}

func compileHandler(ctx *cue.Context, actionType string, h HandlerSpec) (handlerFunc, error) {
	field := fmt.Sprintf("handlers[%q]", actionType)
	switch {
	case h.Keep:
		return handlerFunc{keep: true}, nil

	case h.Error != "":
		msg := h.Error
		return handlerFunc{compute: func(State, any) (State, error) {
			return nil, errors.New(msg)
		}}, nil

	case h.Set != nil:
		lit, err := value.ObjectFromAny(h.Set)
		if err != nil {
			return handlerFunc{}, loadErrorf(field+".set", "%v", err)
		}
		return handlerFunc{compute: func(State, any) (State, error) {
			return lit, nil
		}}, nil

	default:
		return compileCUE(ctx, field, h.CUE)
	}
}

// compileCUE wraps src as the body of `next`, with `state` and `payload`
// left open until the handler runs.
func compileCUE(ctx *cue.Context, field, src string) (handlerFunc, error) {
	program := "state: _\npayload: _\nnext: {\n" + src + "\n}\n"
	base := ctx.CompileString(program, cue.Filename(field))
	if err := base.Err(); err != nil {
		return handlerFunc{}, formatCUEError(field+".cue", err)
	}

	statePath := cue.ParsePath("state")
	payloadPath := cue.ParsePath("payload")
	nextPath := cue.ParsePath("next")

	return handlerFunc{compute: func(state State, payload any) (State, error) {
		var rawPayload any
		if v, ok := payload.(value.Value); ok {
			rawPayload = value.ToAny(v)
		}
		filled := base.
			FillPath(statePath, value.ToAny(state)).
			FillPath(payloadPath, rawPayload)

		next := filled.LookupPath(nextPath)
		if err := next.Validate(cue.Concrete(true)); err != nil {
			return nil, formatCUEError(field+".cue", err)
		}
		var out map[string]any
		if err := next.Decode(&out); err != nil {
			return nil, formatCUEError(field+".cue", err)
		}
		obj, err := value.ObjectFromAny(out)
		if err != nil {
			return nil, fmt.Errorf("%s.cue: %w", field, err)
		}
		return obj, nil
	}}, nil
}

func (f handlerFunc) replace() reducerx.Handler[State] {
	return func(state *State, payload any) (*State, error) {
		if f.keep {
			return state, nil
		}
		next, err := f.compute(*state, payload)
		if err != nil {
			return nil, err
		}
		return &next, nil
	}
}

func (f handlerFunc) partial() reducerx.PartialHandler[State] {
	return func(state *State, payload any) (reducerx.Patch[State], error) {
		if f.keep {
			return nil, nil
		}
		fields, err := f.compute(*state, payload)
		if err != nil {
			return nil, err
		}
		return reducerx.Fields(fields), nil
	}
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(field string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Field: field, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Field: field, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}

func sortedHandlerTypes(handlers map[string]HandlerSpec) []string {
	types := make([]string, 0, len(handlers))
	for t := range handlers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
