package reducerx

import (
	"reflect"

	"github.com/roach88/reducerx/immutable"
)

// Reducer maps the current state and an action to the next state.
//
// A nil state stands for "absent" and is replaced by the reducer's initial
// state. When no handler claims the action the incoming pointer is returned
// unchanged, so callers can compare pointers to detect change.
//
// A handler error is returned as is, with a nil state. No part of the
// handler's work is applied.
type Reducer[S any] func(state *S, action Action) (*S, error)

// Fold applies actions in order, feeding each result into the next call.
// It stops at the first error.
func (r Reducer[S]) Fold(state *S, actions ...Action) (*S, error) {
	for _, a := range actions {
		next, err := r(state, a)
		if err != nil {
			return nil, err
		}
		state = next
	}
	return state, nil
}

// Option configures a reducer factory.
type Option[S any] func(*config[S])

type config[S any] struct {
	clone func(*S) *S
}

// WithClone makes the reducer pass clone(state) to handlers instead of the
// shared state, so a handler that mutates its argument cannot corrupt the
// caller's copy. Merge variants still patch a shallow copy of the original.
// A replace handler that returns its argument yields the original state
// pointer, not the clone, so edits made to the argument are dropped.
func WithClone[S any](clone func(*S) *S) Option[S] {
	return func(c *config[S]) {
		c.clone = clone
	}
}

// WithDeepClone is WithClone with immutable.Clone.
func WithDeepClone[S any]() Option[S] {
	return WithClone(func(s *S) *S {
		return immutable.Clone(s)
	})
}

func newConfig[S any](opts []Option[S]) *config[S] {
	c := &config[S]{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *config[S]) view(state *S) *S {
	if c.clone == nil {
		return state
	}
	return c.clone(state)
}

// New returns a reducer whose handlers produce the complete next state.
func New[S any](initial *S, handlers HandlerMap[S], opts ...Option[S]) Reducer[S] {
	return replaceReducer(initial, handlers, false, newConfig(opts))
}

// NewResettable is New plus the reset rule: an action of type ResetState
// with no handler of its own returns initial.
func NewResettable[S any](initial *S, handlers HandlerMap[S], opts ...Option[S]) Reducer[S] {
	return replaceReducer(initial, handlers, true, newConfig(opts))
}

// NewMerge returns a reducer whose handlers return a Patch. The patch is
// applied to a shallow copy of the state: fields it does not touch keep
// their values, and nested pointers, maps and slices are shared with the
// prior state.
func NewMerge[S any](initial *S, handlers PartialHandlerMap[S], opts ...Option[S]) Reducer[S] {
	return mergeReducer(initial, handlers, false, newConfig(opts))
}

// NewResetMerge is NewMerge plus the reset rule of NewResettable.
func NewResetMerge[S any](initial *S, handlers PartialHandlerMap[S], opts ...Option[S]) Reducer[S] {
	return mergeReducer(initial, handlers, true, newConfig(opts))
}

func replaceReducer[S any](initial *S, handlers HandlerMap[S], resettable bool, cfg *config[S]) Reducer[S] {
	return func(state *S, action Action) (*S, error) {
		if state == nil {
			state = initial
		}
		if handler, ok := handlers[action.Type]; ok && handler != nil {
			viewed := cfg.view(state)
			next, err := handler(viewed, action.Payload)
			if err != nil {
				return nil, err
			}
			if next == viewed {
				return state, nil
			}
			return next, nil
		}
		if resettable && action.Type == ResetState {
			return initial, nil
		}
		return state, nil
	}
}

func mergeReducer[S any](initial *S, handlers PartialHandlerMap[S], resettable bool, cfg *config[S]) Reducer[S] {
	copyState := shallowCopier[S]()
	return func(state *S, action Action) (*S, error) {
		if state == nil {
			state = initial
		}
		if handler, ok := handlers[action.Type]; ok && handler != nil {
			patch, err := handler(cfg.view(state), action.Payload)
			if err != nil {
				return nil, err
			}
			next := copyState(state)
			if patch != nil {
				patch(next)
			}
			return next, nil
		}
		if resettable && action.Type == ResetState {
			return initial, nil
		}
		return state, nil
	}
}

// shallowCopier returns a depth-one copy function for S. Struct and scalar
// states are copied by value; map and slice states get a new container
// holding the same elements.
func shallowCopier[S any]() func(*S) *S {
	switch reflect.TypeFor[S]().Kind() {
	case reflect.Map:
		return func(s *S) *S {
			next := new(S)
			src := reflect.ValueOf(s).Elem()
			if src.IsNil() {
				return next
			}
			m := reflect.MakeMapWithSize(src.Type(), src.Len())
			iter := src.MapRange()
			for iter.Next() {
				m.SetMapIndex(iter.Key(), iter.Value())
			}
			reflect.ValueOf(next).Elem().Set(m)
			return next
		}
	case reflect.Slice:
		return func(s *S) *S {
			next := new(S)
			src := reflect.ValueOf(s).Elem()
			if src.IsNil() {
				return next
			}
			c := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
			reflect.Copy(c, src)
			reflect.ValueOf(next).Elem().Set(c)
			return next
		}
	default:
		return func(s *S) *S {
			next := new(S)
			*next = *s
			return next
		}
	}
}
