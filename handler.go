package reducerx

import (
	"fmt"
	"strings"
)

// Handler computes the complete next state for one action type.
// It must not modify *state.
type Handler[S any] func(state *S, payload any) (*S, error)

// PartialHandler computes the changes for one action type. The returned
// Patch is applied to a shallow copy of state; a nil Patch changes nothing.
type PartialHandler[S any] func(state *S, payload any) (Patch[S], error)

// Patch writes changed fields into next, a shallow copy of the prior state.
type Patch[S any] func(next *S)

// HandlerMap maps action types to full-state handlers.
type HandlerMap[S any] map[string]Handler[S]

// PartialHandlerMap maps action types to patch handlers.
type PartialHandlerMap[S any] map[string]PartialHandler[S]

// Entry is one typed handler bound to its action type. Build it with On.
type Entry[S any] struct {
	actionType string
	handler    Handler[S]
}

// Type returns the action type the entry handles.
func (e Entry[S]) Type() string { return e.actionType }

// PartialEntry is one typed patch handler bound to its action type. Build it
// with OnPatch.
type PartialEntry[S any] struct {
	actionType string
	handler    PartialHandler[S]
}

// Type returns the action type the entry handles.
func (e PartialEntry[S]) Type() string { return e.actionType }

// On binds fn to the action type of c. The payload reaches fn as P.
func On[S, P any](c Creator[P], fn func(state *S, payload P) (*S, error)) Entry[S] {
	t := c.Type()
	return Entry[S]{
		actionType: t,
		handler: func(state *S, payload any) (*S, error) {
			return fn(state, payloadAs[P](t, payload))
		},
	}
}

// OnPatch binds fn to the action type of c for the merge variants.
func OnPatch[S, P any](c Creator[P], fn func(state *S, payload P) (Patch[S], error)) PartialEntry[S] {
	t := c.Type()
	return PartialEntry[S]{
		actionType: t,
		handler: func(state *S, payload any) (Patch[S], error) {
			return fn(state, payloadAs[P](t, payload))
		},
	}
}

// OnReset binds fn to ResetState, overriding the implicit reset of the
// resettable variants.
func OnReset[S any](fn func(state *S) (*S, error)) Entry[S] {
	return Entry[S]{
		actionType: ResetState,
		handler: func(state *S, _ any) (*S, error) {
			return fn(state)
		},
	}
}

// OnResetPatch binds fn to ResetState for the merge variants.
func OnResetPatch[S any](fn func(state *S) (Patch[S], error)) PartialEntry[S] {
	return PartialEntry[S]{
		actionType: ResetState,
		handler: func(state *S, _ any) (Patch[S], error) {
			return fn(state)
		},
	}
}

// DuplicateTypeError reports action types claimed by more than one entry.
type DuplicateTypeError struct {
	Types []string
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("reducerx: action type handled more than once: %s", strings.Join(e.Types, ", "))
}

// Handlers builds a HandlerMap with one handler per action type.
// Every type must be owned by exactly one entry.
func Handlers[S any](entries ...Entry[S]) (HandlerMap[S], error) {
	m := make(HandlerMap[S], len(entries))
	var dup []string
	for _, e := range entries {
		if _, exists := m[e.actionType]; exists {
			dup = appendOnce(dup, e.actionType)
			continue
		}
		m[e.actionType] = e.handler
	}
	if len(dup) > 0 {
		return nil, &DuplicateTypeError{Types: dup}
	}
	return m, nil
}

// MustHandlers is like Handlers but panics on a duplicate type.
func MustHandlers[S any](entries ...Entry[S]) HandlerMap[S] {
	m, err := Handlers(entries...)
	if err != nil {
		panic(err)
	}
	return m
}

// PartialHandlers builds a PartialHandlerMap with one handler per action type.
func PartialHandlers[S any](entries ...PartialEntry[S]) (PartialHandlerMap[S], error) {
	m := make(PartialHandlerMap[S], len(entries))
	var dup []string
	for _, e := range entries {
		if _, exists := m[e.actionType]; exists {
			dup = appendOnce(dup, e.actionType)
			continue
		}
		m[e.actionType] = e.handler
	}
	if len(dup) > 0 {
		return nil, &DuplicateTypeError{Types: dup}
	}
	return m, nil
}

// MustPartialHandlers is like PartialHandlers but panics on a duplicate type.
func MustPartialHandlers[S any](entries ...PartialEntry[S]) PartialHandlerMap[S] {
	m, err := PartialHandlers(entries...)
	if err != nil {
		panic(err)
	}
	return m
}

func appendOnce(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}

// Fields returns a Patch that stores every entry of fields into a map-shaped
// state. Keys absent from fields keep their prior values.
func Fields[M ~map[K]V, K comparable, V any](fields M) Patch[M] {
	return func(next *M) {
		if *next == nil {
			*next = make(M, len(fields))
		}
		for k, v := range fields {
			(*next)[k] = v
		}
	}
}

// Assign names a struct patch. It exists so that handlers read as
//
//	return reducerx.Assign(func(s *State) { s.Loading = false }), nil
func Assign[S any](fn func(next *S)) Patch[S] {
	return Patch[S](fn)
}

// Then returns a Patch that applies p and then q.
func (p Patch[S]) Then(q Patch[S]) Patch[S] {
	return func(next *S) {
		if p != nil {
			p(next)
		}
		if q != nil {
			q(next)
		}
	}
}
