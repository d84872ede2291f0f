package reducerx

import "fmt"

// ResetState is the action type that makes a resettable reducer return its
// initial state. A handler registered for ResetState takes precedence.
const ResetState = "__create-reducer-extra-reset-state__"

// Action is a tagged state-transition request.
type Action struct {
	Type    string `json:"type" yaml:"type"`
	Payload any    `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// NewAction returns an Action carrying exactly the given type and payload.
// The payload is not copied or defaulted; a nil payload stays nil.
func NewAction(actionType string, payload any) Action {
	return Action{Type: actionType, Payload: payload}
}

// Reset returns the action that restores a resettable reducer's initial state.
func Reset() Action {
	return Action{Type: ResetState}
}

// IsReset reports whether a carries the reset sentinel type.
func (a Action) IsReset() bool {
	return a.Type == ResetState
}

func (a Action) String() string {
	if a.Payload == nil {
		return a.Type
	}
	return fmt.Sprintf("%s(%v)", a.Type, a.Payload)
}

// Creator builds actions of one type whose payload has type P.
//
// A Creator is the unit from which handler maps are derived: On and OnPatch
// bind a handler to the creator's type, and Handlers rejects two entries
// claiming the same type.
type Creator[P any] struct {
	actionType string
}

// Define returns the Creator for actionType with payload type P.
func Define[P any](actionType string) Creator[P] {
	return Creator[P]{actionType: actionType}
}

// Type returns the action type produced by c.
func (c Creator[P]) Type() string {
	return c.actionType
}

// New returns an action of c's type carrying payload.
func (c Creator[P]) New(payload P) Action {
	return NewAction(c.actionType, payload)
}

// Payload returns a's payload as P when a has c's type.
// A nil payload matches with the zero P.
func (c Creator[P]) Payload(a Action) (P, bool) {
	var zero P
	if a.Type != c.actionType {
		return zero, false
	}
	if a.Payload == nil {
		return zero, true
	}
	p, ok := a.Payload.(P)
	return p, ok
}

// payloadAs converts an untyped payload for a typed handler. A payload of
// the wrong dynamic type panics, as any handler fault would.
func payloadAs[P any](actionType string, payload any) P {
	var zero P
	if payload == nil {
		return zero
	}
	p, ok := payload.(P)
	if !ok {
		panic(fmt.Sprintf("reducerx: action %q carries payload of type %T, handler expects %T", actionType, payload, zero))
	}
	return p
}
