// Package reducerx builds reducers: pure state-transition functions for
// unidirectional data flow.
//
// A reducer takes the current state (nil means "not yet initialised") and an
// Action, and returns the next state. The factories in this package build a
// reducer from an initial state and a map from action type to handler:
//
//	type Counter struct{ N int }
//
//	var Add = reducerx.Define[int]("counter/add")
//
//	handlers := reducerx.MustHandlers(
//	    reducerx.On(Add, func(s *Counter, n int) (*Counter, error) {
//	        return &Counter{N: s.N + n}, nil
//	    }),
//	)
//	reduce := reducerx.NewResettable(&Counter{}, handlers)
//
//	s, _ := reduce(nil, Add.New(2))           // &Counter{N: 2}
//	s, _ = reduce(s, reducerx.Reset())        // the initial *Counter
//
// # Variants
//
// Four factories cover two independent choices:
//
//   - New / NewResettable: the handler returns the complete next state.
//   - NewMerge / NewResetMerge: the handler returns a Patch that is applied
//     to a shallow copy of the current state.
//   - The Resettable variants additionally return the initial state when
//     they receive an action of type ResetState that no handler claims.
//
// # Identity
//
// States are threaded as pointers so callers can detect change with ==.
// An action type with no handler returns the incoming pointer; a reset
// returns the initial pointer itself, never a copy.
//
// # Immutability
//
// Go cannot mark a value graph read-only at compile time. Handlers must treat
// the state they receive as read-only. The WithClone and WithDeepClone
// options hand each handler a private copy instead, at the cost of a clone per
// dispatch; package immutable provides the read-only containers and the deep
// Clone used for that.
package reducerx
