// Package harness runs declarative reducer scenarios.
//
// A scenario names a reducer variant, an initial state, a handler map and a
// list of steps. The harness builds the reducer with the real reducerx
// factories over value.Object states, dispatches each step, and records a
// trace that can be compared against expectations, assertions and golden
// files.
//
// # Scenario Format
//
//	name: merge_patch
//	description: "merge reducer keeps untouched fields"
//	variant: merge          # replace | merge
//	resettable: true
//	initial: {a: a, b: 1}
//	handlers:
//	  T: {cue: "b: payload"}
//	  Fixed: {set: {a: z, b: 100}}
//	  Boom: {error: kaboom}
//	  Same: {keep: true}
//	steps:
//	  - dispatch: {type: T, payload: 8}
//	    expect: {state: {a: a, b: 8}, changed: true}
//	  - reset: true
//	    expect: {initial: true}
//	  - dispatch: {type: Unknown}
//	    absent: true
//	    expect: {initial: true, changed: false}
//	assertions:
//	  - {type: final_state, state: {a: a, b: 1}}
//	  - {type: dispatch_count, count: 3}
//
// # Handlers
//
// Each handler sets exactly one of:
//
//   - set: a literal object
//   - cue: the body of a CUE struct with `state` and `payload` in scope
//   - error: a message the handler fails with
//   - keep: return the input state (replace) or an empty patch (merge)
//
// The reset sentinel may be given a handler by using its literal type as
// the key.
//
// # Assertion Types
//
//   - final_state: the state after the last step equals state exactly
//   - dispatch_count: number of steps
//   - changed_count: number of steps that returned a new reference
//   - error_count: number of steps whose handler failed
//   - trace_order: the listed types occur in order
//
// # Determinism
//
// Seq numbers come from testutil.DeterministicClock and traces are
// serialized as canonical JSON, so the same scenario always produces a
// byte-identical golden file.
package harness
