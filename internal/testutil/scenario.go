package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// CounterScenario is a passing merge scenario used across packages.
// It exercises a CUE handler, a failing handler and the reset sentinel.
const CounterScenario = `name: counter
description: "counter with a failing handler and a reset"
variant: merge
resettable: true
initial: {count: 0, label: c}
handlers:
  inc: {cue: "count: state.count + payload"}
  boom: {error: kaboom}
steps:
  - dispatch: {type: inc, payload: 2}
    expect: {state: {count: 2, label: c}, changed: true}
  - dispatch: {type: boom}
    expect: {error: kaboom, changed: false}
  - dispatch: {type: inc, payload: 3}
    expect: {state: {count: 5, label: c}}
  - reset: true
    expect: {initial: true}
assertions:
  - {type: final_state, state: {count: 0, label: c}}
  - {type: dispatch_count, count: 4}
  - {type: error_count, count: 1}
`

// FailingScenario loads and runs but fails its final_state assertion.
const FailingScenario = `name: failing
description: "final state assertion does not hold"
variant: replace
initial: {n: 1}
handlers:
  set: {set: {n: 2}}
steps:
  - dispatch: {type: set}
assertions:
  - {type: final_state, state: {n: 3}}
`

// InvalidScenario fails validation in two places.
const InvalidScenario = `name: invalid
description: "two problems"
variant: splice
handlers:
  T: {}
steps:
  - dispatch: {type: T}
`

// WriteScenario writes content to dir/name and returns the path.
func WriteScenario(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scenario %s: %v", name, err)
	}
	return path
}
