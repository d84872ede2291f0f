package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reducerx/internal/store"
	"github.com/roach88/reducerx/internal/testutil"
)

type runResponse struct {
	Status string    `json:"status"`
	Data   RunResult `json:"data"`
	Error  *CLIError `json:"error"`
}

// newTestCommand returns a bare command with captured output for calling
// command functions directly.
func newTestCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetContext(context.Background())
	return cmd, stdout, stderr
}

func TestRunPassingScenario(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteScenario(t, dir, "counter.yaml", testutil.CounterScenario)

	out, err := executeRoot(t, "run", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ counter")
	assert.Contains(t, out, "Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "All scenarios passed")
}

func TestRunFailingScenario(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteScenario(t, dir, "failing.yaml", testutil.FailingScenario)

	out, err := executeRoot(t, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "Assertion failed: final_state")
	assert.Contains(t, out, "Summary: 0 passed, 1 failed, 1 total")
}

func TestRunInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScenario(t, dir, "invalid.yaml", testutil.InvalidScenario)

	out, err := executeRoot(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ invalid.yaml")
	assert.Contains(t, out, "E004")
}

func TestRunCUECompileError(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScenario(t, dir, "bad-cue.yaml", `name: bad-cue
description: "handler does not parse"
variant: merge
initial: {n: 0}
handlers:
  T: {cue: "n: state.n +"}
steps:
  - dispatch: {type: T}
`)

	out, err := executeRoot(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E006")
	assert.Contains(t, out, `handlers["T"].cue`)
}

func TestRunJSONOutput(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteScenario(t, dir, "counter.yaml", testutil.CounterScenario)
	testutil.WriteScenario(t, dir, "failing.yaml", testutil.FailingScenario)

	out, err := executeRoot(t, "--format", "json", "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenarioFailed, resp.Error.Code)

	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 2)
	assert.Equal(t, "counter", resp.Data.Scenarios[0].Name)
	assert.True(t, resp.Data.Scenarios[0].Pass)
	assert.Equal(t, 4, resp.Data.Scenarios[0].Steps)
	assert.Equal(t, "failing", resp.Data.Scenarios[1].Name)
	assert.False(t, resp.Data.Scenarios[1].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[1].Errors)
}

func TestRunNoScenarioFiles(t *testing.T) {
	out, err := executeRoot(t, "run", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E003")
}

func TestRunPathNotFound(t *testing.T) {
	out, err := executeRoot(t, "run", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E005")
}

func TestRunFilter(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteScenario(t, dir, "counter.yaml", testutil.CounterScenario)
	testutil.WriteScenario(t, dir, "failing.yaml", testutil.FailingScenario)

	out, err := executeRoot(t, "run", dir, "--filter", "count*")
	require.NoError(t, err)
	assert.Contains(t, out, "counter")
	assert.NotContains(t, out, "failing")
	assert.Contains(t, out, "1 total")
}

func TestRunGoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteScenario(t, dir, "counter.yaml", testutil.CounterScenario)
	golden := filepath.Join(dir, "golden", "counter.golden")

	out, err := executeRoot(t, "run", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario":"counter"`)

	_, err = executeRoot(t, "run", dir)
	require.NoError(t, err, "trace should match the golden it just wrote")

	require.NoError(t, os.WriteFile(golden, []byte("{}"), 0o644))
	out, err = executeRoot(t, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "does not match golden")
}

func TestRunJournal(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScenario(t, dir, "counter.yaml", testutil.CounterScenario)
	journalPath := filepath.Join(dir, "journal.db")

	cmd, stdout, _ := newTestCommand()
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Journal:     journalPath,
		RunIDs:      store.NewFixedGenerator("run-1"),
	}
	require.NoError(t, runScenarios(opts, []string{path}, cmd))
	assert.Contains(t, stdout.String(), "✓ counter")

	st, err := store.Open(journalPath)
	require.NoError(t, err)
	defer st.Close()

	run, dispatches, err := st.ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "counter", run.Scenario)
	assert.Equal(t, "merge", run.Variant)
	assert.True(t, run.Resettable)
	assert.True(t, run.Pass)

	require.Len(t, dispatches, 4)
	assert.Equal(t, "inc", dispatches[0].ActionType)
	assert.True(t, dispatches[0].Absent)
	assert.Equal(t, "kaboom", dispatches[1].Error)
	assert.False(t, dispatches[1].Changed)
	assert.True(t, dispatches[3].Initial)
}

func TestRunVerboseLogsSteps(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScenario(t, dir, "counter.yaml", testutil.CounterScenario)

	cmd, _, stderr := newTestCommand()
	opts := &RunOptions{RootOptions: &RootOptions{Format: "text", Verbose: true}}
	require.NoError(t, runScenarios(opts, []string{path}, cmd))

	assert.Contains(t, stderr.String(), "step dispatched")
	assert.Contains(t, stderr.String(), "scenario=counter")
}

func TestGoldenFilePath(t *testing.T) {
	got := goldenFilePath(filepath.Join("scenarios", "reset.yaml"))
	assert.Equal(t, filepath.Join("scenarios", "golden", "reset.golden"), got)
}
