package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/reducerx/internal/harness"
	"github.com/roach88/reducerx/internal/store"
	"github.com/roach88/reducerx/internal/value"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Journal string
	RunID   string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single journaled run.
type ReplayRunResult struct {
	RunID      string   `json:"run_id"`
	Dispatches int      `json:"dispatches"`
	Match      bool     `json:"match"`
	Mismatches []string `json:"mismatches,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Scenario string            `json:"scenario"`
	Runs     []ReplayRunResult `json:"runs"`
	AllMatch bool              `json:"all_match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario>",
		Short: "Replay journaled runs and verify determinism",
		Long: `Replay journaled runs of a scenario and verify determinism.

The scenario's reducer is rebuilt and every recorded action is dispatched
again in order. Each resulting state must be canonically identical to the
state in the journal. Without --run every run of the scenario is replayed.

Exit codes:
  0 - Every replayed run matches the journal
  1 - A replayed run diverged from the journal
  2 - Command error (journal or run not found, etc.)

Examples:
  reducerx replay counter.yaml --journal ./journal.db
  reducerx replay counter.yaml --journal ./journal.db --run 0190...
  reducerx replay counter.yaml --journal ./journal.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	scenario, err := loadScenario(path)
	if err != nil {
		le := classifyError(path, err)
		_ = out.Error(le.Code, le.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	st, err := openJournal(opts.Journal)
	if err != nil {
		le := classifyError(opts.Journal, err)
		_ = out.Error(le.Code, le.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	runIDs, err := replayTargets(ctx, st, scenario.Name, opts.RunID)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			_ = out.Error(le.Code, le.Message, nil)
			return NewExitError(ExitCommandError, le.Message)
		}
		_ = out.Error(ErrCodeJournalFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := ReplayResult{
		Scenario: scenario.Name,
		Runs:     make([]ReplayRunResult, 0, len(runIDs)),
		AllMatch: true,
	}
	for _, id := range runIDs {
		rr, err := replayRun(ctx, st, scenario, id)
		if err != nil {
			le := classifyError(path, err)
			_ = out.Error(le.Code, le.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", id), err)
		}
		result.Runs = append(result.Runs, rr)
		if !rr.Match {
			result.AllMatch = false
		}
	}

	if opts.Format == "json" {
		code, msg := "", ""
		if !result.AllMatch {
			code, msg = ErrCodeReplayMismatch, "replay diverged from journal"
		}
		if err := out.Result(result, code, msg); err != nil {
			return err
		}
	} else {
		printReplayResult(out, result)
	}

	if !result.AllMatch {
		return NewExitError(ExitFailure, "replay diverged from journal")
	}
	return nil
}

// openJournal opens an existing journal. store.Open would create a
// missing file, which replay and trace must report instead.
func openJournal(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "journal not found"}
		}
		return nil, err
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeJournalFailed, Path: path, Message: err.Error()}
	}
	return st, nil
}

// replayTargets returns the run IDs to replay. A requested run must
// exist and belong to the scenario.
func replayTargets(ctx context.Context, st *store.Store, scenario, runID string) ([]string, error) {
	if runID != "" {
		run, _, err := st.ReadRun(ctx, runID)
		if isNoRows(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("run %q not found", runID)}
		}
		if err != nil {
			return nil, err
		}
		if run.Scenario != scenario {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("run %q belongs to scenario %q, not %q", runID, run.Scenario, scenario)}
		}
		return []string{runID}, nil
	}

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, run := range runs {
		if run.Scenario == scenario {
			ids = append(ids, run.ID)
		}
	}
	return ids, nil
}

func replayRun(ctx context.Context, st *store.Store, scenario *harness.Scenario, id string) (ReplayRunResult, error) {
	run, dispatches, err := st.ReadRun(ctx, id)
	if err != nil {
		return ReplayRunResult{}, err
	}
	rr := ReplayRunResult{RunID: id, Dispatches: len(dispatches), Match: true}

	if run.Variant != scenario.Variant || run.Resettable != scenario.Resettable {
		rr.Match = false
		rr.Mismatches = append(rr.Mismatches, fmt.Sprintf(
			"reducer variant %s (resettable=%t), journal has %s (resettable=%t)",
			scenario.Variant, scenario.Resettable, run.Variant, run.Resettable))
	}

	initial, err := value.ObjectFromAny(scenario.Initial)
	if err != nil {
		return ReplayRunResult{}, err
	}
	want, err := value.MarshalCanonical(run.Initial)
	if err != nil {
		return ReplayRunResult{}, err
	}
	got, err := value.MarshalCanonical(initial)
	if err != nil {
		return ReplayRunResult{}, err
	}
	if !bytes.Equal(want, got) {
		rr.Match = false
		rr.Mismatches = append(rr.Mismatches, fmt.Sprintf("initial state %s, journal has %s", got, want))
	}

	replayed, err := harness.Replay(scenario, toTraceEvents(dispatches))
	if err != nil {
		return ReplayRunResult{}, err
	}
	if !replayed.Match {
		rr.Match = false
		rr.Mismatches = append(rr.Mismatches, replayed.Mismatches...)
	}
	return rr, nil
}

func printReplayResult(out *OutputFormatter, result ReplayResult) {
	w := out.Writer
	if len(result.Runs) == 0 {
		fmt.Fprintf(w, "No runs of %q found in journal.\n", result.Scenario)
		return
	}
	for _, rr := range result.Runs {
		fmt.Fprintf(w, "%s %s (%d dispatches)\n", out.Mark(rr.Match), rr.RunID, rr.Dispatches)
		for _, m := range rr.Mismatches {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	fmt.Fprintln(w)
	if result.AllMatch {
		fmt.Fprintf(w, "%s %d run(s) replayed deterministically\n", out.Mark(true), len(result.Runs))
	} else {
		fmt.Fprintf(w, "%s replay diverged from journal\n", out.Mark(false))
	}
}
