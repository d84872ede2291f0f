package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reducerx/internal/harness"
	"github.com/roach88/reducerx/internal/store"
	"github.com/roach88/reducerx/internal/value"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal string // optional SQLite journal path
	Update  bool   // regenerate golden files
	Filter  string // scenario filter (glob pattern)

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	RunID  string   `json:"run_id,omitempty"`
	Steps  int      `json:"steps"`
	Errors []string `json:"errors,omitempty"`
}

// RunResult holds the overall run result.
type RunResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario|dir>...",
		Short: "Run reducer scenarios",
		Long: `Run scenario files through the reducerx factories.

Each step's expectations and the scenario's assertions are checked. When a
golden file exists at <scenario dir>/golden/<name>.golden the canonical
trace must match it byte for byte. With --journal every run is recorded in
a SQLite journal for later replay and tracing.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, journal errors, etc.)

Examples:
  reducerx run ./scenarios
  reducerx run ./scenarios --filter "reset-*"
  reducerx run counter.yaml --journal ./journal.db
  reducerx run ./scenarios --update
  reducerx run ./scenarios --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record runs in this SQLite journal")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runScenarios(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	files, err := FindScenarioFiles(paths, opts.Filter)
	if err != nil {
		le := classifyError("", err)
		_ = out.Error(le.Code, le.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(files) == 0 {
		_ = out.Error(ErrCodeNoFiles, "no scenario files found", paths)
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	var journal *store.Store
	if opts.Journal != "" {
		journal, err = store.Open(opts.Journal)
		if err != nil {
			_ = out.Error(ErrCodeJournalFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := journal.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
	}
	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = store.UUIDv7Generator{}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := RunResult{
		Scenarios: make([]ScenarioResult, 0, len(files)),
		Total:     len(files),
	}
	for _, file := range files {
		sr, err := runOne(ctx, opts, file, journal, runIDs, logger)
		if err != nil {
			_ = out.Error(ErrCodeJournalFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write journal", err)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}

		if opts.Format != "json" {
			printScenarioResult(out, sr, opts.Update)
		}
	}

	if opts.Format == "json" {
		code, msg := "", ""
		if result.Failed > 0 {
			code, msg = ErrCodeScenarioFailed, fmt.Sprintf("%d scenario(s) failed", result.Failed)
		}
		if err := out.Result(result, code, msg); err != nil {
			return err
		}
	} else {
		w := out.Writer
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
		if result.Failed == 0 {
			fmt.Fprintf(w, "%s All scenarios passed\n", out.Mark(true))
		}
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func printScenarioResult(out *OutputFormatter, sr ScenarioResult, updated bool) {
	w := out.Writer
	name := sr.Name
	if name == "" {
		name = filepath.Base(sr.Path)
	}
	switch {
	case sr.Pass && updated:
		fmt.Fprintf(w, "%s %s (golden updated)\n", out.Mark(true), name)
	case sr.Pass:
		fmt.Fprintf(w, "%s %s\n", out.Mark(true), name)
	default:
		fmt.Fprintf(w, "%s %s\n", out.Mark(false), name)
		for _, e := range sr.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}
	if sr.RunID != "" {
		out.VerboseLog("journaled %s as run %s", name, sr.RunID)
	}
}

// runOne runs a single scenario file. Scenario problems are reported in
// the result; only journal failures are returned as errors.
func runOne(ctx context.Context, opts *RunOptions, file string, journal *store.Store, runIDs store.RunIDGenerator, logger *slog.Logger) (ScenarioResult, error) {
	sr := ScenarioResult{Path: file}

	scenario, err := loadScenario(file)
	if err != nil {
		sr.Errors = []string{err.Error()}
		return sr, nil
	}
	sr.Name = scenario.Name

	result, err := harness.Run(scenario, harness.WithLogger(logger.With("scenario", scenario.Name)))
	if err != nil {
		sr.Errors = []string{classifyError(file, err).Error()}
		return sr, nil
	}
	sr.Steps = len(result.Trace)
	sr.Pass = result.Pass
	sr.Errors = result.Errors

	snapshot := harness.TraceSnapshot{
		Scenario:   scenario.Name,
		Variant:    scenario.Variant,
		Resettable: scenario.Resettable,
		Trace:      result.Trace,
	}
	traceJSON, err := snapshot.MarshalTrace()
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("marshal trace: %v", err))
		return sr, nil
	}

	goldenPath := goldenFilePath(file)
	if opts.Update {
		if err := writeGolden(goldenPath, traceJSON); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, err.Error())
		}
	} else if golden, err := os.ReadFile(goldenPath); err == nil {
		if !bytes.Equal(golden, traceJSON) {
			sr.Pass = false
			sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
		}
	}

	if journal != nil {
		initial, err := value.ObjectFromAny(scenario.Initial)
		if err != nil {
			return sr, fmt.Errorf("%s: %w", file, err)
		}
		sr.RunID = runIDs.Generate()
		run := store.Run{
			ID:         sr.RunID,
			Scenario:   scenario.Name,
			Variant:    scenario.Variant,
			Resettable: scenario.Resettable,
			Initial:    initial,
			Pass:       sr.Pass,
		}
		if err := journal.WriteRun(ctx, run, toDispatches(sr.RunID, result.Trace)); err != nil {
			return sr, err
		}
		logger.Info("run journaled", "scenario", scenario.Name, "run_id", sr.RunID)
	}
	return sr, nil
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// writeGolden writes the current trace as the golden file.
func writeGolden(goldenPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}
