package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reducerx/internal/store"
	"github.com/roach88/reducerx/internal/value"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Journal string
	RunID   string // optional - show one run's dispatches
	Type    string // optional - dispatches of one action type across runs
}

// TraceRun summarises a journaled run.
type TraceRun struct {
	ID         string          `json:"id"`
	Scenario   string          `json:"scenario"`
	Variant    string          `json:"variant"`
	Resettable bool            `json:"resettable"`
	Pass       bool            `json:"pass"`
	Initial    json.RawMessage `json:"initial,omitempty"`
}

// TraceDispatch is one journaled dispatch with states rendered as
// canonical JSON.
type TraceDispatch struct {
	RunID   string          `json:"run_id"`
	Seq     int64           `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Absent  bool            `json:"absent,omitempty"`
	State   json.RawMessage `json:"state"`
	Changed bool            `json:"changed"`
	Initial bool            `json:"initial"`
	Error   string          `json:"error,omitempty"`
}

// TraceStats holds summary statistics for a set of dispatches.
type TraceStats struct {
	Dispatches int `json:"dispatches"`
	Changed    int `json:"changed"`
	Errors     int `json:"errors"`
}

// TraceResult holds the trace output. Runs is set when listing; Run and
// Dispatches when showing a run or filtering by type.
type TraceResult struct {
	Runs       []TraceRun      `json:"runs,omitempty"`
	Run        *TraceRun       `json:"run,omitempty"`
	Dispatches []TraceDispatch `json:"dispatches,omitempty"`
	Stats      *TraceStats     `json:"stats,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query the run journal",
		Long: `Query a run journal written by "reducerx run --journal".

Without flags every journaled run is listed. With --run the run's
dispatches are shown in order with canonical JSON states. With --type
every dispatch of that action type is shown across all runs.

Examples:
  reducerx trace --journal ./journal.db
  reducerx trace --journal ./journal.db --run 0190...
  reducerx trace --journal ./journal.db --type counter/add
  reducerx trace --journal ./journal.db --run 0190... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show dispatches of one run")
	cmd.Flags().StringVar(&opts.Type, "type", "", "show dispatches of one action type")
	cmd.MarkFlagsMutuallyExclusive("run", "type")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openJournal(opts.Journal)
	if err != nil {
		le := classifyError(opts.Journal, err)
		_ = out.Error(le.Code, le.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	result, err := queryTrace(ctx, st, opts)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			_ = out.Error(le.Code, le.Message, nil)
			return NewExitError(ExitCommandError, le.Message)
		}
		_ = out.Error(ErrCodeJournalFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to query journal", err)
	}

	if opts.Format == "json" {
		return out.Success(result)
	}
	printTraceResult(out, opts, result)
	return nil
}

func queryTrace(ctx context.Context, st *store.Store, opts *TraceOptions) (TraceResult, error) {
	switch {
	case opts.RunID != "":
		run, dispatches, err := st.ReadRun(ctx, opts.RunID)
		if err != nil {
			if isNoRows(err) {
				return TraceResult{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("run %q not found", opts.RunID)}
			}
			return TraceResult{}, err
		}
		tr, err := toTraceRun(run, true)
		if err != nil {
			return TraceResult{}, err
		}
		ds, stats, err := toTraceDispatches(dispatches)
		if err != nil {
			return TraceResult{}, err
		}
		return TraceResult{Run: &tr, Dispatches: ds, Stats: &stats}, nil

	case opts.Type != "":
		dispatches, err := st.DispatchesByType(ctx, opts.Type)
		if err != nil {
			return TraceResult{}, err
		}
		ds, stats, err := toTraceDispatches(dispatches)
		if err != nil {
			return TraceResult{}, err
		}
		return TraceResult{Dispatches: ds, Stats: &stats}, nil

	default:
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return TraceResult{}, err
		}
		out := make([]TraceRun, 0, len(runs))
		for _, run := range runs {
			tr, err := toTraceRun(run, false)
			if err != nil {
				return TraceResult{}, err
			}
			out = append(out, tr)
		}
		return TraceResult{Runs: out}, nil
	}
}

func toTraceRun(run store.Run, withInitial bool) (TraceRun, error) {
	tr := TraceRun{
		ID:         run.ID,
		Scenario:   run.Scenario,
		Variant:    run.Variant,
		Resettable: run.Resettable,
		Pass:       run.Pass,
	}
	if withInitial {
		data, err := value.MarshalCanonical(run.Initial)
		if err != nil {
			return TraceRun{}, err
		}
		tr.Initial = data
	}
	return tr, nil
}

func toTraceDispatches(dispatches []store.Dispatch) ([]TraceDispatch, TraceStats, error) {
	stats := TraceStats{Dispatches: len(dispatches)}
	out := make([]TraceDispatch, 0, len(dispatches))
	for _, d := range dispatches {
		state, err := value.MarshalCanonical(d.State)
		if err != nil {
			return nil, TraceStats{}, err
		}
		td := TraceDispatch{
			RunID:   d.RunID,
			Seq:     d.Seq,
			Type:    d.ActionType,
			Absent:  d.Absent,
			State:   state,
			Changed: d.Changed,
			Initial: d.Initial,
			Error:   d.Error,
		}
		if d.Payload != nil {
			payload, err := value.MarshalCanonical(d.Payload)
			if err != nil {
				return nil, TraceStats{}, err
			}
			td.Payload = payload
		}
		if d.Changed {
			stats.Changed++
		}
		if d.Error != "" {
			stats.Errors++
		}
		out = append(out, td)
	}
	return out, stats, nil
}

func printTraceResult(out *OutputFormatter, opts *TraceOptions, result TraceResult) {
	w := out.Writer

	if opts.RunID == "" && opts.Type == "" {
		if len(result.Runs) == 0 {
			fmt.Fprintln(w, "No runs found in journal.")
			return
		}
		for _, r := range result.Runs {
			fmt.Fprintf(w, "%s %s  %s  %s", out.Mark(r.Pass), r.ID, r.Scenario, r.Variant)
			if r.Resettable {
				fmt.Fprint(w, " (resettable)")
			}
			fmt.Fprintln(w)
		}
		return
	}

	if result.Run != nil {
		fmt.Fprintf(w, "Run: %s\n", result.Run.ID)
		fmt.Fprintf(w, "Scenario: %s (%s)\n", result.Run.Scenario, result.Run.Variant)
		fmt.Fprintf(w, "Initial: %s\n", result.Run.Initial)
	} else {
		fmt.Fprintf(w, "Type: %s\n", opts.Type)
	}
	fmt.Fprintln(w)

	if len(result.Dispatches) == 0 {
		fmt.Fprintln(w, "No dispatches found.")
		return
	}
	for _, d := range result.Dispatches {
		prefix := fmt.Sprintf("[%d]", d.Seq)
		if result.Run == nil {
			prefix = fmt.Sprintf("[%s:%d]", d.RunID, d.Seq)
		}
		fmt.Fprintf(w, "%s %s", prefix, d.Type)
		if d.Payload != nil {
			fmt.Fprintf(w, " %s", d.Payload)
		}
		if d.Absent {
			fmt.Fprint(w, " (absent)")
		}
		fmt.Fprintln(w)
		if d.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", d.Error)
			continue
		}
		fmt.Fprintf(w, "    -> %s changed=%t initial=%t\n", d.State, d.Changed, d.Initial)
	}

	if result.Stats != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Stats: %d dispatches, %d changed, %d errors\n",
			result.Stats.Dispatches, result.Stats.Changed, result.Stats.Errors)
	}
}
