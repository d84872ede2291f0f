package cli

import (
	"database/sql"
	"errors"

	"github.com/roach88/reducerx/internal/harness"
	"github.com/roach88/reducerx/internal/store"
	"github.com/roach88/reducerx/internal/value"
)

// toDispatches converts a harness trace into journal rows.
func toDispatches(runID string, trace []harness.TraceEvent) []store.Dispatch {
	out := make([]store.Dispatch, len(trace))
	for i, e := range trace {
		out[i] = store.Dispatch{
			RunID:      runID,
			Seq:        e.Seq,
			ActionType: e.Type,
			Payload:    e.Payload,
			Absent:     e.Absent,
			State:      e.State,
			Changed:    e.Changed,
			Initial:    e.Initial,
			Error:      e.Error,
		}
	}
	return out
}

// toTraceEvents converts journal rows back into a harness trace.
func toTraceEvents(dispatches []store.Dispatch) []harness.TraceEvent {
	out := make([]harness.TraceEvent, len(dispatches))
	for i, d := range dispatches {
		out[i] = harness.TraceEvent{
			Seq:     d.Seq,
			Type:    d.ActionType,
			Payload: d.Payload,
			Absent:  d.Absent,
			State:   d.State,
			Changed: d.Changed,
			Initial: d.Initial,
			Error:   d.Error,
		}
	}
	return out
}

// canonical renders v as canonical JSON for text output.
func canonical(v value.Value) string {
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(data)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
