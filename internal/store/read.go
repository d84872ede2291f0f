package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ListRuns returns every run ordered by insertion.
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_seq, id, scenario, variant, resettable, initial_state, pass
		FROM runs
		ORDER BY created_seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns a run and its dispatches ordered by seq.
// Returns sql.ErrNoRows if the run does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, []Dispatch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT created_seq, id, scenario, variant, resettable, initial_state, pass
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, nil, err
	}

	dispatches, err := s.queryDispatches(ctx, `
		SELECT run_id, seq, action_type, payload, absent, state, changed, is_initial, error
		FROM dispatches
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return Run{}, nil, err
	}
	return run, dispatches, nil
}

// DispatchesByType returns every dispatch of the given action type across
// all runs, ordered by run then seq.
func (s *Store) DispatchesByType(ctx context.Context, actionType string) ([]Dispatch, error) {
	return s.queryDispatches(ctx, `
		SELECT d.run_id, d.seq, d.action_type, d.payload, d.absent, d.state, d.changed, d.is_initial, d.error
		FROM dispatches d
		JOIN runs r ON r.id = d.run_id
		WHERE d.action_type = ?
		ORDER BY r.created_seq ASC, d.seq ASC
	`, actionType)
}

func (s *Store) queryDispatches(ctx context.Context, query string, args ...any) ([]Dispatch, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	dispatches := []Dispatch{}
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		dispatches = append(dispatches, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return dispatches, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run         Run
		resettable  int
		pass        int
		initialJSON string
	)
	err := row.Scan(&run.Seq, &run.ID, &run.Scenario, &run.Variant, &resettable, &initialJSON, &pass)
	if err == sql.ErrNoRows {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Initial, err = unmarshalState(initialJSON)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	run.Resettable = resettable != 0
	run.Pass = pass != 0
	return run, nil
}

func scanDispatch(row scanner) (Dispatch, error) {
	var (
		d           Dispatch
		payloadJSON sql.NullString
		stateJSON   string
		absent      int
		changed     int
		initial     int
	)
	if err := row.Scan(&d.RunID, &d.Seq, &d.ActionType, &payloadJSON, &absent, &stateJSON, &changed, &initial, &d.Error); err != nil {
		return Dispatch{}, fmt.Errorf("scan dispatch: %w", err)
	}
	var err error
	if d.Payload, err = unmarshalPayload(payloadJSON); err != nil {
		return Dispatch{}, fmt.Errorf("dispatch %s/%d: %w", d.RunID, d.Seq, err)
	}
	if d.State, err = unmarshalState(stateJSON); err != nil {
		return Dispatch{}, fmt.Errorf("dispatch %s/%d: %w", d.RunID, d.Seq, err)
	}
	d.Absent = absent != 0
	d.Changed = changed != 0
	d.Initial = initial != 0
	return d, nil
}
