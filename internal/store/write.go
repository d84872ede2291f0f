package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run and all its dispatches in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - writing the same run ID
// twice leaves the first record in place.
//
// States and payloads are serialized to canonical JSON per RFC 8785 for
// deterministic replay.
func (s *Store) WriteRun(ctx context.Context, run Run, dispatches []Dispatch) error {
	initialJSON, err := marshalState(run.Initial)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, variant, resettable, initial_state, pass)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Scenario,
		run.Variant,
		boolToInt(run.Resettable),
		initialJSON,
		boolToInt(run.Pass),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dispatches
		(run_id, seq, action_type, payload, absent, state, changed, is_initial, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write run: prepare: %w", err)
	}
	defer stmt.Close()

	for _, d := range dispatches {
		payloadJSON, err := marshalPayload(d.Payload)
		if err != nil {
			return fmt.Errorf("write dispatch %d: %w", d.Seq, err)
		}
		stateJSON, err := marshalState(d.State)
		if err != nil {
			return fmt.Errorf("write dispatch %d: %w", d.Seq, err)
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID,
			d.Seq,
			d.ActionType,
			payloadJSON,
			boolToInt(d.Absent),
			stateJSON,
			boolToInt(d.Changed),
			boolToInt(d.Initial),
			d.Error,
		); err != nil {
			return fmt.Errorf("write dispatch %d: %w", d.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}
