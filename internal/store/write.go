package store

import (
	"context"
	"fmt"
)

// WriteRun journals a run and its steps in one transaction and returns the
// stored record with its assigned ID and Seq. A non-empty rec.ID is kept.
func (s *Store) WriteRun(ctx context.Context, rec RunRecord) (RunRecord, error) {
	if rec.Scenario == "" {
		return RunRecord{}, fmt.Errorf("write run: scenario is required")
	}
	if rec.ID == "" {
		rec.ID = s.ids.Generate()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunRecord{}, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&rec.Seq); err != nil {
		return RunRecord{}, fmt.Errorf("write run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, scenario, base_url, state, fatal, steps_total, steps_succeeded, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Seq,
		rec.Scenario,
		rec.BaseURL,
		rec.State,
		boolToInt(rec.Fatal),
		rec.StepsTotal,
		rec.StepsSucceeded,
		formatTime(rec.StartedAt),
		formatTime(rec.FinishedAt),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("write run: %w", err)
	}

	for _, step := range rec.Steps {
		payload, err := marshalPayload(step.Payload)
		if err != nil {
			return RunRecord{}, fmt.Errorf("write run: step %d: %w", step.Index, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO steps
			(run_id, idx, name, style, target, policy, request_id, payload, request_hash, status, succeeded, failure, error_message, body, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rec.ID,
			step.Index,
			step.Name,
			step.Style,
			step.Target,
			step.Policy,
			step.RequestID,
			payload,
			step.RequestHash,
			step.Status,
			boolToInt(step.Succeeded),
			step.Failure,
			step.ErrorMessage,
			step.Body,
			int64(step.Duration),
		)
		if err != nil {
			return RunRecord{}, fmt.Errorf("write run: step %d: %w", step.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return RunRecord{}, fmt.Errorf("write run: commit: %w", err)
	}
	return rec, nil
}
