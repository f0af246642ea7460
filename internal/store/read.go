package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run id is not in the journal.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, seq, scenario, base_url, state, fatal, steps_total, steps_succeeded, started_at, finished_at`

// ListRuns returns journaled runs without their steps, ordered by
// seq ASC, id ASC COLLATE BINARY. An empty scenario lists every run.
//
// Returns an empty slice (not nil) if no runs match.
func (s *Store) ListRuns(ctx context.Context, scenario string) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run with its steps.
// Returns ErrRunNotFound if the id is unknown.
func (s *Store) GetRun(ctx context.Context, id string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return RunRecord{}, err
	}

	rec.Steps, err = s.ReadSteps(ctx, id)
	if err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}

// ReadSteps returns the steps of a run ordered by idx.
// Returns an empty slice (not nil) if the run has no steps.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, name, style, target, policy, request_id, payload, request_hash, status, succeeded, failure, error_message, body, duration_ns
		FROM steps
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []StepRecord{}
	for rows.Next() {
		var (
			step      StepRecord
			payload   string
			succeeded int
			duration  int64
		)
		if err := rows.Scan(
			&step.Index,
			&step.Name,
			&step.Style,
			&step.Target,
			&step.Policy,
			&step.RequestID,
			&payload,
			&step.RequestHash,
			&step.Status,
			&succeeded,
			&step.Failure,
			&step.ErrorMessage,
			&step.Body,
			&duration,
		); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		step.Succeeded = succeeded == 1
		step.Duration = time.Duration(duration)
		if step.Payload, err = unmarshalPayload(payload); err != nil {
			return nil, fmt.Errorf("step %d: %w", step.Index, err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		rec               RunRecord
		fatal             int
		started, finished string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Seq,
		&rec.Scenario,
		&rec.BaseURL,
		&rec.State,
		&fatal,
		&rec.StepsTotal,
		&rec.StepsSucceeded,
		&started,
		&finished,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, err
		}
		return RunRecord{}, fmt.Errorf("scan run: %w", err)
	}
	rec.Fatal = fatal == 1

	var err error
	if rec.StartedAt, err = parseTime(started); err != nil {
		return RunRecord{}, err
	}
	if rec.FinishedAt, err = parseTime(finished); err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}

// Occurrence is one journaled execution of a request.
type Occurrence struct {
	RunID     string `json:"run_id"`
	RunSeq    int64  `json:"run_seq"`
	Scenario  string `json:"scenario"`
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Status    int    `json:"status"`
	Succeeded bool   `json:"succeeded"`
}

// FindRequest returns every step whose request fingerprint equals hash,
// ordered by run seq then step index.
// Returns an empty slice (not nil) if the request was never journaled.
func (s *Store) FindRequest(ctx context.Context, hash string) ([]Occurrence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.seq, r.scenario, st.idx, st.name, st.status, st.succeeded
		FROM steps st
		JOIN runs r ON r.id = st.run_id
		WHERE st.request_hash = ?
		ORDER BY r.seq ASC, st.idx ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	defer rows.Close()

	found := []Occurrence{}
	for rows.Next() {
		var (
			occ       Occurrence
			succeeded int
		)
		if err := rows.Scan(&occ.RunID, &occ.RunSeq, &occ.Scenario, &occ.Index, &occ.Name, &occ.Status, &succeeded); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		occ.Succeeded = succeeded == 1
		found = append(found, occ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate request: %w", err)
	}
	return found, nil
}
