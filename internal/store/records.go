package store

import (
	"time"

	"github.com/roach88/sebo/internal/envelope"
	"github.com/roach88/sebo/internal/harness"
	"github.com/roach88/sebo/internal/ir"
)

// RunRecord is one journaled run. ID and Seq are assigned by WriteRun.
type RunRecord struct {
	ID             string       `json:"id"`
	Seq            int64        `json:"seq"`
	Scenario       string       `json:"scenario"`
	BaseURL        string       `json:"base_url"`
	State          string       `json:"state"`
	Fatal          bool         `json:"fatal"`
	StepsTotal     int          `json:"steps_total"`
	StepsSucceeded int          `json:"steps_succeeded"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	Steps          []StepRecord `json:"steps,omitempty"`
}

// StepRecord is one journaled step.
type StepRecord struct {
	Index        int           `json:"index"`
	Name         string        `json:"name"`
	Style        string        `json:"style"`
	Target       string        `json:"target"`
	Policy       string        `json:"policy"`
	RequestID    int64         `json:"request_id,omitempty"`
	Payload      ir.Value      `json:"payload,omitempty"`
	RequestHash  string        `json:"request_hash"`
	Status       int           `json:"status"`
	Succeeded    bool          `json:"succeeded"`
	Failure      string        `json:"failure,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Body         string        `json:"body,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
}

// NewRunRecord converts a run result into a journal record.
func NewRunRecord(scenario, baseURL string, result *harness.Result) RunRecord {
	rec := RunRecord{
		Scenario:       scenario,
		BaseURL:        baseURL,
		State:          string(result.State),
		Fatal:          result.Fatal,
		StepsTotal:     len(result.Steps),
		StepsSucceeded: result.Succeeded(),
		StartedAt:      result.StartedAt,
		FinishedAt:     result.FinishedAt,
		Steps:          make([]StepRecord, len(result.Steps)),
	}
	for i, s := range result.Steps {
		payload := payloadOf(s.Operation)
		target := s.Operation.Target()
		// payloads were validated before the run, so hashing cannot fail
		hash, _ := ir.RequestHash(target, payload)
		rec.Steps[i] = StepRecord{
			Index:        s.Index,
			Name:         s.Name(),
			Style:        string(s.Operation.Style),
			Target:       target,
			Policy:       string(s.Operation.EffectivePolicy()),
			RequestID:    s.RequestID,
			Payload:      payload,
			RequestHash:  hash,
			Status:       s.Outcome.StatusCode,
			Succeeded:    s.Outcome.Succeeded,
			Failure:      string(s.Outcome.Failure),
			ErrorMessage: s.Outcome.ErrorMessage,
			Body:         s.Outcome.Body,
			Duration:     s.Duration,
		}
	}
	return rec
}

// payloadOf returns what the step sent: the body for rest operations, the
// arguments object for rpc operations.
func payloadOf(op envelope.Operation) ir.Value {
	if op.Style != envelope.StyleRPC {
		return op.Payload
	}
	args := envelope.NewRPCEnvelope(op, 0).Arguments
	return ir.NewObject(
		ir.O("args", args.Args),
		ir.O("kwargs", args.Kwargs),
	)
}
