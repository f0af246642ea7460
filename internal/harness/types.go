package harness

import (
	"time"

	"github.com/roach88/sebo/internal/classify"
	"github.com/roach88/sebo/internal/envelope"
)

// RunState is the lifecycle state of a run.
type RunState string

const (
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateHalted    RunState = "halted"
)

// Step is one executed operation and its outcome. Steps are immutable once
// appended to a Result.
type Step struct {
	// Index is the zero-based position of the operation in the run.
	Index int `json:"index"`

	Operation envelope.Operation `json:"operation"`

	// RequestID is the envelope id used for rpc operations; zero for rest.
	RequestID int64 `json:"request_id,omitempty"`

	Outcome  classify.Outcome `json:"outcome"`
	Duration time.Duration    `json:"duration_ns"`
}

// Name returns the step's display label.
func (s Step) Name() string {
	return s.Operation.Label()
}

// Result accumulates the steps of one run.
type Result struct {
	Steps      []Step    `json:"steps"`
	Fatal      bool      `json:"fatal"`
	State      RunState  `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewResult creates an empty result for a run that is starting.
func NewResult() *Result {
	return &Result{
		Steps: []Step{},
		State: StateRunning,
	}
}

// Append records an executed step.
func (r *Result) Append(step Step) {
	r.Steps = append(r.Steps, step)
}

// Halt marks the run as stopped by a failing propagate step.
func (r *Result) Halt() {
	r.Fatal = true
	r.State = StateHalted
}

// Complete marks the run as having executed every operation.
func (r *Result) Complete() {
	r.State = StateCompleted
}

// Succeeded returns the number of steps whose outcome succeeded.
func (r *Result) Succeeded() int {
	n := 0
	for _, s := range r.Steps {
		if s.Outcome.Succeeded {
			n++
		}
	}
	return n
}

// Failed returns the steps whose outcome failed, in run order.
func (r *Result) Failed() []Step {
	var failed []Step
	for _, s := range r.Steps {
		if !s.Outcome.Succeeded {
			failed = append(failed, s)
		}
	}
	return failed
}

// Last returns the most recently executed step, or false if none ran.
func (r *Result) Last() (Step, bool) {
	if len(r.Steps) == 0 {
		return Step{}, false
	}
	return r.Steps[len(r.Steps)-1], true
}

// TraceEvent is the deterministic projection of a step used in golden
// snapshots. Bodies and timings are left out.
type TraceEvent struct {
	Seq       int    `json:"seq"`
	Name      string `json:"name"`
	Style     string `json:"style"`
	Target    string `json:"target"`
	RequestID int64  `json:"request_id,omitempty"`
	Policy    string `json:"policy"`
	Status    int    `json:"status"`
	Succeeded bool   `json:"succeeded"`
}

// Trace projects the result's steps into trace events, numbered from 1.
func (r *Result) Trace() []TraceEvent {
	events := make([]TraceEvent, len(r.Steps))
	for i, s := range r.Steps {
		events[i] = TraceEvent{
			Seq:       i + 1,
			Name:      s.Name(),
			Style:     string(s.Operation.Style),
			Target:    s.Operation.Target(),
			RequestID: s.RequestID,
			Policy:    string(s.Operation.EffectivePolicy()),
			Status:    s.Outcome.StatusCode,
			Succeeded: s.Outcome.Succeeded,
		}
	}
	return events
}
