package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/sebo/internal/classify"
	"github.com/roach88/sebo/internal/envelope"
	"github.com/roach88/sebo/internal/transport"
)

const tracerName = "github.com/roach88/sebo/internal/harness"

// Doer sends one built request. *transport.Invoker implements it.
type Doer interface {
	Do(ctx context.Context, req envelope.Request) (*transport.Response, error)
}

// Observer is notified as a run progresses. Calls happen on the goroutine
// executing Run, in step order.
type Observer interface {
	ObserveStep(step Step)
	ObserveRun(result *Result)
}

// Clock supplies wall-clock time for step durations and run timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Runner executes operations in order against one endpoint.
// A Runner may be reused; every Run starts its own request counter at 1.
type Runner struct {
	doer     Doer
	builder  *envelope.Builder
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
	clock    Clock
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger for step diagnostics.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver registers an observer for steps and completed runs.
func WithObserver(o Observer) RunnerOption {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithTracer sets the tracer used for run spans.
func WithTracer(t trace.Tracer) RunnerOption {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithClock replaces the wall clock, for deterministic durations in tests.
func WithClock(c Clock) RunnerOption {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// NewRunner creates a Runner that sends requests through doer to baseURL.
func NewRunner(doer Doer, baseURL string, opts ...RunnerOption) *Runner {
	r := &Runner{
		doer:    doer,
		builder: envelope.NewBuilder(baseURL),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer(tracerName),
		clock:   systemClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BaseURL returns the endpoint the runner targets.
func (r *Runner) BaseURL() string {
	return r.builder.BaseURL()
}

// Run executes ops strictly in order and returns the accumulated result.
//
// Every operation is validated before anything is sent; a scripting error
// returns a nil result and an error wrapping *envelope.ScriptError.
//
// A failed step under the propagate policy stops the run: the result is
// marked fatal and returned together with a *HaltError. Failed steps under
// the continue policy are recorded and the run proceeds.
//
// If ctx is done before or during a step, Run returns the partial result
// with an error wrapping ctx.Err(); the result stays in StateRunning.
func (r *Runner) Run(ctx context.Context, ops []envelope.Operation) (*Result, error) {
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, op.Label(), err)
		}
	}

	ctx, span := r.tracer.Start(ctx, "harness.Run",
		trace.WithAttributes(attribute.Int("sebo.steps", len(ops))))
	defer span.End()

	seq := envelope.NewSequence()
	result := NewResult()
	result.StartedAt = r.clock.Now()

	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return result, fmt.Errorf("run interrupted before step %d: %w", i+1, err)
		}

		step := r.execute(ctx, i, op, seq)
		result.Append(step)
		if r.observer != nil {
			r.observer.ObserveStep(step)
		}

		// A step cut short by cancellation is an interruption, not a halt.
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return result, fmt.Errorf("run interrupted at step %d (%s): %w", i+1, step.Name(), err)
		}

		if !step.Outcome.Succeeded && op.EffectivePolicy() == envelope.Propagate {
			result.Halt()
			r.logger.Warn("run halted",
				"step", step.Index+1,
				"name", step.Name(),
				"status", step.Outcome.StatusCode,
				"error", step.Outcome.ErrorMessage,
			)
			span.SetAttributes(attribute.String("sebo.state", string(result.State)))
			span.SetStatus(codes.Error, step.Outcome.ErrorMessage)
			r.finish(result)
			return result, &HaltError{Step: step}
		}
	}

	result.Complete()
	span.SetAttributes(attribute.String("sebo.state", string(result.State)))
	r.finish(result)
	return result, nil
}

func (r *Runner) execute(ctx context.Context, index int, op envelope.Operation, seq *envelope.Sequence) Step {
	var requestID int64
	if op.Style == envelope.StyleRPC {
		requestID = seq.Next()
	}

	req := r.builder.Build(op, requestID)

	start := r.clock.Now()
	resp, err := r.doer.Do(ctx, req)
	elapsed := r.clock.Now().Sub(start)

	outcome := classify.Classify(op.Style, resp, err)

	attrs := []any{
		"step", index + 1,
		"name", op.Label(),
		"style", op.Style,
		"status", outcome.StatusCode,
		"succeeded", outcome.Succeeded,
	}
	if requestID > 0 {
		attrs = append(attrs, "request_id", requestID)
	}
	if outcome.Succeeded {
		r.logger.Debug("step succeeded", attrs...)
	} else {
		r.logger.Info("step failed", append(attrs, "policy", op.EffectivePolicy(), "error", outcome.ErrorMessage)...)
	}

	return Step{
		Index:     index,
		Operation: op,
		RequestID: requestID,
		Outcome:   outcome,
		Duration:  elapsed,
	}
}

func (r *Runner) finish(result *Result) {
	result.FinishedAt = r.clock.Now()
	r.logger.Debug("run finished",
		"state", result.State,
		"steps", len(result.Steps),
		"succeeded", result.Succeeded(),
	)
	if r.observer != nil {
		r.observer.ObserveRun(result)
	}
}
