package metrics

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sebo/internal/classify"
	"github.com/roach88/sebo/internal/envelope"
	"github.com/roach88/sebo/internal/harness"
	"github.com/roach88/sebo/internal/transport"
)

type fixedDoer struct{ status int }

func (d fixedDoer) Do(context.Context, envelope.Request) (*transport.Response, error) {
	return &transport.Response{StatusCode: d.status}, nil
}

func TestRecorder_ObserveStep(t *testing.T) {
	rec := NewRecorder(nil)

	rec.ObserveStep(harness.Step{
		Operation: envelope.Get("/produtos"),
		Outcome:   classify.Outcome{StatusCode: 200, Succeeded: true},
		Duration:  20 * time.Millisecond,
	})
	rec.ObserveStep(harness.Step{
		Operation: envelope.Invoke("TransacaoService", "trocar"),
		Outcome:   classify.Outcome{StatusCode: 400},
		Duration:  time.Second,
	})
	rec.ObserveStep(harness.Step{
		Operation: envelope.Invoke("CatalogoService", "listar"),
		Outcome:   classify.Outcome{StatusCode: 200, Succeeded: true},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.stepsTotal.WithLabelValues("rest", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.stepsTotal.WithLabelValues("rpc", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.stepsTotal.WithLabelValues("rpc", OutcomeSuccess)))
	assert.Equal(t, 2, testutil.CollectAndCount(rec.stepDuration))
}

func TestRecorder_AsRunnerObserver(t *testing.T) {
	rec := NewRecorder(nil)
	runner := harness.NewRunner(fixedDoer{status: 200}, "http://x", harness.WithObserver(rec))

	_, err := runner.Run(context.Background(), []envelope.Operation{
		envelope.Get("/produtos"),
		envelope.Invoke("CatalogoService", "listar"),
	})
	require.NoError(t, err)

	halting := harness.NewRunner(fixedDoer{status: 500}, "http://x", harness.WithObserver(rec))
	_, err = halting.Run(context.Background(), []envelope.Operation{envelope.Get("/produtos")})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.runsTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.runsTotal.WithLabelValues("halted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.stepsTotal.WithLabelValues("rest", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.stepsTotal.WithLabelValues("rest", OutcomeSuccess)))
}

func TestRecorder_WriteText(t *testing.T) {
	rec := NewRecorder([]float64{0.1, 1})
	rec.ObserveStep(harness.Step{
		Operation: envelope.Get("/produtos"),
		Outcome:   classify.Outcome{StatusCode: 204, Succeeded: true},
		Duration:  50 * time.Millisecond,
	})
	rec.ObserveRun(&harness.Result{State: harness.StateCompleted})

	var buf bytes.Buffer
	require.NoError(t, rec.WriteText(&buf))
	out := buf.String()

	assert.Contains(t, out, "# TYPE sebo_steps_total counter")
	assert.Contains(t, out, `sebo_steps_total{outcome="success",style="rest"} 1`)
	assert.Contains(t, out, `sebo_step_duration_seconds_bucket{style="rest",le="0.1"} 1`)
	assert.Contains(t, out, `sebo_runs_total{state="completed"} 1`)
}
