package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sebo/internal/classify"
	"github.com/roach88/sebo/internal/envelope"
	"github.com/roach88/sebo/internal/harness"
	"github.com/roach88/sebo/internal/ir"
	"github.com/roach88/sebo/internal/testutil"
)

func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult() *harness.Result {
	r := harness.NewResult()
	r.StartedAt = testutil.Epoch
	r.Append(harness.Step{
		Index:     0,
		Operation: envelope.Post("/transacoes/troca", ir.NewObject(ir.O("produto_a_id", ir.String("E1")), ir.O("produto_b_id", ir.String("E2")))).Named("trocar"),
		Outcome:   classify.Outcome{StatusCode: 200, Body: `{"mensagem":"ok"}`, Succeeded: true},
		Duration:  15 * time.Millisecond,
	})
	r.Append(harness.Step{
		Index:     1,
		Operation: envelope.Invoke("TransacaoService", "trocar", ir.String("E1"), ir.String("L1")),
		RequestID: 1,
		Outcome: classify.Outcome{
			StatusCode:   400,
			Body:         `{"detail":{"isException":true}}`,
			ErrorMessage: `HTTP 400 -> {"detail":{"isException":true}}`,
			Failure:      classify.FailureProtocol,
		},
		Duration: 5 * time.Millisecond,
	})
	r.Halt()
	r.FinishedAt = testutil.Epoch.Add(time.Second)
	return r
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.WriteRun(context.Background(), NewRunRecord("sebo_rest", "http://x", sampleResult()))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	runs, err := s2.ListRuns(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestNewRunRecord(t *testing.T) {
	rec := NewRunRecord("sebo_halting", "http://127.0.0.1:8000", sampleResult())

	assert.Equal(t, "halted", rec.State)
	assert.True(t, rec.Fatal)
	assert.Equal(t, 2, rec.StepsTotal)
	assert.Equal(t, 1, rec.StepsSucceeded)
	require.Len(t, rec.Steps, 2)

	assert.Equal(t, "trocar", rec.Steps[0].Name)
	assert.Equal(t, "POST /transacoes/troca", rec.Steps[0].Target)
	assert.Equal(t, "propagate", rec.Steps[0].Policy)

	rpc := rec.Steps[1]
	assert.Equal(t, "TransacaoService.trocar", rpc.Name)
	assert.Equal(t, "rpc", rpc.Style)
	assert.Equal(t, int64(1), rpc.RequestID)
	assert.Equal(t, "protocol", rpc.Failure)

	payload, err := ir.Marshal(rpc.Payload)
	require.NoError(t, err)
	assert.Equal(t, `{"args":["E1","L1"],"kwargs":{}}`, string(payload))
}

func TestWriteRun_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(testutil.NewSequentialIDs("")))

	written, err := s.WriteRun(ctx, NewRunRecord("sebo_halting", "http://127.0.0.1:8000", sampleResult()))
	require.NoError(t, err)
	assert.Equal(t, "run-0001", written.ID)
	assert.Equal(t, int64(1), written.Seq)

	got, err := s.GetRun(ctx, "run-0001")
	require.NoError(t, err)

	assert.Equal(t, "sebo_halting", got.Scenario)
	assert.Equal(t, "http://127.0.0.1:8000", got.BaseURL)
	assert.Equal(t, "halted", got.State)
	assert.True(t, got.Fatal)
	assert.True(t, testutil.Epoch.Equal(got.StartedAt))
	assert.True(t, testutil.Epoch.Add(time.Second).Equal(got.FinishedAt))

	require.Len(t, got.Steps, 2)
	assert.Equal(t, written.Steps[0].Name, got.Steps[0].Name)
	assert.Equal(t, 15*time.Millisecond, got.Steps[0].Duration)
	assert.True(t, got.Steps[0].Succeeded)
	assert.Equal(t, `{"mensagem":"ok"}`, got.Steps[0].Body)

	payload, err := ir.Marshal(got.Steps[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, `{"produto_a_id":"E1","produto_b_id":"E2"}`, string(payload))

	assert.False(t, got.Steps[1].Succeeded)
	assert.Equal(t, 400, got.Steps[1].Status)
	assert.Equal(t, `HTTP 400 -> {"detail":{"isException":true}}`, got.Steps[1].ErrorMessage)
}

func TestWriteRun_AbsentPayload(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	r := harness.NewResult()
	r.Append(harness.Step{Operation: envelope.Delete("/produtos/T1"), Outcome: classify.Outcome{StatusCode: 204, Succeeded: true}})
	r.Complete()

	written, err := s.WriteRun(ctx, NewRunRecord("remover", "http://x", r))
	require.NoError(t, err)
	assert.Len(t, written.ID, 36, "default ids are UUIDs")

	steps, err := s.ReadSteps(ctx, written.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Nil(t, steps[0].Payload)
}

func TestWriteRun_RequiresScenario(t *testing.T) {
	s := createTestStore(t)
	_, err := s.WriteRun(context.Background(), RunRecord{})
	assert.ErrorContains(t, err, "scenario is required")
}

func TestWriteRun_DuplicateIDRollsBack(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	rec := NewRunRecord("sebo_rest", "http://x", sampleResult())
	rec.ID = "fixed"
	_, err := s.WriteRun(ctx, rec)
	require.NoError(t, err)

	_, err = s.WriteRun(ctx, rec)
	require.Error(t, err)

	runs, err := s.ListRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	steps, err := s.ReadSteps(ctx, "fixed")
	require.NoError(t, err)
	assert.Len(t, steps, 2)
}

func TestListRuns_OrderAndFilter(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(testutil.NewSequentialIDs("r")))

	for _, name := range []string{"sebo_rest", "sebo_rpc", "sebo_rest"} {
		_, err := s.WriteRun(ctx, NewRunRecord(name, "http://x", sampleResult()))
		require.NoError(t, err)
	}

	all, err := s.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].Seq, all[1].Seq, all[2].Seq})
	assert.Nil(t, all[0].Steps)

	rest, err := s.ListRuns(ctx, "sebo_rest")
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "r-0001", rest[0].ID)
	assert.Equal(t, "r-0003", rest[1].ID)

	none, err := s.ListRuns(ctx, "sebo_soap")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGetRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestNewRunRecord_RequestHash(t *testing.T) {
	rec := NewRunRecord("sebo_halting", "http://x", sampleResult())

	want := ir.MustRequestHash("TransacaoService.trocar",
		ir.NewObject(ir.O("args", ir.Strings("E1", "L1")), ir.O("kwargs", ir.Object{})))
	assert.Equal(t, want, rec.Steps[1].RequestHash)
	assert.NotEqual(t, rec.Steps[0].RequestHash, rec.Steps[1].RequestHash)
}

func TestFindRequest(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(testutil.NewSequentialIDs("r")))

	for _, name := range []string{"sebo_rest", "sebo_rpc"} {
		_, err := s.WriteRun(ctx, NewRunRecord(name, "http://x", sampleResult()))
		require.NoError(t, err)
	}

	rec := NewRunRecord("probe", "http://x", sampleResult())
	found, err := s.FindRequest(ctx, rec.Steps[1].RequestHash)
	require.NoError(t, err)
	require.Len(t, found, 2)

	assert.Equal(t, Occurrence{RunID: "r-0001", RunSeq: 1, Scenario: "sebo_rest", Index: 1, Name: "TransacaoService.trocar", Status: 400}, found[0])
	assert.Equal(t, "r-0002", found[1].RunID)

	none, err := s.FindRequest(ctx, "0000")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
