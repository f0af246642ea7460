package cli

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sebo/internal/harness"
	"github.com/roach88/sebo/internal/testutil"
)

type runResponse struct {
	Status string    `json:"status"`
	Data   RunOutput `json:"data"`
	Error  *CLIError `json:"error"`
}

func scenarioPath(name string) string {
	return filepath.Join(scenariosDir, name)
}

func writeScenario(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_RESTScenarioPasses(t *testing.T) {
	srv := testutil.NewSeboServer(t)

	out, err := executeCommand(t, "run", scenarioPath("sebo_rest.yaml"), "--base-url", srv.URL)
	require.NoError(t, err, out)

	assert.Contains(t, out, "Scenario: sebo_rest")
	assert.Contains(t, out, "Steps: 9 executed, 7 succeeded (completed)")
	assert.Contains(t, out, "obter_t1_removido")
	assert.Contains(t, out, "expected_failure (404)")
	assert.Contains(t, out, "✓ PASS")

	assert.Len(t, srv.Requests(), 9)
	l2, ok := srv.Produto("L2")
	require.True(t, ok)
	assert.True(t, l2.Vendido)
}

func TestRun_HaltingScenarioExitsOne(t *testing.T) {
	srv := testutil.NewSeboServer(t)

	out, err := executeCommand(t, "run", scenarioPath("sebo_halting.yaml"), "--base-url", srv.URL)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, harness.IsHalt(err), "exit error should wrap the halt")

	assert.Contains(t, out, "Steps: 5 executed, 4 succeeded (halted)")
	assert.Contains(t, out, "not_executed")
	assert.Contains(t, out, "run halted at step 5 (troca_invalida)")
	assert.Contains(t, out, "✗ FAIL")

	// listar_depois is never sent
	assert.Len(t, srv.Requests(), 5)
}

func TestRun_CUEScenario(t *testing.T) {
	srv := testutil.NewSeboServer(t)

	out, err := executeCommand(t, "run", scenarioPath("sebo_cue.cue"), "--base-url", srv.URL)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Scenario: sebo_cue")
	assert.Contains(t, out, "✓ PASS")

	reqs := srv.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "/produtos", reqs[0].Path)
	assert.Equal(t, "tipo=cd", reqs[0].Query)
	assert.Equal(t, "/invoke", reqs[1].Path)
	assert.Contains(t, reqs[1].Body, `"requestId":1`)
	assert.Contains(t, reqs[2].Body, `"requestId":2`)
}

func TestRun_JSONOutput(t *testing.T) {
	srv := testutil.NewSeboServer(t)

	out, err := executeCommand(t, "run", scenarioPath("sebo_rpc.yaml"), "--base-url", srv.URL, "--format", "json")
	require.NoError(t, err, out)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.Data.Report)
	assert.True(t, resp.Data.Report.Pass)
	assert.Equal(t, 6, resp.Data.Executed)
	assert.Equal(t, 4, resp.Data.Succeeded)
	assert.Empty(t, resp.Data.RunID)

	steps := resp.Data.Report.Steps
	require.Len(t, steps, 6)
	assert.Equal(t, harness.VerdictExpectedFailure, steps[5].Verdict)
	assert.Contains(t, steps[5].Body, "já foi vendido")
}

func TestRun_JSONOutputOnHalt(t *testing.T) {
	srv := testutil.NewSeboServer(t)

	out, err := executeCommand(t, "run", scenarioPath("sebo_halting.yaml"), "--base-url", srv.URL, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeHalted, resp.Error.Code)
	assert.True(t, resp.Data.Report.Fatal)
	assert.Equal(t, harness.StateHalted, resp.Data.Report.State)
}

func TestRun_JournalAndHistory(t *testing.T) {
	srv := testutil.NewSeboServer(t)
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := executeCommand(t, "run", scenarioPath("sebo_rpc.yaml"), "--base-url", srv.URL, "--db", db, "--format", "json")
	require.NoError(t, err, out)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	runID := resp.Data.RunID
	require.NotEmpty(t, runID)

	out, err = executeCommand(t, "history", "--db", db)
	require.NoError(t, err, out)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "sebo_rpc")
	assert.Contains(t, out, "4/6")

	out, err = executeCommand(t, "history", "--db", db, runID)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Scenario: sebo_rpc")
	assert.Contains(t, out, "State: completed (4/6 steps succeeded)")
	assert.Contains(t, out, "TransacaoService.vender")
	assert.Contains(t, out, "[request 6]")
}

func TestRun_MetricsOut(t *testing.T) {
	srv := testutil.NewSeboServer(t)
	metricsPath := filepath.Join(t.TempDir(), "metrics.txt")

	out, err := executeCommand(t, "run", scenarioPath("sebo_rpc.yaml"), "--base-url", srv.URL, "--metrics-out", metricsPath)
	require.NoError(t, err, out)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `sebo_steps_total{outcome="success",style="rpc"} 4`)
	assert.Contains(t, text, `sebo_steps_total{outcome="failure",style="rpc"} 2`)
	assert.Contains(t, text, `sebo_runs_total{state="completed"} 1`)
	assert.Contains(t, text, "sebo_step_duration_seconds_bucket")
}

func TestRun_MissingFile(t *testing.T) {
	out, err := executeCommand(t, "run", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestRun_InvalidScenario(t *testing.T) {
	path := writeScenario(t, "bad.yaml", `
name: bad
description: unknown key
steps:
  - request: {method: GET, path: /produtos}
    retries: 3
`)

	out, err := executeCommand(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestRun_InvalidStepNothingSent(t *testing.T) {
	srv := testutil.NewSeboServer(t)
	path := writeScenario(t, "delete_body.yaml", `
name: delete_body
description: DELETE carries no body
steps:
  - request: {method: DELETE, path: /produtos/L1, body: {force: true}}
`)

	out, err := executeCommand(t, "run", path, "--base-url", srv.URL)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
	assert.Contains(t, out, "carry no body")
	assert.Empty(t, srv.Requests(), "nothing is sent for an invalid script")
}

func TestRun_ServerUnreachable(t *testing.T) {
	dead := httptest.NewServer(nil)
	url := dead.URL
	dead.Close()

	out, err := executeCommand(t, "run", scenarioPath("sebo_rest.yaml"), "--base-url", url, "--timeout", "2s")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Steps: 1 executed, 0 succeeded (halted)")
	assert.Contains(t, out, "transport error")
}
