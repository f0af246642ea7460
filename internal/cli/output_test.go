package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sebo/internal/classify"
	"github.com/roach88/sebo/internal/harness"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"scenario": "sebo_rest"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"file": "sebo_rest.yaml"}
	err := formatter.Error(ErrCodeLoadFailed, "scenario load failed", details)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeLoadFailed, resp.Error.Code)
	assert.Equal(t, "scenario load failed", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeNotFound, "scenario file not found", map[string]string{"file": "x.yaml"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E005]: scenario file not found")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error(ErrCodeNotFound, "scenario file not found", map[string]string{"file": "x.yaml"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			errOut := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: errOut,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Running %s", "sebo_rest")

			assert.Empty(t, out.String(), "verbose logs must not corrupt JSON output")
			if tt.wantLog {
				assert.Contains(t, errOut.String(), "Running sebo_rest")
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestExitError_Message(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to write metrics", cause)
	assert.Equal(t, "failed to write metrics: disk full", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, "halted", NewExitError(ExitFailure, "halted").Error())
}

func TestPrintOutcome(t *testing.T) {
	tests := []struct {
		name string
		out  classify.Outcome
		want string
	}{
		{
			name: "body",
			out:  classify.Outcome{StatusCode: 200, Body: `[{"id":"L1"}]`, Succeeded: true},
			want: "Status: 200\nResponse: [{\"id\":\"L1\"}]\n",
		},
		{
			name: "no_content",
			out:  classify.Outcome{StatusCode: 204, Succeeded: true},
			want: "Status: 204\nResponse: (sem conteúdo)\n",
		},
		{
			name: "http_failure",
			out:  classify.Outcome{StatusCode: 404, Body: `{"detail":"Produto não encontrado"}`, Failure: classify.FailureProtocol},
			want: "Status: 404\nResponse: {\"detail\":\"Produto não encontrado\"}\n",
		},
		{
			name: "transport_failure",
			out:  classify.Outcome{ErrorMessage: "transport error: connection refused", Failure: classify.FailureTransport},
			want: "Status: 0\nError: transport error: connection refused\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			printOutcome(buf, tt.out)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPrintReport(t *testing.T) {
	report := &harness.Report{
		Scenario: "demo",
		Steps: []harness.StepReport{
			{Seq: 1, Name: "listar", Target: "GET /produtos", Verdict: harness.VerdictOK, Status: 200},
			{Seq: 2, Name: "troca_invalida", Target: "POST /transacoes/troca", Verdict: harness.VerdictUnexpectedFailure, Status: 400},
			{Seq: 3, Name: "listar_depois", Target: "GET /produtos", Verdict: harness.VerdictNotExecuted},
		},
		Errors: []string{"run halted at step 2 (troca_invalida): HTTP 400 -> ..."},
	}

	buf := &bytes.Buffer{}
	printReport(buf, report)

	out := buf.String()
	assert.Contains(t, out, "✓  1 listar")
	assert.Contains(t, out, "✗  2 troca_invalida")
	assert.Contains(t, out, "unexpected_failure (400)")
	assert.Contains(t, out, "-  3 listar_depois")
	assert.Contains(t, out, "  run halted at step 2")
}
