package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sebo/internal/envelope"
	"github.com/roach88/sebo/internal/ir"
)

const validScenario = `
name: troca_basica
description: "Troca entre ebooks e troca inválida"
steps:
  - name: listar
    request: {method: get, path: /produtos}
  - name: cadastrar
    request:
      method: POST
      path: /produtos
      body:
        id: T1
        tipo_produto: livro
        titulo: "Livro de Teste"
        preco: 10.5
        estado: novo
        extras: {autor: "Autor Teste", paginas: 123}
  - invoke: {object: TransacaoService, method: trocar, args: [E1, E2]}
    expect: {outcome: success, status: 200}
  - name: troca_invalida
    invoke:
      object: TransacaoService
      method: trocar
      args: [E1, L1]
      kwargs: {motivo: teste}
    on_error: continue
    expect: {outcome: failure, status: 400, body_contains: isException}
`

func TestParseScenario_Valid(t *testing.T) {
	scenario, err := ParseScenario([]byte(validScenario))
	require.NoError(t, err)

	assert.Equal(t, "troca_basica", scenario.Name)
	require.Len(t, scenario.Steps, 4)
	assert.Equal(t, "continue", scenario.Steps[3].OnError)

	plan, err := scenario.Plan()
	require.NoError(t, err)
	require.Len(t, plan.Steps, 4)
	assert.Equal(t, "troca_basica", plan.Name)

	listar := plan.Steps[0].Operation
	assert.Equal(t, envelope.StyleREST, listar.Style)
	assert.Equal(t, "GET", listar.Method)
	assert.Nil(t, listar.Payload)
	assert.Equal(t, envelope.Propagate, listar.EffectivePolicy())

	cadastrar := plan.Steps[1].Operation
	body, err := ir.Marshal(cadastrar.Payload)
	require.NoError(t, err)
	assert.Equal(t,
		`{"estado":"novo","extras":{"autor":"Autor Teste","paginas":123},"id":"T1","preco":10.5,"tipo_produto":"livro","titulo":"Livro de Teste"}`,
		string(body))

	troca := plan.Steps[2].Operation
	assert.Equal(t, envelope.StyleRPC, troca.Style)
	assert.Equal(t, "TransacaoService.trocar", troca.Label())
	assert.Equal(t, ir.Strings("E1", "E2"), troca.Payload)
	require.NotNil(t, plan.Steps[2].Expect)
	assert.Equal(t, 200, plan.Steps[2].Expect.Status)

	invalida := plan.Steps[3].Operation
	assert.Equal(t, envelope.Continue, invalida.Policy)
	assert.Equal(t, ir.Object{"motivo": ir.String("teste")}, invalida.Kwargs)
	assert.Equal(t, "isException", plan.Steps[3].Expect.BodyContains)
}

func TestParseScenario_InvokeWithoutArgsSendsEmptyArray(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: listar
description: d
steps:
  - invoke: {object: CatalogoService, method: listar}
`))
	require.NoError(t, err)

	plan, err := scenario.Plan()
	require.NoError(t, err)
	assert.Equal(t, ir.Array{}, plan.Steps[0].Operation.Payload)
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty document",
			yaml:    "",
			wantErr: "empty document",
		},
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: d\nstepz: []\n",
			wantErr: "field stepz not found",
		},
		{
			name:    "missing name",
			yaml:    "description: d\nsteps:\n  - request: {method: GET, path: /produtos}\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nsteps:\n  - request: {method: GET, path: /produtos}\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: x\ndescription: d\nsteps: []\n",
			wantErr: "steps list is required",
		},
		{
			name:    "neither request nor invoke",
			yaml:    "name: x\ndescription: d\nsteps:\n  - name: vazio\n",
			wantErr: "one of request or invoke is required",
		},
		{
			name: "both request and invoke",
			yaml: `name: x
description: d
steps:
  - request: {method: GET, path: /produtos}
    invoke: {object: CatalogoService, method: listar}
`,
			wantErr: "mutually exclusive",
		},
		{
			name:    "unsupported method",
			yaml:    "name: x\ndescription: d\nsteps:\n  - request: {method: PATCH, path: /produtos/L1}\n",
			wantErr: "UNSUPPORTED_METHOD",
		},
		{
			name:    "body on GET",
			yaml:    "name: x\ndescription: d\nsteps:\n  - request: {method: GET, path: /produtos, body: {a: 1}}\n",
			wantErr: "INVALID_PAYLOAD",
		},
		{
			name:    "relative path",
			yaml:    "name: x\ndescription: d\nsteps:\n  - request: {method: GET, path: produtos}\n",
			wantErr: "INVALID_PATH",
		},
		{
			name:    "missing method id",
			yaml:    "name: x\ndescription: d\nsteps:\n  - invoke: {object: CatalogoService}\n",
			wantErr: "MISSING_FIELD",
		},
		{
			name:    "bad policy",
			yaml:    "name: x\ndescription: d\nsteps:\n  - request: {method: GET, path: /produtos}\n    on_error: ignore\n",
			wantErr: "INVALID_POLICY",
		},
		{
			name:    "bad expectation",
			yaml:    "name: x\ndescription: d\nsteps:\n  - request: {method: GET, path: /produtos}\n    expect: {outcome: maybe}\n",
			wantErr: `unknown outcome "maybe"`,
		},
		{
			name:    "expectation without outcome",
			yaml:    "name: x\ndescription: d\nsteps:\n  - request: {method: GET, path: /produtos}\n    expect: {status: 200}\n",
			wantErr: "outcome is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "troca.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validScenario), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "troca_basica", scenario.Name)

	_, err = LoadScenario(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_RepositoryScenarios(t *testing.T) {
	matches, err := filepath.Glob("../../testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	for _, path := range matches {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			_, err = scenario.Plan()
			require.NoError(t, err)
		})
	}
}
