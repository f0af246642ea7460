// Package harness drives ordered sequences of operations against a Sebo
// endpoint and reports what happened.
//
// A run executes its operations strictly in order, one at a time, because
// later steps depend on state changed by earlier ones (create, transact,
// delete, verify gone). Each step is built by the envelope package, sent by
// a Doer (normally a *transport.Invoker) and classified by the classify
// package. The step's error policy alone decides whether a failed step halts
// the run.
//
// # Scenario Format
//
// Scenarios are YAML (or CUE) documents:
//
//	name: sebo_rest
//	description: "Catalogue walk-through over the resource API"
//	steps:
//	  - name: listar
//	    request: {method: GET, path: /produtos}
//	  - name: cadastrar
//	    request:
//	      method: POST
//	      path: /produtos
//	      body: {id: T1, tipo_produto: livro, titulo: "Livro", preco: 10.5, estado: novo, extras: {}}
//	  - name: troca_invalida
//	    invoke: {object: TransacaoService, method: trocar, args: [E1, L1]}
//	    on_error: continue
//	    expect: {outcome: failure, status: 400}
//
// Steps without on_error use the propagate policy.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("scenarios/rest.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	plan, err := scenario.Plan()
//	...
//	runner := harness.NewRunner(transport.New(), "http://127.0.0.1:8000")
//	result, err := runner.Run(ctx, plan.Operations())
//	report := harness.Evaluate(plan, result)
//
// A halted run returns both the partial result and a *HaltError.
package harness
