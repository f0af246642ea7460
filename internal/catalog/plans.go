package catalog

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/roach88/sebo/internal/harness"
)

// RESTPlan walks the catalogue through the resource API: list, search,
// register and delete T1 and check it is gone, exchange two ebooks, sell L2,
// and finally attempt an exchange between a book and an ebook, which must
// fail without halting.
func RESTPlan() *harness.Plan {
	return harness.NewPlan("sebo_rest", "Catálogo pela API de recursos").
		ExpectOK(Listar()).
		ExpectOK(Buscar("python")).
		AddExpect(Cadastrar(LivroDeTeste()), harness.Expectation{Outcome: harness.ExpectSuccess, Status: http.StatusCreated}).
		AddExpect(Remover("T1"), harness.Expectation{Outcome: harness.ExpectSuccess, Status: http.StatusNoContent}).
		ExpectFail(Obter("T1").Named("obter_t1_removido").ContinueOnError(), http.StatusNotFound).
		ExpectOK(Trocar("E1", "E2")).
		ExpectOK(Vender("L2")).
		ExpectFail(Trocar("E1", "L1").Named("troca_invalida").ContinueOnError(), http.StatusBadRequest)
}

// RPCPlan is the same walk through POST /invoke.
func RPCPlan() *harness.Plan {
	return harness.NewPlan("sebo_rpc", "Catálogo pelo endpoint de invocação").
		ExpectOK(InvokeListar()).
		ExpectOK(InvokeBuscar("python")).
		ExpectOK(InvokeTrocar("E1", "E2")).
		ExpectOK(InvokeVender("L2")).
		AddExpect(InvokeTrocar("E1", "L1").Named("troca_invalida").ContinueOnError(),
			harness.Expectation{Outcome: harness.ExpectFailure, Status: http.StatusBadRequest, BodyContains: "isException"})
}

// HaltingPlan ends with an invalid exchange under the propagate policy, so
// the run halts on its last step.
func HaltingPlan() *harness.Plan {
	return harness.NewPlan("sebo_halting", "Troca inválida interrompe o roteiro").
		Add(Listar()).
		Add(Cadastrar(LivroDeTeste())).
		Add(Remover("T1")).
		Add(Trocar("E1", "E2")).
		Add(Trocar("E1", "L1").Named("troca_invalida"))
}

var plans = map[string]func() *harness.Plan{
	"rest":    RESTPlan,
	"rpc":     RPCPlan,
	"halting": HaltingPlan,
}

// PlanNames lists the built-in plans.
func PlanNames() []string {
	names := make([]string, 0, len(plans))
	for name := range plans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PlanByName returns a fresh copy of a built-in plan.
func PlanByName(name string) (*harness.Plan, error) {
	build, ok := plans[name]
	if !ok {
		return nil, fmt.Errorf("unknown plan %q (want one of %v)", name, PlanNames())
	}
	return build(), nil
}
