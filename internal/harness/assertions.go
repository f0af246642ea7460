package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/sebo/internal/envelope"
)

// Verdict is the evaluated status of one planned step.
type Verdict string

const (
	VerdictOK                Verdict = "ok"
	VerdictExpectedFailure   Verdict = "expected_failure"
	VerdictUnexpectedFailure Verdict = "unexpected_failure"
	VerdictUnexpectedSuccess Verdict = "unexpected_success"
	VerdictNotExecuted       Verdict = "not_executed"
)

// AssertionError describes a step whose outcome did not match its
// expectation.
type AssertionError struct {
	Step     int    // 1-based step number
	Name     string // step label
	Field    string // outcome, status or body
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("step %d (%s): expected %s %s, got %s", e.Step, e.Name, e.Field, e.Expected, e.Actual)
}

// StepReport is the evaluation of one planned step.
type StepReport struct {
	Seq          int     `json:"seq"`
	Name         string  `json:"name"`
	Target       string  `json:"target"`
	Verdict      Verdict `json:"verdict"`
	Status       int     `json:"status,omitempty"`
	Body         string  `json:"body,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// Report is the evaluation of a whole run against its plan.
type Report struct {
	Scenario string       `json:"scenario"`
	Pass     bool         `json:"pass"`
	Fatal    bool         `json:"fatal"`
	State    RunState     `json:"state"`
	Steps    []StepReport `json:"steps"`
	Errors   []string     `json:"errors,omitempty"`
}

// Evaluate compares a run result against the plan that produced it.
//
// A report passes iff the run was not halted and no expectation was
// violated. A failed step without an expectation counts as an expected
// failure when its policy is continue.
func Evaluate(plan *Plan, result *Result) *Report {
	report := &Report{
		Scenario: plan.Name,
		Fatal:    result.Fatal,
		State:    result.State,
		Steps:    make([]StepReport, 0, len(plan.Steps)),
		Errors:   []string{},
	}

	for i, planned := range plan.Steps {
		sr := StepReport{
			Seq:    i + 1,
			Name:   planned.Operation.Label(),
			Target: planned.Operation.Target(),
		}

		if i >= len(result.Steps) {
			sr.Verdict = VerdictNotExecuted
			report.Steps = append(report.Steps, sr)
			continue
		}

		step := result.Steps[i]
		sr.Status = step.Outcome.StatusCode
		sr.Body = step.Outcome.Body
		sr.ErrorMessage = step.Outcome.ErrorMessage

		verdict, errs := evaluateStep(planned, step)
		sr.Verdict = verdict
		for _, err := range errs {
			report.Errors = append(report.Errors, err.Error())
		}
		report.Steps = append(report.Steps, sr)
	}

	if result.Fatal {
		if last, ok := result.Last(); ok {
			report.Errors = append(report.Errors, (&HaltError{Step: last}).Error())
		}
	}

	report.Pass = !result.Fatal && len(report.Errors) == 0
	return report
}

func evaluateStep(planned PlannedStep, step Step) (Verdict, []*AssertionError) {
	out := step.Outcome
	seq := step.Index + 1
	name := planned.Operation.Label()

	if planned.Expect == nil {
		switch {
		case out.Succeeded:
			return VerdictOK, nil
		case planned.Operation.EffectivePolicy() == envelope.Continue:
			return VerdictExpectedFailure, nil
		default:
			// the halt itself is reported by Evaluate
			return VerdictUnexpectedFailure, nil
		}
	}

	var errs []*AssertionError
	var verdict Verdict

	switch planned.Expect.Outcome {
	case ExpectFailure:
		if out.Succeeded {
			verdict = VerdictUnexpectedSuccess
			errs = append(errs, &AssertionError{Step: seq, Name: name, Field: "outcome", Expected: ExpectFailure, Actual: ExpectSuccess})
		} else {
			verdict = VerdictExpectedFailure
		}
	default:
		if out.Succeeded {
			verdict = VerdictOK
		} else {
			verdict = VerdictUnexpectedFailure
			errs = append(errs, &AssertionError{Step: seq, Name: name, Field: "outcome", Expected: ExpectSuccess, Actual: out.ErrorMessage})
		}
	}

	if want := planned.Expect.Status; want != 0 && want != out.StatusCode {
		errs = append(errs, &AssertionError{
			Step: seq, Name: name, Field: "status",
			Expected: fmt.Sprintf("%d", want),
			Actual:   fmt.Sprintf("%d", out.StatusCode),
		})
	}

	if want := planned.Expect.BodyContains; want != "" && !strings.Contains(out.Body, want) {
		errs = append(errs, &AssertionError{
			Step: seq, Name: name, Field: "body containing",
			Expected: fmt.Sprintf("%q", want),
			Actual:   fmt.Sprintf("%q", out.Body),
		})
	}

	return verdict, errs
}
