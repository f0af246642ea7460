package harness

import (
	"fmt"

	"github.com/roach88/sebo/internal/envelope"
)

// Expected outcomes for an Expectation.
const (
	ExpectSuccess = "success"
	ExpectFailure = "failure"
)

// Expectation states what a step should produce. Zero Status and empty
// BodyContains are not checked.
type Expectation struct {
	Outcome      string `yaml:"outcome" json:"outcome"`
	Status       int    `yaml:"status,omitempty" json:"status,omitempty"`
	BodyContains string `yaml:"body_contains,omitempty" json:"body_contains,omitempty"`
}

// Validate checks the expectation's fields.
func (e *Expectation) Validate() error {
	switch e.Outcome {
	case ExpectSuccess, ExpectFailure:
	case "":
		return fmt.Errorf("outcome is required")
	default:
		return fmt.Errorf("unknown outcome %q (want %q or %q)", e.Outcome, ExpectSuccess, ExpectFailure)
	}
	if e.Status < 0 || e.Status > 999 {
		return fmt.Errorf("status %d out of range", e.Status)
	}
	return nil
}

// PlannedStep is an operation together with its optional expectation.
type PlannedStep struct {
	Operation envelope.Operation
	Expect    *Expectation
}

// Plan is a named, ordered list of steps, defined before a run starts.
type Plan struct {
	Name        string
	Description string
	Steps       []PlannedStep
}

// NewPlan creates an empty plan.
func NewPlan(name, description string) *Plan {
	return &Plan{Name: name, Description: description}
}

// Add appends an operation without an expectation.
func (p *Plan) Add(op envelope.Operation) *Plan {
	p.Steps = append(p.Steps, PlannedStep{Operation: op})
	return p
}

// AddExpect appends an operation with an expectation.
func (p *Plan) AddExpect(op envelope.Operation, expect Expectation) *Plan {
	p.Steps = append(p.Steps, PlannedStep{Operation: op, Expect: &expect})
	return p
}

// ExpectOK appends an operation expected to succeed.
func (p *Plan) ExpectOK(op envelope.Operation) *Plan {
	return p.AddExpect(op, Expectation{Outcome: ExpectSuccess})
}

// ExpectFail appends an operation expected to fail with the given status
// (zero skips the status check).
func (p *Plan) ExpectFail(op envelope.Operation, status int) *Plan {
	return p.AddExpect(op, Expectation{Outcome: ExpectFailure, Status: status})
}

// Operations returns the plan's operations in order.
func (p *Plan) Operations() []envelope.Operation {
	ops := make([]envelope.Operation, len(p.Steps))
	for i, s := range p.Steps {
		ops[i] = s.Operation
	}
	return ops
}

// Validate checks every operation and expectation in the plan.
func (p *Plan) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan %q has no steps", p.Name)
	}
	for i, s := range p.Steps {
		if err := s.Operation.Validate(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, s.Operation.Label(), err)
		}
		if s.Expect != nil {
			if err := s.Expect.Validate(); err != nil {
				return fmt.Errorf("step %d (%s).expect: %w", i+1, s.Operation.Label(), err)
			}
		}
	}
	return nil
}
