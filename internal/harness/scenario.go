package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sebo/internal/envelope"
	"github.com/roach88/sebo/internal/ir"
)

// Scenario is a scripted run as authored in a scenario file.
type Scenario struct {
	// Name uniquely identifies this scenario; golden files are named after it.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description" json:"description"`

	// Steps are executed in order.
	Steps []ScenarioStep `yaml:"steps" json:"steps"`
}

// ScenarioStep is one step of a scenario. Exactly one of Request and
// Invoke must be set.
type ScenarioStep struct {
	Name    string       `yaml:"name,omitempty" json:"name,omitempty"`
	Request *RequestSpec `yaml:"request,omitempty" json:"request,omitempty"`
	Invoke  *InvokeSpec  `yaml:"invoke,omitempty" json:"invoke,omitempty"`

	// OnError is "propagate" (default) or "continue".
	OnError string `yaml:"on_error,omitempty" json:"on_error,omitempty"`

	Expect *Expectation `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// RequestSpec describes a resource-style call.
type RequestSpec struct {
	Method string `yaml:"method" json:"method"`
	Path   string `yaml:"path" json:"path"`
	Body   any    `yaml:"body,omitempty" json:"body,omitempty"`
}

// InvokeSpec describes an invocation-style call.
type InvokeSpec struct {
	Object string         `yaml:"object" json:"object"`
	Method string         `yaml:"method" json:"method"`
	Args   []any          `yaml:"args,omitempty" json:"args,omitempty"`
	Kwargs map[string]any `yaml:"kwargs,omitempty" json:"kwargs,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a YAML scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "on_eror:"
	if err := decoder.Decode(&scenario); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse YAML: empty document")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Validate checks that required fields are present and that every step
// compiles to a valid operation.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch {
		case step.Request == nil && step.Invoke == nil:
			return fmt.Errorf("steps[%d]: one of request or invoke is required", i)
		case step.Request != nil && step.Invoke != nil:
			return fmt.Errorf("steps[%d]: request and invoke are mutually exclusive", i)
		}
		if step.Expect != nil {
			if err := step.Expect.Validate(); err != nil {
				return fmt.Errorf("steps[%d].expect: %w", i, err)
			}
		}
		if _, err := step.operation(); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return nil
}

// Plan compiles the scenario into a runnable plan.
func (s *Scenario) Plan() (*Plan, error) {
	plan := NewPlan(s.Name, s.Description)
	for i, step := range s.Steps {
		op, err := step.operation()
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		plan.Steps = append(plan.Steps, PlannedStep{Operation: op, Expect: step.Expect})
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

func (step ScenarioStep) operation() (envelope.Operation, error) {
	policy, err := envelope.ParsePolicy(step.OnError)
	if err != nil {
		return envelope.Operation{}, err
	}

	var op envelope.Operation
	switch {
	case step.Request != nil:
		op = envelope.Operation{
			Style:  envelope.StyleREST,
			Method: strings.ToUpper(step.Request.Method),
			Path:   step.Request.Path,
		}
		if step.Request.Body != nil {
			body, err := ir.FromAny(step.Request.Body)
			if err != nil {
				return envelope.Operation{}, fmt.Errorf("request.body: %w", err)
			}
			op.Payload = body
		}
	case step.Invoke != nil:
		args := make([]any, len(step.Invoke.Args))
		copy(args, step.Invoke.Args)
		payload, err := ir.FromAny(args)
		if err != nil {
			return envelope.Operation{}, fmt.Errorf("invoke.args: %w", err)
		}
		op = envelope.Operation{
			Style:     envelope.StyleRPC,
			Method:    "POST",
			ObjectRef: step.Invoke.Object,
			MethodID:  step.Invoke.Method,
			Payload:   payload,
		}
		if len(step.Invoke.Kwargs) > 0 {
			kwargs, err := ir.FromAny(step.Invoke.Kwargs)
			if err != nil {
				return envelope.Operation{}, fmt.Errorf("invoke.kwargs: %w", err)
			}
			op.Kwargs = kwargs.(ir.Object)
		}
	}

	op.Name = step.Name
	op.Policy = policy
	if err := op.Validate(); err != nil {
		return envelope.Operation{}, err
	}
	return op, nil
}
