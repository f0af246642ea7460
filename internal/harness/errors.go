package harness

import (
	"errors"
	"fmt"
)

// HaltError is returned by Runner.Run when a step under the propagate
// policy fails. Step is the failing step; the partial result is returned
// alongside the error.
type HaltError struct {
	Step Step
}

// Error implements the error interface.
func (e *HaltError) Error() string {
	return fmt.Sprintf("run halted at step %d (%s): %s",
		e.Step.Index+1, e.Step.Name(), e.Step.Outcome.ErrorMessage)
}

// IsHalt returns true if err is or wraps a *HaltError.
func IsHalt(err error) bool {
	var he *HaltError
	return errors.As(err, &he)
}

// AsHalt extracts a *HaltError from err.
func AsHalt(err error) (*HaltError, bool) {
	var he *HaltError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}
