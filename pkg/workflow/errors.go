package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrStepNotFound      = errors.New("step not found")
	ErrInvalidInput      = errors.New("input does not satisfy step validation")
	ErrActionFailed      = errors.New("action reported failure")
	ErrTransitionLimit   = errors.New("too many step transitions in one turn")
	ErrRunTerminated     = errors.New("run already terminated")
	ErrWorkflowMismatch  = errors.New("run belongs to a different workflow")
	ErrInvalidDefinition = errors.New("invalid workflow definition")
)

// StepValidationError reports user input rejected by a step. It is recoverable:
// the step is prompted again.
type StepValidationError struct {
	StepID string
	Reason string
}

func (e *StepValidationError) Error() string {
	return fmt.Sprintf("step %s: %s", e.StepID, e.Reason)
}

func (e *StepValidationError) Unwrap() error {
	return ErrInvalidInput
}

// ActionError reports a failed system action. Err is set when the action could
// not be invoked at all; otherwise the action itself reported failure.
type ActionError struct {
	StepID string
	Action string
	Result map[string]any
	Err    error
}

func (e *ActionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("action %s at step %s: %v", e.Action, e.StepID, e.Err)
	}

	return fmt.Sprintf("action %s at step %s: %v", e.Action, e.StepID, ErrActionFailed)
}

func (e *ActionError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}

	return ErrActionFailed
}

func IsStepValidationError(err error) bool {
	var target *StepValidationError

	return errors.As(err, &target)
}

func IsActionError(err error) bool {
	var target *ActionError

	return errors.As(err, &target)
}
