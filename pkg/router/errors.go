package router

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedRoute indicates the classifier answered outside the route set.
	ErrUnrecognizedRoute = errors.New("unrecognized route")

	// ErrUnknownWorkflow indicates a workflow route naming no workflow visible to the user.
	ErrUnknownWorkflow = errors.New("unknown workflow")
)

// ClassificationError reports that a first-turn input could not be routed.
type ClassificationError struct {
	Output any   // Raw classifier output, if any
	Err    error // Underlying error
}

func (e *ClassificationError) Error() string {
	if e.Output != nil {
		return fmt.Sprintf("classification failed (output %v): %v", e.Output, e.Err)
	}

	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// IsClassificationError checks if an error is a classification failure.
func IsClassificationError(err error) bool {
	var classificationErr *ClassificationError

	return errors.As(err, &classificationErr)
}
