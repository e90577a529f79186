// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found or is not visible to the role.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrSessionNotFound indicates no snapshot was stored for a context id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTemplateNotFound indicates a prompt template was not found.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrVersionConflict indicates a concurrent writer updated the record first.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidID indicates an identifier that cannot be used as a storage key.
	ErrInvalidID = errors.New("invalid identifier")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save")
	WorkflowID string // Workflow ID if applicable
	Role       string // Role the lookup was scoped to, if any
	Err        error  // Underlying error
}

func (e *WorkflowError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("%s operation failed for workflow %s (role %s): %v", e.Op, e.WorkflowID, e.Role, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for workflow errors.
func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID, role string, err error) *WorkflowError {
	return &WorkflowError{
		Op:         op,
		WorkflowID: workflowID,
		Role:       role,
		Err:        err,
	}
}

// SessionError wraps session-related errors with additional context.
type SessionError struct {
	Op        string // Operation being performed
	ContextID string // Conversation context id
	Err       error  // Underlying error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s operation failed for session %s: %v", e.Op, e.ContextID, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

func (e *SessionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewSessionError creates a new session error with context.
func NewSessionError(op, contextID string, err error) *SessionError {
	return &SessionError{
		Op:        op,
		ContextID: contextID,
		Err:       err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsSessionNotFound checks if an error indicates a session was not found.
func IsSessionNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsTemplateNotFound checks if an error indicates a template was not found.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsVersionConflict checks if an error indicates an optimistic locking failure.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
