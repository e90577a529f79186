// Package persistence provides the storage abstraction for sessions, workflows,
// prompt templates and interaction traces.
package persistence

import (
	"context"

	"github.com/dukex/converse/pkg/models"
)

type Persistence interface {
	SessionRepository() SessionRepository
	WorkflowRepository() WorkflowRepository
	TemplateRepository() TemplateRepository
	TraceRepository() TraceRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// SessionRepository stores conversation snapshots keyed by context id.
type SessionRepository interface {
	// GetByContextID returns ErrSessionNotFound when nothing was saved for contextID.
	GetByContextID(ctx context.Context, contextID string) (*models.SessionSnapshot, error)
	// Save inserts or replaces the snapshot for snapshot.ContextID.
	Save(ctx context.Context, snapshot *models.SessionSnapshot) error
}

// WorkflowRepository reads workflow definitions. Role-scoped lookups only see
// enabled workflows whose access list contains the role.
type WorkflowRepository interface {
	// GetByID returns ErrWorkflowNotFound when the workflow is missing or not visible to role.
	GetByID(ctx context.Context, workflowID, role string) (*models.WorkflowDefinition, error)
	ListForRole(ctx context.Context, role string) ([]*models.WorkflowDefinition, error)
	GetAll(ctx context.Context) ([]*models.WorkflowDefinition, error)
	Save(ctx context.Context, workflow *models.WorkflowDefinition) error
}

// TemplateRepository stores prompt templates by type and name.
type TemplateRepository interface {
	// Get returns ErrTemplateNotFound when no template is stored.
	Get(ctx context.Context, templateType, name string) (*models.PromptTemplate, error)
	Save(ctx context.Context, template *models.PromptTemplate) error
}

// TraceRepository stores system action interaction traces.
type TraceRepository interface {
	Save(ctx context.Context, trace *models.InteractionTrace) error
	ListByContextID(ctx context.Context, contextID string) ([]*models.InteractionTrace, error)
}
