package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/persistence"
	"github.com/lib/pq"
)

// WorkflowRepository handles workflow definitions stored as JSONB documents.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger.With("module", "workflow_repository")}
}

// GetByID returns the workflow when it is enabled and role is on its access list.
func (r *WorkflowRepository) GetByID(ctx context.Context, workflowID, role string) (*models.WorkflowDefinition, error) {
	query := `
		SELECT definition FROM workflows
		WHERE id = $1 AND is_enabled = true AND $2 = ANY(access_roles)
	`

	var raw []byte

	err := r.db.QueryRowContext(ctx, query, workflowID, role).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewWorkflowError("GetByID", workflowID, role, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query workflow", "workflow_id", workflowID, "error", err)

		return nil, persistence.NewWorkflowError("GetByID", workflowID, role, err)
	}

	return decodeWorkflow(raw)
}

// ListForRole returns the enabled workflows visible to role ordered by name.
func (r *WorkflowRepository) ListForRole(ctx context.Context, role string) ([]*models.WorkflowDefinition, error) {
	query := `
		SELECT definition FROM workflows
		WHERE is_enabled = true AND $1 = ANY(access_roles)
		ORDER BY name, id
	`

	return r.list(ctx, query, role)
}

// GetAll returns every stored workflow, enabled or not.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.WorkflowDefinition, error) {
	return r.list(ctx, `SELECT definition FROM workflows ORDER BY name, id`)
}

// Save inserts or updates a workflow definition.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.WorkflowDefinition) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	definition, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow definition: %w", err)
	}

	query := `
		INSERT INTO workflows (id, name, description, access_roles, is_enabled, definition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			access_roles = EXCLUDED.access_roles,
			is_enabled = EXCLUDED.is_enabled,
			definition = EXCLUDED.definition,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		pq.Array(workflow.AccessRoles),
		workflow.Enabled,
		definition,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save workflow", "workflow_id", workflow.ID, "error", err)

		return persistence.NewWorkflowError("Save", workflow.ID, "", err)
	}

	return nil
}

func (r *WorkflowRepository) list(ctx context.Context, query string, args ...any) ([]*models.WorkflowDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() { _ = rows.Close() }()

	workflows := make([]*models.WorkflowDefinition, 0)

	for rows.Next() {
		var raw []byte

		err := rows.Scan(&raw)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflow, err := decodeWorkflow(raw)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func decodeWorkflow(raw []byte) (*models.WorkflowDefinition, error) {
	var workflow models.WorkflowDefinition

	err := json.Unmarshal(raw, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow definition: %w", err)
	}

	return &workflow, nil
}
