// Package catalog caches role-scoped workflow lookups in front of a
// persistence.WorkflowRepository.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/persistence"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultSize = 32

type workflowKey struct {
	workflowID string
	role       string
}

// Catalog is safe for concurrent use. Cached definitions are shared between
// callers and must be treated as read-only.
type Catalog struct {
	repository persistence.WorkflowRepository
	logger     *slog.Logger
	workflows  *lru.Cache[workflowKey, *models.WorkflowDefinition]
	summaries  *lru.Cache[string, []models.WorkflowSummary]
}

// New creates a catalog with two LRU caches of size entries each.
func New(repository persistence.WorkflowRepository, size int, logger *slog.Logger) (*Catalog, error) {
	if size <= 0 {
		size = DefaultSize
	}

	workflows, err := lru.New[workflowKey, *models.WorkflowDefinition](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow cache: %w", err)
	}

	summaries, err := lru.New[string, []models.WorkflowSummary](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create summary cache: %w", err)
	}

	return &Catalog{
		repository: repository,
		logger:     logger.With("module", "catalog"),
		workflows:  workflows,
		summaries:  summaries,
	}, nil
}

// Workflow returns the definition of workflowID as visible to role.
func (c *Catalog) Workflow(ctx context.Context, workflowID, role string) (*models.WorkflowDefinition, error) {
	if workflowID == "" || role == "" {
		return nil, persistence.NewWorkflowError("Workflow", workflowID, role, persistence.ErrWorkflowNotFound)
	}

	key := workflowKey{workflowID: workflowID, role: role}
	if workflow, ok := c.workflows.Get(key); ok {
		return workflow, nil
	}

	workflow, err := c.repository.GetByID(ctx, workflowID, role)
	if err != nil {
		return nil, err
	}

	c.workflows.Add(key, workflow)

	return workflow, nil
}

// WorkflowForRoles tries each role in order and returns the first visible definition.
func (c *Catalog) WorkflowForRoles(ctx context.Context, workflowID string, roles []string) (*models.WorkflowDefinition, error) {
	for _, role := range roles {
		workflow, err := c.Workflow(ctx, workflowID, role)
		if err == nil {
			return workflow, nil
		}

		if !errors.Is(err, persistence.ErrWorkflowNotFound) {
			return nil, err
		}
	}

	return nil, persistence.NewWorkflowError("WorkflowForRoles", workflowID, strings.Join(roles, ","), persistence.ErrWorkflowNotFound)
}

// Summaries returns the union of workflows visible to roles, de-duplicated by
// workflow id in first-seen order (role order, then repository order). A role
// whose lookup fails is logged and skipped.
func (c *Catalog) Summaries(ctx context.Context, roles []string) []models.WorkflowSummary {
	key := strings.Join(roles, "\x00")
	if summaries, ok := c.summaries.Get(key); ok {
		return summaries
	}

	summaries := make([]models.WorkflowSummary, 0)
	seen := make(map[string]struct{})
	failed := false

	for _, role := range roles {
		workflows, err := c.repository.ListForRole(ctx, role)
		if err != nil {
			c.logger.ErrorContext(ctx, "Failed to list workflows for role", "role", role, "error", err)

			failed = true

			continue
		}

		for _, workflow := range workflows {
			if _, dup := seen[workflow.ID]; dup {
				continue
			}

			seen[workflow.ID] = struct{}{}
			summaries = append(summaries, workflow.Summary())
		}
	}

	if !failed {
		c.summaries.Add(key, summaries)
	}

	c.logger.DebugContext(ctx, "Built workflow catalog", "roles", roles, "count", len(summaries))

	return summaries
}

// Purge drops every cached entry.
func (c *Catalog) Purge() {
	c.workflows.Purge()
	c.summaries.Purge()
}
