// Package router classifies the first turn of a session into a route.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/converse/pkg/llm"
	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/template"
)

const DefaultTimeout = 30 * time.Second

// WorkflowCatalog lists the workflows visible to a set of roles.
type WorkflowCatalog interface {
	Summaries(ctx context.Context, roles []string) []models.WorkflowSummary
}

// PromptRenderer renders a stored prompt template.
type PromptRenderer interface {
	Render(ctx context.Context, templateType, name string, data map[string]any) (string, error)
}

// Router asks the completion service to pick a route for a first-turn input.
type Router struct {
	completer  llm.Completer
	catalog    WorkflowCatalog
	prompts    PromptRenderer
	skillNames []string
	timeout    time.Duration
	logger     *slog.Logger
}

func New(
	completer llm.Completer,
	catalog WorkflowCatalog,
	prompts PromptRenderer,
	skillNames []string,
	timeout time.Duration,
	logger *slog.Logger,
) *Router {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Router{
		completer:  completer,
		catalog:    catalog,
		prompts:    prompts,
		skillNames: skillNames,
		timeout:    timeout,
		logger:     logger.With("module", "router"),
	}
}

// Classify returns the route for input. A workflow decision always names a
// workflow from the catalog of roles. Every failure, including the
// completion call timing out, is a *ClassificationError.
func (r *Router) Classify(ctx context.Context, input string, roles []string) (models.RouteDecision, error) {
	workflows := r.catalog.Summaries(ctx, roles)

	catalogJSON, err := json.Marshal(workflows)
	if err != nil {
		return models.RouteDecision{}, &ClassificationError{Err: fmt.Errorf("failed to encode workflow catalog: %w", err)}
	}

	prompt, err := r.prompts.Render(ctx, template.TypePrompt, template.NameSkillsClassifier, map[string]any{
		"capabilities": r.skillNames,
		"workflows":    string(catalogJSON),
	})
	if err != nil {
		return models.RouteDecision{}, &ClassificationError{Err: fmt.Errorf("failed to render classifier prompt: %w", err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	output, err := r.completer.Complete(callCtx, []llm.Message{
		{Role: llm.RoleSystem, Content: prompt},
		{Role: llm.RoleUser, Content: input},
	})
	if err != nil {
		return models.RouteDecision{}, &ClassificationError{Err: err}
	}

	decision, err := decide(output, workflows)
	if err != nil {
		return models.RouteDecision{}, &ClassificationError{Output: output, Err: err}
	}

	r.logger.InfoContext(ctx, "Classified input", "route", decision.Route, "workflow_id", decision.WorkflowID, "catalog_size", len(workflows))

	return decision, nil
}

func decide(output map[string]any, workflows []models.WorkflowSummary) (models.RouteDecision, error) {
	skill, _ := output["skill"].(string)

	route := models.Route(strings.TrimSpace(skill))
	if !route.Valid() {
		return models.RouteDecision{}, fmt.Errorf("%w: %q", ErrUnrecognizedRoute, skill)
	}

	if route != models.RouteWorkflow {
		return models.RouteDecision{Route: route}, nil
	}

	workflowID, _ := output["workflow_id"].(string)
	workflowID = strings.TrimSpace(workflowID)

	for _, workflow := range workflows {
		if workflow.ID == workflowID {
			return models.RouteDecision{Route: route, WorkflowID: workflowID}, nil
		}
	}

	return models.RouteDecision{}, fmt.Errorf("%w: %q", ErrUnknownWorkflow, workflowID)
}
