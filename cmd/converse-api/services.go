package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukex/converse/pkg/actions"
	"github.com/dukex/converse/pkg/catalog"
	"github.com/dukex/converse/pkg/config"
	"github.com/dukex/converse/pkg/eventbus"
	"github.com/dukex/converse/pkg/identity"
	"github.com/dukex/converse/pkg/llm"
	"github.com/dukex/converse/pkg/mcptool"
	"github.com/dukex/converse/pkg/orchestrator"
	"github.com/dukex/converse/pkg/persistence"
	"github.com/dukex/converse/pkg/registry"
	"github.com/dukex/converse/pkg/router"
	"github.com/dukex/converse/pkg/status"
	"github.com/dukex/converse/pkg/template"
	actiontrace "github.com/dukex/converse/pkg/trace"
	"github.com/dukex/converse/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

var (
	errMissingMCPURL         = errors.New("mcp.url is required")
	errUnsupportedIdentity   = errors.New("unsupported identity provider")
	errMissingIdentityIssuer = errors.New("identity.issuer is required")
)

// services are the long-lived components shared by every request.
type services struct {
	orchestrator *orchestrator.Orchestrator
	catalog      *catalog.Catalog
	templates    *template.Store
}

// collaborators are the outward-facing dependencies of the engine, built
// from flags and configuration.
type collaborators struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	identity    identity.Resolver
	invoker     actions.Invoker
	completer   llm.Completer
	tracer      trace.Tracer
}

func newServices(cfg *config.Config, deps collaborators, logger *slog.Logger) (*services, error) {
	workflows, err := catalog.New(deps.persistence.WorkflowRepository(), cfg.Catalog.Size, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow catalog: %w", err)
	}

	templates := template.NewStore(deps.persistence.TemplateRepository(), logger)
	if cfg.Prompts.Classifier != "" {
		templates.SetDefault(template.TypePrompt, template.NameSkillsClassifier, cfg.Prompts.Classifier)
	}

	classifier := router.New(deps.completer, workflows, templates, cfg.Agent.SkillNames(), cfg.ClassificationTimeout, logger)

	walker := workflow.NewWalker(deps.invoker, deps.tracer, workflow.Messages{
		Exit:     cfg.Messages.Exit,
		Failure:  cfg.Messages.Failure,
		Complete: cfg.Messages.Complete,
	}, logger)

	turns := orchestrator.New(orchestrator.Dependencies{
		Identity:        deps.identity,
		Sessions:        deps.persistence.SessionRepository(),
		Router:          classifier,
		Catalog:         workflows,
		Walker:          walker,
		Status:          status.NewCoordinator(deps.publisher, logger),
		Recorder:        actiontrace.NewRecorder(deps.persistence.TraceRepository(), deps.publisher, logger),
		Publisher:       deps.publisher,
		Tracer:          deps.tracer,
		Agent:           cfg.Agent,
		FallbackMessage: cfg.Messages.Fallback,
		StreamBuffer:    cfg.Stream.Buffer,
		StreamTimeout:   cfg.Stream.Timeout,
	}, logger)

	return &services{orchestrator: turns, catalog: workflows, templates: templates}, nil
}

func newCompleter(cfg *config.Config, logger *slog.Logger) (*llm.Client, error) {
	return llm.NewClient(cfg.LLM, &http.Client{Timeout: cfg.LLM.Timeout}, logger)
}

// newInvoker routes action names to native registry actions first and to the
// MCP server, when configured, second.
func newInvoker(cfg *config.Config, reg *registry.Registry, tools *mcptool.Client, logger *slog.Logger) actions.Invoker {
	invokers := actions.Composite{actions.NewRegistryInvoker(reg, cfg.Actions, logger)}

	if tools != nil {
		invokers = append(invokers, actions.NewMCPInvoker(tools, cfg.MCP.Tools, logger))
	}

	return invokers
}

func newResolver(ctx context.Context, provider string, cfg *config.Config, tools *mcptool.Client, logger *slog.Logger) (identity.Resolver, error) {
	switch provider {
	case identityMCP:
		if tools == nil {
			return nil, fmt.Errorf("%w for the mcp identity provider", errMissingMCPURL)
		}

		return identity.NewMCPResolver(tools, logger), nil
	case identityOIDC:
		if cfg.Identity.Issuer == "" {
			return nil, errMissingIdentityIssuer
		}

		resolver, err := identity.NewOIDCResolver(ctx, cfg.Identity.Issuer, cfg.Identity.RolesClaim)
		if err != nil {
			return nil, err
		}

		return resolver, nil
	case identityStatic:
		return identity.NewStaticResolver(cfg.StaticUsers()), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedIdentity, provider)
	}
}
