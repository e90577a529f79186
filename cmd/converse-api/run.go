package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/converse/pkg/catalog"
	"github.com/dukex/converse/pkg/cmd"
	"github.com/dukex/converse/pkg/config"
	"github.com/dukex/converse/pkg/eventbus"
	"github.com/dukex/converse/pkg/events"
	"github.com/dukex/converse/pkg/log"
	"github.com/dukex/converse/pkg/mcptool"
	"github.com/dukex/converse/pkg/otelhelper"
	"github.com/dukex/converse/pkg/persistence"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "converse-api"

func RunAPICommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Serve the conversation API",
		Flags: runFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule(serviceName)
			logger.InfoContext(ctx, "Initializing converse API")

			cfg, err := config.Load(command.String("config"))
			if err != nil {
				return err
			}

			tracer, err := newTracer(ctx, command.Bool("tracing"))
			if err != nil {
				return err
			}

			store, err := openPersistence(ctx, command, logger)
			if err != nil {
				return err
			}

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.StringSlice("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			err = auditRuns(ctx, eventBus, logger)
			if err != nil {
				return fmt.Errorf("failed to subscribe to events: %w", err)
			}

			reg, err := cmd.NewRegistry(logger, command.String("plugins-path"))
			if err != nil {
				return err
			}

			var tools *mcptool.Client
			if cfg.MCP.URL != "" {
				tools = mcptool.NewClient(cfg.MCP.URL, cfg.MCP.Timeout, logger)
			}

			resolver, err := newResolver(ctx, command.String("identity-provider"), cfg, tools, logger)
			if err != nil {
				return err
			}

			completer, err := newCompleter(cfg, logger)
			if err != nil {
				return err
			}

			svc, err := newServices(cfg, collaborators{
				persistence: store,
				publisher:   eventBus,
				identity:    resolver,
				invoker:     newInvoker(cfg, reg, tools, logger),
				completer:   completer,
				tracer:      tracer,
			}, logger)
			if err != nil {
				return err
			}

			scheduler, err := catalog.NewScheduler(cfg.Catalog.PurgeSchedule, logger, svc.catalog, svc.templates)
			if err != nil {
				return err
			}

			scheduler.Start()
			defer scheduler.Stop()

			api := NewAPI(logger, store, svc.orchestrator, cfg.Agent)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}
}

// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func newTracer(ctx context.Context, enabled bool) (trace.Tracer, error) {
	if !enabled {
		return otel.Tracer(serviceName), nil
	}

	tracer, err := otelhelper.NewTracer(ctx, serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	return tracer, nil
}

func openPersistence(ctx context.Context, command *cli.Command, logger *slog.Logger) (persistence.Persistence, error) {
	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return nil, err
	}

	redisURL := command.String("redis-url")
	if redisURL == "" {
		return store, nil
	}

	withRedis, err := cmd.WithRedisSessions(ctx, store, redisURL, command.Duration("session-ttl"))
	if err != nil {
		_ = store.Close(ctx)

		return nil, err
	}

	return withRedis, nil
}

// auditRuns logs every finished workflow run seen on the event bus.
func auditRuns(ctx context.Context, bus eventbus.EventSubscriber, logger *slog.Logger) error {
	err := bus.Handle(events.WorkflowRunFinishedEvent, func(ctx context.Context, event any) error {
		finished, ok := event.(*events.WorkflowRunFinished)
		if !ok {
			return nil
		}

		logger.InfoContext(ctx, "Workflow run finished",
			"context_id", finished.ContextID,
			"workflow_id", finished.WorkflowID,
			"run_id", finished.RunID,
			"state", finished.State,
			"step_id", finished.StepID,
		)

		return nil
	})
	if err != nil {
		return err
	}

	return bus.Subscribe(ctx)
}
