package main

import (
	"time"

	"github.com/dukex/converse/pkg/cmd"
	"github.com/urfave/cli/v3"
)

const (
	identityMCP    = "mcp"
	identityOIDC   = "oidc"
	identityStatic = "static"
)

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL (postgres://...) or file store directory",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

func logFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

func runFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		databaseURLFlag(),
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL; when set, sessions are stored in Redis",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.DurationFlag{
			Name:    "session-ttl",
			Usage:   "Expiry of sessions stored in Redis",
			Value:   24 * time.Hour,
			Sources: cli.EnvVars("SESSION_TTL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   cmd.EventBusGoChannel,
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringSliceFlag{
			Name:    "kafka-brokers",
			Usage:   "Kafka broker addresses",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "identity-provider",
			Usage:   "How bearer tokens are resolved (mcp, oidc, static)",
			Value:   identityMCP,
			Sources: cli.EnvVars("IDENTITY_PROVIDER"),
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Agent configuration file",
			Sources: cli.EnvVars("CONVERSE_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "plugins-path",
			Usage:   "Path to the directory containing action plugins",
			Value:   "./plugins",
			Sources: cli.EnvVars("PLUGINS_PATH"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export OpenTelemetry traces over OTLP/HTTP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
	}

	return append(flags, logFlags()...)
}
