package main

import (
	"log/slog"
	"strconv"

	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/persistence"
	"github.com/dukex/converse/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	turns       web.TurnHandler
	agent       models.AgentCard
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	turns web.TurnHandler,
	agent models.AgentCard,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		turns:       turns,
		agent:       agent,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.turns, a.persistence, a.agent, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString(a.agent.Name)
	})

	app.Get("/.well-known/agent.json", handlers.AgentCard)
	app.Get("/health", handlers.HealthCheck)

	m := app.Group("/message")
	m.Post("/send", handlers.SendMessage)
	m.Post("/stream", handlers.StreamMessage)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
