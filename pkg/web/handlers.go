// Package web provides the HTTP handlers of the conversation API.
package web

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukex/converse/pkg/models"
	"github.com/dukex/converse/pkg/orchestrator"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// StatusUpdateEvent is the SSE event name of streamed status updates.
const StatusUpdateEvent = "status-update"

// TurnHandler runs conversational turns.
type TurnHandler interface {
	HandleTurn(ctx context.Context, request orchestrator.TurnRequest, streaming bool) (models.StatusUpdate, error)
	HandleTurnStream(ctx context.Context, request orchestrator.TurnRequest) (<-chan models.StatusUpdate, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type APIHandlers struct {
	turns     TurnHandler
	health    HealthChecker
	agent     models.AgentCard
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(
	turns TurnHandler,
	health HealthChecker,
	agent models.AgentCard,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		turns:     turns,
		health:    health,
		agent:     agent,
		validator: validator,
		logger:    logger.With("module", "web"),
	}
}

func (h *APIHandlers) parseMessage(c fiber.Ctx) (*MessageRequest, error) {
	var req MessageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return nil, badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return nil, badRequest(c, err.Error())
	}

	return &req, nil
}

// SendMessage handles a turn synchronously and answers with its final update.
func (h *APIHandlers) SendMessage(c fiber.Ctx) error {
	req, problem := h.parseMessage(c)
	if req == nil {
		return problem
	}

	update, err := h.turns.HandleTurn(c.Context(), req.TurnRequest(c.Get(fiber.HeaderAuthorization)), false)
	if err != nil {
		return handleTurnError(c, err)
	}

	return c.JSON(update)
}

// StreamMessage handles a turn and streams its updates as server-sent events.
// Errors raised before the first update are answered as problems.
func (h *APIHandlers) StreamMessage(c fiber.Ctx) error {
	req, problem := h.parseMessage(c)
	if req == nil {
		return problem
	}

	updates, err := h.turns.HandleTurnStream(c.Context(), req.TurnRequest(c.Get(fiber.HeaderAuthorization)))
	if err != nil {
		return handleTurnError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	logger := h.logger.With("context_id", req.ContextID, "task_id", req.TaskID)

	c.RequestCtx().SetBodyStreamWriter(func(w *bufio.Writer) {
		for update := range updates {
			err := writeEvent(w, update)
			if err != nil {
				logger.Warn("Failed to write status update", "error", err)
			}
		}
	})

	return nil
}

func writeEvent(w *bufio.Writer, update models.StatusUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", StatusUpdateEvent, data)
	if err != nil {
		return err
	}

	return w.Flush()
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	response := HealthResponse{
		Status:   "healthy",
		Message:  h.agent.Name + " is healthy",
		Checkers: map[string]string{"persistence": "ok"},
	}

	httpStatus := http.StatusOK

	if err := h.health.HealthCheck(c.Context()); err != nil {
		h.logger.ErrorContext(c.Context(), "Persistence health check failed", "error", err)

		response.Status = "unhealthy"
		response.Message = h.agent.Name + " is unhealthy"
		response.Checkers["persistence"] = err.Error()
		httpStatus = http.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(response)
}

// AgentCard serves the agent description at /.well-known/agent.json.
func (h *APIHandlers) AgentCard(c fiber.Ctx) error {
	return c.JSON(h.agent)
}
