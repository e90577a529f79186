package web

import (
	"errors"

	"github.com/dukex/converse/pkg/identity"
	"github.com/dukex/converse/pkg/orchestrator"
	"github.com/dukex/converse/pkg/persistence"
	"github.com/dukex/converse/pkg/router"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unauthorized(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(401).
		WithInstance(c.Path()).
		WithType("unauthorized").
		WithDetail(detail)

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

// handleTurnError maps orchestrator errors onto RFC 7807 problems.
func handleTurnError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrMissingToken),
		errors.Is(err, identity.ErrUnauthorized),
		errors.Is(err, identity.ErrEmptyToken):
		return unauthorized(c, "missing or invalid bearer token")

	case errors.Is(err, orchestrator.ErrForeignSession):
		problem := problems.NewStatusProblem(403).
			WithInstance(c.Path()).
			WithType("forbidden").
			WithDetail("conversation belongs to another user")

		return c.Status(fiber.StatusForbidden).JSON(problem)

	case orchestrator.IsValidationError(err):
		return badRequest(c, err.Error())

	case router.IsClassificationError(err):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("classification_error").
			WithDetail("the message could not be routed to a skill")

		return c.Status(fiber.StatusUnprocessableEntity).JSON(problem)

	case persistence.IsWorkflowNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("workflow_not_found").
			WithDetail("workflow not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	default:
		// Unexpected errors are logged by the orchestrator; details stay internal.
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithDetail("failed to handle message")

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}
