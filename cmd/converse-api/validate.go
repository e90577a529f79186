package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/converse/pkg/cmd"
	"github.com/dukex/converse/pkg/log"
	"github.com/dukex/converse/pkg/persistence"
	"github.com/dukex/converse/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

var errInvalidWorkflows = errors.New("invalid workflows found")

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check every stored workflow definition",
		Flags: append([]cli.Flag{databaseURLFlag()}, logFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule(serviceName)

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			invalid, err := validateWorkflows(ctx, store.WorkflowRepository(), func(id string, err error) {
				if err != nil {
					logger.ErrorContext(ctx, "Invalid workflow", "workflow_id", id, "error", err)

					return
				}

				logger.InfoContext(ctx, "Workflow is valid", "workflow_id", id)
			})
			if err != nil {
				return err
			}

			if invalid > 0 {
				return fmt.Errorf("%w: %d", errInvalidWorkflows, invalid)
			}

			return nil
		},
	}
}

// validateWorkflows reports every stored definition to report and returns
// the number of invalid ones.
func validateWorkflows(
	ctx context.Context,
	repository persistence.WorkflowRepository,
	report func(id string, err error),
) (int, error) {
	definitions, err := repository.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load workflows: %w", err)
	}

	invalid := 0

	for _, definition := range definitions {
		err := workflow.Validate(definition)
		if err != nil {
			invalid++
		}

		report(definition.ID, err)
	}

	return invalid, nil
}
