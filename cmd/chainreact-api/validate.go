package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chainreact/chainreact/pkg/cmd"
	"github.com/chainreact/chainreact/pkg/log"
	"github.com/chainreact/chainreact/pkg/services"
	cli "github.com/urfave/cli/v3"
)

var ErrInvalidWorkflows = errors.New("invalid workflows found")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate every stored workflow against the node registry",
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String(cmd.FlagLogLevel))

			logger := slog.With(
				"module", "chainreact-api",
				"action", "validate",
			)

			registry, err := cmd.NewRegistry(logger, command.String(cmd.FlagPluginsPath), nil)
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String(cmd.FlagDatabaseURL))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			return validateWorkflows(ctx, services.NewWorkflow(persistence, registry, logger), os.Stdout)
		},
	}
}

// validateWorkflows prints one line per workflow and fails when any of them is invalid.
func validateWorkflows(ctx context.Context, workflows *services.Workflow, out io.Writer) error {
	valid, invalid := 0, 0

	for page := 1; ; page++ {
		result, err := workflows.ListWorkflows(ctx, services.ListWorkflowsRequest{Page: page, Limit: 100})
		if err != nil {
			return fmt.Errorf("failed to fetch workflows: %w", err)
		}

		for _, workflow := range result.Workflows {
			if err := workflows.Validate(workflow); err != nil {
				_, _ = fmt.Fprintf(out, "INVALID %s (%s): %v\n", workflow.Name, workflow.ID, err)
				invalid++

				continue
			}

			_, _ = fmt.Fprintf(out, "VALID   %s (%s)\n", workflow.Name, workflow.ID)
			valid++
		}

		if !result.HasNextPage {
			break
		}
	}

	_, _ = fmt.Fprintf(out, "\n%d valid, %d invalid\n", valid, invalid)

	if invalid > 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkflows, invalid)
	}

	return nil
}
