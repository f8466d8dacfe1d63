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
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/chainreact/chainreact/pkg/providers/scheduler"
	cli "github.com/urfave/cli/v3"
)

var ErrInvalidSchedules = errors.New("invalid schedule triggers found")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Validate the cron expressions of stored schedule triggers",
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String(cmd.FlagLogLevel))

			logger := slog.With(
				"module", "chainreact-scheduler",
				"action", "validate",
			)

			store, err := cmd.NewPersistence(ctx, logger, command.String(cmd.FlagDatabaseURL))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			return validateSchedules(ctx, store.Workflows(), os.Stdout)
		},
	}
}

func validateSchedules(ctx context.Context, workflows persistence.WorkflowRepository, out io.Writer) error {
	all, err := workflows.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch workflows: %w", err)
	}

	valid, invalid := 0, 0

	for _, wf := range all {
		for _, node := range wf.Nodes {
			if node.Type != models.NodeTypeScheduleTrigger {
				continue
			}

			spec := node.ConfigString("cron")
			if err := scheduler.ValidateSpec(spec); err != nil {
				_, _ = fmt.Fprintf(out, "INVALID %s/%s %q: %v\n", wf.ID, node.ID, spec, err)
				invalid++

				continue
			}

			_, _ = fmt.Fprintf(out, "VALID   %s/%s %q\n", wf.ID, node.ID, spec)
			valid++
		}
	}

	_, _ = fmt.Fprintf(out, "\n%d valid, %d invalid\n", valid, invalid)

	if invalid > 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSchedules, invalid)
	}

	return nil
}
