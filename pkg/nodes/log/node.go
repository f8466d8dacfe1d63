// Package log provides the logging node.
package log

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/template"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// LogNode writes a rendered message to the executor's logger.
type LogNode struct {
	id      string
	message string
	level   string
	logger  *slog.Logger
}

// NewLogNode creates a new logging node.
func NewLogNode(id string, config map[string]any, logger *slog.Logger) (*LogNode, error) {
	message, ok := config["message"].(string)
	if !ok {
		return nil, errors.New("missing required field 'message'")
	}

	level := "info"
	if lvl, ok := config["level"].(string); ok && lvl != "" {
		if _, known := levels[lvl]; !known {
			return nil, fmt.Errorf("unknown log level '%s'", lvl)
		}

		level = lvl
	}

	return &LogNode{
		id:      id,
		message: message,
		level:   level,
		logger:  logger,
	}, nil
}

func (n *LogNode) ID() string {
	return n.id
}

func (n *LogNode) Type() string {
	return models.NodeTypeLog
}

func (n *LogNode) Execute(ctx context.Context, execCtx models.ExecutionContext) (models.NodeExecutionResult, error) {
	rendered, err := template.RenderWithContext(n.message, &execCtx)
	if err != nil {
		return models.Failed(fmt.Sprintf("failed to render log message template: %v", err)), nil
	}

	message := fmt.Sprint(rendered)

	n.logger.Log(ctx, levels[n.level], message,
		"node_id", n.id,
		"execution_id", execCtx.SessionID,
		"workflow_id", execCtx.WorkflowID,
	)

	return models.Succeeded(map[string]any{
		"message": message,
		"level":   n.level,
		"logged":  true,
	}), nil
}
