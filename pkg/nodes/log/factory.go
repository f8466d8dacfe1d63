package log

import (
	"context"
	"log/slog"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/protocol"
)

// LogNodeFactory creates LogNode instances sharing one logger.
type LogNodeFactory struct {
	logger *slog.Logger
}

// Create creates a new LogNode bound to the factory logger.
func (f *LogNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewLogNode(id, config, f.logger)
}

// ID returns the factory ID.
func (f *LogNodeFactory) ID() string {
	return models.NodeTypeLog
}

func (f *LogNodeFactory) Name() string {
	return "Log"
}

func (f *LogNodeFactory) Description() string {
	return "Logs a templated message at debug, info, warn or error level"
}

// Schema returns the JSON schema for Log node configuration.
func (f *LogNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log. Supports templating with the run data.",
				"examples": []string{
					"New file {{.trigger.item.name}} in {{.trigger.scope.folder_id}}",
					"Lookup returned {{.nodes.lookup.status_code}}",
				},
			},
			"level": map[string]any{
				"type":    "string",
				"enum":    []string{"debug", "info", "warn", "error"},
				"default": "info",
			},
		},
		"required": []string{"message"},
	}
}

// NewLogNodeFactory creates a new factory instance.
func NewLogNodeFactory(logger *slog.Logger) protocol.NodeFactory {
	return &LogNodeFactory{logger: logger.With("module", "log_node")}
}
