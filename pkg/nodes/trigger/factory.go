package trigger

import (
	"context"
	"strings"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/protocol"
)

// TriggerNodeFactory builds one trigger node type.
type TriggerNodeFactory struct {
	kind models.NodeKind
}

func (f *TriggerNodeFactory) Create(_ context.Context, id string, _ map[string]any) (protocol.Node, error) {
	return NewTriggerNode(id, f.kind.Type), nil
}

// ID returns the trigger node type.
func (f *TriggerNodeFactory) ID() string {
	return f.kind.Type
}

func (f *TriggerNodeFactory) Name() string {
	words := strings.Split(f.kind.Type, "_")
	for i, word := range words {
		if word != "" {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}

	return strings.Join(words, " ")
}

func (f *TriggerNodeFactory) Description() string {
	switch f.kind.Type {
	case models.NodeTypeManualTrigger:
		return "Starts a run on demand through the execute endpoint."
	case models.NodeTypeWebhookTrigger:
		return "Starts a run for every request received on the workflow webhook."
	case models.NodeTypeScheduleTrigger:
		return "Starts a run on a cron schedule."
	default:
		return "Starts a run when " + string(f.kind.Provider) + " reports a matching change."
	}
}

// Schema lists the scope and filter keys the matcher reads from trigger nodes.
func (f *TriggerNodeFactory) Schema() map[string]any {
	switch f.kind.Type {
	case models.NodeTypeScheduleTrigger:
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				"cron": map[string]any{
					"type":        "string",
					"description": "Cron expression, five fields or a descriptor such as @hourly",
					"examples":    []string{"*/5 * * * *", "0 9 * * MON-FRI", "@daily"},
				},
				"input": map[string]any{"type": "object"},
			},
			"required": []string{"cron"},
		}
	case models.NodeTypeManualTrigger, models.NodeTypeWebhookTrigger:
		return map[string]any{"type": "object"}
	}

	stringOrList := map[string]any{
		"oneOf": []any{
			map[string]any{"type": "string"},
			map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"folder_id":        map[string]any{"type": "string"},
			"calendar_id":      map[string]any{"type": "string"},
			"spreadsheet_id":   map[string]any{"type": "string"},
			"sheet_name":       map[string]any{"type": "string"},
			"integration_id":   map[string]any{"type": "string"},
			"mime_types":       stringOrList,
			"name_contains":    map[string]any{"type": "string"},
			"min_size":         map[string]any{"type": "number", "minimum": 0},
			"max_size":         map[string]any{"type": "number", "minimum": 0},
			"creator_email":    map[string]any{"type": "string"},
			"work_hours_only":  map[string]any{"type": "boolean"},
			"work_hours_start": map[string]any{"type": "number", "minimum": 0, "maximum": 24},
			"work_hours_end":   map[string]any{"type": "number", "minimum": 0, "maximum": 24},
			"timezone":         map[string]any{"type": "string"},
			"exclude_weekends": map[string]any{"type": "boolean"},
			"required_columns": stringOrList,
			"skip_empty_rows":  map[string]any{"type": "boolean"},
		},
	}
}

// NewTriggerNodeFactories returns a factory for every trigger type of the catalog.
func NewTriggerNodeFactories() []protocol.NodeFactory {
	var factories []protocol.NodeFactory

	for _, kind := range models.NodeKinds() {
		if kind.Category == models.CategoryTrigger {
			factories = append(factories, &TriggerNodeFactory{kind: kind})
		}
	}

	return factories
}
