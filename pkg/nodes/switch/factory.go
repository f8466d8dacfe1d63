package switchnode

import (
	"context"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/protocol"
)

// SwitchNodeFactory creates SwitchNode instances.
type SwitchNodeFactory struct{}

// Create creates a new SwitchNode instance.
func (f *SwitchNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewSwitchNode(id, config)
}

func (f *SwitchNodeFactory) ID() string {
	return models.NodeTypeSwitch
}

func (f *SwitchNodeFactory) Name() string {
	return "Switch"
}

func (f *SwitchNodeFactory) Description() string {
	return "Multi-way branching node that continues on the edges of the matching case"
}

// Schema returns the JSON schema for Switch node configuration.
func (f *SwitchNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value": map[string]any{
				"description": "Value to route on. Go templates and {{$.path}} references are resolved first.",
				"examples": []string{
					`{{.trigger.change_type}}`,
					`{{$.nodes.classify.category}}`,
				},
			},
			"cases": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"value":       map[string]any{},
						"output_port": map[string]any{"type": "string", "minLength": 1},
					},
					"required": []string{"value", "output_port"},
				},
			},
			"match_all": map[string]any{
				"type":        "boolean",
				"description": "Select every matching case instead of the first one",
				"default":     false,
			},
		},
		"required": []string{"value"},
		"examples": []map[string]any{
			{
				"value": `{{.trigger.change_type}}`,
				"cases": []map[string]any{
					{"value": "created", "output_port": "new"},
					{"value": "updated", "output_port": "changed"},
				},
			},
		},
	}
}

// NewSwitchNodeFactory creates a new factory instance.
func NewSwitchNodeFactory() protocol.NodeFactory {
	return &SwitchNodeFactory{}
}
