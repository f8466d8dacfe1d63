package transform

import (
	"context"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/protocol"
)

// TransformNodeFactory creates TransformNode instances.
type TransformNodeFactory struct{}

func (f *TransformNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewTransformNode(id, config)
}

func (f *TransformNodeFactory) ID() string {
	return models.NodeTypeTransform
}

func (f *TransformNodeFactory) Name() string {
	return "Transform"
}

func (f *TransformNodeFactory) Description() string {
	return "Transforms data using Go templates with access to the trigger payload, node outputs and variables"
}

// Schema returns the JSON schema for Transform node configuration.
func (f *TransformNodeFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Go template rendered over trigger, nodes, vars and execution.",
				"examples": []string{
					`{"file": "{{.trigger.item.name}}", "owner": "{{.execution.owner_id}}"}`,
					`{{.nodes.lookup.body | upper}}`,
					`Processed {{len .trigger.item.parent_ids}} parents`,
				},
			},
		},
		"required": []string{"expression"},
	}
}

// NewTransformNodeFactory creates a new factory instance.
func NewTransformNodeFactory() protocol.NodeFactory {
	return &TransformNodeFactory{}
}
