// Package transform provides the data transformation node.
package transform

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/template"
)

// TransformNode renders a Go template over the run data. JSON output is
// decoded, so an expression can build objects for later nodes.
type TransformNode struct {
	id         string
	expression string
}

// NewTransformNode creates a new data transformation node.
func NewTransformNode(id string, config map[string]any) (*TransformNode, error) {
	expression, ok := config["expression"].(string)
	if !ok {
		return nil, errors.New("missing required field 'expression'")
	}

	return &TransformNode{
		id:         id,
		expression: expression,
	}, nil
}

func (n *TransformNode) ID() string {
	return n.id
}

func (n *TransformNode) Type() string {
	return models.NodeTypeTransform
}

// Execute renders the expression; the value is returned under "result".
func (n *TransformNode) Execute(_ context.Context, execCtx models.ExecutionContext) (models.NodeExecutionResult, error) {
	result, err := template.RenderWithContext(n.expression, &execCtx)
	if err != nil {
		return models.Failed(fmt.Sprintf("transformation failed: %v", err)), nil
	}

	return models.Succeeded(map[string]any{"result": result}), nil
}
