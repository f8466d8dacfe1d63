// Package action provides the provider read and effect nodes. Every node type
// in the catalog with an operation maps to one ActionNode configuration.
package action

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/protocol"
	"github.com/chainreact/chainreact/pkg/template"
)

// ActionNode invokes one provider operation with its configured parameters.
type ActionNode struct {
	id      string
	kind    models.NodeKind
	params  map[string]any
	invoker protocol.ActionInvoker
}

// NewActionNode creates a node for kind. kind must carry an operation.
func NewActionNode(id string, kind models.NodeKind, config map[string]any, invoker protocol.ActionInvoker) (*ActionNode, error) {
	if kind.Operation == "" {
		return nil, fmt.Errorf("node type %s has no provider operation", kind.Type)
	}

	if invoker == nil {
		return nil, fmt.Errorf("no action invoker configured for %s", kind.Type)
	}

	for _, field := range requiredParams[kind.Type] {
		if isBlank(config[field]) {
			return nil, fmt.Errorf("missing required field '%s'", field)
		}
	}

	params := make(map[string]any, len(config))
	for k, v := range config {
		params[k] = v
	}

	return &ActionNode{id: id, kind: kind, params: params, invoker: invoker}, nil
}

func (n *ActionNode) ID() string {
	return n.id
}

func (n *ActionNode) Type() string {
	return n.kind.Type
}

// Call builds the provider call for execCtx without performing it.
func (n *ActionNode) Call(execCtx models.ExecutionContext) (protocol.ActionCall, error) {
	params, err := renderParams(n.params, &execCtx)
	if err != nil {
		return protocol.ActionCall{}, err
	}

	return protocol.ActionCall{
		Provider:  n.kind.Provider,
		Operation: n.kind.Operation,
		NodeType:  n.kind.Type,
		AccountID: execCtx.OwnerID,
		Params:    params,
	}, nil
}

func (n *ActionNode) Execute(ctx context.Context, execCtx models.ExecutionContext) (models.NodeExecutionResult, error) {
	call, err := n.Call(execCtx)
	if err != nil {
		return models.Failed(fmt.Sprintf("failed to render parameters: %v", err)), nil
	}

	output, err := n.invoker.Invoke(ctx, call)
	if err != nil {
		return models.Failed(fmt.Sprintf("%s %s failed: %v", call.Provider, call.Operation, err)), nil
	}

	if output == nil {
		output = map[string]any{}
	}

	return models.Succeeded(output), nil
}

func renderParams(params map[string]any, execCtx *models.ExecutionContext) (map[string]any, error) {
	out := make(map[string]any, len(params))

	for k, v := range params {
		rendered, err := renderValue(v, execCtx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}

		out[k] = rendered
	}

	return out, nil
}

func renderValue(value any, execCtx *models.ExecutionContext) (any, error) {
	switch v := value.(type) {
	case string:
		if !strings.Contains(v, "{{") {
			return v, nil
		}

		return template.RenderWithContext(v, execCtx)
	case map[string]any:
		return renderParams(v, execCtx)
	case []any:
		out := make([]any, len(v))

		for i, item := range v {
			rendered, err := renderValue(item, execCtx)
			if err != nil {
				return nil, err
			}

			out[i] = rendered
		}

		return out, nil
	default:
		return v, nil
	}
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// Preview renders the parameters the node would send, for intercepted runs.
func (n *ActionNode) Preview(execCtx models.ExecutionContext) map[string]any {
	call, err := n.Call(execCtx)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}

	var preview map[string]any

	data, err := json.Marshal(call)
	if err != nil || json.Unmarshal(data, &preview) != nil {
		return map[string]any{"operation": call.Operation}
	}

	return preview
}
