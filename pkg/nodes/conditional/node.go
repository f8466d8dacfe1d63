// Package conditional provides the two-way branching node.
package conditional

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/template"
	"github.com/dop251/goja"
)

const (
	PathTrue  = "true"
	PathFalse = "false"
)

// ConditionalNode routes to the "true" or "false" edges. The condition is a
// JavaScript expression over trigger, nodes and vars, or a Go template when it
// contains template actions.
type ConditionalNode struct {
	id        string
	condition string
}

// NewConditionalNode creates a new conditional branching node.
func NewConditionalNode(id string, config map[string]any) (*ConditionalNode, error) {
	condition, ok := config["condition"].(string)
	if !ok || strings.TrimSpace(condition) == "" {
		return nil, errors.New("missing required field 'condition'")
	}

	return &ConditionalNode{
		id:        id,
		condition: condition,
	}, nil
}

func (n *ConditionalNode) ID() string {
	return n.id
}

func (n *ConditionalNode) Type() string {
	return models.NodeTypeConditional
}

// Execute evaluates the condition and selects the matching path.
func (n *ConditionalNode) Execute(_ context.Context, execCtx models.ExecutionContext) (models.NodeExecutionResult, error) {
	var (
		value any
		err   error
	)

	if strings.Contains(n.condition, "{{") {
		value, err = template.RenderWithContext(n.condition, &execCtx)
	} else {
		value, err = evaluateScript(n.condition, template.Data(&execCtx))
	}

	if err != nil {
		return models.Failed(fmt.Sprintf("condition evaluation failed: %v", err)), nil
	}

	isTrue := truthy(value)

	path := PathFalse
	if isTrue {
		path = PathTrue
	}

	result := models.Succeeded(map[string]any{
		"condition_result": isTrue,
		"evaluated_value":  value,
	})
	result.PathTaken = path

	return result, nil
}

func evaluateScript(expression string, data map[string]any) (any, error) {
	vm := goja.New()

	for _, name := range []string{"trigger", "nodes", "vars", "execution"} {
		if err := vm.Set(name, data[name]); err != nil {
			return nil, err
		}
	}

	value, err := vm.RunString("(" + expression + ")")
	if err != nil {
		return nil, err
	}

	return value.Export(), nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}

		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return false
	}
}
