// Package switchnode provides the multi-way branching node.
package switchnode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/template"
)

// PathDefault is taken when no case matches.
const PathDefault = "default"

// SwitchNode routes to the edges labelled with the output port of the case
// matching its value. With match_all every matching case is selected.
type SwitchNode struct {
	id       string
	value    any
	cases    []SwitchCase
	matchAll bool
}

// SwitchCase maps a value to an output port.
type SwitchCase struct {
	Value      string `json:"value"`
	OutputPort string `json:"output_port"`
}

// NewSwitchNode creates a new switch node.
func NewSwitchNode(id string, config map[string]any) (*SwitchNode, error) {
	value, ok := config["value"]
	if !ok || value == nil {
		return nil, errors.New("missing required field 'value'")
	}

	var cases []SwitchCase

	if casesConfig, ok := config["cases"].([]any); ok {
		for i, caseAny := range casesConfig {
			caseMap, ok := caseAny.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("case %d must be an object", i)
			}

			caseValue, ok := caseMap["value"]
			if !ok {
				return nil, fmt.Errorf("case %d missing 'value'", i)
			}

			outputPort, ok := caseMap["output_port"].(string)
			if !ok || outputPort == "" {
				return nil, fmt.Errorf("case %d missing 'output_port'", i)
			}

			cases = append(cases, SwitchCase{Value: fmt.Sprint(caseValue), OutputPort: outputPort})
		}
	}

	matchAll, _ := config["match_all"].(bool)

	return &SwitchNode{
		id:       id,
		value:    value,
		cases:    cases,
		matchAll: matchAll,
	}, nil
}

func (n *SwitchNode) ID() string {
	return n.id
}

func (n *SwitchNode) Type() string {
	return models.NodeTypeSwitch
}

// Execute evaluates the value and selects the output port of the matching case.
func (n *SwitchNode) Execute(_ context.Context, execCtx models.ExecutionContext) (models.NodeExecutionResult, error) {
	value := n.value

	if expression, ok := value.(string); ok && strings.Contains(expression, "{{") {
		rendered, err := template.RenderWithContext(expression, &execCtx)
		if err != nil {
			return models.Failed(fmt.Sprintf("value evaluation failed: %v", err)), nil
		}

		value = rendered
	}

	valueStr := fmt.Sprint(value)

	var ports []string

	for _, c := range n.cases {
		if c.Value == valueStr {
			ports = append(ports, c.OutputPort)

			if !n.matchAll {
				break
			}
		}
	}

	if len(ports) == 0 {
		result := models.Succeeded(map[string]any{
			"matched_value": valueStr,
			"output_port":   PathDefault,
			"no_match":      true,
		})
		result.PathTaken = PathDefault

		return result, nil
	}

	result := models.Succeeded(map[string]any{
		"matched_value": valueStr,
		"output_port":   ports[0],
	})

	if n.matchAll {
		result.SelectedPaths = ports
		result.Output["output_ports"] = ports
	} else {
		result.PathTaken = ports[0]
	}

	return result, nil
}
