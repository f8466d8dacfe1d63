// Package template renders node configuration against the data of a run.
package template

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
)

// Data is the view of a run that templates and JSONPath tokens resolve against.
func Data(executionCtx *models.ExecutionContext) map[string]any {
	return map[string]any{
		"trigger": executionCtx.TriggerData,
		"nodes":   executionCtx.NodeOutputs,
		"vars":    executionCtx.Variables,
		"env":     getEnvVars(),
		"execution": map[string]any{
			"id":          executionCtx.SessionID,
			"workflow_id": executionCtx.WorkflowID,
			"owner_id":    executionCtx.OwnerID,
		},
	}
}

func RenderWithContext(input string, executionCtx *models.ExecutionContext) (any, error) {
	return Render(input, Data(executionCtx))
}

// Render executes templateStr and coerces the output to JSON, a number or a
// bool when it parses as one.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("node").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"rand": func(n int) int {
				if n <= 0 {
					return 0
				}

				num := make([]byte, 1)
				if _, err := rand.Read(num); err != nil {
					return 0
				}

				return int(num[0]) % n
			},
			"json": func(v any) (string, error) {
				data, err := json.Marshal(v)

				return string(data), err
			},
			"lower": strings.ToLower,
			"upper": strings.ToUpper,
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		if err := json.Unmarshal([]byte(result), &jsonResult); err != nil {
			return nil, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
		}

		return jsonResult, nil
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	if result == "<no value>" {
		return "", nil
	}

	return result, nil
}

func getEnvVars() map[string]any {
	envMap := make(map[string]any)

	for _, env := range os.Environ() {
		if key, value, ok := strings.Cut(env, "="); ok {
			envMap[key] = value
		}
	}

	return envMap
}
