package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

// pathToken matches "{{$.trigger.item.name}}" style references.
var pathToken = regexp.MustCompile(`\{\{\s*(\$[^{}]*?)\s*\}\}`)

// Resolve replaces JSONPath tokens in every string of value. A string that is
// a single token takes the referenced value with its type; tokens embedded in
// text are formatted. Unresolvable tokens become empty.
func Resolve(value any, data map[string]any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Resolve(item, data)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Resolve(item, data)
		}

		return out
	case string:
		return resolveString(v, data)
	default:
		return v
	}
}

// ResolveConfig resolves a node config map.
func ResolveConfig(config map[string]any, data map[string]any) map[string]any {
	if config == nil {
		return map[string]any{}
	}

	resolved, _ := Resolve(config, data).(map[string]any)

	return resolved
}

// Lookup evaluates one JSONPath expression against data.
func Lookup(data map[string]any, path string) (any, error) {
	return jsonpath.JsonPathLookup(data, path)
}

func resolveString(s string, data map[string]any) any {
	if !strings.Contains(s, "{{") {
		return s
	}

	if match := pathToken.FindStringSubmatch(s); match != nil && match[0] == strings.TrimSpace(s) {
		value, err := Lookup(data, match[1])
		if err != nil {
			return nil
		}

		return value
	}

	return pathToken.ReplaceAllStringFunc(s, func(token string) string {
		path := pathToken.FindStringSubmatch(token)[1]

		value, err := Lookup(data, path)
		if err != nil || value == nil {
			return ""
		}

		return fmt.Sprint(value)
	})
}
