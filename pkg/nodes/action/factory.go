package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/protocol"
)

var requiredParams = map[string][]string{
	"drive_get_file":        {"file_id"},
	"drive_list_files":      {"folder_id"},
	"drive_create_file":     {"folder_id", "name"},
	"drive_delete_file":     {"file_id"},
	"calendar_list_events":  {"calendar_id"},
	"calendar_create_event": {"calendar_id", "summary", "start", "end"},
	"sheets_read_rows":      {"spreadsheet_id", "sheet_name"},
	"sheets_append_row":     {"spreadsheet_id", "sheet_name", "values"},
	"sheets_update_row":     {"spreadsheet_id", "sheet_name", "row", "values"},
	"gmail_send_email":      {"to", "subject", "body"},
	"gmail_search_emails":   {"query"},
	"slack_send_message":    {"channel", "text"},
	"slack_publish_update":  {"channel", "ts", "text"},
}

// ActionNodeFactory creates ActionNode instances for one catalog kind.
type ActionNodeFactory struct {
	kind    models.NodeKind
	invoker protocol.ActionInvoker
}

// NewActionNodeFactories returns a factory per read and effect kind with an operation.
func NewActionNodeFactories(invoker protocol.ActionInvoker) []protocol.NodeFactory {
	var factories []protocol.NodeFactory

	for _, kind := range models.NodeKinds() {
		if kind.Operation == "" {
			continue
		}

		factories = append(factories, &ActionNodeFactory{kind: kind, invoker: invoker})
	}

	return factories
}

// Create binds a new ActionNode to the factory kind and invoker.
func (f *ActionNodeFactory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewActionNode(id, f.kind, config, f.invoker)
}

// ID returns the catalog kind.
func (f *ActionNodeFactory) ID() string {
	return f.kind.Type
}

func (f *ActionNodeFactory) Name() string {
	words := strings.Split(f.kind.Type, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}

	return strings.Join(words, " ")
}

func (f *ActionNodeFactory) Description() string {
	verb := "Reads from"
	if f.kind.Category == models.CategoryEffect {
		verb = "Writes to"
	}

	return fmt.Sprintf("%s %s via %s", verb, f.kind.Provider, f.kind.Operation)
}

// Schema requires the operation parameters and accepts any extras, which are
// passed through to the provider.
func (f *ActionNodeFactory) Schema() map[string]any {
	required := requiredParams[f.kind.Type]
	properties := make(map[string]any, len(required))

	for _, field := range required {
		properties[field] = map[string]any{}
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": true,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}
