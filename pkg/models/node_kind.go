package models

import "sort"

// NodeCategory is the closed set of node categories. Every node type belongs to
// exactly one category and the category alone decides its capabilities.
type NodeCategory int

const (
	CategoryTrigger NodeCategory = iota + 1
	CategoryLogic
	CategoryUtility
	CategoryControl
	CategoryRead
	CategoryEffect
)

// Capabilities are the behavioural flags the executor and matcher act on.
type Capabilities struct {
	IsTrigger        bool
	IsExternalEffect bool
	ReadOnly         bool
}

// Capabilities returns the flags of the category.
func (c NodeCategory) Capabilities() Capabilities {
	switch c {
	case CategoryTrigger:
		return Capabilities{IsTrigger: true, ReadOnly: true}
	case CategoryLogic, CategoryUtility, CategoryRead:
		return Capabilities{ReadOnly: true}
	case CategoryControl:
		return Capabilities{}
	case CategoryEffect:
		return Capabilities{IsExternalEffect: true}
	default:
		return Capabilities{}
	}
}

func (c NodeCategory) String() string {
	switch c {
	case CategoryTrigger:
		return "trigger"
	case CategoryLogic:
		return "logic"
	case CategoryUtility:
		return "utility"
	case CategoryControl:
		return "control"
	case CategoryRead:
		return "read"
	case CategoryEffect:
		return "effect"
	default:
		return "unknown"
	}
}

// NodeKind describes one node type tag.
type NodeKind struct {
	Type     string
	Category NodeCategory
	Provider Provider
	// Operation is the provider operation invoked by read and effect nodes.
	Operation string
	// ChangeTypes lists the change types a trigger node reacts to.
	ChangeTypes []ChangeType
}

// Node type tags.
const (
	NodeTypeManualTrigger   = "manual"
	NodeTypeWebhookTrigger  = "webhook"
	NodeTypeScheduleTrigger = "schedule"

	NodeTypeNewFileInFolder   = "new_file_in_folder"
	NodeTypeNewFolderInFolder = "new_folder_in_folder"
	NodeTypeFileUpdated       = "file_updated"
	NodeTypeFileDeleted       = "file_deleted"
	NodeTypeNewEvent          = "new_event"
	NodeTypeEventUpdated      = "event_updated"
	NodeTypeEventCancelled    = "event_cancelled"
	NodeTypeNewRow            = "new_row"
	NodeTypeUpdatedRow        = "updated_row"
	NodeTypeNewWorksheet      = "new_worksheet"

	NodeTypeConditional = "conditional"
	NodeTypeSwitch      = "switch"
	NodeTypeTransform   = "transform"
	NodeTypeLog         = "log"
	NodeTypeApproval    = "approval"
	NodeTypeHTTPRequest = "http_request"
)

var nodeKinds = map[string]NodeKind{}

func register(kinds ...NodeKind) {
	for _, kind := range kinds {
		nodeKinds[kind.Type] = kind
	}
}

func init() {
	register(
		NodeKind{Type: NodeTypeManualTrigger, Category: CategoryTrigger},
		NodeKind{Type: NodeTypeWebhookTrigger, Category: CategoryTrigger},
		NodeKind{Type: NodeTypeScheduleTrigger, Category: CategoryTrigger},

		NodeKind{Type: NodeTypeNewFileInFolder, Category: CategoryTrigger, Provider: ProviderGoogleDrive, ChangeTypes: []ChangeType{ChangeCreated}},
		NodeKind{Type: NodeTypeNewFolderInFolder, Category: CategoryTrigger, Provider: ProviderGoogleDrive, ChangeTypes: []ChangeType{ChangeFolderCreated}},
		NodeKind{Type: NodeTypeFileUpdated, Category: CategoryTrigger, Provider: ProviderGoogleDrive, ChangeTypes: []ChangeType{ChangeUpdated}},
		NodeKind{Type: NodeTypeFileDeleted, Category: CategoryTrigger, Provider: ProviderGoogleDrive, ChangeTypes: []ChangeType{ChangeDeleted}},
		NodeKind{Type: NodeTypeNewEvent, Category: CategoryTrigger, Provider: ProviderGoogleCalendar, ChangeTypes: []ChangeType{ChangeCreated}},
		NodeKind{Type: NodeTypeEventUpdated, Category: CategoryTrigger, Provider: ProviderGoogleCalendar, ChangeTypes: []ChangeType{ChangeUpdated}},
		NodeKind{Type: NodeTypeEventCancelled, Category: CategoryTrigger, Provider: ProviderGoogleCalendar, ChangeTypes: []ChangeType{ChangeDeleted}},
		NodeKind{Type: NodeTypeNewRow, Category: CategoryTrigger, Provider: ProviderGoogleSheets, ChangeTypes: []ChangeType{ChangeNewRow}},
		NodeKind{Type: NodeTypeUpdatedRow, Category: CategoryTrigger, Provider: ProviderGoogleSheets, ChangeTypes: []ChangeType{ChangeUpdatedRow}},
		NodeKind{Type: NodeTypeNewWorksheet, Category: CategoryTrigger, Provider: ProviderGoogleSheets, ChangeTypes: []ChangeType{ChangeNewWorksheet}},

		NodeKind{Type: NodeTypeConditional, Category: CategoryLogic},
		NodeKind{Type: NodeTypeSwitch, Category: CategoryLogic},
		NodeKind{Type: NodeTypeTransform, Category: CategoryLogic},
		NodeKind{Type: NodeTypeLog, Category: CategoryUtility},
		NodeKind{Type: NodeTypeApproval, Category: CategoryControl},
		NodeKind{Type: NodeTypeHTTPRequest, Category: CategoryEffect},

		NodeKind{Type: "drive_get_file", Category: CategoryRead, Provider: ProviderGoogleDrive, Operation: "files.get"},
		NodeKind{Type: "drive_list_files", Category: CategoryRead, Provider: ProviderGoogleDrive, Operation: "files.list"},
		NodeKind{Type: "drive_create_file", Category: CategoryEffect, Provider: ProviderGoogleDrive, Operation: "files.create"},
		NodeKind{Type: "drive_delete_file", Category: CategoryEffect, Provider: ProviderGoogleDrive, Operation: "files.delete"},
		NodeKind{Type: "calendar_list_events", Category: CategoryRead, Provider: ProviderGoogleCalendar, Operation: "events.list"},
		NodeKind{Type: "calendar_create_event", Category: CategoryEffect, Provider: ProviderGoogleCalendar, Operation: "events.insert"},
		NodeKind{Type: "sheets_read_rows", Category: CategoryRead, Provider: ProviderGoogleSheets, Operation: "values.get"},
		NodeKind{Type: "sheets_append_row", Category: CategoryEffect, Provider: ProviderGoogleSheets, Operation: "values.append"},
		NodeKind{Type: "sheets_update_row", Category: CategoryEffect, Provider: ProviderGoogleSheets, Operation: "values.update"},
		NodeKind{Type: "gmail_send_email", Category: CategoryEffect, Provider: ProviderGmail, Operation: "messages.send"},
		NodeKind{Type: "gmail_search_emails", Category: CategoryRead, Provider: ProviderGmail, Operation: "messages.list"},
		NodeKind{Type: "slack_send_message", Category: CategoryEffect, Provider: ProviderSlack, Operation: "chat.postMessage"},
		NodeKind{Type: "slack_publish_update", Category: CategoryEffect, Provider: ProviderSlack, Operation: "chat.update"},
	)
}

// LookupNodeKind returns the catalog entry for a node type tag.
func LookupNodeKind(nodeType string) (NodeKind, bool) {
	kind, ok := nodeKinds[nodeType]

	return kind, ok
}

// NodeKinds returns the catalog sorted by type tag.
func NodeKinds() []NodeKind {
	kinds := make([]NodeKind, 0, len(nodeKinds))
	for _, kind := range nodeKinds {
		kinds = append(kinds, kind)
	}

	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Type < kinds[j].Type })

	return kinds
}

// TriggerTypesFor returns the trigger node types of provider that react to changeType.
func TriggerTypesFor(provider Provider, changeType ChangeType) []string {
	var types []string

	for _, kind := range NodeKinds() {
		if kind.Category != CategoryTrigger || kind.Provider != provider {
			continue
		}

		for _, ct := range kind.ChangeTypes {
			if ct == changeType {
				types = append(types, kind.Type)

				break
			}
		}
	}

	return types
}
