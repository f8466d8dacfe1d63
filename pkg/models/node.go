package models

// WorkflowNode is a node instance inside a workflow graph.
type WorkflowNode struct {
	ID        string         `json:"id"                 validate:"required"`
	Type      string         `json:"type"`
	Label     string         `json:"label,omitempty"`
	Provider  Provider       `json:"provider,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
	PositionX float64        `json:"position_x"`
	PositionY float64        `json:"position_y"`
	Disabled  bool           `json:"disabled,omitempty"`
}

// Kind resolves the node's type tag against the node catalog.
func (n *WorkflowNode) Kind() (NodeKind, bool) {
	return LookupNodeKind(n.Type)
}

// IsTrigger reports whether the node starts workflow runs.
func (n *WorkflowNode) IsTrigger() bool {
	kind, ok := n.Kind()

	return ok && kind.Category.Capabilities().IsTrigger
}

// DisplayName returns the label, falling back to the node type.
func (n *WorkflowNode) DisplayName() string {
	if n.Label != "" {
		return n.Label
	}

	return n.Type
}

// ConfigString returns a string config value or "".
func (n *WorkflowNode) ConfigString(key string) string {
	if n.Config == nil {
		return ""
	}

	value, _ := n.Config[key].(string)

	return value
}

// Edge connects two nodes. SourceHandle or Label name the output path the edge
// belongs to when the source node routes conditionally.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"                  validate:"required"`
	Target       string `json:"target"                  validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
	Label        string `json:"label,omitempty"`
}

// Path returns the routing path name of the edge, or "" for a plain edge.
func (e *Edge) Path() string {
	if e.SourceHandle != "" {
		return e.SourceHandle
	}

	return e.Label
}
