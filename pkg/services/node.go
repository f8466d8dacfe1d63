package services

import (
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/registry"
)

// NodeType describes one registered node type for editors.
type NodeType struct {
	Type             string          `json:"type"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	Provider         models.Provider `json:"provider,omitempty"`
	IsTrigger        bool            `json:"is_trigger"`
	IsExternalEffect bool            `json:"is_external_effect"`
	Schema           map[string]any  `json:"schema"`
}

// Node serves the node type catalog.
type Node struct {
	registry *registry.Registry
}

func NewNode(registry *registry.Registry) *Node {
	return &Node{registry: registry}
}

// List returns every registered node type, sorted by type tag.
func (n *Node) List() []NodeType {
	types := n.registry.Types()
	result := make([]NodeType, 0, len(types))

	for _, nodeType := range types {
		if described, ok := n.describe(nodeType); ok {
			result = append(result, described)
		}
	}

	return result
}

// Get returns one node type.
func (n *Node) Get(nodeType string) (NodeType, error) {
	described, ok := n.describe(nodeType)
	if !ok {
		return NodeType{}, NewNotFoundError("GetNodeType", "node type not found", ErrNodeTypeNotFound)
	}

	return described, nil
}

func (n *Node) describe(nodeType string) (NodeType, bool) {
	factory, ok := n.registry.Factory(nodeType)
	if !ok {
		return NodeType{}, false
	}

	described := NodeType{
		Type:        factory.ID(),
		Name:        factory.Name(),
		Description: factory.Description(),
		Category:    "custom",
		Schema:      factory.Schema(),
	}

	if kind, known := models.LookupNodeKind(nodeType); known {
		capabilities := kind.Category.Capabilities()
		described.Category = kind.Category.String()
		described.Provider = kind.Provider
		described.IsTrigger = capabilities.IsTrigger
		described.IsExternalEffect = capabilities.IsExternalEffect
	}

	return described, true
}
