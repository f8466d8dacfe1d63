package protocol

import (
	"context"

	"github.com/chainreact/chainreact/pkg/models"
)

// ActionCall is one provider operation requested by a read or effect node.
type ActionCall struct {
	Provider  models.Provider `json:"provider"`
	Operation string          `json:"operation"`
	NodeType  string          `json:"node_type"`
	AccountID string          `json:"account_id"`
	Params    map[string]any  `json:"params"`
}

// ActionInvoker performs provider operations. Credentials and per-provider
// REST details live behind it.
type ActionInvoker interface {
	Invoke(ctx context.Context, call ActionCall) (map[string]any, error)
}
