package registry

import (
	"log/slog"

	"github.com/chainreact/chainreact/pkg/nodes/action"
	"github.com/chainreact/chainreact/pkg/nodes/approval"
	"github.com/chainreact/chainreact/pkg/nodes/conditional"
	"github.com/chainreact/chainreact/pkg/nodes/httprequest"
	"github.com/chainreact/chainreact/pkg/nodes/log"
	switchnode "github.com/chainreact/chainreact/pkg/nodes/switch"
	"github.com/chainreact/chainreact/pkg/nodes/transform"
	"github.com/chainreact/chainreact/pkg/nodes/trigger"
	"github.com/chainreact/chainreact/pkg/protocol"
)

// RegisterDefaultNodes registers all built-in node factories. Provider read
// and effect nodes are only registered when invoker is set.
func (r *Registry) RegisterDefaultNodes(logger *slog.Logger, invoker protocol.ActionInvoker) {
	for _, factory := range trigger.NewTriggerNodeFactories() {
		r.RegisterNode(factory)
	}

	r.RegisterNode(conditional.NewConditionalNodeFactory())
	r.RegisterNode(switchnode.NewSwitchNodeFactory())
	r.RegisterNode(transform.NewTransformNodeFactory())
	r.RegisterNode(log.NewLogNodeFactory(logger))
	r.RegisterNode(approval.NewApprovalNodeFactory())
	r.RegisterNode(httprequest.NewHTTPRequestNodeFactory())

	if invoker == nil {
		return
	}

	for _, factory := range action.NewActionNodeFactories(invoker) {
		r.RegisterNode(factory)
	}
}
