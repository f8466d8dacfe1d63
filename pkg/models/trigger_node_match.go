package models

// TriggerNodeMatch is a workflow whose trigger node accepted a change.
type TriggerNodeMatch struct {
	Workflow     *Workflow
	TriggerNode  *WorkflowNode
	Subscription *WatchSubscription
}

// TriggerRegistration indexes one trigger node of an active workflow so the
// matcher can find candidates without loading every graph.
type TriggerRegistration struct {
	WorkflowID  string   `json:"workflow_id"`
	NodeID      string   `json:"node_id"`
	TriggerType string   `json:"trigger_type"`
	Provider    Provider `json:"provider,omitempty"`
	OwnerID     string   `json:"owner_id"`
}

// TriggerRegistrations derives the registrations of an active workflow.
func TriggerRegistrations(workflow *Workflow) []TriggerRegistration {
	if !workflow.IsActive() {
		return nil
	}

	var registrations []TriggerRegistration

	for _, node := range workflow.TriggerNodes() {
		provider := node.Provider
		if kind, ok := node.Kind(); ok && provider == "" {
			provider = kind.Provider
		}

		registrations = append(registrations, TriggerRegistration{
			WorkflowID:  workflow.ID,
			NodeID:      node.ID,
			TriggerType: node.Type,
			Provider:    provider,
			OwnerID:     workflow.Owner,
		})
	}

	return registrations
}
