// Package matcher finds the workflows whose trigger nodes accept a change.
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
)

// ScopeFields are the node config keys compared with the change scope. An
// empty value on the node matches any scope.
var ScopeFields = []string{
	models.ScopeFolderID,
	models.ScopeCalendarID,
	models.ScopeSpreadsheetID,
	models.ScopeSheetName,
	"integration_id",
}

type Matcher struct {
	workflows persistence.WorkflowRepository
	logger    *slog.Logger
}

// NewMatcher creates a matcher over the stored workflows.
func NewMatcher(workflows persistence.WorkflowRepository, logger *slog.Logger) *Matcher {
	return &Matcher{
		workflows: workflows,
		logger:    logger.With("module", "trigger_matcher"),
	}
}

// Match returns every (workflow, trigger node) pair of the subscription's
// account that accepts change. No match is not an error.
func (m *Matcher) Match(ctx context.Context, change *models.Change, subscription *models.WatchSubscription) ([]models.TriggerNodeMatch, error) {
	if change.Timestamp != nil && !subscription.StartedAt.IsZero() && change.Timestamp.Before(subscription.StartedAt) {
		m.logger.DebugContext(ctx, "Change predates watch start",
			"resource", change.ResourceIdentity,
			"subscription_id", subscription.ID,
		)

		return nil, nil
	}

	triggerTypes := models.TriggerTypesFor(change.Provider, change.ChangeType)
	if len(triggerTypes) == 0 {
		return nil, nil
	}

	registrations, err := m.workflows.ActiveTriggers(ctx, change.Provider, subscription.AccountID, triggerTypes)
	if err != nil {
		return nil, fmt.Errorf("load active triggers: %w", err)
	}

	loaded := make(map[string]*models.Workflow)

	var matches []models.TriggerNodeMatch

	for _, registration := range registrations {
		workflow, ok := loaded[registration.WorkflowID]
		if !ok {
			workflow, err = m.workflows.ByID(ctx, registration.WorkflowID)
			if persistence.IsWorkflowNotFound(err) {
				loaded[registration.WorkflowID] = nil

				continue
			}

			if err != nil {
				return nil, fmt.Errorf("load workflow %s: %w", registration.WorkflowID, err)
			}

			loaded[registration.WorkflowID] = workflow
		}

		if workflow == nil || !workflow.IsActive() {
			continue
		}

		node := workflow.NodeByID(registration.NodeID)
		if node == nil || node.Disabled || !slices.Contains(triggerTypes, node.Type) {
			continue
		}

		if m.accepts(ctx, workflow, node, change) {
			matches = append(matches, models.TriggerNodeMatch{
				Workflow:     workflow,
				TriggerNode:  node,
				Subscription: subscription,
			})
		}
	}

	return matches, nil
}

func (m *Matcher) accepts(ctx context.Context, workflow *models.Workflow, node *models.WorkflowNode, change *models.Change) bool {
	if field, ok := ScopeMatches(node, change); !ok {
		m.logger.DebugContext(ctx, "Trigger scope mismatch", "workflow_id", workflow.ID, "node_id", node.ID, "field", field)

		return false
	}

	filters, err := ParseFilters(node.Config)
	if err != nil {
		m.logger.WarnContext(ctx, "Invalid trigger filters", "workflow_id", workflow.ID, "node_id", node.ID, "error", err)

		return false
	}

	if ok, filter := filters.Match(change); !ok {
		m.logger.DebugContext(ctx, "Trigger filter rejected change", "workflow_id", workflow.ID, "node_id", node.ID, "filter", filter)

		return false
	}

	return true
}

// ScopeMatches compares the scope fields of node with the change. It returns
// the first mismatching field.
func ScopeMatches(node *models.WorkflowNode, change *models.Change) (string, bool) {
	for _, field := range ScopeFields {
		want := node.ConfigString(field)
		if want == "" {
			continue
		}

		if field == "integration_id" {
			if want != change.Scope.IntegrationID {
				return field, false
			}

			continue
		}

		if !slices.Contains(change.ScopeValues(field), want) {
			return field, false
		}
	}

	return "", true
}
