// Package ingest turns provider push notifications into workflow runs:
// fetch, classify, match, deduplicate and dispatch, in that order.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chainreact/chainreact/pkg/changes"
	"github.com/chainreact/chainreact/pkg/dedup"
	"github.com/chainreact/chainreact/pkg/eventbus"
	"github.com/chainreact/chainreact/pkg/events"
	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/otelhelper"
	"github.com/chainreact/chainreact/pkg/workflow"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Matcher finds the trigger nodes a change fires.
type Matcher interface {
	Match(ctx context.Context, change *models.Change, subscription *models.WatchSubscription) ([]models.TriggerNodeMatch, error)
}

// Dispatcher starts a run for an accepted match.
type Dispatcher interface {
	Dispatch(ctx context.Context, req workflow.Request) (*models.ExecutionSession, error)
}

// Report counts what happened to one notification. Every rejected unit lands
// in exactly one counter.
type Report struct {
	Handshake      bool     `json:"handshake,omitempty"`
	Stale          int      `json:"stale"`
	Fetched        int      `json:"fetched"`
	Classified     int      `json:"classified"`
	Unmatched      int      `json:"unmatched"`
	Matched        int      `json:"matched"`
	Accepted       int      `json:"accepted"`
	Deduped        int      `json:"deduped"`
	DedupErrors    int      `json:"dedup_errors"`
	MatchErrors    int      `json:"match_errors"`
	Dispatched     int      `json:"dispatched"`
	DispatchFailed int      `json:"dispatch_failed"`
	Sessions       []string `json:"sessions,omitempty"`
}

func (r *Report) counts() map[string]int {
	return map[string]int{
		"stale":           r.Stale,
		"fetched":         r.Fetched,
		"classified":      r.Classified,
		"unmatched":       r.Unmatched,
		"matched":         r.Matched,
		"accepted":        r.Accepted,
		"deduped":         r.Deduped,
		"dedup_errors":    r.DedupErrors,
		"match_errors":    r.MatchErrors,
		"dispatched":      r.Dispatched,
		"dispatch_failed": r.DispatchFailed,
	}
}

func (r *Report) attrs() []any {
	return []any{
		"stale", r.Stale,
		"fetched", r.Fetched,
		"classified", r.Classified,
		"unmatched", r.Unmatched,
		"matched", r.Matched,
		"accepted", r.Accepted,
		"deduped", r.Deduped,
		"dispatched", r.Dispatched,
		"dispatch_failed", r.DispatchFailed,
	}
}

type Processor struct {
	fetcher    *changes.Fetcher
	classifier *changes.Classifier
	matcher    Matcher
	dedup      *dedup.Deduplicator
	dispatcher Dispatcher
	tracer     trace.Tracer
	metrics    *Metrics
	logger     *slog.Logger
}

// NewProcessor wires the pipeline stages. A nil tracer disables spans.
func NewProcessor(
	fetcher *changes.Fetcher,
	classifier *changes.Classifier,
	matcher Matcher,
	deduplicator *dedup.Deduplicator,
	dispatcher Dispatcher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Processor {
	if tracer == nil {
		tracer = otelhelper.Noop()
	}

	return &Processor{
		fetcher:    fetcher,
		classifier: classifier,
		matcher:    matcher,
		dedup:      deduplicator,
		dispatcher: dispatcher,
		tracer:     tracer,
		logger:     logger.With("module", "change_processor"),
	}
}

// WithMetrics makes the processor export every report to m.
func (p *Processor) WithMetrics(m *Metrics) *Processor {
	p.metrics = m

	return p
}

// HandleNotification processes one push notification to completion. Only
// provider and storage errors on the fetch path are returned; everything else
// is counted in the report.
func (p *Processor) HandleNotification(ctx context.Context, notification models.PushNotification) (*Report, error) {
	report, err := p.handleNotification(ctx, notification)
	p.metrics.Observe(string(notification.Provider), report, err)

	return report, err
}

func (p *Processor) handleNotification(ctx context.Context, notification models.PushNotification) (*Report, error) {
	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "ingest.notification",
		attribute.String(otelhelper.ProviderKey, string(notification.Provider)),
		attribute.String(otelhelper.ChannelIDKey, notification.ChannelID),
	)
	defer span.End()

	report := &Report{}
	logger := p.logger.With("provider", notification.Provider, "channel_id", notification.ChannelID)

	if notification.IsSyncHandshake() {
		report.Handshake = true

		logger.DebugContext(ctx, "Sync handshake acknowledged")

		return report, nil
	}

	subscription, err := p.fetcher.Resolve(ctx, notification)
	if changes.IsStaleChannel(err) {
		report.Stale++

		logger.DebugContext(ctx, "Dropping notification for stale channel", "error", err)

		return report, nil
	}

	if err != nil {
		otelhelper.SetError(span, err)

		return report, fmt.Errorf("resolve channel %s: %w", notification.ChannelID, err)
	}

	batch, err := p.fetcher.Fetch(ctx, subscription)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.ErrorContext(ctx, "Failed to fetch changes", "error", err, "transient", changes.IsTransient(err))

		return report, err
	}

	report.Fetched = len(batch.Changes)

	for _, change := range p.classifier.ClassifyAll(subscription, batch.Changes) {
		report.Classified++

		p.processChange(ctx, logger, report, change, subscription)
	}

	logger.InfoContext(ctx, "Notification processed", report.attrs()...)

	return report, nil
}

func (p *Processor) processChange(ctx context.Context, logger *slog.Logger, report *Report, change *models.Change, subscription *models.WatchSubscription) {
	logger = logger.With("resource", change.ResourceIdentity, "change_type", change.ChangeType)

	matches, err := p.matcher.Match(ctx, change, subscription)
	if err != nil {
		report.MatchErrors++

		logger.ErrorContext(ctx, "Failed to match change", "error", err)

		return
	}

	if len(matches) == 0 {
		report.Unmatched++

		return
	}

	for _, match := range matches {
		report.Matched++

		reservation, err := p.dedup.Accept(ctx, match.Workflow.ID, change)
		if err != nil {
			report.DedupErrors++

			logger.ErrorContext(ctx, "Dedup check failed", "workflow_id", match.Workflow.ID, "error", err)

			continue
		}

		if reservation == nil {
			report.Deduped++

			continue
		}

		report.Accepted++

		session, err := p.dispatcher.Dispatch(ctx, workflow.Request{
			Workflow:    match.Workflow,
			TriggerNode: match.TriggerNode,
			Source:      models.TriggerSourceWebhook,
			Input:       workflow.TriggerPayload(change, subscription),
		})
		if err != nil {
			report.DispatchFailed++

			// A returned session means the graph already ran; the record stays so a
			// redelivery cannot run it twice.
			if session != nil {
				report.Sessions = append(report.Sessions, session.ID)

				logger.ErrorContext(ctx, "Dispatched run did not finish cleanly", "workflow_id", match.Workflow.ID, "execution_id", session.ID, "error", err)

				continue
			}

			logger.ErrorContext(ctx, "Dispatch failed, rolling back dedup record", "workflow_id", match.Workflow.ID, "error", err)

			if rbErr := p.dedup.Rollback(ctx, reservation); rbErr != nil {
				logger.ErrorContext(ctx, "Dedup rollback failed", "workflow_id", match.Workflow.ID, "error", rbErr)
			}

			continue
		}

		report.Dispatched++
		report.Sessions = append(report.Sessions, session.ID)
	}
}

// Register subscribes the processor to notifications published by the receiver.
func (p *Processor) Register(bus eventbus.EventSubscriber) error {
	return bus.Handle(events.NotificationReceivedEvent, func(ctx context.Context, event any) error {
		received, ok := event.(*events.NotificationReceived)
		if !ok {
			p.logger.ErrorContext(ctx, "Invalid event type for NotificationReceived")

			return nil
		}

		_, err := p.HandleNotification(ctx, received.Notification)

		// transient provider failures are redelivered by the bus
		if changes.IsTransient(err) {
			return err
		}

		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.ErrorContext(ctx, "Dropping notification after error", "error", err)
		}

		return nil
	})
}
