// Package scheduler starts workflow runs from schedule trigger nodes.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/chainreact/chainreact/pkg/workflow"
	"github.com/robfig/cron/v3"
)

const DefaultReloadInterval = time.Minute

// Dispatcher starts a run.
type Dispatcher interface {
	Dispatch(ctx context.Context, req workflow.Request) (*models.ExecutionSession, error)
}

type entry struct {
	spec string
	id   cron.EntryID
}

// SchedulerProvider keeps one cron entry per schedule trigger node of every
// active workflow and re-reads the workflow set periodically.
type SchedulerProvider struct {
	workflows      persistence.WorkflowRepository
	dispatcher     Dispatcher
	logger         *slog.Logger
	cron           *cron.Cron
	reloadInterval time.Duration
	now            func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	started bool
	done    chan struct{}
}

// Option customizes a SchedulerProvider.
type Option func(*SchedulerProvider)

func WithReloadInterval(interval time.Duration) Option {
	return func(s *SchedulerProvider) { s.reloadInterval = interval }
}

func WithClock(now func() time.Time) Option {
	return func(s *SchedulerProvider) { s.now = now }
}

func NewSchedulerProvider(workflows persistence.WorkflowRepository, dispatcher Dispatcher, logger *slog.Logger, opts ...Option) *SchedulerProvider {
	s := &SchedulerProvider{
		workflows:      workflows,
		dispatcher:     dispatcher,
		logger:         logger.With("module", "scheduler"),
		cron:           cron.New(cron.WithLocation(time.UTC)),
		reloadInterval: DefaultReloadInterval,
		now:            time.Now,
		entries:        make(map[string]entry),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads the schedules, starts the cron runner and the reload loop.
func (s *SchedulerProvider) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()

		return nil
	}

	s.started = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	if err := s.Reload(ctx); err != nil {
		return err
	}

	s.cron.Start()

	go s.reloadLoop(ctx)

	s.logger.InfoContext(ctx, "Scheduler started", "reload_interval", s.reloadInterval)

	return nil
}

// Stop halts the reload loop and waits for running jobs to return.
func (s *SchedulerProvider) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()

		return nil
	}

	s.started = false
	close(s.done)
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Scheduler stopped")

	return nil
}

func (s *SchedulerProvider) reloadLoop(ctx context.Context) {
	ticker := time.NewTicker(s.reloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Failed to reload schedules", "error", err)
			}
		}
	}
}

// Reload syncs cron entries with the schedule triggers of active workflows.
func (s *SchedulerProvider) Reload(ctx context.Context) error {
	workflows, err := s.workflows.All(ctx)
	if err != nil {
		return fmt.Errorf("load workflows: %w", err)
	}

	desired := make(map[string]string)
	targets := make(map[string][2]string)

	for _, wf := range workflows {
		if !wf.IsActive() {
			continue
		}

		for _, node := range wf.TriggerNodes() {
			if node.Type != models.NodeTypeScheduleTrigger {
				continue
			}

			key := wf.ID + "/" + node.ID
			desired[key] = node.ConfigString("cron")
			targets[key] = [2]string{wf.ID, node.ID}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, current := range s.entries {
		if spec, ok := desired[key]; !ok || spec != current.spec {
			s.cron.Remove(current.id)
			delete(s.entries, key)
		}
	}

	for key, spec := range desired {
		if _, ok := s.entries[key]; ok {
			continue
		}

		workflowID, nodeID := targets[key][0], targets[key][1]

		id, err := s.cron.AddFunc(spec, func() {
			if err := s.Fire(context.WithoutCancel(ctx), workflowID, nodeID); err != nil {
				s.logger.ErrorContext(ctx, "Scheduled run failed", "workflow_id", workflowID, "node_id", nodeID, "error", err)
			}
		})
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping invalid cron expression",
				"workflow_id", workflowID,
				"node_id", nodeID,
				"cron", spec,
				"error", err,
			)

			continue
		}

		s.entries[key] = entry{spec: spec, id: id}
	}

	return nil
}

// ValidateSpec reports whether spec is a cron expression the scheduler accepts:
// five standard fields or a descriptor such as @hourly.
func ValidateSpec(spec string) error {
	_, err := cron.ParseStandard(spec)

	return err
}

// Entries returns the number of registered schedules.
func (s *SchedulerProvider) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Fire dispatches one scheduled run against the latest stored graph.
func (s *SchedulerProvider) Fire(ctx context.Context, workflowID, nodeID string) error {
	wf, err := s.workflows.ByID(ctx, workflowID)
	if err != nil {
		return err
	}

	node := wf.NodeByID(nodeID)
	if !wf.IsActive() || node == nil || node.Disabled {
		s.logger.DebugContext(ctx, "Schedule target gone, skipping", "workflow_id", workflowID, "node_id", nodeID)

		return nil
	}

	input := map[string]any{
		"scheduled_at": s.now().UTC().Format(time.RFC3339),
		"cron":         node.ConfigString("cron"),
	}

	if extra, ok := node.Config["input"].(map[string]any); ok {
		for k, v := range extra {
			input[k] = v
		}
	}

	_, err = s.dispatcher.Dispatch(ctx, workflow.Request{
		Workflow:    wf,
		TriggerNode: node,
		Source:      models.TriggerSourceSchedule,
		Input:       input,
	})

	return err
}
