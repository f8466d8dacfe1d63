package file

import (
	"context"
	"sort"
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/persistence"
)

const (
	sessionsCollection = "sessions"
	stepsCollection    = "steps"
)

// ExecutionRepository stores sessions as one document each and the step
// history of a session as a single ordered document.
type ExecutionRepository struct {
	store *store
}

func (er *ExecutionRepository) SaveSession(_ context.Context, session *models.ExecutionSession) error {
	er.store.mu.Lock()
	defer er.store.mu.Unlock()

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	if err := er.store.write(sessionsCollection, session.ID, session); err != nil {
		return &persistence.ExecutionError{Op: "SaveSession", SessionID: session.ID, Err: err}
	}

	return nil
}

func (er *ExecutionRepository) SessionByID(_ context.Context, id string) (*models.ExecutionSession, error) {
	er.store.mu.RLock()
	defer er.store.mu.RUnlock()

	var session models.ExecutionSession

	found, err := er.store.read(sessionsCollection, id, &session)
	if err != nil {
		return nil, &persistence.ExecutionError{Op: "SessionByID", SessionID: id, Err: err}
	}

	if !found {
		return nil, &persistence.ExecutionError{Op: "SessionByID", SessionID: id, Err: persistence.ErrSessionNotFound}
	}

	return &session, nil
}

func (er *ExecutionRepository) SessionsByWorkflow(_ context.Context, workflowID string) ([]*models.ExecutionSession, error) {
	return er.filterSessions(func(s *models.ExecutionSession) bool { return s.WorkflowID == workflowID })
}

func (er *ExecutionRepository) SessionsBetween(_ context.Context, from, to time.Time) ([]*models.ExecutionSession, error) {
	return er.filterSessions(func(s *models.ExecutionSession) bool {
		return !s.CreatedAt.Before(from) && s.CreatedAt.Before(to)
	})
}

func (er *ExecutionRepository) filterSessions(keep func(*models.ExecutionSession) bool) ([]*models.ExecutionSession, error) {
	er.store.mu.RLock()
	defer er.store.mu.RUnlock()

	sessions, err := loadAll[models.ExecutionSession](er.store, sessionsCollection)
	if err != nil {
		return nil, err
	}

	result := make([]*models.ExecutionSession, 0, len(sessions))

	for _, session := range sessions {
		if keep(session) {
			result = append(result, session)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	return result, nil
}

func (er *ExecutionRepository) RecordStep(_ context.Context, step models.StepStart) error {
	er.store.mu.Lock()
	defer er.store.mu.Unlock()

	steps, err := er.stepsLocked(step.SessionID)
	if err != nil {
		return &persistence.ExecutionError{Op: "RecordStep", SessionID: step.SessionID, NodeID: step.NodeID, Err: err}
	}

	steps = append(steps, &models.ExecutionStep{
		SessionID: step.SessionID,
		NodeID:    step.NodeID,
		NodeType:  step.NodeType,
		Label:     step.Label,
		Status:    models.StepRunning,
		Config:    step.Config,
		Preview:   step.Preview,
		StartedAt: time.Now().UTC(),
	})

	if err := er.store.write(stepsCollection, step.SessionID, steps); err != nil {
		return &persistence.ExecutionError{Op: "RecordStep", SessionID: step.SessionID, NodeID: step.NodeID, Err: err}
	}

	return nil
}

// CompleteStep updates the latest running entry of the node.
func (er *ExecutionRepository) CompleteStep(_ context.Context, completion models.StepCompletion) error {
	er.store.mu.Lock()
	defer er.store.mu.Unlock()

	steps, err := er.stepsLocked(completion.SessionID)
	if err != nil {
		return &persistence.ExecutionError{Op: "CompleteStep", SessionID: completion.SessionID, NodeID: completion.NodeID, Err: err}
	}

	for i := len(steps) - 1; i >= 0; i-- {
		if steps[i].NodeID != completion.NodeID || steps[i].Status != models.StepRunning {
			continue
		}

		steps[i].Apply(completion, time.Now().UTC())

		if err := er.store.write(stepsCollection, completion.SessionID, steps); err != nil {
			return &persistence.ExecutionError{Op: "CompleteStep", SessionID: completion.SessionID, NodeID: completion.NodeID, Err: err}
		}

		return nil
	}

	return &persistence.ExecutionError{Op: "CompleteStep", SessionID: completion.SessionID, NodeID: completion.NodeID, Err: persistence.ErrStepNotFound}
}

func (er *ExecutionRepository) Steps(_ context.Context, sessionID string) ([]*models.ExecutionStep, error) {
	er.store.mu.RLock()
	defer er.store.mu.RUnlock()

	return er.stepsLocked(sessionID)
}

func (er *ExecutionRepository) stepsLocked(sessionID string) ([]*models.ExecutionStep, error) {
	var steps []*models.ExecutionStep

	if _, err := er.store.read(stepsCollection, sessionID, &steps); err != nil {
		return nil, err
	}

	return steps, nil
}
