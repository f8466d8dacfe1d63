package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("workflow error unwraps to sentinel", func(t *testing.T) {
		err := persistence.NewWorkflowError("ByID", "workflow-123", persistence.ErrWorkflowNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(err))
		assert.True(t, errors.Is(err, persistence.ErrWorkflowNotFound))
		assert.Contains(t, err.Error(), "ByID")
		assert.Contains(t, err.Error(), "workflow-123")
	})

	t.Run("subscription error names the channel when id is unknown", func(t *testing.T) {
		err := &persistence.SubscriptionError{Op: "ByChannel", ChannelID: "chan-1", Err: persistence.ErrSubscriptionNotFound}

		assert.True(t, persistence.IsSubscriptionNotFound(err))
		assert.Contains(t, err.Error(), "channel chan-1")
	})

	t.Run("cursor conflict survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("advance: %w", &persistence.SubscriptionError{
			Op:             "AdvanceCursor",
			SubscriptionID: "sub-1",
			Err:            persistence.ErrCursorConflict,
		})

		assert.True(t, persistence.IsCursorConflict(err))
		assert.False(t, persistence.IsSubscriptionNotFound(err))
	})

	t.Run("execution error includes node", func(t *testing.T) {
		err := &persistence.ExecutionError{Op: "CompleteStep", SessionID: "s-1", NodeID: "n-1", Err: persistence.ErrStepNotFound}

		assert.ErrorIs(t, err, persistence.ErrStepNotFound)
		assert.Contains(t, err.Error(), "node n-1 in session s-1")
	})
}
