package registry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/chainreact/chainreact/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopInvoker struct{}

func (nopInvoker) Invoke(context.Context, protocol.ActionCall) (map[string]any, error) {
	return map[string]any{}, nil
}

func newTestRegistry(invoker protocol.ActionInvoker) *Registry {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	reg := NewRegistry(logger)
	reg.RegisterDefaultNodes(logger, invoker)

	return reg
}

func TestRegisterDefaultNodes(t *testing.T) {
	reg := newTestRegistry(nopInvoker{})

	for _, nodeType := range []string{
		models.NodeTypeManualTrigger,
		models.NodeTypeScheduleTrigger,
		models.NodeTypeNewFolderInFolder,
		models.NodeTypeNewRow,
		models.NodeTypeConditional,
		models.NodeTypeSwitch,
		models.NodeTypeTransform,
		models.NodeTypeLog,
		models.NodeTypeApproval,
		models.NodeTypeHTTPRequest,
		"gmail_send_email",
		"sheets_append_row",
	} {
		_, ok := reg.Factory(nodeType)
		assert.True(t, ok, nodeType)
	}

	for _, kind := range models.NodeKinds() {
		_, ok := reg.Factory(kind.Type)
		assert.True(t, ok, "catalog kind %s has no factory", kind.Type)
	}

	types := reg.Types()
	assert.IsNonDecreasing(t, types)
	assert.Len(t, reg.Factories(), len(types))
}

func TestRegisterDefaultNodes_WithoutInvoker(t *testing.T) {
	reg := newTestRegistry(nil)

	_, ok := reg.Factory("gmail_send_email")
	assert.False(t, ok)

	_, ok = reg.Factory(models.NodeTypeHTTPRequest)
	assert.True(t, ok)
}

func TestValidateConfig(t *testing.T) {
	reg := newTestRegistry(nopInvoker{})

	tests := []struct {
		name     string
		nodeType string
		config   map[string]any
		valid    bool
	}{
		{"http ok", models.NodeTypeHTTPRequest, map[string]any{"url": "https://example.com", "method": "POST"}, true},
		{"http missing url", models.NodeTypeHTTPRequest, map[string]any{"method": "GET"}, false},
		{"http bad method", models.NodeTypeHTTPRequest, map[string]any{"url": "https://example.com", "method": "FETCH"}, false},
		{"schedule missing cron", models.NodeTypeScheduleTrigger, nil, false},
		{"schedule ok", models.NodeTypeScheduleTrigger, map[string]any{"cron": "*/5 * * * *"}, true},
		{"manual empty", models.NodeTypeManualTrigger, nil, true},
		{"gmail missing subject", "gmail_send_email", map[string]any{"to": "a@example.com", "body": "x"}, false},
		{"gmail extras allowed", "gmail_send_email", map[string]any{"to": "a@example.com", "subject": "s", "body": "x", "cc": "b@example.com"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.ValidateConfig(tt.nodeType, tt.config)
			if tt.valid {
				assert.NoError(t, err)

				return
			}

			var configErr *ConfigError
			require.ErrorAs(t, err, &configErr)
			assert.Equal(t, tt.nodeType, configErr.NodeType)
			assert.NotEmpty(t, configErr.Problems)
		})
	}
}

func TestValidateConfig_UnknownType(t *testing.T) {
	reg := newTestRegistry(nil)

	err := reg.ValidateConfig("teleport", map[string]any{})
	assert.True(t, errors.Is(err, ErrUnknownNodeType))
}

func TestCreateNode(t *testing.T) {
	reg := newTestRegistry(nopInvoker{})
	ctx := context.Background()

	node, err := reg.CreateNode(ctx, models.NodeTypeHTTPRequest, "call", map[string]any{"url": "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, "call", node.ID())
	assert.Equal(t, models.NodeTypeHTTPRequest, node.Type())

	node, err = reg.CreateNode(ctx, models.NodeTypeManualTrigger, "start", nil)
	require.NoError(t, err)
	assert.Equal(t, models.NodeTypeManualTrigger, node.Type())

	_, err = reg.CreateNode(ctx, "teleport", "x", nil)
	assert.ErrorIs(t, err, ErrUnknownNodeType)

	_, err = reg.CreateNode(ctx, models.NodeTypeLog, "log", map[string]any{"message": "hi", "level": "loud"})
	assert.Error(t, err)
}
