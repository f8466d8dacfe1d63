package sqlbase_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/chainreact/chainreact/pkg/persistence/sqlbase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestMigrator_OrdersAndFiltersPending(t *testing.T) {
	t.Parallel()

	m, err := sqlbase.NewMigrator(logger(), nil, []sqlbase.Migration{
		{Version: 3, Name: "c"},
		{Version: 1, Name: "a"},
		{Version: 2, Name: "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, m.Latest())

	names := func(ms []sqlbase.Migration) []string {
		out := make([]string, 0, len(ms))
		for _, mg := range ms {
			out = append(out, mg.Name)
		}

		return out
	}

	assert.Equal(t, []string{"a", "b", "c"}, names(m.Pending(0)))
	assert.Equal(t, []string{"c"}, names(m.Pending(2)))
	assert.Empty(t, m.Pending(3))
}

func TestMigrator_RejectsBadVersions(t *testing.T) {
	t.Parallel()

	_, err := sqlbase.NewMigrator(logger(), nil, []sqlbase.Migration{{Version: 1}, {Version: 1}})
	require.ErrorIs(t, err, sqlbase.ErrDuplicateVersion)

	_, err = sqlbase.NewMigrator(logger(), nil, []sqlbase.Migration{{Version: 0}})
	require.ErrorIs(t, err, sqlbase.ErrInvalidVersion)

	empty, err := sqlbase.NewMigrator(logger(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Latest())
}
