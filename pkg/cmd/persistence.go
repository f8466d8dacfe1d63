package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/chainreact/chainreact/pkg/persistence/file"
	"github.com/chainreact/chainreact/pkg/persistence/postgresql"
)

// NewPersistence opens the backend named by the URL scheme: file://<dir> or
// postgres://.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	scheme, rest, found := strings.Cut(databaseURL, "://")
	if !found {
		return nil, fmt.Errorf("database url %q has no scheme", databaseURL)
	}

	switch scheme {
	case "file":
		if rest == "" {
			return nil, fmt.Errorf("file persistence needs a directory")
		}

		logger.InfoContext(ctx, "Using file persistence", "root", rest)

		return file.NewPersistence(rest), nil
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		logger.InfoContext(ctx, "Using PostgreSQL persistence")

		return p, nil
	default:
		return nil, fmt.Errorf("unsupported persistence provider: %s", scheme)
	}
}
