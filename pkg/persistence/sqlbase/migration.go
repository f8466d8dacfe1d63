// Package sqlbase holds the schema migrator shared by SQL backends.
package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// migrationLockID keys the advisory lock held while migrating, so binaries
// starting together against one database apply each version once.
const migrationLockID = 0x63726561

var (
	ErrDuplicateVersion = errors.New("duplicate migration version")
	ErrInvalidVersion   = errors.New("migration versions must be positive")
)

// Migration is one forward-only schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

type Migrator struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations []Migration
}

// NewMigrator sorts migrations by version and rejects duplicates.
func NewMigrator(logger *slog.Logger, db *sql.DB, migrations []Migration) (*Migrator, error) {
	sorted := slices.Clone(migrations)
	slices.SortFunc(sorted, func(a, b Migration) int { return a.Version - b.Version })

	for i, m := range sorted {
		if m.Version <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, m.Version)
		}

		if i > 0 && sorted[i-1].Version == m.Version {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateVersion, m.Version)
		}
	}

	return &Migrator{
		db:         db,
		logger:     logger.With("module", "migrator"),
		migrations: sorted,
	}, nil
}

// Latest returns the highest known version, zero when there are none.
func (m *Migrator) Latest() int {
	if len(m.migrations) == 0 {
		return 0
	}

	return m.migrations[len(m.migrations)-1].Version
}

// Pending returns the migrations newer than applied.
func (m *Migrator) Pending(applied int) []Migration {
	idx, _ := slices.BinarySearchFunc(m.migrations, applied+1, func(mg Migration, v int) int { return mg.Version - v })

	return m.migrations[idx:]
}

// Up applies every pending migration, each in its own transaction, while
// holding a session advisory lock.
func (m *Migrator) Up(ctx context.Context) error {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("failed to take migration lock: %w", err)
	}

	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			m.logger.WarnContext(ctx, "Failed to release migration lock", "error", err)
		}
	}()

	_, err = conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var applied int
	if err := conn.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&applied); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	pending := m.Pending(applied)
	if len(pending) == 0 {
		m.logger.DebugContext(ctx, "Schema up to date", "version", applied)

		return nil
	}

	for _, migration := range pending {
		if err := m.apply(ctx, conn, migration); err != nil {
			return err
		}
	}

	m.logger.InfoContext(ctx, "Schema migrated", "from", applied, "to", m.Latest())

	return nil
}

func (m *Migrator) apply(ctx context.Context, conn *sql.Conn, migration Migration) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", migration.Version, err)
	}

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Name, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", migration.Version, migration.Name); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("migration %d: record: %w", migration.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", migration.Version, err)
	}

	m.logger.InfoContext(ctx, "Applied migration", "version", migration.Version, "name", migration.Name)

	return nil
}
