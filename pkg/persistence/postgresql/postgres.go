// Package postgresql provides the PostgreSQL persistence backend.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chainreact/chainreact/pkg/persistence"
	"github.com/chainreact/chainreact/pkg/persistence/sqlbase"

	// registers the "postgres" driver.
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db            *sql.DB
	logger        *slog.Logger
	workflows     *WorkflowRepository
	subscriptions *SubscriptionRepository
	executions    *ExecutionRepository
	webhooks      *WebhookRepository
}

// NewPersistence opens the database, verifies the connection and runs migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrator, err := sqlbase.NewMigrator(logger, database, migrations())
	if err != nil {
		return nil, err
	}

	if err := migrator.Up(ctx); err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:            database,
		logger:        logger,
		workflows:     NewWorkflowRepository(database, logger),
		subscriptions: NewSubscriptionRepository(database, logger),
		executions:    NewExecutionRepository(database, logger),
		webhooks:      NewWebhookRepository(database, logger),
	}, nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository         { return p.workflows }
func (p *Persistence) Subscriptions() persistence.SubscriptionRepository { return p.subscriptions }
func (p *Persistence) Executions() persistence.ExecutionRepository       { return p.executions }
func (p *Persistence) Webhooks() persistence.WebhookRepository           { return p.webhooks }

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// jsonParam encodes a JSONB parameter as text. A null value becomes fallback,
// or SQL NULL when fallback is empty.
func jsonParam(value any, fallback string) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	if string(data) == "null" {
		if fallback == "" {
			return nil, nil
		}

		return fallback, nil
	}

	return string(data), nil
}

// unmarshalJSON decodes a nullable JSONB column.
func unmarshalJSON(data []byte, out any) error {
	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, out)
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
