package postgresql

import "github.com/chainreact/chainreact/pkg/persistence/sqlbase"

func migrations() []sqlbase.Migration {
	return []sqlbase.Migration{
		{Version: 1, Name: "workflows", SQL: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL DEFAULT 'draft',
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				variables JSONB NOT NULL DEFAULT '{}',
				configuration JSONB NOT NULL DEFAULT '{}',
				owner VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_owner ON workflows(owner) WHERE deleted_at IS NULL;

			CREATE TABLE workflow_triggers (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				node_id VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(100) NOT NULL,
				provider VARCHAR(100) NOT NULL DEFAULT '',
				owner_id VARCHAR(255) NOT NULL,
				PRIMARY KEY (workflow_id, node_id)
			);

			CREATE INDEX idx_workflow_triggers_lookup ON workflow_triggers(provider, owner_id, trigger_type);
		`},
		{Version: 2, Name: "watch_subscriptions", SQL: `
			CREATE TABLE watch_subscriptions (
				id VARCHAR(255) PRIMARY KEY,
				account_id VARCHAR(255) NOT NULL,
				integration_id VARCHAR(255) NOT NULL,
				provider VARCHAR(100) NOT NULL,
				channel_id VARCHAR(255) NOT NULL UNIQUE,
				cursor TEXT NOT NULL DEFAULT '',
				scope_metadata JSONB NOT NULL DEFAULT '{}',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				expires_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_watch_subscriptions_scope
				ON watch_subscriptions(provider, account_id, integration_id, updated_at DESC);
		`},
		{Version: 3, Name: "execution_history", SQL: `
			CREATE TABLE execution_sessions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				owner_id VARCHAR(255) NOT NULL DEFAULT '',
				trigger_node_id VARCHAR(255) NOT NULL DEFAULT '',
				trigger_source VARCHAR(50) NOT NULL,
				input_data JSONB NOT NULL DEFAULT '{}',
				options JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(50) NOT NULL,
				error_message TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_execution_sessions_workflow ON execution_sessions(workflow_id, created_at DESC);
			CREATE INDEX idx_execution_sessions_created ON execution_sessions(created_at);

			CREATE TABLE execution_steps (
				id BIGSERIAL PRIMARY KEY,
				session_id VARCHAR(255) NOT NULL,
				node_id VARCHAR(255) NOT NULL,
				node_type VARCHAR(100) NOT NULL,
				label VARCHAR(255) NOT NULL DEFAULT '',
				status VARCHAR(50) NOT NULL,
				config JSONB,
				preview JSONB,
				output JSONB,
				error_message TEXT NOT NULL DEFAULT '',
				error_detail JSONB,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_execution_steps_session ON execution_steps(session_id, id);
		`},
		{Version: 4, Name: "webhook_subscriptions", SQL: `
			CREATE TABLE webhook_subscriptions (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				owner_id VARCHAR(255) NOT NULL DEFAULT '',
				event_types JSONB NOT NULL DEFAULT '[]',
				target_url TEXT NOT NULL,
				secret_key TEXT NOT NULL DEFAULT '',
				headers JSONB NOT NULL DEFAULT '{}',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`},
	}
}
