package postgresql

// migrations returns the ordered schema migrations for the workflow engine.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT PRIMARY KEY,
				event_id TEXT NOT NULL,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_type TEXT NOT NULL,
				trigger_cron TEXT NOT NULL DEFAULT '',
				trigger_conditions JSONB NOT NULL DEFAULT '[]',
				actions JSONB NOT NULL DEFAULT '[]',
				status TEXT NOT NULL,
				execution_count BIGINT NOT NULL DEFAULT 0,
				last_executed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_event_id ON workflows (event_id);
			CREATE INDEX IF NOT EXISTS idx_workflows_status ON workflows (status);

			CREATE TABLE IF NOT EXISTS workflow_runs (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL REFERENCES workflows (id) ON DELETE CASCADE,
				guest_ids JSONB NOT NULL DEFAULT '[]',
				status TEXT NOT NULL,
				current_action_index INTEGER NOT NULL DEFAULT 0,
				resume_at TIMESTAMP WITH TIME ZONE,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				error TEXT NOT NULL DEFAULT '',
				outcomes JSONB NOT NULL DEFAULT '[]'
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_runs_workflow_id ON workflow_runs (workflow_id);
			CREATE INDEX IF NOT EXISTS idx_workflow_runs_resume ON workflow_runs (status, resume_at);

			CREATE TABLE IF NOT EXISTS trigger_schedules (
				id TEXT NOT NULL,
				workflow_id TEXT PRIMARY KEY REFERENCES workflows (id) ON DELETE CASCADE,
				cron_expression TEXT NOT NULL,
				next_due_at TIMESTAMP WITH TIME ZONE NOT NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_trigger_schedules_due ON trigger_schedules (active, next_due_at);

			CREATE TABLE IF NOT EXISTS trigger_marks (
				workflow_id TEXT NOT NULL,
				guest_id TEXT NOT NULL,
				marked_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (workflow_id, guest_id)
			);
		`,
	}
}
