package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				access_roles TEXT[] NOT NULL DEFAULT '{}',
				is_enabled BOOLEAN NOT NULL DEFAULT true,
				definition JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_access_roles ON workflows USING GIN (access_roles);
			CREATE INDEX idx_workflows_is_enabled ON workflows(is_enabled);

			CREATE TABLE chat_sessions (
				context_id VARCHAR(255) PRIMARY KEY,
				conversation_name VARCHAR(255) NOT NULL,
				user_id VARCHAR(255) NOT NULL,
				agent_name VARCHAR(255) NOT NULL DEFAULT '',
				conversation JSONB NOT NULL DEFAULT '[]',
				current_state JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(50) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_chat_sessions_user_id ON chat_sessions(user_id);
		`,
		2: `
			CREATE TABLE prompt_templates (
				template_type VARCHAR(100) NOT NULL,
				name VARCHAR(255) NOT NULL,
				content TEXT NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (template_type, name)
			);

			CREATE TABLE agent_interaction_traces (
				id VARCHAR(255) PRIMARY KEY,
				context_id VARCHAR(255) NOT NULL,
				task_id VARCHAR(255) NOT NULL DEFAULT '',
				workflow_id VARCHAR(255) NOT NULL DEFAULT '',
				step_id VARCHAR(255) NOT NULL DEFAULT '',
				action_name VARCHAR(255) NOT NULL,
				input JSONB,
				output JSONB,
				status VARCHAR(50) NOT NULL,
				error TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				duration_ms BIGINT NOT NULL DEFAULT 0
			);

			CREATE INDEX idx_agent_interaction_traces_context_id ON agent_interaction_traces(context_id);
		`,
	}
}
