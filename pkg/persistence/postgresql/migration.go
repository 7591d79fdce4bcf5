package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				document_type VARCHAR(255) NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- Steps are addressed by their ordinal within the workflow
			CREATE TABLE workflow_steps (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				ordinal INT NOT NULL,
				step_type VARCHAR(50) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				config JSONB NOT NULL DEFAULT '{}',
				position_x DOUBLE PRECISION NOT NULL DEFAULT 0,
				position_y DOUBLE PRECISION NOT NULL DEFAULT 0,
				PRIMARY KEY (workflow_id, ordinal)
			);

			CREATE TABLE workflow_connections (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				position INT NOT NULL,
				source_index INT NOT NULL,
				source_connector VARCHAR(255) NOT NULL,
				target_index INT NOT NULL,
				target_connector VARCHAR(255) NOT NULL,
				PRIMARY KEY (workflow_id, position),
				FOREIGN KEY (workflow_id, source_index) REFERENCES workflow_steps(workflow_id, ordinal) ON DELETE CASCADE,
				FOREIGN KEY (workflow_id, target_index) REFERENCES workflow_steps(workflow_id, ordinal) ON DELETE CASCADE
			);
		`,
		2: `
			CREATE INDEX idx_workflows_document_type ON workflows(document_type);
			CREATE INDEX idx_workflows_is_active ON workflows(is_active);
			CREATE INDEX idx_workflow_steps_type ON workflow_steps(step_type);
		`,
	}
}
