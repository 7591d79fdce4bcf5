package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

// GetByID returns the workflow stored under id, or nil when there is none.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.PersistedWorkflow, error) {
	query := `
		SELECT
			id
		  , name
		  , description
		  , document_type
		  , is_active
		FROM workflows
		WHERE id = $1
	`

	var workflow models.PersistedWorkflow

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.DocumentType,
		&workflow.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	workflow.Steps, err = r.loadSteps(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.Connections, err = r.loadConnections(ctx, id)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

// Save replaces the workflow stored under id with workflow. An empty id
// creates a new row with a generated id.
func (r *WorkflowRepository) Save(ctx context.Context, id string, workflow *models.PersistedWorkflow) (string, error) {
	if id == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		id = generated.String()
	}

	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	workflowQuery := `
		INSERT INTO workflows (id, name, description, document_type, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			document_type = EXCLUDED.document_type,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err = tx.ExecContext(ctx, workflowQuery,
		id,
		workflow.Name,
		workflow.Description,
		workflow.DocumentType,
		workflow.IsActive,
		now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save workflow base: %w", err)
	}

	// Connections reference steps, so they go first
	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_connections WHERE workflow_id = $1", id)
	if err != nil {
		return "", fmt.Errorf("failed to delete existing connections: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM workflow_steps WHERE workflow_id = $1", id)
	if err != nil {
		return "", fmt.Errorf("failed to delete existing steps: %w", err)
	}

	err = r.saveSteps(ctx, tx, id, workflow.Steps)
	if err != nil {
		return "", err
	}

	err = r.saveConnections(ctx, tx, id, workflow.Connections)
	if err != nil {
		return "", err
	}

	err = tx.Commit()
	if err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

func (r *WorkflowRepository) saveSteps(ctx context.Context, tx *sql.Tx, workflowID string, steps []models.PersistedStep) error {
	query := `
		INSERT INTO workflow_steps (workflow_id, ordinal, step_type, name, description, config, position_x, position_y)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for ordinal, step := range steps {
		config := []byte(step.Config)
		if len(config) == 0 || string(config) == "null" {
			config = []byte("{}")
		}

		_, err := tx.ExecContext(ctx, query,
			workflowID,
			ordinal,
			step.Type,
			step.Name,
			step.Description,
			config,
			step.Position.X,
			step.Position.Y,
		)
		if err != nil {
			return fmt.Errorf("failed to save step %d: %w", ordinal, err)
		}
	}

	return nil
}

func (r *WorkflowRepository) saveConnections(ctx context.Context, tx *sql.Tx, workflowID string, connections []models.PersistedConnection) error {
	query := `
		INSERT INTO workflow_connections (workflow_id, position, source_index, source_connector, target_index, target_connector)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for position, connection := range connections {
		_, err := tx.ExecContext(ctx, query,
			workflowID,
			position,
			connection.Source.StepIndex,
			connection.Source.Connector,
			connection.Target.StepIndex,
			connection.Target.Connector,
		)
		if err != nil {
			return fmt.Errorf("failed to save connection %d: %w", position, err)
		}
	}

	return nil
}

func (r *WorkflowRepository) loadSteps(ctx context.Context, workflowID string) ([]models.PersistedStep, error) {
	query := `
		SELECT step_type, name, description, config, position_x, position_y
		FROM workflow_steps
		WHERE workflow_id = $1
		ORDER BY ordinal
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow steps: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.Error("failed to close rows", "error", err)
		}
	}()

	steps := []models.PersistedStep{}

	for rows.Next() {
		var (
			step   models.PersistedStep
			config []byte
		)

		err := rows.Scan(&step.Type, &step.Name, &step.Description, &config, &step.Position.X, &step.Position.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}

		step.Config = json.RawMessage(config)
		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating steps: %w", err)
	}

	return steps, nil
}

func (r *WorkflowRepository) loadConnections(ctx context.Context, workflowID string) ([]models.PersistedConnection, error) {
	query := `
		SELECT source_index, source_connector, target_index, target_connector
		FROM workflow_connections
		WHERE workflow_id = $1
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow connections: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.Error("failed to close rows", "error", err)
		}
	}()

	connections := []models.PersistedConnection{}

	for rows.Next() {
		var connection models.PersistedConnection

		err := rows.Scan(
			&connection.Source.StepIndex,
			&connection.Source.Connector,
			&connection.Target.StepIndex,
			&connection.Target.Connector,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}

		connections = append(connections, connection)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}

	return connections, nil
}
