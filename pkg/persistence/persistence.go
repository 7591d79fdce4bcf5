// Package persistence defines the storage contract for persisted workflows
// and the errors every storage backend reports.
package persistence

import (
	"context"

	"github.com/dukex/docflow/pkg/models"
)

// Client loads and stores workflows in their persisted form.
type Client interface {
	// Load returns the workflow stored under id, or ErrWorkflowNotFound.
	Load(ctx context.Context, id string) (*models.PersistedWorkflow, error)

	// Save stores workflow under id and returns the id it was stored under.
	// An empty id creates a new workflow with a generated id.
	Save(ctx context.Context, id string, workflow *models.PersistedWorkflow) (string, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
