// Package redis provides Redis persistence for workflows. Each workflow is a
// JSON document under its own key; the set of stored ids is kept alongside.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "docflow:workflow:"
	indexKey  = "docflow:workflows"
)

// Persistence implements persistence.Client on Redis.
type Persistence struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewPersistence connects to the Redis server at redisURL
// (redis://[user:password@]host:port/db).
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return NewPersistenceWithClient(client, logger), nil
}

// NewPersistenceWithClient wraps an existing client.
func NewPersistenceWithClient(client redis.UniversalClient, logger *slog.Logger) *Persistence {
	return &Persistence{client: client, logger: logger}
}

// Load returns the workflow stored under id.
func (p *Persistence) Load(ctx context.Context, id string) (*models.PersistedWorkflow, error) {
	if id == "" {
		return nil, persistence.NewWorkflowError("Load", id, persistence.ErrInvalidWorkflowID)
	}

	body, err := p.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewWorkflowError("Load", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("Load", id, fmt.Errorf("failed to fetch workflow: %w", err))
	}

	var workflow models.PersistedWorkflow

	err = json.Unmarshal(body, &workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("Load", id, fmt.Errorf("failed to unmarshal workflow: %w", err))
	}

	workflow.ID = id

	return &workflow, nil
}

// Save stores the workflow under id, creating it when id is empty.
func (p *Persistence) Save(ctx context.Context, id string, workflow *models.PersistedWorkflow) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	document := *workflow
	document.ID = id

	data, err := json.Marshal(document)
	if err != nil {
		return "", persistence.NewWorkflowError("Save", id, fmt.Errorf("failed to marshal workflow: %w", err))
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keyPrefix+id, data, 0)
		pipe.SAdd(ctx, indexKey, id)

		return nil
	})
	if err != nil {
		return "", persistence.NewWorkflowError("Save", id, fmt.Errorf("failed to store workflow: %w", err))
	}

	p.logger.DebugContext(ctx, "Stored workflow", "workflow_id", id, "bytes", len(data))

	return id, nil
}

// IDs returns the ids of every stored workflow.
func (p *Persistence) IDs(ctx context.Context) ([]string, error) {
	ids, err := p.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return ids, nil
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the client.
func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}
