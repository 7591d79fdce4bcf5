package redis_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	docflowredis "github.com/dukex/docflow/pkg/persistence/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) (*docflowredis.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := docflowredis.NewPersistence(ctx, logger, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = p.Close(ctx)
		_ = container.Terminate(ctx)

		cancel()
	})

	return p, ctx
}

func TestPersistence_SaveAndLoad(t *testing.T) {
	p, ctx := setupRedis(t)

	workflow := &models.PersistedWorkflow{
		Name:         "Contracts",
		DocumentType: "contract",
		Steps: []models.PersistedStep{
			{Type: models.StepTypeUpload, Name: "Upload 1", Config: json.RawMessage(`{}`)},
			{Type: models.StepTypeArchive, Name: "Archive 1", Config: json.RawMessage(`{}`)},
		},
		Connections: []models.PersistedConnection{{
			Source: models.Endpoint{StepIndex: 0, Connector: "default"},
			Target: models.Endpoint{StepIndex: 1, Connector: "default"},
		}},
	}

	id, err := p.Save(ctx, "", workflow)
	require.NoError(t, err)

	loaded, err := p.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, loaded.ID)
	assert.Equal(t, "Contracts", loaded.Name)
	assert.Len(t, loaded.Steps, 2)
	assert.Equal(t, workflow.Connections, loaded.Connections)

	ids, err := p.IDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, id)

	assert.NoError(t, p.HealthCheck(ctx))
}

func TestPersistence_LoadMissing(t *testing.T) {
	p, ctx := setupRedis(t)

	_, err := p.Load(ctx, "missing")

	assert.True(t, persistence.IsWorkflowNotFound(err))
}
