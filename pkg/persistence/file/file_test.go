package file_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWorkflow() *models.PersistedWorkflow {
	return &models.PersistedWorkflow{
		Name:         "Invoices",
		Description:  "Invoice approval",
		DocumentType: "invoice",
		IsActive:     true,
		Steps: []models.PersistedStep{
			{Type: models.StepTypeUpload, Name: "Upload 1", Config: json.RawMessage(`{}`)},
			{Type: models.StepTypeApproval, Name: "Approval 1", Config: json.RawMessage(`{"assignedTo":{"kind":"role","value":"finance"}}`), Position: models.Position{Y: 200}},
		},
		Connections: []models.PersistedConnection{{
			Source: models.Endpoint{StepIndex: 0, Connector: "default"},
			Target: models.Endpoint{StepIndex: 1, Connector: "default"},
		}},
	}
}

func TestPersistence_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	p := file.NewPersistence("file://" + root)

	id, err := p.Save(ctx, "", sampleWorkflow())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.FileExists(t, filepath.Join(root, "workflows", id+".json"))

	loaded, err := p.Load(ctx, id)
	require.NoError(t, err)

	want := sampleWorkflow()
	want.ID = id
	assert.Equal(t, want.Name, loaded.Name)
	assert.Equal(t, want.ID, loaded.ID)
	assert.Equal(t, want.Connections, loaded.Connections)
	require.Len(t, loaded.Steps, 2)
	assert.JSONEq(t, string(want.Steps[1].Config), string(loaded.Steps[1].Config))
}

func TestPersistence_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())

	id, err := p.Save(ctx, "invoices", sampleWorkflow())
	require.NoError(t, err)
	assert.Equal(t, "invoices", id)

	updated := sampleWorkflow()
	updated.Name = "Invoices v2"
	updated.Steps = updated.Steps[:1]
	updated.Connections = []models.PersistedConnection{}

	_, err = p.Save(ctx, id, updated)
	require.NoError(t, err)

	loaded, err := p.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Invoices v2", loaded.Name)
	assert.Len(t, loaded.Steps, 1)
	assert.Empty(t, loaded.Connections)
}

func TestPersistence_LoadMissing(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	_, err := p.Load(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestPersistence_RejectsUnsafeIDs(t *testing.T) {
	ctx := context.Background()
	p := file.NewPersistence(t.TempDir())

	for _, id := range []string{"../escape", "a/b", ".hidden"} {
		_, err := p.Save(ctx, id, sampleWorkflow())
		assert.ErrorIs(t, err, persistence.ErrInvalidWorkflowID, id)

		_, err = p.Load(ctx, id)
		assert.ErrorIs(t, err, persistence.ErrInvalidWorkflowID, id)
	}
}

func TestPersistence_LoadCorruptDocument(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "workflows"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "workflows", "broken.json"), []byte("{not json"), 0600))

	_, err := file.NewPersistence(root).Load(context.Background(), "broken")

	require.Error(t, err)
	assert.False(t, persistence.IsWorkflowNotFound(err))
}

func TestPersistence_HealthCheck(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, file.NewPersistence(t.TempDir()).HealthCheck(ctx))
	assert.Error(t, file.NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(ctx))
	assert.NoError(t, file.NewPersistence(t.TempDir()).Close(ctx))
}
