// Package file provides file-based persistence for workflows. Each workflow
// is a JSON document under <root>/workflows/<id>.json.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/google/uuid"
)

// Persistence implements persistence.Client on the file system.
type Persistence struct {
	root string
}

// NewPersistence creates a file persistence rooted at root. A file:// prefix
// is stripped.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.TrimPrefix(root, "file://")}
}

// Load reads the workflow stored under id.
func (fp *Persistence) Load(_ context.Context, id string) (*models.PersistedWorkflow, error) {
	filePath, err := fp.workflowPath(id)
	if err != nil {
		return nil, persistence.NewWorkflowError("Load", id, err)
	}

	body, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewWorkflowError("Load", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("Load", id, fmt.Errorf("failed to read workflow: %w", err))
	}

	var workflow models.PersistedWorkflow

	err = json.Unmarshal(body, &workflow)
	if err != nil {
		return nil, persistence.NewWorkflowError("Load", id, fmt.Errorf("failed to unmarshal workflow: %w", err))
	}

	workflow.ID = id

	return &workflow, nil
}

// Save writes the workflow under id, replacing any previous document. An
// empty id stores a new workflow under a generated id.
func (fp *Persistence) Save(_ context.Context, id string, workflow *models.PersistedWorkflow) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	filePath, err := fp.workflowPath(id)
	if err != nil {
		return "", persistence.NewWorkflowError("Save", id, err)
	}

	err = os.MkdirAll(filepath.Dir(filePath), 0750)
	if err != nil {
		return "", persistence.NewWorkflowError("Save", id, fmt.Errorf("failed to create workflows directory: %w", err))
	}

	document := *workflow
	document.ID = id

	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return "", persistence.NewWorkflowError("Save", id, fmt.Errorf("failed to marshal workflow: %w", err))
	}

	err = writeFile(filePath, data)
	if err != nil {
		return "", persistence.NewWorkflowError("Save", id, err)
	}

	return id, nil
}

// HealthCheck checks that the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	info, err := os.Stat(fp.root)
	if err != nil {
		return fmt.Errorf("file persistence root unavailable: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("file persistence root %s is not a directory", fp.root)
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

func (fp *Persistence) workflowPath(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", persistence.ErrInvalidWorkflowID, id)
	}

	return filepath.Join(fp.root, "workflows", id+".json"), nil
}

// writeFile replaces path through a temporary file so that readers never see
// a partial document.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".workflow-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("failed to write workflow: %w", err)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return fmt.Errorf("failed to replace workflow: %w", err)
	}

	return nil
}
