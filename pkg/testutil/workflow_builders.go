// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"encoding/json"

	"github.com/dukex/docflow/pkg/models"
)

// CreateTestPersistedWorkflow creates a valid persisted workflow
// (upload -> approval -> archive, rejections notify the uploader) that can be
// overridden.
func CreateTestPersistedWorkflow(overrides ...func(*models.PersistedWorkflow)) *models.PersistedWorkflow {
	workflow := &models.PersistedWorkflow{
		Name:         "Test Workflow",
		Description:  "Upload, approve and archive",
		DocumentType: "invoice",
		IsActive:     true,
		Steps: []models.PersistedStep{
			{Type: models.StepTypeUpload, Name: "Upload 1", Config: json.RawMessage(`{}`), Position: models.Position{X: 0, Y: 0}},
			{Type: models.StepTypeApproval, Name: "Approval 1", Config: json.RawMessage(`{"assignedTo":{"kind":"role","value":"finance"}}`), Position: models.Position{X: 0, Y: 200}},
			{Type: models.StepTypeArchive, Name: "Archive 1", Config: json.RawMessage(`{}`), Position: models.Position{X: -150, Y: 400}},
			{Type: models.StepTypeNotification, Name: "Notification 1", Config: json.RawMessage(`{"text":"Rejected","recipientKind":"document_creator"}`), Position: models.Position{X: 150, Y: 400}},
		},
		Connections: []models.PersistedConnection{
			PersistedConnection(0, "default", 1),
			PersistedConnection(1, "approved", 2),
			PersistedConnection(1, "rejected", 3),
		},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// PersistedConnection builds a connection into the default input of target.
func PersistedConnection(source int, connector string, target int) models.PersistedConnection {
	return models.PersistedConnection{
		Source: models.Endpoint{StepIndex: source, Connector: connector},
		Target: models.Endpoint{StepIndex: target, Connector: models.DefaultConnector},
	}
}

// WithName sets the workflow name.
func WithName(name string) func(*models.PersistedWorkflow) {
	return func(w *models.PersistedWorkflow) {
		w.Name = name
	}
}

// WithID sets the workflow id.
func WithID(id string) func(*models.PersistedWorkflow) {
	return func(w *models.PersistedWorkflow) {
		w.ID = id
	}
}

// WithConnections replaces the workflow connections.
func WithConnections(connections ...models.PersistedConnection) func(*models.PersistedWorkflow) {
	return func(w *models.PersistedWorkflow) {
		w.Connections = connections
	}
}
