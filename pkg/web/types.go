// Package web provides HTTP request and response types for the designer API.
package web

import (
	"github.com/dukex/docflow/pkg/designer"
	"github.com/dukex/docflow/pkg/models"
)

// CreateSessionRequest represents the optional body for opening a session.
// When WorkflowID is set the stored workflow is loaded into the new session.
type CreateSessionRequest struct {
	WorkflowID string `json:"workflowId"`
}

// LoadWorkflowRequest represents the body for loading a stored workflow into
// an open session.
type LoadWorkflowRequest struct {
	WorkflowID string `json:"workflowId" validate:"required"`
}

// UpdateWorkflowRequest represents a partial update of workflow metadata.
type UpdateWorkflowRequest struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	DocumentType *string `json:"documentType,omitempty"`
	IsActive     *bool   `json:"isActive,omitempty"`
}

// AddStepRequest represents the body for adding a step to the canvas.
type AddStepRequest struct {
	Type     string          `json:"type"     validate:"required"`
	Position models.Position `json:"position"`
}

// UpdateStepRequest represents a partial update of a step's name and description.
type UpdateStepRequest struct {
	Name        *string `json:"name,omitempty"        validate:"omitempty,min=1"`
	Description *string `json:"description,omitempty"`
}

// AddFormFieldRequest represents the body for appending a field to a form step.
type AddFormFieldRequest struct {
	Name         string   `json:"name"                   validate:"required"`
	Label        string   `json:"label"                  validate:"required"`
	FieldType    string   `json:"fieldType"              validate:"required,oneof=text number date select checkbox textarea file"`
	Required     bool     `json:"required"`
	Options      []string `json:"options,omitempty"`
	DefaultValue any      `json:"defaultValue,omitempty"`
}

// FormField converts the request into a form field.
func (r AddFormFieldRequest) FormField() models.FormField {
	return models.FormField{
		Name:         r.Name,
		Label:        r.Label,
		FieldType:    models.FieldType(r.FieldType),
		Required:     r.Required,
		Options:      r.Options,
		DefaultValue: r.DefaultValue,
	}
}

// ConnectRequest represents the body for connecting two steps.
type ConnectRequest struct {
	SourceStepID    string `json:"sourceStepId"    validate:"required"`
	SourceConnector string `json:"sourceConnector" validate:"required"`
	TargetStepID    string `json:"targetStepId"    validate:"required"`
	TargetConnector string `json:"targetConnector"`
}

// StoreWorkflowRequest represents a workflow in wire form sent to the
// storage endpoints.
type StoreWorkflowRequest struct {
	Name         string                       `json:"name"         validate:"required"`
	Description  string                       `json:"description"`
	DocumentType string                       `json:"documentType"`
	IsActive     bool                         `json:"isActive"`
	Steps        []models.PersistedStep       `json:"steps"`
	Connections  []models.PersistedConnection `json:"connections"`
}

// Persisted converts the request into the persisted form.
func (r StoreWorkflowRequest) Persisted() *models.PersistedWorkflow {
	persisted := &models.PersistedWorkflow{
		Name:         r.Name,
		Description:  r.Description,
		DocumentType: r.DocumentType,
		IsActive:     r.IsActive,
		Steps:        r.Steps,
		Connections:  r.Connections,
	}

	if persisted.Steps == nil {
		persisted.Steps = []models.PersistedStep{}
	}

	if persisted.Connections == nil {
		persisted.Connections = []models.PersistedConnection{}
	}

	return persisted
}

// SessionResponse represents a session with the workflow it holds.
type SessionResponse struct {
	designer.Status

	Workflow *models.Workflow `json:"workflow"`
}

// SaveResponse represents the result of saving a session.
type SaveResponse struct {
	WorkflowID string `json:"workflowId"`
}

// StoredWorkflowResponse represents the result of storing a workflow directly.
type StoredWorkflowResponse struct {
	ID string `json:"id"`
}
