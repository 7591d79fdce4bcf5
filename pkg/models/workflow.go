// Package models defines the core domain models for document routing workflows.
package models

// Workflow is a named graph of typed steps and the connections between them.
type Workflow struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	DocumentType string        `json:"documentType"`
	IsActive     bool          `json:"isActive"`
	Steps        []*Step       `json:"steps"`       // Ordered; order drives persisted ordinals
	Connections  []*Connection `json:"connections"` // Edges between step connectors
}

// NewWorkflow returns an empty workflow with non-nil step and connection slices.
func NewWorkflow() *Workflow {
	return &Workflow{
		Steps:       []*Step{},
		Connections: []*Connection{},
	}
}

// StepByID returns the step with the given id and its index in the step sequence.
func (w *Workflow) StepByID(id string) (*Step, int, bool) {
	for i, step := range w.Steps {
		if step.ID == id {
			return step, i, true
		}
	}

	return nil, -1, false
}

// ConnectionByID returns the connection with the given id and its index.
func (w *Workflow) ConnectionByID(id string) (*Connection, int, bool) {
	for i, connection := range w.Connections {
		if connection.ID == id {
			return connection, i, true
		}
	}

	return nil, -1, false
}

// Clone returns a deep copy of the workflow.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}

	clone := &Workflow{
		Name:         w.Name,
		Description:  w.Description,
		DocumentType: w.DocumentType,
		IsActive:     w.IsActive,
		Steps:        make([]*Step, 0, len(w.Steps)),
		Connections:  make([]*Connection, 0, len(w.Connections)),
	}

	for _, step := range w.Steps {
		clone.Steps = append(clone.Steps, step.Clone())
	}

	for _, connection := range w.Connections {
		c := *connection
		clone.Connections = append(clone.Connections, &c)
	}

	return clone
}
