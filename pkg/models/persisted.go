package models

import "encoding/json"

// PersistedWorkflow is the wire form of a workflow exchanged with the storage
// backend. Steps are addressed by their index in Steps (the ordinal).
type PersistedWorkflow struct {
	ID           string                `json:"id,omitempty"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	DocumentType string                `json:"documentType"`
	IsActive     bool                  `json:"isActive"`
	Steps        []PersistedStep       `json:"steps"`
	Connections  []PersistedConnection `json:"connections"`
}

// PersistedStep is a step in wire form. It carries no identity; its position
// in PersistedWorkflow.Steps is its ordinal.
type PersistedStep struct {
	Type        StepType        `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Config      json.RawMessage `json:"config"`
	Position    Position        `json:"position"`
}

// Endpoint addresses a connector on the step at StepIndex.
type Endpoint struct {
	StepIndex int    `json:"stepIndex"`
	Connector string `json:"connector"`
}

// PersistedConnection is a connection in wire form.
type PersistedConnection struct {
	Source Endpoint `json:"source"`
	Target Endpoint `json:"target"`
}
