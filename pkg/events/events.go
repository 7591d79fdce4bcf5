// Package events defines the notifications emitted around workflow storage.
package events

import (
	"time"
)

type EventType string

// Topic carries every docflow event.
const Topic = "docflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Designer session events.
	WorkflowSavedEvent  EventType = "workflow.saved"
	WorkflowLoadedEvent EventType = "workflow.loaded"

	// Storage backend events.
	WorkflowStoredEvent EventType = "workflow.stored"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func newBaseEvent(id string, eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         id,
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// WorkflowSaved is emitted when a designer session stores its workflow.
type WorkflowSaved struct {
	BaseEvent

	SessionID       string `json:"session_id"`
	WorkflowName    string `json:"workflow_name"`
	StepCount       int    `json:"step_count"`
	ConnectionCount int    `json:"connection_count"`
	WarningCount    int    `json:"warning_count"`
}

func NewWorkflowSaved(id, workflowID, sessionID, name string, steps, connections, warnings int) WorkflowSaved {
	return WorkflowSaved{
		BaseEvent:       newBaseEvent(id, WorkflowSavedEvent, workflowID),
		SessionID:       sessionID,
		WorkflowName:    name,
		StepCount:       steps,
		ConnectionCount: connections,
		WarningCount:    warnings,
	}
}

func (w WorkflowSaved) GetType() EventType {
	return WorkflowSavedEvent
}

// WorkflowLoaded is emitted when a designer session opens a stored workflow.
type WorkflowLoaded struct {
	BaseEvent

	SessionID       string `json:"session_id"`
	WorkflowName    string `json:"workflow_name"`
	StepCount       int    `json:"step_count"`
	ConnectionCount int    `json:"connection_count"`
}

func NewWorkflowLoaded(id, workflowID, sessionID, name string, steps, connections int) WorkflowLoaded {
	return WorkflowLoaded{
		BaseEvent:       newBaseEvent(id, WorkflowLoadedEvent, workflowID),
		SessionID:       sessionID,
		WorkflowName:    name,
		StepCount:       steps,
		ConnectionCount: connections,
	}
}

func (w WorkflowLoaded) GetType() EventType {
	return WorkflowLoadedEvent
}

// WorkflowStored is emitted when a persisted workflow is written through the
// storage endpoints, bypassing any session.
type WorkflowStored struct {
	BaseEvent

	Created bool `json:"created"`
}

func NewWorkflowStored(id, workflowID string, created bool) WorkflowStored {
	return WorkflowStored{
		BaseEvent: newBaseEvent(id, WorkflowStoredEvent, workflowID),
		Created:   created,
	}
}

func (w WorkflowStored) GetType() EventType {
	return WorkflowStoredEvent
}
