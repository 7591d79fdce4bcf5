package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowSaved_Payload(t *testing.T) {
	event := NewWorkflowSaved("evt-1", "wf-1", "session-1", "Invoices", 4, 3, 1)

	data, err := json.Marshal(event)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"type":"workflow.saved"`)
	assert.Contains(t, string(data), `"workflow_id":"wf-1"`)
	assert.Contains(t, string(data), `"step_count":4`)
	assert.Equal(t, WorkflowSavedEvent, event.GetType())
	assert.False(t, event.Timestamp.IsZero())
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, WorkflowLoadedEvent, NewWorkflowLoaded("e", "wf", "s", "n", 0, 0).GetType())
	assert.Equal(t, WorkflowStoredEvent, NewWorkflowStored("e", "wf", true).GetType())
	assert.Equal(t, WorkflowStoredEvent, NewWorkflowStored("e", "wf", false).Type)
}
