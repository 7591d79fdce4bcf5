package serializer

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/dukex/docflow/pkg/graph"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs(prefix string) func() string {
	next := 0

	return func() string {
		next++

		return fmt.Sprintf("%s%d", prefix, next)
	}
}

type triple struct {
	Source    string
	Connector string
	Target    string
}

// topology describes connections by step type and position so that graphs with
// different ids can be compared.
func topology(g *graph.Graph) []triple {
	positions := map[string]string{}
	for i, step := range g.Steps() {
		positions[step.ID] = fmt.Sprintf("%s@%d", step.Type, i)
	}

	triples := []triple{}
	for _, connection := range g.Connections() {
		triples = append(triples, triple{
			Source:    positions[connection.SourceStepID],
			Connector: connection.SourceConnector,
			Target:    positions[connection.TargetStepID],
		})
	}

	return triples
}

func TestToPersisted_EmptyWorkflow(t *testing.T) {
	persisted, err := ToPersisted(graph.New().Workflow())
	require.NoError(t, err)

	data, err := Encode(persisted)
	require.NoError(t, err)

	var document map[string]any
	require.NoError(t, json.Unmarshal(data, &document))

	assert.Equal(t, []any{}, document["steps"])
	assert.Equal(t, []any{}, document["connections"])
	assert.NotContains(t, document, "id")
}

func TestToPersisted_UploadThenApproval(t *testing.T) {
	g := graph.New(graph.WithIDGenerator(sequentialIDs("s")))

	upload, err := g.AddStep(models.StepTypeUpload, models.Position{X: 0, Y: 0})
	require.NoError(t, err)
	assert.Equal(t, "s1", upload.ID)

	approval, err := g.AddStep(models.StepTypeApproval, models.Position{X: 0, Y: 200})
	require.NoError(t, err)
	assert.Equal(t, "s2", approval.ID)

	_, err = g.Connect(upload.ID, "default", approval.ID, "default")
	require.NoError(t, err)

	persisted, err := ToPersisted(g.Workflow())
	require.NoError(t, err)

	require.Len(t, persisted.Steps, 2)
	assert.Equal(t, models.StepTypeUpload, persisted.Steps[0].Type)
	assert.Equal(t, models.StepTypeApproval, persisted.Steps[1].Type)
	assert.Equal(t, models.Position{X: 0, Y: 200}, persisted.Steps[1].Position)

	assert.Equal(t, []models.PersistedConnection{{
		Source: models.Endpoint{StepIndex: 0, Connector: "default"},
		Target: models.Endpoint{StepIndex: 1, Connector: "default"},
	}}, persisted.Connections)
}

func TestToPersisted_OrdinalsFollowDeletion(t *testing.T) {
	g := graph.New()

	upload, err := g.AddStep(models.StepTypeUpload, models.Position{})
	require.NoError(t, err)
	draft, err := g.AddStep(models.StepTypeForm, models.Position{})
	require.NoError(t, err)
	approval, err := g.AddStep(models.StepTypeApproval, models.Position{})
	require.NoError(t, err)
	archive, err := g.AddStep(models.StepTypeArchive, models.Position{})
	require.NoError(t, err)

	_, err = g.Connect(upload.ID, "default", approval.ID, "default")
	require.NoError(t, err)
	_, err = g.Connect(approval.ID, "approved", archive.ID, "default")
	require.NoError(t, err)

	require.NoError(t, g.RemoveStep(draft.ID))

	persisted, err := ToPersisted(g.Workflow())
	require.NoError(t, err)

	assert.Equal(t, []models.PersistedConnection{
		{Source: models.Endpoint{StepIndex: 0, Connector: "default"}, Target: models.Endpoint{StepIndex: 1, Connector: "default"}},
		{Source: models.Endpoint{StepIndex: 1, Connector: "approved"}, Target: models.Endpoint{StepIndex: 2, Connector: "default"}},
	}, persisted.Connections)
}

func TestToPersisted_DanglingConnection(t *testing.T) {
	workflow := &models.Workflow{
		Name:        "broken",
		Steps:       []*models.Step{{ID: "a", Type: models.StepTypeUpload, Config: &models.EmptyConfig{Type: models.StepTypeUpload}}},
		Connections: []*models.Connection{{ID: "c", SourceStepID: "a", SourceConnector: "default", TargetStepID: "gone"}},
	}

	_, err := ToPersisted(workflow)

	assert.ErrorIs(t, err, ErrDanglingConnection)
}

func TestRoundTrip(t *testing.T) {
	g := graph.New()
	g.SetMetadata("Contracts", "Contract review", "contract", true)

	upload, err := g.AddStep(models.StepTypeUpload, models.Position{X: 10, Y: 20})
	require.NoError(t, err)
	form, err := g.AddStep(models.StepTypeForm, models.Position{X: 10, Y: 120})
	require.NoError(t, err)
	condition, err := g.AddStep(models.StepTypeCondition, models.Position{X: 10, Y: 220})
	require.NoError(t, err)
	approval, err := g.AddStep(models.StepTypeApproval, models.Position{X: 200, Y: 320})
	require.NoError(t, err)
	notify, err := g.AddStep(models.StepTypeNotification, models.Position{X: -200, Y: 320})
	require.NoError(t, err)
	archive, err := g.AddStep(models.StepTypeArchive, models.Position{X: 0, Y: 420})
	require.NoError(t, err)

	require.NoError(t, g.AddFormField(form.ID, models.FormField{Name: "value", Label: "Value", FieldType: models.FieldTypeNumber, Required: true}))
	require.NoError(t, g.UpdateStepConfig(condition.ID, map[string]any{"field": "value", "operator": "greater_than", "value": "1000"}))
	require.NoError(t, g.UpdateStepConfig(approval.ID, map[string]any{"assignedTo": map[string]any{"kind": "role", "value": "legal"}}))
	require.NoError(t, g.UpdateStepConfig(notify.ID, map[string]any{"text": "Contract filed", "recipientKind": "document_creator"}))
	require.NoError(t, g.RenameStep(archive.ID, "File it", "Store the signed contract"))

	for _, c := range []struct{ source, connector, target string }{
		{upload.ID, "default", form.ID},
		{form.ID, "default", condition.ID},
		{condition.ID, "true", approval.ID},
		{condition.ID, "false", notify.ID},
		{approval.ID, "approved", archive.ID},
		{approval.ID, "rejected", notify.ID},
		{notify.ID, "default", archive.ID},
	} {
		_, err := g.Connect(c.source, c.connector, c.target, "default")
		require.NoError(t, err)
	}

	persisted, err := ToPersisted(g.Workflow())
	require.NoError(t, err)

	data, err := Encode(persisted)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	restored, err := FromPersisted(decoded, WithIDGenerator(sequentialIDs("r")))
	require.NoError(t, err)

	original := g.Workflow()
	reloaded := restored.Workflow()

	assert.Equal(t, original.Name, reloaded.Name)
	assert.Equal(t, original.Description, reloaded.Description)
	assert.Equal(t, original.DocumentType, reloaded.DocumentType)
	assert.Equal(t, original.IsActive, reloaded.IsActive)

	require.Len(t, reloaded.Steps, len(original.Steps))
	for i := range original.Steps {
		want, got := original.Steps[i], reloaded.Steps[i]

		assert.NotEqual(t, want.ID, got.ID)
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Description, got.Description)
		assert.Equal(t, want.Position, got.Position)
		assert.Equal(t, want.Config, got.Config)
	}

	assert.ElementsMatch(t, topology(g), topology(restored))
}

func configuredStep(t *testing.T, g *graph.Graph, stepType models.StepType, partial map[string]any) *models.Step {
	t.Helper()

	step, err := g.AddStep(stepType, models.Position{X: float64(g.Len()) * 12.5, Y: -40})
	require.NoError(t, err)

	if partial != nil {
		require.NoError(t, g.UpdateStepConfig(step.ID, partial))
	}

	return step
}

func TestRoundTrip_EveryConfigField(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T, g *graph.Graph)
	}{
		{
			name: "form fields of every type",
			build: func(t *testing.T, g *graph.Graph) {
				configuredStep(t, g, models.StepTypeForm, map[string]any{
					"fields": []any{
						map[string]any{"name": "title", "label": "Title", "fieldType": "text", "required": true, "defaultValue": "Untitled"},
						map[string]any{"name": "amount", "label": "Amount", "fieldType": "number", "defaultValue": 12.5},
						map[string]any{"name": "due", "label": "Due", "fieldType": "date", "defaultValue": "2026-01-31"},
						map[string]any{"name": "currency", "label": "Currency", "fieldType": "select", "options": []any{"EUR", "USD", "BRL"}, "defaultValue": "EUR"},
						map[string]any{"name": "urgent", "label": "Urgent", "fieldType": "checkbox", "defaultValue": false},
						map[string]any{"name": "notes", "label": "Notes", "fieldType": "textarea", "defaultValue": ""},
						map[string]any{"name": "scan", "label": "Scan", "fieldType": "file", "defaultValue": map[string]any{"accept": []any{"pdf"}}},
					},
				})
			},
		},
		{
			name: "form fields added from Go values",
			build: func(t *testing.T, g *graph.Graph) {
				form := configuredStep(t, g, models.StepTypeForm, nil)

				require.NoError(t, g.AddFormField(form.ID, models.FormField{
					Name: "copies", Label: "Copies", FieldType: models.FieldTypeNumber, DefaultValue: 5,
				}))
				require.NoError(t, g.AddFormField(form.ID, models.FormField{
					Name: "tags", Label: "Tags", FieldType: models.FieldTypeSelect, Options: []string{"a", "b"}, DefaultValue: []string{"a"},
				}))
				require.NoError(t, g.AddFormField(form.ID, models.FormField{
					Name: "empty", Label: "Empty", FieldType: models.FieldTypeSelect, Options: []string{},
				}))

				err := g.AddFormField(form.ID, models.FormField{
					Name: "dup", Label: "Dup", FieldType: models.FieldTypeSelect, Options: []string{"a", "a"},
				})
				require.ErrorIs(t, err, graph.ErrInvalidStepConfig)
			},
		},
		{
			name: "approval assignees",
			build: func(t *testing.T, g *graph.Graph) {
				configuredStep(t, g, models.StepTypeApproval, map[string]any{"assignedTo": map[string]any{"kind": "user", "value": "alice"}})
				configuredStep(t, g, models.StepTypeApproval, map[string]any{"assignedTo": map[string]any{"kind": "role", "value": "finance"}})
				configuredStep(t, g, models.StepTypeApproval, map[string]any{"assignedTo": map[string]any{"kind": "dynamic", "value": "document.owner.manager"}})
				configuredStep(t, g, models.StepTypeApproval, map[string]any{"assignedTo": map[string]any{"kind": "dynamic"}})
			},
		},
		{
			name: "notification recipients",
			build: func(t *testing.T, g *graph.Graph) {
				configuredStep(t, g, models.StepTypeNotification, map[string]any{"text": "Please review", "recipientKind": "assignee"})
				configuredStep(t, g, models.StepTypeNotification, map[string]any{"text": "", "recipientKind": "document_creator"})
				configuredStep(t, g, models.StepTypeNotification, map[string]any{
					"text": "Filed", "recipientKind": "custom", "customRecipient": "records@example.com",
				})
			},
		},
		{
			name: "condition operators",
			build: func(t *testing.T, g *graph.Graph) {
				for _, operator := range models.Operators {
					configuredStep(t, g, models.StepTypeCondition, map[string]any{
						"field": "amount", "operator": string(operator), "value": "1000",
					})
				}
			},
		},
		{
			name: "steps without config",
			build: func(t *testing.T, g *graph.Graph) {
				upload := configuredStep(t, g, models.StepTypeUpload, nil)
				archive := configuredStep(t, g, models.StepTypeArchive, nil)

				require.NoError(t, g.RenameStep(upload.ID, "Scan in", "Paper invoices"))
				require.NoError(t, g.MoveStep(archive.ID, models.Position{X: -0.25, Y: 1e6}))

				_, err := g.Connect(upload.ID, "default", archive.ID, "")
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph.New()
			g.SetMetadata("Round trip", "", "invoice", false)

			tt.build(t, g)

			report := validation.Validate(g.Workflow())
			require.True(t, report.Valid(), "errors: %v", report.Errors)

			persisted, err := ToPersisted(g.Workflow())
			require.NoError(t, err)

			data, err := Encode(persisted)
			require.NoError(t, err)

			decoded, err := Decode(data)
			require.NoError(t, err)

			restored, err := FromPersisted(decoded)
			require.NoError(t, err)

			original := g.Workflow()
			reloaded := restored.Workflow()

			require.Len(t, reloaded.Steps, len(original.Steps))
			for i := range original.Steps {
				assert.Equal(t, original.Steps[i].Config, reloaded.Steps[i].Config, "step %d", i)
				assert.Equal(t, original.Steps[i].Name, reloaded.Steps[i].Name)
				assert.Equal(t, original.Steps[i].Description, reloaded.Steps[i].Description)
				assert.Equal(t, original.Steps[i].Position, reloaded.Steps[i].Position)
			}

			assert.ElementsMatch(t, topology(g), topology(restored))
			assert.True(t, validation.Validate(reloaded).Valid())

			again, err := ToPersisted(reloaded)
			require.NoError(t, err)

			reencoded, err := Encode(again)
			require.NoError(t, err)
			assert.JSONEq(t, string(data), string(reencoded))
		})
	}
}

func TestRoundTrip_FanOut(t *testing.T) {
	g := graph.New()

	upload, err := g.AddStep(models.StepTypeUpload, models.Position{})
	require.NoError(t, err)
	first, err := g.AddStep(models.StepTypeNotification, models.Position{})
	require.NoError(t, err)
	second, err := g.AddStep(models.StepTypeArchive, models.Position{})
	require.NoError(t, err)

	_, err = g.Connect(upload.ID, "default", first.ID, "default")
	require.NoError(t, err)
	_, err = g.Connect(upload.ID, "default", second.ID, "default")
	require.NoError(t, err)

	persisted, err := ToPersisted(g.Workflow())
	require.NoError(t, err)

	restored, err := FromPersisted(persisted)
	require.NoError(t, err)

	assert.Len(t, restored.Outgoing(restored.Steps()[0].ID), 2)
	assert.ElementsMatch(t, topology(g), topology(restored))
}

func TestFromPersisted_RestoredGraphKeepsEditing(t *testing.T) {
	persisted := &models.PersistedWorkflow{
		Name:        "Receipts",
		Steps:       []models.PersistedStep{{Type: models.StepTypeUpload, Name: "Upload 1", Config: json.RawMessage(`{}`)}},
		Connections: []models.PersistedConnection{},
	}

	g, err := FromPersisted(persisted)
	require.NoError(t, err)

	step, err := g.AddStep(models.StepTypeUpload, models.Position{})
	require.NoError(t, err)
	assert.Equal(t, "Upload 2", step.Name)
}

func TestFromPersisted_MissingConfigAndTargetConnector(t *testing.T) {
	persisted := &models.PersistedWorkflow{
		Steps: []models.PersistedStep{
			{Type: models.StepTypeForm, Name: "Form 1"},
			{Type: models.StepTypeArchive, Name: "Archive 1", Config: json.RawMessage(`null`)},
		},
		Connections: []models.PersistedConnection{{
			Source: models.Endpoint{StepIndex: 0, Connector: "default"},
			Target: models.Endpoint{StepIndex: 1},
		}},
	}

	g, err := FromPersisted(persisted)
	require.NoError(t, err)

	form, ok := g.Steps()[0].Config.(*models.FormConfig)
	require.True(t, ok)
	assert.NotNil(t, form.Fields)
	assert.Equal(t, "default", g.Connections()[0].TargetConnector)
}

func TestFromPersisted_Corrupt(t *testing.T) {
	upload := models.PersistedStep{Type: models.StepTypeUpload, Config: json.RawMessage(`{}`)}
	archive := models.PersistedStep{Type: models.StepTypeArchive, Config: json.RawMessage(`{}`)}
	edge := func(source int, connector string, target int) models.PersistedConnection {
		return models.PersistedConnection{
			Source: models.Endpoint{StepIndex: source, Connector: connector},
			Target: models.Endpoint{StepIndex: target, Connector: "default"},
		}
	}

	tests := []struct {
		name string
		data *models.PersistedWorkflow
	}{
		{name: "nil data"},
		{
			name: "target ordinal out of range",
			data: &models.PersistedWorkflow{
				Steps:       []models.PersistedStep{upload, archive},
				Connections: []models.PersistedConnection{edge(0, "default", 2)},
			},
		},
		{
			name: "negative source ordinal",
			data: &models.PersistedWorkflow{
				Steps:       []models.PersistedStep{upload, archive},
				Connections: []models.PersistedConnection{edge(-1, "default", 1)},
			},
		},
		{
			name: "unknown step type",
			data: &models.PersistedWorkflow{
				Steps: []models.PersistedStep{{Type: "signature", Config: json.RawMessage(`{}`)}},
			},
		},
		{
			name: "config violates schema",
			data: &models.PersistedWorkflow{
				Steps: []models.PersistedStep{{Type: models.StepTypeCondition, Config: json.RawMessage(`{"operator":"between"}`)}},
			},
		},
		{
			name: "config is not an object",
			data: &models.PersistedWorkflow{
				Steps: []models.PersistedStep{{Type: models.StepTypeForm, Config: json.RawMessage(`[1,2]`)}},
			},
		},
		{
			name: "duplicate select options",
			data: &models.PersistedWorkflow{
				Steps: []models.PersistedStep{{Type: models.StepTypeForm, Config: json.RawMessage(
					`{"fields":[{"name":"c","label":"C","fieldType":"select","options":["a","a"]}]}`,
				)}},
			},
		},
		{
			name: "form field names repeat",
			data: &models.PersistedWorkflow{
				Steps: []models.PersistedStep{{Type: models.StepTypeForm, Config: json.RawMessage(
					`{"fields":[{"name":"a","label":"A","fieldType":"text"},{"name":"a","label":"B","fieldType":"number"}]}`,
				)}},
			},
		},
		{
			name: "connector not offered by source",
			data: &models.PersistedWorkflow{
				Steps:       []models.PersistedStep{upload, archive},
				Connections: []models.PersistedConnection{edge(0, "approved", 1)},
			},
		},
		{
			name: "archive as source",
			data: &models.PersistedWorkflow{
				Steps:       []models.PersistedStep{upload, archive},
				Connections: []models.PersistedConnection{edge(1, "default", 0)},
			},
		},
		{
			name: "unknown target connector",
			data: &models.PersistedWorkflow{
				Steps: []models.PersistedStep{upload, archive},
				Connections: []models.PersistedConnection{{
					Source: models.Endpoint{StepIndex: 0, Connector: "default"},
					Target: models.Endpoint{StepIndex: 1, Connector: "side"},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := FromPersisted(tt.data)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptPersistedData)
			assert.Nil(t, g)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`{"steps": "nope"}`))

	assert.ErrorIs(t, err, ErrCorruptPersistedData)
}
