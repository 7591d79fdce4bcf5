package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStepConfig(t *testing.T) {
	tests := []struct {
		name     string
		stepType StepType
		raw      string
		want     StepConfig
	}{
		{
			name:     "form",
			stepType: StepTypeForm,
			raw:      `{"fields":[{"name":"amount","label":"Amount","fieldType":"number","required":true}]}`,
			want: &FormConfig{Fields: []FormField{
				{Name: "amount", Label: "Amount", FieldType: FieldTypeNumber, Required: true},
			}},
		},
		{
			name:     "approval",
			stepType: StepTypeApproval,
			raw:      `{"assignedTo":{"kind":"role","value":"finance"}}`,
			want:     &ApprovalConfig{AssignedTo: Assignee{Kind: AssigneeKindRole, Value: "finance"}},
		},
		{
			name:     "condition",
			stepType: StepTypeCondition,
			raw:      `{"field":"amount","operator":"greater_than","value":"1000"}`,
			want:     &ConditionConfig{Field: "amount", Operator: OperatorGreaterThan, Value: "1000"},
		},
		{
			name:     "null document",
			stepType: StepTypeForm,
			raw:      `null`,
			want:     &FormConfig{Fields: []FormField{}},
		},
		{
			name:     "upload ignores keys",
			stepType: StepTypeUpload,
			raw:      `{"legacy":true}`,
			want:     &EmptyConfig{Type: StepTypeUpload},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := DecodeStepConfig(tt.stepType, json.RawMessage(tt.raw))

			require.NoError(t, err)
			assert.Equal(t, tt.want, config)
			assert.Equal(t, tt.stepType, config.StepType())
		})
	}
}

func TestDecodeStepConfigStrict_RejectsUnknownKeys(t *testing.T) {
	_, err := DecodeStepConfigStrict(StepTypeApproval, json.RawMessage(`{"assignee":"bob"}`))
	require.Error(t, err)

	_, err = DecodeStepConfig(StepTypeApproval, json.RawMessage(`{"assignee":"bob"}`))
	require.NoError(t, err)
}

func TestDecodeStepConfig_UnknownType(t *testing.T) {
	_, err := DecodeStepConfig("signature", json.RawMessage(`{}`))

	assert.Error(t, err)
}

func TestEncodeStepConfig(t *testing.T) {
	data, err := EncodeStepConfig(&EmptyConfig{Type: StepTypeArchive})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))

	data, err = EncodeStepConfig(&NotificationConfig{Text: "Rejected", RecipientKind: RecipientKindDocumentCreator})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"Rejected","recipientKind":"document_creator"}`, string(data))

	data, err = EncodeStepConfig(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestCheckConfigValues(t *testing.T) {
	tests := []struct {
		name    string
		config  StepConfig
		wantErr bool
	}{
		{"empty values are accepted", &ApprovalConfig{}, false},
		{"known operator", &ConditionConfig{Operator: OperatorContains}, false},
		{"unknown operator", &ConditionConfig{Operator: "between"}, true},
		{"unknown assignee kind", &ApprovalConfig{AssignedTo: Assignee{Kind: "group"}}, true},
		{"unknown recipient kind", &NotificationConfig{RecipientKind: "everyone"}, true},
		{"unknown field type", &FormConfig{Fields: []FormField{{Name: "a", FieldType: "color"}}}, true},
		{"options on text field", &FormConfig{Fields: []FormField{{Name: "a", FieldType: FieldTypeText, Options: []string{"x"}}}}, true},
		{"options on select field", &FormConfig{Fields: []FormField{{Name: "a", FieldType: FieldTypeSelect, Options: []string{"x"}}}}, false},
		{"repeated select option", &FormConfig{Fields: []FormField{{Name: "a", FieldType: FieldTypeSelect, Options: []string{"x", "y", "x"}}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConfigValues(tt.config)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfigValue)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFormConfig_DuplicateFieldName(t *testing.T) {
	config := &FormConfig{Fields: []FormField{{Name: "a"}, {Name: "b"}}}

	_, found := config.DuplicateFieldName()
	assert.False(t, found)

	config.Fields = append(config.Fields, FormField{Name: "a"})

	name, found := config.DuplicateFieldName()
	assert.True(t, found)
	assert.Equal(t, "a", name)
}

func TestStep_UnmarshalJSON(t *testing.T) {
	var step Step

	err := json.Unmarshal([]byte(`{
		"id": "s1",
		"type": "approval",
		"name": "Approval 1",
		"position": {"x": 10, "y": 20},
		"config": {"assignedTo": {"kind": "user", "value": "alice"}}
	}`), &step)
	require.NoError(t, err)

	assert.Equal(t, "s1", step.ID)
	assert.Equal(t, Position{X: 10, Y: 20}, step.Position)
	assert.Equal(t, &ApprovalConfig{AssignedTo: Assignee{Kind: AssigneeKindUser, Value: "alice"}}, step.Config)
}

func TestWorkflow_CloneIsDeep(t *testing.T) {
	original := &Workflow{
		Name: "Invoices",
		Steps: []*Step{{
			ID:     "s1",
			Type:   StepTypeForm,
			Config: &FormConfig{Fields: []FormField{{Name: "a", Options: []string{"x"}}}},
		}},
		Connections: []*Connection{{ID: "c1", SourceStepID: "s1", SourceConnector: DefaultConnector, TargetStepID: "s1"}},
	}

	clone := original.Clone()
	clone.Steps[0].Name = "changed"
	clone.Steps[0].Config.(*FormConfig).Fields[0].Options[0] = "y"
	clone.Connections[0].TargetStepID = "other"

	assert.Empty(t, original.Steps[0].Name)
	assert.Equal(t, "x", original.Steps[0].Config.(*FormConfig).Fields[0].Options[0])
	assert.Equal(t, "s1", original.Connections[0].TargetStepID)

	step, index, ok := original.StepByID("s1")
	require.True(t, ok)
	assert.Equal(t, 0, index)
	assert.Same(t, original.Steps[0], step)

	assert.True(t, original.Connections[0].Touches("s1"))
}

func TestFormField_Normalize(t *testing.T) {
	field, err := FormField{
		Name: "copies", FieldType: FieldTypeSelect, Options: []string{}, DefaultValue: map[string]int{"n": 5},
	}.Normalize()
	require.NoError(t, err)

	assert.Nil(t, field.Options)
	assert.Equal(t, map[string]any{"n": float64(5)}, field.DefaultValue)

	_, err = FormField{Name: "bad", DefaultValue: func() {}}.Normalize()
	assert.ErrorIs(t, err, ErrInvalidConfigValue)
}
