package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidConfigValue is returned when a config holds a value outside its allowed set.
var ErrInvalidConfigValue = errors.New("invalid config value")

// StepConfig is the type-specific configuration of a step. The concrete type
// is selected by the owning step's StepType.
type StepConfig interface {
	StepType() StepType
	Clone() StepConfig
}

// FieldType is the input kind of a form field.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeFile     FieldType = "file"
)

// FieldTypes lists every supported form field type.
var FieldTypes = []FieldType{
	FieldTypeText, FieldTypeNumber, FieldTypeDate, FieldTypeSelect,
	FieldTypeCheckbox, FieldTypeTextarea, FieldTypeFile,
}

// FormField is one input of a form step. Name is unique within the step and
// Options is a set. DefaultValue holds a JSON-decoded value (string, float64,
// bool, []any, map[string]any or nil); see Normalize.
type FormField struct {
	Name         string    `json:"name"                   validate:"required"`
	Label        string    `json:"label"                  validate:"required"`
	FieldType    FieldType `json:"fieldType"              validate:"required,oneof=text number date select checkbox textarea file"`
	Required     bool      `json:"required"`
	Options      []string  `json:"options,omitempty"      validate:"unique"` // Select fields only
	DefaultValue any       `json:"defaultValue,omitempty"`
}

// Normalize returns the field as it reads back from its JSON form, so that
// values built in Go compare equal after a save and load.
func (f FormField) Normalize() (FormField, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return FormField{}, fmt.Errorf("%w: field %q: %w", ErrInvalidConfigValue, f.Name, err)
	}

	var normalized FormField

	err = json.Unmarshal(data, &normalized)
	if err != nil {
		return FormField{}, fmt.Errorf("%w: field %q: %w", ErrInvalidConfigValue, f.Name, err)
	}

	return normalized, nil
}

// FormConfig configures a form step.
type FormConfig struct {
	Fields []FormField `json:"fields" validate:"dive"`
}

func (c *FormConfig) StepType() StepType { return StepTypeForm }

func (c *FormConfig) Clone() StepConfig {
	clone := &FormConfig{Fields: make([]FormField, len(c.Fields))}
	for i, field := range c.Fields {
		field.Options = slices.Clone(field.Options)
		clone.Fields[i] = field
	}

	return clone
}

// FieldByName returns the form field with the given name.
func (c *FormConfig) FieldByName(name string) (FormField, bool) {
	for _, field := range c.Fields {
		if field.Name == name {
			return field, true
		}
	}

	return FormField{}, false
}

// DuplicateFieldName returns the first field name used more than once.
func (c *FormConfig) DuplicateFieldName() (string, bool) {
	seen := make(map[string]struct{}, len(c.Fields))

	for _, field := range c.Fields {
		if _, ok := seen[field.Name]; ok {
			return field.Name, true
		}

		seen[field.Name] = struct{}{}
	}

	return "", false
}

// AssigneeKind selects how an approval assignee is resolved.
type AssigneeKind string

const (
	AssigneeKindUser    AssigneeKind = "user"
	AssigneeKindRole    AssigneeKind = "role"
	AssigneeKindDynamic AssigneeKind = "dynamic"
)

// AssigneeKinds lists every supported assignee kind.
var AssigneeKinds = []AssigneeKind{AssigneeKindUser, AssigneeKindRole, AssigneeKindDynamic}

// Assignee identifies who must act on an approval step. The meaning of Value
// depends on Kind.
type Assignee struct {
	Kind  AssigneeKind `json:"kind"  validate:"required,oneof=user role dynamic"`
	Value string       `json:"value" validate:"required_unless=Kind dynamic"`
}

// ApprovalConfig configures an approval step.
type ApprovalConfig struct {
	AssignedTo Assignee `json:"assignedTo"`
}

func (c *ApprovalConfig) StepType() StepType { return StepTypeApproval }

func (c *ApprovalConfig) Clone() StepConfig {
	clone := *c

	return &clone
}

// RecipientKind selects who receives a notification.
type RecipientKind string

const (
	RecipientKindAssignee        RecipientKind = "assignee"
	RecipientKindDocumentCreator RecipientKind = "document_creator"
	RecipientKindCustom          RecipientKind = "custom"
)

// RecipientKinds lists every supported recipient kind.
var RecipientKinds = []RecipientKind{RecipientKindAssignee, RecipientKindDocumentCreator, RecipientKindCustom}

// NotificationConfig configures a notification step.
type NotificationConfig struct {
	Text            string        `json:"text"`
	RecipientKind   RecipientKind `json:"recipientKind"             validate:"required,oneof=assignee document_creator custom"`
	CustomRecipient string        `json:"customRecipient,omitempty" validate:"required_if=RecipientKind custom"`
}

func (c *NotificationConfig) StepType() StepType { return StepTypeNotification }

func (c *NotificationConfig) Clone() StepConfig {
	clone := *c

	return &clone
}

// Operator is the comparison applied by a condition step.
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorGreaterThan Operator = "greater_than"
	OperatorLessThan    Operator = "less_than"
	OperatorContains    Operator = "contains"
)

// Operators lists every supported condition operator.
var Operators = []Operator{OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorLessThan, OperatorContains}

// ConditionConfig configures a condition step.
type ConditionConfig struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required,oneof=equals not_equals greater_than less_than contains"`
	Value    string   `json:"value"    validate:"required"`
}

func (c *ConditionConfig) StepType() StepType { return StepTypeCondition }

func (c *ConditionConfig) Clone() StepConfig {
	clone := *c

	return &clone
}

// EmptyConfig is the config of step types that carry nothing beyond name and
// description (upload, archive).
type EmptyConfig struct {
	Type StepType `json:"-"`
}

func (c *EmptyConfig) StepType() StepType { return c.Type }

func (c *EmptyConfig) Clone() StepConfig {
	clone := *c

	return &clone
}

// NewStepConfig returns the zero config for a step type, or false when the
// type has no config shape.
func NewStepConfig(stepType StepType) (StepConfig, bool) {
	switch stepType {
	case StepTypeForm:
		return &FormConfig{Fields: []FormField{}}, true
	case StepTypeApproval:
		return &ApprovalConfig{}, true
	case StepTypeNotification:
		return &NotificationConfig{}, true
	case StepTypeCondition:
		return &ConditionConfig{}, true
	case StepTypeUpload, StepTypeArchive:
		return &EmptyConfig{Type: stepType}, true
	default:
		return nil, false
	}
}

// DecodeStepConfig decodes a JSON config document into the config type of
// stepType. A missing or null document decodes to the zero config. Unknown
// keys are ignored.
func DecodeStepConfig(stepType StepType, raw json.RawMessage) (StepConfig, error) {
	return decodeStepConfig(stepType, raw, false)
}

// DecodeStepConfigStrict behaves like DecodeStepConfig but rejects unknown keys.
func DecodeStepConfigStrict(stepType StepType, raw json.RawMessage) (StepConfig, error) {
	return decodeStepConfig(stepType, raw, true)
}

func decodeStepConfig(stepType StepType, raw json.RawMessage, strict bool) (StepConfig, error) {
	config, ok := NewStepConfig(stepType)
	if !ok {
		return nil, fmt.Errorf("no config shape for step type %q", stepType)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return config, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	if strict {
		decoder.DisallowUnknownFields()
	}

	err := decoder.Decode(config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s config: %w", stepType, err)
	}

	if form, ok := config.(*FormConfig); ok {
		if form.Fields == nil {
			form.Fields = []FormField{}
		}

		for i := range form.Fields {
			if len(form.Fields[i].Options) == 0 {
				form.Fields[i].Options = nil
			}
		}
	}

	return config, nil
}

// EncodeStepConfig encodes a config as a JSON object.
func EncodeStepConfig(config StepConfig) (json.RawMessage, error) {
	if config == nil {
		return json.RawMessage("{}"), nil
	}

	data, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s config: %w", config.StepType(), err)
	}

	return data, nil
}

// CheckConfigValues verifies that every enumerated value in the config is one
// of the allowed values. Empty values are accepted; completeness is checked at
// validation time.
func CheckConfigValues(config StepConfig) error {
	switch c := config.(type) {
	case *FormConfig:
		for _, field := range c.Fields {
			if field.FieldType != "" && !slices.Contains(FieldTypes, field.FieldType) {
				return fmt.Errorf("%w: field %q has unknown fieldType %q", ErrInvalidConfigValue, field.Name, field.FieldType)
			}

			if len(field.Options) > 0 && field.FieldType != FieldTypeSelect {
				return fmt.Errorf("%w: field %q has options but is not a select", ErrInvalidConfigValue, field.Name)
			}

			if option, dup := duplicateOption(field.Options); dup {
				return fmt.Errorf("%w: field %q lists option %q more than once", ErrInvalidConfigValue, field.Name, option)
			}
		}
	case *ApprovalConfig:
		if c.AssignedTo.Kind != "" && !slices.Contains(AssigneeKinds, c.AssignedTo.Kind) {
			return fmt.Errorf("%w: unknown assignedTo.kind %q", ErrInvalidConfigValue, c.AssignedTo.Kind)
		}
	case *NotificationConfig:
		if c.RecipientKind != "" && !slices.Contains(RecipientKinds, c.RecipientKind) {
			return fmt.Errorf("%w: unknown recipientKind %q", ErrInvalidConfigValue, c.RecipientKind)
		}
	case *ConditionConfig:
		if c.Operator != "" && !slices.Contains(Operators, c.Operator) {
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidConfigValue, c.Operator)
		}
	}

	return nil
}

func duplicateOption(options []string) (string, bool) {
	seen := make(map[string]struct{}, len(options))

	for _, option := range options {
		if _, ok := seen[option]; ok {
			return option, true
		}

		seen[option] = struct{}{}
	}

	return "", false
}

// UnmarshalJSON decodes a step, selecting the config type from the step type.
func (s *Step) UnmarshalJSON(data []byte) error {
	type stepAlias Step

	var aux struct {
		stepAlias

		Config json.RawMessage `json:"config"`
	}

	err := json.Unmarshal(data, &aux)
	if err != nil {
		return err
	}

	*s = Step(aux.stepAlias)

	config, err := DecodeStepConfig(s.Type, aux.Config)
	if err != nil {
		return err
	}

	s.Config = config

	return nil
}
