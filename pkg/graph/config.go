package graph

import (
	"encoding/json"
	"fmt"

	"github.com/dukex/docflow/pkg/models"
)

// UpdateStepConfig merges partial into the step's config. Top-level keys of
// partial replace the corresponding keys of the current config; the merged
// document must decode into the step type's config shape.
//
// For form steps, field names must stay unique. For approval steps, changing
// assignedTo.kind clears assignedTo.value unless partial sets a value too.
func (g *Graph) UpdateStepConfig(id string, partial map[string]any) error {
	const op = "UpdateStepConfig"

	step, _, ok := g.workflow.StepByID(id)
	if !ok {
		return stepError(op, id, ErrUnknownStepReference)
	}

	merged, err := mergeConfig(step.Config, partial)
	if err != nil {
		return stepError(op, id, fmt.Errorf("%w: %w", ErrInvalidStepConfig, err))
	}

	config, err := models.DecodeStepConfigStrict(step.Type, merged)
	if err != nil {
		return stepError(op, id, fmt.Errorf("%w: %w", ErrInvalidStepConfig, err))
	}

	err = checkConfig(config)
	if err != nil {
		return stepError(op, id, err)
	}

	if approval, ok := config.(*models.ApprovalConfig); ok {
		previous, _ := step.Config.(*models.ApprovalConfig)
		if previous != nil && previous.AssignedTo.Kind != approval.AssignedTo.Kind && !setsAssigneeValue(partial) {
			approval.AssignedTo.Value = ""
		}
	}

	step.Config = config

	return nil
}

// AddFormField appends a field to a form step. The field is stored in its
// JSON-normalised form.
func (g *Graph) AddFormField(id string, field models.FormField) error {
	const op = "AddFormField"

	step, _, ok := g.workflow.StepByID(id)
	if !ok {
		return stepError(op, id, ErrUnknownStepReference)
	}

	form, ok := step.Config.(*models.FormConfig)
	if !ok {
		return stepError(op, id, fmt.Errorf("%w: %s step has no fields", ErrInvalidStepConfig, step.Type))
	}

	if _, exists := form.FieldByName(field.Name); exists {
		return stepError(op, id, fmt.Errorf("%w: %q", ErrDuplicateFieldName, field.Name))
	}

	field, err := field.Normalize()
	if err != nil {
		return stepError(op, id, fmt.Errorf("%w: %w", ErrInvalidStepConfig, err))
	}

	updated := form.Clone().(*models.FormConfig)
	updated.Fields = append(updated.Fields, field)

	err = checkConfig(updated)
	if err != nil {
		return stepError(op, id, err)
	}

	step.Config = updated

	return nil
}

// RemoveFormField removes the named field from a form step.
func (g *Graph) RemoveFormField(id, name string) error {
	const op = "RemoveFormField"

	step, _, ok := g.workflow.StepByID(id)
	if !ok {
		return stepError(op, id, ErrUnknownStepReference)
	}

	form, ok := step.Config.(*models.FormConfig)
	if !ok {
		return stepError(op, id, fmt.Errorf("%w: %s step has no fields", ErrInvalidStepConfig, step.Type))
	}

	updated := &models.FormConfig{Fields: make([]models.FormField, 0, len(form.Fields))}
	for _, field := range form.Fields {
		if field.Name != name {
			updated.Fields = append(updated.Fields, field)
		}
	}

	if len(updated.Fields) == len(form.Fields) {
		return stepError(op, id, fmt.Errorf("%w: no field named %q", ErrInvalidStepConfig, name))
	}

	step.Config = updated

	return nil
}

func checkConfig(config models.StepConfig) error {
	err := models.CheckConfigValues(config)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStepConfig, err)
	}

	if form, ok := config.(*models.FormConfig); ok {
		if name, dup := form.DuplicateFieldName(); dup {
			return fmt.Errorf("%w: %q", ErrDuplicateFieldName, name)
		}
	}

	return nil
}

func mergeConfig(current models.StepConfig, partial map[string]any) (json.RawMessage, error) {
	encoded, err := models.EncodeStepConfig(current)
	if err != nil {
		return nil, err
	}

	document := make(map[string]any)

	err = json.Unmarshal(encoded, &document)
	if err != nil {
		return nil, fmt.Errorf("failed to read current config: %w", err)
	}

	for key, value := range partial {
		document[key] = value
	}

	merged, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	return merged, nil
}

// setsAssigneeValue reports whether partial carries an explicit assignedTo.value.
func setsAssigneeValue(partial map[string]any) bool {
	assignedTo, ok := partial["assignedTo"]
	if !ok {
		return false
	}

	data, err := json.Marshal(assignedTo)
	if err != nil {
		return false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}

	_, ok = fields["value"]

	return ok
}
