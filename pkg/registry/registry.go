// Package registry provides the catalogue of workflow step types and their
// connector and configuration contracts.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dukex/docflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrUnknownStepType is returned when a step type is not in the catalogue.
	ErrUnknownStepType = errors.New("unknown step type")

	// ErrConfigSchemaViolation is returned when a config document does not match
	// the step type's schema.
	ErrConfigSchemaViolation = errors.New("config does not match step type schema")
)

// InputConnector is the single implicit input of every step type.
const InputConnector = models.DefaultConnector

// StepTypeDescriptor describes one step type. Values returned by the registry
// are copies and may be modified freely by callers.
type StepTypeDescriptor struct {
	Type             models.StepType `json:"type"`
	Label            string          `json:"label"`
	Description      string          `json:"description"`
	OutputConnectors []string        `json:"outputConnectors"`
	ConfigSchema     map[string]any  `json:"configSchema"`

	defaultConfig models.StepConfig
}

// HasOutput reports whether connector is one of the type's output connectors.
func (d StepTypeDescriptor) HasOutput(connector string) bool {
	return slices.Contains(d.OutputConnectors, connector)
}

// IsTerminal reports whether the type has no output connectors.
func (d StepTypeDescriptor) IsTerminal() bool {
	return len(d.OutputConnectors) == 0
}

// DefaultConfig returns a fresh default config for the type.
func (d StepTypeDescriptor) DefaultConfig() models.StepConfig {
	if d.defaultConfig == nil {
		config, _ := models.NewStepConfig(d.Type)

		return config
	}

	return d.defaultConfig.Clone()
}

// Registry is an immutable catalogue of step types.
type Registry struct {
	order       []models.StepType
	descriptors map[models.StepType]StepTypeDescriptor
	schemas     map[models.StepType]*gojsonschema.Schema
}

// New builds a registry from descriptors, compiling each config schema.
func New(descriptors ...StepTypeDescriptor) (*Registry, error) {
	r := &Registry{
		order:       make([]models.StepType, 0, len(descriptors)),
		descriptors: make(map[models.StepType]StepTypeDescriptor, len(descriptors)),
		schemas:     make(map[models.StepType]*gojsonschema.Schema, len(descriptors)),
	}

	for _, descriptor := range descriptors {
		if _, exists := r.descriptors[descriptor.Type]; exists {
			return nil, fmt.Errorf("step type %q registered twice", descriptor.Type)
		}

		if descriptor.ConfigSchema != nil {
			schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(descriptor.ConfigSchema))
			if err != nil {
				return nil, fmt.Errorf("invalid config schema for step type %q: %w", descriptor.Type, err)
			}

			r.schemas[descriptor.Type] = schema
		}

		r.order = append(r.order, descriptor.Type)
		r.descriptors[descriptor.Type] = descriptor
	}

	return r, nil
}

// Describe returns the descriptor of a step type.
func (r *Registry) Describe(stepType models.StepType) (StepTypeDescriptor, error) {
	descriptor, ok := r.descriptors[stepType]
	if !ok {
		return StepTypeDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownStepType, stepType)
	}

	return copyDescriptor(descriptor), nil
}

// Types returns every descriptor in palette order.
func (r *Registry) Types() []StepTypeDescriptor {
	descriptors := make([]StepTypeDescriptor, 0, len(r.order))
	for _, stepType := range r.order {
		descriptors = append(descriptors, copyDescriptor(r.descriptors[stepType]))
	}

	return descriptors
}

// ValidateConfigDocument checks a raw config document against the type's
// schema. Types without a schema accept any JSON object.
func (r *Registry) ValidateConfigDocument(stepType models.StepType, raw json.RawMessage) error {
	if _, ok := r.descriptors[stepType]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStepType, stepType)
	}

	schema, ok := r.schemas[stepType]
	if !ok {
		return nil
	}

	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigSchemaViolation, err)
	}

	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		messages = append(messages, resultErr.String())
	}

	return fmt.Errorf("%w: %s", ErrConfigSchemaViolation, strings.Join(messages, "; "))
}

func copyDescriptor(d StepTypeDescriptor) StepTypeDescriptor {
	d.OutputConnectors = slices.Clone(d.OutputConnectors)
	d.ConfigSchema = copySchema(d.ConfigSchema)

	if d.defaultConfig != nil {
		d.defaultConfig = d.defaultConfig.Clone()
	}

	return d
}

// Default is the process-wide catalogue of built-in step types.
var Default = mustNew(builtinStepTypes()...)

func mustNew(descriptors ...StepTypeDescriptor) *Registry {
	r, err := New(descriptors...)
	if err != nil {
		panic(err)
	}

	return r
}

// Describe returns the descriptor of a built-in step type.
func Describe(stepType models.StepType) (StepTypeDescriptor, error) {
	return Default.Describe(stepType)
}

// Types returns the built-in step types in palette order.
func Types() []StepTypeDescriptor {
	return Default.Types()
}

func copySchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}

	clone := make(map[string]any, len(schema))
	for key, value := range schema {
		clone[key] = copySchemaValue(value)
	}

	return clone
}

func copySchemaValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return copySchema(v)
	case []any:
		clone := make([]any, len(v))
		for i, item := range v {
			clone[i] = copySchemaValue(item)
		}

		return clone
	case []string:
		return slices.Clone(v)
	default:
		return v
	}
}
