// Package serializer converts between the in-memory workflow graph and the
// persisted form, where steps carry no identity and connections address steps
// by ordinal.
package serializer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/docflow/pkg/graph"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/registry"
	"github.com/google/uuid"
)

var (
	// ErrDanglingConnection is returned when a connection references a step that
	// is not part of the workflow being serialized.
	ErrDanglingConnection = errors.New("connection references a step outside the workflow")

	// ErrCorruptPersistedData is returned when a persisted workflow cannot be
	// turned back into a consistent graph.
	ErrCorruptPersistedData = errors.New("corrupt persisted workflow")
)

type options struct {
	registry *registry.Registry
	newID    func() string
}

// Option configures FromPersisted.
type Option func(*options)

// WithRegistry sets the step type catalogue used to check persisted steps.
func WithRegistry(r *registry.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithIDGenerator sets the function used to allocate fresh step and
// connection ids. The same generator is handed to the resulting graph.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		o.newID = newID
	}
}

// ToPersisted converts a workflow to its persisted form. Each connection
// endpoint is rewritten from a step id to the index of that step in the
// workflow's step sequence. Empty step and connection lists are encoded as
// empty arrays.
func ToPersisted(workflow *models.Workflow) (*models.PersistedWorkflow, error) {
	if workflow == nil {
		return nil, errors.New("workflow is nil")
	}

	persisted := &models.PersistedWorkflow{
		Name:         workflow.Name,
		Description:  workflow.Description,
		DocumentType: workflow.DocumentType,
		IsActive:     workflow.IsActive,
		Steps:        make([]models.PersistedStep, 0, len(workflow.Steps)),
		Connections:  make([]models.PersistedConnection, 0, len(workflow.Connections)),
	}

	ordinals := make(map[string]int, len(workflow.Steps))

	for i, step := range workflow.Steps {
		ordinals[step.ID] = i

		config, err := models.EncodeStepConfig(step.Config)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.ID, err)
		}

		persisted.Steps = append(persisted.Steps, models.PersistedStep{
			Type:        step.Type,
			Name:        step.Name,
			Description: step.Description,
			Config:      config,
			Position:    step.Position,
		})
	}

	for _, connection := range workflow.Connections {
		source, ok := ordinals[connection.SourceStepID]
		if !ok {
			return nil, fmt.Errorf("%w: connection %s source %q", ErrDanglingConnection, connection.ID, connection.SourceStepID)
		}

		target, ok := ordinals[connection.TargetStepID]
		if !ok {
			return nil, fmt.Errorf("%w: connection %s target %q", ErrDanglingConnection, connection.ID, connection.TargetStepID)
		}

		persisted.Connections = append(persisted.Connections, models.PersistedConnection{
			Source: models.Endpoint{StepIndex: source, Connector: connection.SourceConnector},
			Target: models.Endpoint{StepIndex: target, Connector: targetConnector(connection.TargetConnector)},
		})
	}

	return persisted, nil
}

// FromPersisted rebuilds a graph from its persisted form. Every step and
// connection receives a fresh id; ordinals are resolved against the step
// sequence as given. Any inconsistency in the data is reported as
// ErrCorruptPersistedData.
func FromPersisted(data *models.PersistedWorkflow, opts ...Option) (*graph.Graph, error) {
	o := &options{
		registry: registry.Default,
		newID:    uuid.NewString,
	}

	for _, opt := range opts {
		opt(o)
	}

	if data == nil {
		return nil, fmt.Errorf("%w: no data", ErrCorruptPersistedData)
	}

	workflow := &models.Workflow{
		Name:         data.Name,
		Description:  data.Description,
		DocumentType: data.DocumentType,
		IsActive:     data.IsActive,
		Steps:        make([]*models.Step, 0, len(data.Steps)),
		Connections:  make([]*models.Connection, 0, len(data.Connections)),
	}

	for i, persisted := range data.Steps {
		step, err := o.decodeStep(persisted)
		if err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", ErrCorruptPersistedData, i, err)
		}

		workflow.Steps = append(workflow.Steps, step)
	}

	for i, persisted := range data.Connections {
		connection, err := o.decodeConnection(workflow.Steps, persisted)
		if err != nil {
			return nil, fmt.Errorf("%w: connection %d: %w", ErrCorruptPersistedData, i, err)
		}

		workflow.Connections = append(workflow.Connections, connection)
	}

	g, err := graph.FromWorkflow(workflow, graph.WithRegistry(o.registry), graph.WithIDGenerator(o.newID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptPersistedData, err)
	}

	return g, nil
}

func (o *options) decodeStep(persisted models.PersistedStep) (*models.Step, error) {
	raw := bytes.TrimSpace(persisted.Config)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	err := o.registry.ValidateConfigDocument(persisted.Type, raw)
	if err != nil {
		return nil, err
	}

	config, err := models.DecodeStepConfig(persisted.Type, raw)
	if err != nil {
		return nil, err
	}

	err = models.CheckConfigValues(config)
	if err != nil {
		return nil, err
	}

	if form, ok := config.(*models.FormConfig); ok {
		if name, dup := form.DuplicateFieldName(); dup {
			return nil, fmt.Errorf("form field name %q is used more than once", name)
		}
	}

	return &models.Step{
		ID:          o.newID(),
		Type:        persisted.Type,
		Name:        persisted.Name,
		Description: persisted.Description,
		Position:    persisted.Position,
		Config:      config,
	}, nil
}

func (o *options) decodeConnection(steps []*models.Step, persisted models.PersistedConnection) (*models.Connection, error) {
	source, err := stepAt(steps, persisted.Source.StepIndex)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}

	target, err := stepAt(steps, persisted.Target.StepIndex)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	descriptor, err := o.registry.Describe(source.Type)
	if err != nil {
		return nil, err
	}

	if descriptor.IsTerminal() {
		return nil, fmt.Errorf("%s step %d cannot be a connection source", source.Type, persisted.Source.StepIndex)
	}

	if !descriptor.HasOutput(persisted.Source.Connector) {
		return nil, fmt.Errorf("%s steps have no output %q", source.Type, persisted.Source.Connector)
	}

	connector := targetConnector(persisted.Target.Connector)
	if connector != registry.InputConnector {
		return nil, fmt.Errorf("steps have no input %q", persisted.Target.Connector)
	}

	return &models.Connection{
		ID:              o.newID(),
		SourceStepID:    source.ID,
		SourceConnector: persisted.Source.Connector,
		TargetStepID:    target.ID,
		TargetConnector: connector,
	}, nil
}

func stepAt(steps []*models.Step, index int) (*models.Step, error) {
	if index < 0 || index >= len(steps) {
		return nil, fmt.Errorf("step index %d out of range [0,%d)", index, len(steps))
	}

	return steps[index], nil
}

func targetConnector(connector string) string {
	if connector == "" {
		return registry.InputConnector
	}

	return connector
}

// Encode marshals a persisted workflow to JSON.
func Encode(persisted *models.PersistedWorkflow) ([]byte, error) {
	data, err := json.Marshal(persisted)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow: %w", err)
	}

	return data, nil
}

// Decode unmarshals a persisted workflow from JSON. Malformed documents are
// reported as ErrCorruptPersistedData.
func Decode(data []byte) (*models.PersistedWorkflow, error) {
	var persisted models.PersistedWorkflow

	err := json.Unmarshal(data, &persisted)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptPersistedData, err)
	}

	if persisted.Steps == nil {
		persisted.Steps = []models.PersistedStep{}
	}

	if persisted.Connections == nil {
		persisted.Connections = []models.PersistedConnection{}
	}

	return &persisted, nil
}
