// Package graph provides the mutable workflow graph edited by the designer.
//
// A Graph owns one workflow. Every operation is synchronous and atomic: it
// either succeeds and leaves the graph consistent, or fails with a structural
// error and leaves the graph untouched. Consistency means:
//
//  1. step and connection ids are unique;
//  2. every connection references existing steps;
//  3. every connection leaves through an output connector of its source type;
//  4. no archive step is a connection source;
//  5. removing a step removes every connection touching it.
//
// A Graph is not safe for concurrent use; callers serialise access (see the
// designer package).
package graph

import (
	"fmt"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/registry"
	"github.com/google/uuid"
)

// Option configures a Graph.
type Option func(*Graph)

// WithIDGenerator sets the function used to allocate step and connection ids.
func WithIDGenerator(newID func() string) Option {
	return func(g *Graph) {
		g.newID = newID
	}
}

// WithRegistry sets the step type catalogue. Defaults to registry.Default.
func WithRegistry(r *registry.Registry) Option {
	return func(g *Graph) {
		g.registry = r
	}
}

// Graph is the in-memory workflow graph.
type Graph struct {
	registry *registry.Registry
	workflow *models.Workflow
	newID    func() string
	added    map[models.StepType]int // Steps added per type, for default names
}

// New creates a graph holding an empty workflow.
func New(opts ...Option) *Graph {
	g := &Graph{
		registry: registry.Default,
		workflow: models.NewWorkflow(),
		newID:    uuid.NewString,
		added:    make(map[models.StepType]int),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// FromWorkflow creates a graph that takes ownership of an existing workflow,
// typically one reconstructed from its persisted form. The workflow must
// already satisfy the graph invariants.
func FromWorkflow(workflow *models.Workflow, opts ...Option) (*Graph, error) {
	g := New(opts...)

	if workflow == nil {
		return g, nil
	}

	if workflow.Steps == nil {
		workflow.Steps = []*models.Step{}
	}

	if workflow.Connections == nil {
		workflow.Connections = []*models.Connection{}
	}

	err := g.checkInvariants(workflow)
	if err != nil {
		return nil, err
	}

	g.workflow = workflow
	for _, step := range workflow.Steps {
		g.added[step.Type]++
	}

	return g, nil
}

// Registry returns the step type catalogue the graph validates against.
func (g *Graph) Registry() *registry.Registry {
	return g.registry
}

// Workflow returns a deep copy of the current workflow.
func (g *Graph) Workflow() *models.Workflow {
	return g.workflow.Clone()
}

// Len returns the number of steps.
func (g *Graph) Len() int {
	return len(g.workflow.Steps)
}

// Step returns a copy of the step with the given id.
func (g *Graph) Step(id string) (*models.Step, bool) {
	step, _, ok := g.workflow.StepByID(id)
	if !ok {
		return nil, false
	}

	return step.Clone(), true
}

// Steps returns copies of all steps in sequence order.
func (g *Graph) Steps() []*models.Step {
	steps := make([]*models.Step, 0, len(g.workflow.Steps))
	for _, step := range g.workflow.Steps {
		steps = append(steps, step.Clone())
	}

	return steps
}

// Connections returns copies of all connections.
func (g *Graph) Connections() []*models.Connection {
	return g.filterConnections(func(*models.Connection) bool { return true })
}

// Incoming returns copies of the connections targeting a step.
func (g *Graph) Incoming(stepID string) []*models.Connection {
	return g.filterConnections(func(c *models.Connection) bool { return c.TargetStepID == stepID })
}

// Outgoing returns copies of the connections leaving a step.
func (g *Graph) Outgoing(stepID string) []*models.Connection {
	return g.filterConnections(func(c *models.Connection) bool { return c.SourceStepID == stepID })
}

func (g *Graph) filterConnections(keep func(*models.Connection) bool) []*models.Connection {
	connections := make([]*models.Connection, 0)

	for _, connection := range g.workflow.Connections {
		if keep(connection) {
			c := *connection
			connections = append(connections, &c)
		}
	}

	return connections
}

// SetMetadata replaces the workflow-level attributes.
func (g *Graph) SetMetadata(name, description, documentType string, isActive bool) {
	g.workflow.Name = name
	g.workflow.Description = description
	g.workflow.DocumentType = documentType
	g.workflow.IsActive = isActive
}

// AddStep appends a new step of the given type with a fresh id, a default
// name and the type's default config.
func (g *Graph) AddStep(stepType models.StepType, position models.Position) (*models.Step, error) {
	descriptor, err := g.registry.Describe(stepType)
	if err != nil {
		return nil, &Error{Op: "AddStep", Err: err}
	}

	id := g.newID()
	if _, _, exists := g.workflow.StepByID(id); exists || id == "" {
		return nil, stepError("AddStep", id, ErrDuplicateStepID)
	}

	count := g.added[stepType] + 1

	step := &models.Step{
		ID:       id,
		Type:     stepType,
		Name:     fmt.Sprintf("%s %d", descriptor.Label, count),
		Position: position,
		Config:   descriptor.DefaultConfig(),
	}

	g.added[stepType] = count
	g.workflow.Steps = append(g.workflow.Steps, step)

	return step.Clone(), nil
}

// RemoveStep removes a step together with every connection touching it.
func (g *Graph) RemoveStep(id string) error {
	_, index, ok := g.workflow.StepByID(id)
	if !ok {
		return stepError("RemoveStep", id, ErrUnknownStepReference)
	}

	connections := make([]*models.Connection, 0, len(g.workflow.Connections))
	for _, connection := range g.workflow.Connections {
		if !connection.Touches(id) {
			connections = append(connections, connection)
		}
	}

	steps := make([]*models.Step, 0, len(g.workflow.Steps)-1)
	steps = append(steps, g.workflow.Steps[:index]...)
	steps = append(steps, g.workflow.Steps[index+1:]...)

	g.workflow.Steps = steps
	g.workflow.Connections = connections

	return nil
}

// MoveStep updates a step's canvas position.
func (g *Graph) MoveStep(id string, position models.Position) error {
	step, _, ok := g.workflow.StepByID(id)
	if !ok {
		return stepError("MoveStep", id, ErrUnknownStepReference)
	}

	step.Position = position

	return nil
}

// RenameStep updates a step's name and description.
func (g *Graph) RenameStep(id, name, description string) error {
	step, _, ok := g.workflow.StepByID(id)
	if !ok {
		return stepError("RenameStep", id, ErrUnknownStepReference)
	}

	step.Name = name
	step.Description = description

	return nil
}

// Connect adds a connection from an output connector of the source step to
// the input of the target step. An empty target connector means the default
// input. Fan-out and self-loops are allowed.
func (g *Graph) Connect(sourceID, sourceConnector, targetID, targetConnector string) (*models.Connection, error) {
	const op = "Connect"

	source, _, ok := g.workflow.StepByID(sourceID)
	if !ok {
		return nil, stepError(op, sourceID, ErrUnknownStepReference)
	}

	if _, _, ok := g.workflow.StepByID(targetID); !ok {
		return nil, stepError(op, targetID, ErrUnknownStepReference)
	}

	descriptor, err := g.registry.Describe(source.Type)
	if err != nil {
		return nil, stepError(op, sourceID, err)
	}

	if descriptor.IsTerminal() {
		return nil, stepError(op, sourceID, ErrTerminalStepAsSource)
	}

	if !descriptor.HasOutput(sourceConnector) {
		return nil, stepError(op, sourceID, fmt.Errorf("%w: %s step has no output %q",
			ErrConnectorMismatch, source.Type, sourceConnector))
	}

	if targetConnector == "" {
		targetConnector = registry.InputConnector
	}

	if targetConnector != registry.InputConnector {
		return nil, stepError(op, targetID, fmt.Errorf("%w: steps have a single input %q, got %q",
			ErrConnectorMismatch, registry.InputConnector, targetConnector))
	}

	id := g.newID()
	if _, _, exists := g.workflow.ConnectionByID(id); exists || id == "" {
		return nil, &Error{Op: op, ConnectionID: id, Err: ErrDuplicateConnectionID}
	}

	connection := &models.Connection{
		ID:              id,
		SourceStepID:    sourceID,
		SourceConnector: sourceConnector,
		TargetStepID:    targetID,
		TargetConnector: targetConnector,
	}

	g.workflow.Connections = append(g.workflow.Connections, connection)

	c := *connection

	return &c, nil
}

// Disconnect removes a connection.
func (g *Graph) Disconnect(connectionID string) error {
	_, index, ok := g.workflow.ConnectionByID(connectionID)
	if !ok {
		return &Error{Op: "Disconnect", ConnectionID: connectionID, Err: ErrUnknownConnectionReference}
	}

	connections := make([]*models.Connection, 0, len(g.workflow.Connections)-1)
	connections = append(connections, g.workflow.Connections[:index]...)
	connections = append(connections, g.workflow.Connections[index+1:]...)
	g.workflow.Connections = connections

	return nil
}

func (g *Graph) checkInvariants(workflow *models.Workflow) error {
	const op = "FromWorkflow"

	ids := make(map[string]*models.Step, len(workflow.Steps))

	for _, step := range workflow.Steps {
		if _, dup := ids[step.ID]; dup || step.ID == "" {
			return stepError(op, step.ID, ErrDuplicateStepID)
		}

		if _, err := g.registry.Describe(step.Type); err != nil {
			return stepError(op, step.ID, err)
		}

		ids[step.ID] = step
	}

	connectionIDs := make(map[string]struct{}, len(workflow.Connections))

	for _, connection := range workflow.Connections {
		if _, dup := connectionIDs[connection.ID]; dup || connection.ID == "" {
			return &Error{Op: op, ConnectionID: connection.ID, Err: ErrDuplicateConnectionID}
		}

		connectionIDs[connection.ID] = struct{}{}

		source, ok := ids[connection.SourceStepID]
		if !ok {
			return &Error{Op: op, ConnectionID: connection.ID, Err: ErrUnknownStepReference}
		}

		if _, ok := ids[connection.TargetStepID]; !ok {
			return &Error{Op: op, ConnectionID: connection.ID, Err: ErrUnknownStepReference}
		}

		descriptor, _ := g.registry.Describe(source.Type)
		if descriptor.IsTerminal() {
			return &Error{Op: op, ConnectionID: connection.ID, Err: ErrTerminalStepAsSource}
		}

		if !descriptor.HasOutput(connection.SourceConnector) {
			return &Error{Op: op, ConnectionID: connection.ID, Err: ErrConnectorMismatch}
		}
	}

	return nil
}
