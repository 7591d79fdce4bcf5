package models

// StepType identifies the kind of a workflow step.
type StepType string

const (
	StepTypeUpload       StepType = "upload"
	StepTypeForm         StepType = "form"
	StepTypeApproval     StepType = "approval"
	StepTypeNotification StepType = "notification"
	StepTypeCondition    StepType = "condition"
	StepTypeArchive      StepType = "archive"
)

// Position is the location of a step on the designer canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Step represents a typed node in a workflow graph.
type Step struct {
	ID          string     `json:"id"`
	Type        StepType   `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Position    Position   `json:"position"`
	Config      StepConfig `json:"config"`
}

// Clone returns a deep copy of the step.
func (s *Step) Clone() *Step {
	clone := *s
	if s.Config != nil {
		clone.Config = s.Config.Clone()
	}

	return &clone
}

// IsTerminal reports whether the step type has no output connectors.
func (s *Step) IsTerminal() bool {
	return s.Type == StepTypeArchive
}
