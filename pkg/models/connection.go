package models

// DefaultConnector is the name of the single input connector every step has,
// and of the only output connector of non-branching step types.
const DefaultConnector = "default"

// Connection is a directed edge from an output connector of one step to the
// input connector of another.
type Connection struct {
	ID              string `json:"id"`
	SourceStepID    string `json:"sourceStepId"    validate:"required"`
	SourceConnector string `json:"sourceConnector" validate:"required"`
	TargetStepID    string `json:"targetStepId"    validate:"required"`
	TargetConnector string `json:"targetConnector"`
}

// Touches reports whether the connection has the given step on either end.
func (c *Connection) Touches(stepID string) bool {
	return c.SourceStepID == stepID || c.TargetStepID == stepID
}
