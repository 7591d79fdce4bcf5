// Package validation checks a whole workflow graph before it is persisted.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/registry"
	"github.com/go-playground/validator/v10"
)

// ErrValidationFailed is returned when a report contains blocking errors.
var ErrValidationFailed = errors.New("workflow validation failed")

// Issue is a single finding about a workflow. StepID is empty for
// workflow-level findings.
type Issue struct {
	StepID       string `json:"stepId,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
	Field        string `json:"field"`
	Message      string `json:"message"`
}

// Report is the result of validating a workflow. Errors block persistence;
// warnings are advisory.
type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Valid reports whether the report holds no errors.
func (r Report) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns nil for a valid report and an error wrapping ErrValidationFailed otherwise.
func (r Report) Err() error {
	if r.Valid() {
		return nil
	}

	return fmt.Errorf("%w: %d error(s), first: %s", ErrValidationFailed, len(r.Errors), r.Errors[0])
}

// ErrorsForStep returns the errors attached to a step, for property panels.
func (r Report) ErrorsForStep(stepID string) []Issue {
	var issues []Issue

	for _, issue := range r.Errors {
		if issue.StepID == stepID {
			issues = append(issues, issue)
		}
	}

	return issues
}

func (i Issue) String() string {
	if i.StepID == "" {
		return fmt.Sprintf("%s: %s", i.Field, i.Message)
	}

	return fmt.Sprintf("step %s %s: %s", i.StepID, i.Field, i.Message)
}

// Validator validates workflows against a step type registry.
type Validator struct {
	registry *registry.Registry
	validate *validator.Validate
}

// New creates a validator. A nil registry means registry.Default.
func New(r *registry.Registry) *Validator {
	if r == nil {
		r = registry.Default
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return &Validator{
		registry: r,
		validate: validate,
	}
}

// Validate runs every check over the workflow.
func (v *Validator) Validate(workflow *models.Workflow) Report {
	report := Report{
		Errors:   []Issue{},
		Warnings: []Issue{},
	}

	if workflow == nil {
		report.Errors = append(report.Errors, Issue{Field: "workflow", Message: "workflow is missing"})

		return report
	}

	if strings.TrimSpace(workflow.Name) == "" {
		report.Errors = append(report.Errors, Issue{Field: "name", Message: "workflow name is required"})
	}

	steps := v.checkSteps(workflow, &report)
	v.checkConnections(workflow, steps, &report)
	v.checkReachability(workflow, &report)

	return report
}

func (v *Validator) checkSteps(workflow *models.Workflow, report *Report) map[string]*models.Step {
	steps := make(map[string]*models.Step, len(workflow.Steps))

	for _, step := range workflow.Steps {
		if _, dup := steps[step.ID]; dup {
			report.Errors = append(report.Errors, Issue{StepID: step.ID, Field: "id", Message: "step id is not unique"})

			continue
		}

		steps[step.ID] = step

		if _, err := v.registry.Describe(step.Type); err != nil {
			report.Errors = append(report.Errors, Issue{StepID: step.ID, Field: "type", Message: err.Error()})

			continue
		}

		report.Errors = append(report.Errors, v.checkConfig(step)...)
	}

	return steps
}

func (v *Validator) checkConfig(step *models.Step) []Issue {
	if step.Config == nil || step.Config.StepType() != step.Type {
		return []Issue{{StepID: step.ID, Field: "config", Message: fmt.Sprintf("config does not belong to a %s step", step.Type)}}
	}

	var issues []Issue

	err := v.validate.Struct(step.Config)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldErr := range validationErrors {
			issues = append(issues, Issue{
				StepID:  step.ID,
				Field:   fieldPath(fieldErr.Namespace()),
				Message: fieldMessage(fieldErr),
			})
		}
	} else if err != nil {
		issues = append(issues, Issue{StepID: step.ID, Field: "config", Message: err.Error()})
	}

	if form, ok := step.Config.(*models.FormConfig); ok {
		if name, dup := form.DuplicateFieldName(); dup {
			issues = append(issues, Issue{StepID: step.ID, Field: "fields", Message: fmt.Sprintf("field name %q is used more than once", name)})
		}
	}

	return issues
}

func (v *Validator) checkConnections(workflow *models.Workflow, steps map[string]*models.Step, report *Report) {
	for _, connection := range workflow.Connections {
		source, sourceOK := steps[connection.SourceStepID]
		_, targetOK := steps[connection.TargetStepID]

		if !sourceOK || !targetOK {
			report.Errors = append(report.Errors, Issue{
				StepID:       connection.SourceStepID,
				ConnectionID: connection.ID,
				Field:        "connections",
				Message:      "connection references a step that does not exist",
			})

			continue
		}

		descriptor, err := v.registry.Describe(source.Type)
		if err != nil {
			continue
		}

		switch {
		case descriptor.IsTerminal():
			report.Errors = append(report.Errors, Issue{
				StepID:       source.ID,
				ConnectionID: connection.ID,
				Field:        "connections",
				Message:      fmt.Sprintf("%s steps cannot have outgoing connections", source.Type),
			})
		case !descriptor.HasOutput(connection.SourceConnector):
			report.Errors = append(report.Errors, Issue{
				StepID:       source.ID,
				ConnectionID: connection.ID,
				Field:        "connections",
				Message:      fmt.Sprintf("%s steps have no output %q", source.Type, connection.SourceConnector),
			})
		}
	}
}

// checkReachability warns about steps nothing leads to. The first step in the
// sequence is the entry step and needs no incoming connection; self-loops do
// not count as incoming.
func (v *Validator) checkReachability(workflow *models.Workflow, report *Report) {
	incoming := make(map[string]bool, len(workflow.Steps))

	for _, connection := range workflow.Connections {
		if connection.SourceStepID != connection.TargetStepID {
			incoming[connection.TargetStepID] = true
		}
	}

	for i, step := range workflow.Steps {
		if i == 0 || incoming[step.ID] {
			continue
		}

		report.Warnings = append(report.Warnings, Issue{
			StepID:  step.ID,
			Field:   "connections",
			Message: fmt.Sprintf("step %q is not reachable: it has no incoming connection", step.Name),
		})
	}
}

// fieldPath strips the config struct name from a validator namespace,
// e.g. "FormConfig.fields[0].name" becomes "fields[0].name".
func fieldPath(namespace string) string {
	_, path, found := strings.Cut(namespace, ".")
	if !found {
		return namespace
	}

	return path
}

func fieldMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required", "required_if", "required_unless":
		return "is required"
	case "unique":
		return "must not contain duplicates"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fieldErr.Param(), " ", ", ")
	default:
		return fmt.Sprintf("failed %q check", fieldErr.Tag())
	}
}

var defaultValidator = New(registry.Default)

// Validate checks a workflow against the built-in step types.
func Validate(workflow *models.Workflow) Report {
	return defaultValidator.Validate(workflow)
}
