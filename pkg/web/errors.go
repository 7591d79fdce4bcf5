package web

import (
	"errors"

	"github.com/dukex/docflow/pkg/designer"
	"github.com/dukex/docflow/pkg/graph"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/serializer"
	"github.com/dukex/docflow/pkg/validation"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// ValidationProblem is a problem document carrying the validation report
// that blocked a save.
type ValidationProblem struct {
	*problems.Problem

	Report validation.Report `json:"report"`
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

func statusProblem(c fiber.Ctx, status int, problemType string, err error) error {
	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(err.Error())

	return c.Status(status).JSON(problem)
}

// handleError maps designer, graph and persistence errors to problem responses.
func handleError(c fiber.Ctx, err error) error {
	var rejected *designer.SaveRejectedError

	switch {
	case errors.As(err, &rejected):
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("workflow_invalid").
			WithDetail(rejected.Error())

		return c.Status(fiber.StatusUnprocessableEntity).JSON(ValidationProblem{
			Problem: problem,
			Report:         normalizeReport(rejected.Report),
		})

	case designer.IsBusy(err):
		return statusProblem(c, fiber.StatusConflict, "save_in_progress", err)

	case designer.IsDiscarded(err):
		return statusProblem(c, fiber.StatusConflict, "result_discarded", err)

	case errors.Is(err, designer.ErrSessionNotFound):
		return statusProblem(c, fiber.StatusNotFound, "session_not_found", err)

	case persistence.IsWorkflowNotFound(err):
		return statusProblem(c, fiber.StatusNotFound, "workflow_not_found", err)

	case graph.IsReferenceError(err):
		return statusProblem(c, fiber.StatusNotFound, "reference_not_found", err)

	case graph.IsStructuralError(err):
		return statusProblem(c, fiber.StatusBadRequest, "structural_error", err)

	case errors.Is(err, serializer.ErrCorruptPersistedData):
		return statusProblem(c, fiber.StatusBadRequest, "corrupt_workflow", err)

	case errors.Is(err, persistence.ErrInvalidWorkflowID):
		return statusProblem(c, fiber.StatusBadRequest, "invalid_workflow_id", err)

	default:
		return internalError(c, err)
	}
}

func normalizeReport(report validation.Report) validation.Report {
	if report.Errors == nil {
		report.Errors = []validation.Issue{}
	}

	if report.Warnings == nil {
		report.Warnings = []validation.Issue{}
	}

	return report
}
