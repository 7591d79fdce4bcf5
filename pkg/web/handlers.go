// Package web provides HTTP handlers and REST API endpoints for the workflow designer.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/docflow/pkg/designer"
	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/events"
	"github.com/dukex/docflow/pkg/graph"
	"github.com/dukex/docflow/pkg/models"
	"github.com/dukex/docflow/pkg/registry"
	"github.com/dukex/docflow/pkg/serializer"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	sessions  *designer.Manager
	publisher eventbus.EventPublisher
	validator *validator.Validate
	registry  *registry.Registry
	logger    *slog.Logger
}

// NewAPIHandlers creates the designer handlers. publisher may be nil, in which
// case stored workflows are not announced.
func NewAPIHandlers(
	sessions *designer.Manager,
	publisher eventbus.EventPublisher,
	validator *validator.Validate,
	registry *registry.Registry,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		sessions:  sessions,
		publisher: publisher,
		validator: validator,
		registry:  registry,
		logger:    logger,
	}
}

// Register mounts every designer route on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/step-types", h.GetStepTypes)

	s := router.Group("/sessions")
	s.Post("/", h.CreateSession)
	s.Get("/:sid", h.GetSession)
	s.Patch("/:sid", h.UpdateWorkflow)
	s.Delete("/:sid", h.DeleteSession)
	s.Post("/:sid/load", h.LoadWorkflow)

	s.Post("/:sid/steps", h.AddStep)
	s.Patch("/:sid/steps/:stepId", h.UpdateStep)
	s.Put("/:sid/steps/:stepId/position", h.MoveStep)
	s.Patch("/:sid/steps/:stepId/config", h.UpdateStepConfig)
	s.Post("/:sid/steps/:stepId/fields", h.AddFormField)
	s.Delete("/:sid/steps/:stepId/fields/:name", h.RemoveFormField)
	s.Delete("/:sid/steps/:stepId", h.RemoveStep)

	s.Post("/:sid/connections", h.Connect)
	s.Delete("/:sid/connections/:cid", h.Disconnect)

	s.Get("/:sid/validation", h.GetValidation)
	s.Post("/:sid/save", h.SaveSession)
	s.Get("/:sid/persisted", h.GetPersisted)

	w := router.Group("/workflows")
	w.Post("/", h.CreateStoredWorkflow)
	w.Get("/:id", h.GetStoredWorkflow)
	w.Put("/:id", h.UpdateStoredWorkflow)

	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetStepTypes(c fiber.Ctx) error {
	return c.JSON(h.registry.Types())
}

func (h *APIHandlers) CreateSession(c fiber.Ctx) error {
	var req CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	session := h.sessions.Create()

	if req.WorkflowID != "" {
		err := session.Load(c.Context(), req.WorkflowID)
		if err != nil {
			_ = h.sessions.Close(session.ID())

			return handleError(c, err)
		}
	}

	response, err := sessionResponse(session)
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

func (h *APIHandlers) GetSession(c fiber.Ctx) error {
	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	response, err := sessionResponse(session)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(response)
}

func (h *APIHandlers) DeleteSession(c fiber.Ctx) error {
	err := h.sessions.Close(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) LoadWorkflow(c fiber.Ctx) error {
	var req LoadWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	err = session.Load(c.Context(), req.WorkflowID)
	if err != nil {
		return handleError(c, err)
	}

	response, err := sessionResponse(session)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(response)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	err = session.Edit(func(g *graph.Graph) error {
		current := g.Workflow()

		// Apply partial updates
		if req.Name != nil {
			current.Name = *req.Name
		}

		if req.Description != nil {
			current.Description = *req.Description
		}

		if req.DocumentType != nil {
			current.DocumentType = *req.DocumentType
		}

		if req.IsActive != nil {
			current.IsActive = *req.IsActive
		}

		g.SetMetadata(current.Name, current.Description, current.DocumentType, current.IsActive)

		return nil
	})
	if err != nil {
		return handleError(c, err)
	}

	response, err := sessionResponse(session)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(response)
}

func (h *APIHandlers) AddStep(c fiber.Ctx) error {
	var req AddStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	var step *models.Step

	err := h.edit(c, func(g *graph.Graph) error {
		var err error

		step, err = g.AddStep(models.StepType(req.Type), req.Position)

		return err
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(step)
}

func (h *APIHandlers) UpdateStep(c fiber.Ctx) error {
	var req UpdateStepRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	stepID := c.Params("stepId")

	return h.editStep(c, stepID, func(g *graph.Graph) error {
		name, description := "", ""
		if current, ok := g.Step(stepID); ok {
			name, description = current.Name, current.Description
		}

		if req.Name != nil {
			name = *req.Name
		}

		if req.Description != nil {
			description = *req.Description
		}

		return g.RenameStep(stepID, name, description)
	})
}

func (h *APIHandlers) MoveStep(c fiber.Ctx) error {
	var position models.Position
	if err := c.Bind().JSON(&position); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	stepID := c.Params("stepId")

	return h.editStep(c, stepID, func(g *graph.Graph) error {
		return g.MoveStep(stepID, position)
	})
}

func (h *APIHandlers) UpdateStepConfig(c fiber.Ctx) error {
	var partial map[string]any
	if err := c.Bind().JSON(&partial); err != nil || partial == nil {
		return badRequest(c, "Config update must be a JSON object")
	}

	stepID := c.Params("stepId")

	return h.editStep(c, stepID, func(g *graph.Graph) error {
		return g.UpdateStepConfig(stepID, partial)
	})
}

func (h *APIHandlers) AddFormField(c fiber.Ctx) error {
	var req AddFormFieldRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	stepID := c.Params("stepId")

	return h.editStep(c, stepID, func(g *graph.Graph) error {
		return g.AddFormField(stepID, req.FormField())
	})
}

func (h *APIHandlers) RemoveFormField(c fiber.Ctx) error {
	stepID := c.Params("stepId")
	name := c.Params("name")

	return h.editStep(c, stepID, func(g *graph.Graph) error {
		return g.RemoveFormField(stepID, name)
	})
}

func (h *APIHandlers) RemoveStep(c fiber.Ctx) error {
	stepID := c.Params("stepId")

	err := h.edit(c, func(g *graph.Graph) error {
		return g.RemoveStep(stepID)
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) Connect(c fiber.Ctx) error {
	var req ConnectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	var connection *models.Connection

	err := h.edit(c, func(g *graph.Graph) error {
		var err error

		connection, err = g.Connect(req.SourceStepID, req.SourceConnector, req.TargetStepID, req.TargetConnector)

		return err
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(connection)
}

func (h *APIHandlers) Disconnect(c fiber.Ctx) error {
	connectionID := c.Params("cid")

	err := h.edit(c, func(g *graph.Graph) error {
		return g.Disconnect(connectionID)
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetValidation(c fiber.Ctx) error {
	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	report, err := session.Validate()
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(fiber.Map{
		"valid":    report.Valid(),
		"errors":   normalizeReport(report).Errors,
		"warnings": normalizeReport(report).Warnings,
	})
}

func (h *APIHandlers) SaveSession(c fiber.Ctx) error {
	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	id, err := session.Save(c.Context())
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(SaveResponse{WorkflowID: id})
}

func (h *APIHandlers) GetPersisted(c fiber.Ctx) error {
	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return handleError(c, err)
	}

	persisted, err := session.Persisted()
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(persisted)
}

func (h *APIHandlers) GetStoredWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	persisted, err := h.sessions.Client().Load(c.Context(), id)
	if err != nil {
		return handleError(c, err)
	}

	persisted.ID = id

	return c.JSON(persisted)
}

func (h *APIHandlers) CreateStoredWorkflow(c fiber.Ctx) error {
	return h.storeWorkflow(c, "")
}

func (h *APIHandlers) UpdateStoredWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	return h.storeWorkflow(c, id)
}

// storeWorkflow checks that the body can be rebuilt into a consistent graph
// before handing it to the store.
func (h *APIHandlers) storeWorkflow(c fiber.Ctx, id string) error {
	var req StoreWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	persisted := req.Persisted()

	_, err := serializer.FromPersisted(persisted, serializer.WithRegistry(h.registry))
	if err != nil {
		return handleError(c, err)
	}

	storedID, err := h.sessions.Client().Save(c.Context(), id, persisted)
	if err != nil {
		return handleError(c, err)
	}

	created := id == ""
	h.publishStored(c.Context(), storedID, created)

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}

	return c.Status(status).JSON(StoredWorkflowResponse{ID: storedID})
}

func (h *APIHandlers) publishStored(ctx context.Context, id string, created bool) {
	if h.publisher == nil {
		return
	}

	err := h.publisher.Publish(ctx, id, events.NewWorkflowStored(h.publisher.GenerateID(), id, created))
	if err != nil {
		h.logger.WarnContext(ctx, "Failed to publish workflow stored event", "workflow_id", id, "error", err)
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Docflow API is healthy"
	httpStatus := http.StatusOK
	persistenceCheck := "ok"

	err := h.sessions.Client().HealthCheck(c.Context())
	if err != nil {
		status = "unhealthy"
		message = "Docflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
		persistenceCheck = err.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"persistence": persistenceCheck,
		},
		"sessions":  h.sessions.Len(),
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) edit(c fiber.Ctx, fn func(g *graph.Graph) error) error {
	session, err := h.sessions.Get(c.Params("sid"))
	if err != nil {
		return err
	}

	return session.Edit(fn)
}

// editStep applies fn and responds with the updated step.
func (h *APIHandlers) editStep(c fiber.Ctx, stepID string, fn func(g *graph.Graph) error) error {
	var step *models.Step

	err := h.edit(c, func(g *graph.Graph) error {
		err := fn(g)
		if err != nil {
			return err
		}

		step, _ = g.Step(stepID)

		return nil
	})
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(step)
}

func sessionResponse(session *designer.Session) (*SessionResponse, error) {
	workflow, err := session.Workflow()
	if err != nil {
		return nil, err
	}

	return &SessionResponse{Status: session.Status(), Workflow: workflow}, nil
}
