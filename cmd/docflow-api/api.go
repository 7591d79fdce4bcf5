// Package main provides the docflow designer API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/docflow/pkg/designer"
	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/persistence"
	"github.com/dukex/docflow/pkg/registry"
	"github.com/dukex/docflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Client
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
	sessions    *designer.Manager
}

// NewAPI wires the designer sessions to persistence and, when eventBus is not
// nil, to the event bus.
func NewAPI(
	logger *slog.Logger,
	persistence persistence.Client,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
) *API {
	opts := []designer.Option{
		designer.WithRegistry(registry),
		designer.WithTracer(tracer),
	}

	if eventBus != nil {
		opts = append(opts, designer.WithPublisher(eventBus))
	}

	return &API{
		persistence: persistence,
		logger:      logger,
		registry:    registry,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		sessions:    designer.NewManager(persistence, opts...),
	}
}

func (a *API) App() *fiber.App {
	var publisher eventbus.EventPublisher
	if a.eventBus != nil {
		publisher = a.eventBus
	}

	handlers := web.NewAPIHandlers(a.sessions, publisher, a.validate, a.registry, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Docflow API")
	})

	handlers.Register(app)

	return app
}

// Start serves the API until ctx is cancelled, then closes every open
// session and shuts the server down.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		a.logger.Info("Shutting down API", "sessions", a.sessions.Len())
		a.sessions.CloseAll()

		err := app.Shutdown()
		if err != nil {
			a.logger.Error("Failed to shut down API", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}
