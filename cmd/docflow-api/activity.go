package main

import (
	"context"
	"log/slog"

	"github.com/dukex/docflow/pkg/eventbus"
	"github.com/dukex/docflow/pkg/events"
)

// registerActivityLog logs every workflow event seen on the bus.
func registerActivityLog(bus eventbus.EventSubscriber, logger *slog.Logger) error {
	for _, eventType := range []events.EventType{
		events.WorkflowSavedEvent,
		events.WorkflowLoadedEvent,
		events.WorkflowStoredEvent,
	} {
		err := bus.Handle(eventType, activityHandler(logger))
		if err != nil {
			return err
		}
	}

	return nil
}

func activityHandler(logger *slog.Logger) eventbus.EventHandler {
	return func(ctx context.Context, event any) error {
		switch e := event.(type) {
		case *events.WorkflowSaved:
			logger.InfoContext(ctx, "Workflow saved",
				"workflow_id", e.WorkflowID, "session_id", e.SessionID,
				"steps", e.StepCount, "warnings", e.WarningCount)
		case *events.WorkflowLoaded:
			logger.InfoContext(ctx, "Workflow loaded",
				"workflow_id", e.WorkflowID, "session_id", e.SessionID, "steps", e.StepCount)
		case *events.WorkflowStored:
			logger.InfoContext(ctx, "Workflow stored", "workflow_id", e.WorkflowID, "created", e.Created)
		default:
			logger.WarnContext(ctx, "Unexpected event", "event", event)
		}

		return nil
	}
}
