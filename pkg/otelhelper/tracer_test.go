package otelhelper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestStartSpan_DefaultTracer(t *testing.T) {
	ctx, span := StartSpan(context.Background(), DefaultTracer("test"), "designer.save",
		attribute.String(WorkflowIDKey, "wf-1"),
	)
	defer span.End()

	assert.NotNil(t, ctx)

	SetError(span, errors.New("boom"), attribute.String(SessionIDKey, "s-1"))
}
