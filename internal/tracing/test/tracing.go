package test

import (
	"context"

	"github.com/DMarby/photo-editor/internal/logger"
	"github.com/DMarby/photo-editor/internal/tracing"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a tracer that records nothing, for tests
func Tracer(log *logger.Logger) *tracing.Tracer {
	tp := trace.NewNoopTracerProvider()
	return &tracing.Tracer{
		ServiceName:    "photo-editor-test",
		Log:            log,
		TracerProvider: tp,
		ShutdownFunc: func(context.Context) error {
			return nil
		},
		TracerInstance: tp.Tracer("photo-editor-test"),
	}
}
