package logging

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// otelTracer returns a no-op tracer unless OTel export is enabled, in which
// case it builds an OTLP/gRPC exporter pointed at the collector named by the
// usual OTEL_EXPORTER_OTLP_ENDPOINT environment variable (honored by
// otlptracegrpc itself).
func otelTracer(enabled bool) trace.Tracer {
	if !enabled {
		return noop.NewTracerProvider().Tracer("divban")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return noop.NewTracerProvider().Tracer("divban")
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Tracer("divban")
}
