// Package tracing wires up the process-wide OpenTelemetry tracer. Spans
// are started by the hardware (tello) backend around Connect and each
// command round trip; the simulated backend and the navigator start
// none. It mirrors
// the teacher stack's otel dependency set (stdout exporter by
// default) rather than shipping to a collector — there is no
// centralized tracing backend in scope for a single-process
// controller, but span/attribute plumbing is exercised end to end.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// ServiceName identifies this process in every emitted span's
// resource attributes.
const ServiceName = "drone-control"

// Init installs a process-wide TracerProvider backed by a stdout
// exporter and returns a shutdown func the caller must invoke before
// exit to flush pending spans. Passing pretty=true formats the
// exported JSON for local debugging; production runs leave it
// compact.
func Init(ctx context.Context, pretty bool) (func(context.Context) error, error) {
	opts := []stdouttrace.Option{stdouttrace.WithoutTimestamps()}
	if pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("tracing: stdout exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
