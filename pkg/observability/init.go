// Package observability sets up OpenTelemetry tracing for conversion runs.
//
// With a trace file configured, spans are exported as JSON lines through the
// stdouttrace exporter; without one every span is a no-op.
package observability

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	// File receives the exported spans; empty disables tracing.
	File string
}

// Tracing owns the tracer provider and its output.
type Tracing struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	out      io.Closer
}

// Init builds the tracer for config. Callers must Shutdown the result.
func Init(ctx context.Context, config TracingConfig) (*Tracing, error) {
	if config.File == "" {
		return Noop(), nil
	}

	f, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	return initWithWriter(ctx, config, f)
}

func initWithWriter(ctx context.Context, config TracingConfig, w io.WriteCloser) (*Tracing, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
		),
	)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	// Spans go out as they end; a CLI run is short and must not lose the tail.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSyncer(exporter),
	)
	return &Tracing{
		tracer:   tp.Tracer(config.ServiceName),
		provider: tp,
		out:      w,
	}, nil
}

// Noop returns a Tracing whose spans record nothing.
func Noop() *Tracing {
	return &Tracing{tracer: noop.NewTracerProvider().Tracer("")}
}

// Tracer returns the underlying tracer.
func (t *Tracing) Tracer() trace.Tracer { return t.tracer }

// Shutdown flushes pending spans and closes the trace file.
func (t *Tracing) Shutdown(ctx context.Context) error {
	var errs []error
	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer: %w", err))
		}
	}
	if t.out != nil {
		if err := t.out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close trace file: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
