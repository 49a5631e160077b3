package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/insighted/schoolprofile/internal/config"
	"github.com/insighted/schoolprofile/internal/logger"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// Option configures Init.
type Option func(*options)

type options struct {
	out     io.Writer
	version string
}

// WithWriter sets where exported spans are written. Defaults to stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithVersion records the service version on the trace resource.
func WithVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// Init installs the global tracer provider and propagator. When tracing is
// disabled the global no-op provider stays in place and the returned
// shutdown does nothing.
func Init(ctx context.Context, cfg config.TracingConfig, env string, log *logger.Logger, opts ...Option) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "schoolprofile-api"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", o.version),
			attribute.String("deployment.environment", env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(o.out))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if log != nil {
		log.Info("Tracing initialized", map[string]interface{}{
			"service": serviceName,
		})
	}
	return tp.Shutdown, nil
}
