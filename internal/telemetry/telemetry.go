// Package telemetry wires OpenTelemetry tracing and metrics for bundle builds.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/wolfeidau/bundlecfg"

// Resource attributes describing the bundle a process builds.
const (
	CommandKey     = attribute.Key("bundlecfg.command")
	OptionsFileKey = attribute.Key("bundlecfg.options.file")
	WorkDirKey     = attribute.Key("bundlecfg.work_dir")
	OutputPathKey  = attribute.Key("bundlecfg.output.path")
	EntriesKey     = attribute.Key("bundlecfg.entries")
)

// Bundle identifies the build a process runs so its spans and metrics can be
// told apart from other projects exporting to the same collector.
type Bundle struct {
	Command     string
	OptionsFile string
	WorkDir     string
	OutputPath  string
	Entries     []string
}

// Attributes returns the resource attributes for the bundle, skipping empty
// fields.
func (b Bundle) Attributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if b.Command != "" {
		attrs = append(attrs, CommandKey.String(b.Command))
	}
	if b.OptionsFile != "" {
		attrs = append(attrs, OptionsFileKey.String(b.OptionsFile))
	}
	if b.WorkDir != "" {
		attrs = append(attrs, WorkDirKey.String(b.WorkDir))
	}
	if b.OutputPath != "" {
		attrs = append(attrs, OutputPathKey.String(b.OutputPath))
	}
	if len(b.Entries) > 0 {
		attrs = append(attrs, EntriesKey.StringSlice(b.Entries))
	}
	return attrs
}

// newResource describes the process and the bundle it builds.
func newResource(ctx context.Context, serviceName, version string, bundle Bundle) (*resource.Resource, error) {
	attrs := append([]attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	}, bundle.Attributes()...)

	return resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
	)
}

// ShutdownFunc flushes and stops the exporters.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Tracer returns the tracer used for build spans. It is a no-op until
// InitTelemetry installs a provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// InitTelemetry initializes OpenTelemetry with OTLP gRPC exporters for
// metrics and traces. Exporters read the standard OTEL_EXPORTER_OTLP_*
// variables; OTEL_RESOURCE_ATTRIBUTES is merged into the resource.
//
// A CLI run is short lived, so metrics are exported on shutdown as well as
// on the periodic interval. Always call the returned function.
func InitTelemetry(ctx context.Context, serviceName, version string, bundle Bundle) (ShutdownFunc, error) {
	res, err := newResource(ctx, serviceName, version, bundle)
	if errors.Is(err, resource.ErrPartialResource) {
		log.Debug().Err(err).Msg("Some resource detectors failed")
	} else if err != nil {
		return noopShutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	traceShutdown, err := initTraceProvider(ctx, res)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize trace provider, continuing without tracing")
		traceShutdown = noopShutdown
	}

	metricShutdown, err := initMeterProvider(ctx, res)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize meter provider, continuing without metrics")
		metricShutdown = noopShutdown
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Debug().
		Str("service", serviceName).
		Str("version", version).
		Str("options", bundle.OptionsFile).
		Msg("OpenTelemetry initialized")

	return func(ctx context.Context) error {
		var errs []error
		if err := traceShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace shutdown: %w", err))
		}
		if err := metricShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric shutdown: %w", err))
		}
		return errors.Join(errs...)
	}, nil
}

func initTraceProvider(ctx context.Context, res *resource.Resource) (ShutdownFunc, error) {
	traceExporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter,
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

func initMeterProvider(ctx context.Context, res *resource.Resource) (ShutdownFunc, error) {
	metricExporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				metricExporter,
				sdkmetric.WithInterval(30*time.Second),
			),
		),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}
