package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/bundlecfg"
)

// Metrics holds the OpenTelemetry instruments recorded by the asset pipeline
type Metrics struct {
	// Build metrics
	BuildsTotal       metric.Int64Counter
	BuildErrorsTotal  metric.Int64Counter
	BuildDuration     metric.Float64Histogram
	OutputBytesTotal  metric.Int64Counter
	OutputFilesTotal  metric.Int64Counter
	CyclesFoundTotal  metric.Int64Counter
	TypeCheckDuration metric.Float64Histogram

	// Dev server metrics
	RebuildsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"bundlecfg.builds.total",
		metric.WithDescription("Total number of bundle builds"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"bundlecfg.builds.errors.total",
		metric.WithDescription("Total number of failed bundle builds"),
		metric.WithUnit("{error}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"bundlecfg.builds.duration",
		metric.WithDescription("Duration of bundle builds"),
		metric.WithUnit("ms"),
	)

	m.OutputBytesTotal, _ = meter.Int64Counter(
		"bundlecfg.outputs.bytes.total",
		metric.WithDescription("Total bytes written to the output directory"),
		metric.WithUnit("By"),
	)

	m.OutputFilesTotal, _ = meter.Int64Counter(
		"bundlecfg.outputs.files.total",
		metric.WithDescription("Total files written to the output directory"),
		metric.WithUnit("{file}"),
	)

	m.CyclesFoundTotal, _ = meter.Int64Counter(
		"bundlecfg.cycles.found.total",
		metric.WithDescription("Total number of circular dependencies detected"),
		metric.WithUnit("{cycle}"),
	)

	m.TypeCheckDuration, _ = meter.Float64Histogram(
		"bundlecfg.typecheck.duration",
		metric.WithDescription("Duration of type checking runs"),
		metric.WithUnit("ms"),
	)

	m.RebuildsTotal, _ = meter.Int64Counter(
		"bundlecfg.watch.rebuilds.total",
		metric.WithDescription("Total number of rebuilds triggered in watch mode"),
		metric.WithUnit("{build}"),
	)

	return m
}
