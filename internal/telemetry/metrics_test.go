package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

func TestGetMetricsRecordsThroughGlobalProvider(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m := GetMetrics()
	require.Same(t, m, GetMetrics())

	ctx := context.Background()
	m.BuildsTotal.Add(ctx, 2)
	m.CyclesFoundTotal.Add(ctx, 1)
	m.BuildDuration.Record(ctx, 12.5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			names[metric.Name] = true
		}
	}
	require.True(t, names["bundlecfg.builds.total"])
	require.True(t, names["bundlecfg.cycles.found.total"])
	require.True(t, names["bundlecfg.builds.duration"])
}

func TestTracerIsUsableWithoutInit(t *testing.T) {
	_, span := Tracer().Start(context.Background(), "test")
	defer span.End()
	require.NotNil(t, span)
}

func TestBundleResourceAttributes(t *testing.T) {
	bundle := Bundle{
		Command:     "build",
		OptionsFile: "/project/bundle.yaml",
		WorkDir:     "/project",
		OutputPath:  "/project/dist",
		Entries:     []string{"app", "admin"},
	}

	res, err := newResource(context.Background(), "bundlecfg", "1.2.3", bundle)
	if err != nil {
		require.ErrorIs(t, err, resource.ErrPartialResource)
	}

	set := res.Set()
	for _, kv := range bundle.Attributes() {
		got, ok := set.Value(kv.Key)
		require.True(t, ok, "missing %s", kv.Key)
		require.Equal(t, kv.Value, got)
	}

	entries, ok := set.Value(EntriesKey)
	require.True(t, ok)
	require.Equal(t, []string{"app", "admin"}, entries.AsStringSlice())

	service, ok := set.Value("service.name")
	require.True(t, ok)
	require.Equal(t, "bundlecfg", service.AsString())
}

func TestBundleAttributesSkipEmptyFields(t *testing.T) {
	attrs := Bundle{Command: "serve"}.Attributes()
	require.Len(t, attrs, 1)
	require.Equal(t, CommandKey, attrs[0].Key)
}
