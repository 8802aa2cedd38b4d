package emitter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/yairfalse/cloudctl/types"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestPrometheusEmitter_Emit(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	e, err := newPrometheusEmitterWithProvider(provider, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, e.Emit(ctx, Snapshot{Clouds: []types.Cloud{makeCloud("cloud-1", "Dev"), makeCloud("cloud-2", "Ops")}}))

	metrics := collect(t, reader)
	info, ok := metrics["cloudctl_cloud_info"]
	require.True(t, ok)
	gauge := info.Data.(metricdata.Gauge[int64])
	assert.Len(t, gauge.DataPoints, 2)

	_, ok = metrics["cloudctl_cloud_changes_total"]
	assert.False(t, ok, "baseline snapshot records no changes")

	renamed := makeCloud("cloud-2", "Operations")
	require.NoError(t, e.Emit(ctx, Snapshot{Clouds: []types.Cloud{renamed}}))

	metrics = collect(t, reader)
	gauge = metrics["cloudctl_cloud_info"].Data.(metricdata.Gauge[int64])
	var names []string
	for _, dp := range gauge.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key("name")); ok {
			names = append(names, v.AsString())
		}
	}
	assert.Contains(t, names, "Operations")

	changes := metrics["cloudctl_cloud_changes_total"].Data.(metricdata.Sum[int64])
	byType := map[string]int64{}
	for _, dp := range changes.DataPoints {
		v, _ := dp.Attributes.Value("change_type")
		byType[v.AsString()] += dp.Value
	}
	assert.Equal(t, map[string]int64{"deleted": 1, "modified": 1}, byType)

	snaps := metrics["cloudctl_inventory_snapshots_total"].Data.(metricdata.Sum[int64])
	require.Len(t, snaps.DataPoints, 1)
	assert.Equal(t, int64(2), snaps.DataPoints[0].Value)

	assert.NoError(t, e.Close())
}
