package daemon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
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

// TestDaemonMetrics_RecordMaintenance tests the run counter
func TestDaemonMetrics_RecordMaintenance(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	dm, err := newDaemonMetricsWithProvider(provider)
	require.NoError(t, err)

	ctx := context.Background()
	dm.RecordMaintenance(ctx, "success")
	dm.RecordMaintenance(ctx, "success")

	metrics := collect(t, reader)
	m, ok := metrics["cloudctl.daemon.maintenance.runs"]
	require.True(t, ok)

	sum := m.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
	assert.Contains(t, sum.DataPoints[0].Attributes.ToSlice(), attribute.String("status", "success"))
}

// TestDaemonMetrics_RecordMaintenanceDuration tests duration histogram
func TestDaemonMetrics_RecordMaintenanceDuration(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	dm, err := newDaemonMetricsWithProvider(provider)
	require.NoError(t, err)

	dm.RecordMaintenanceDuration(context.Background(), 1.5, "error")

	m, ok := collect(t, reader)["cloudctl.daemon.maintenance.duration"]
	require.True(t, ok, "duration metric not found")

	hist := m.Data.(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, 1.5, hist.DataPoints[0].Sum)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Contains(t, hist.DataPoints[0].Attributes.ToSlice(), attribute.String("status", "error"))
}

// TestDaemonMetrics_Housekeeping tests the compaction and retention counters
func TestDaemonMetrics_Housekeeping(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	dm, err := newDaemonMetricsWithProvider(provider)
	require.NoError(t, err)

	ctx := context.Background()
	dm.RecordHistoryCompacted(ctx, 7)
	dm.RecordWALPruned(ctx, 2, 4096)

	metrics := collect(t, reader)
	assert.Equal(t, int64(7), metrics["cloudctl.storage.history.compacted"].Data.(metricdata.Sum[int64]).DataPoints[0].Value)
	assert.Equal(t, int64(2), metrics["cloudctl.wal.files.removed"].Data.(metricdata.Sum[int64]).DataPoints[0].Value)
	assert.Equal(t, int64(4096), metrics["cloudctl.wal.bytes.freed"].Data.(metricdata.Sum[int64]).DataPoints[0].Value)
}
