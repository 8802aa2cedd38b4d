package daemon

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DaemonMetrics holds maintenance metrics using OTEL semantic conventions
type DaemonMetrics struct {
	runs            metric.Int64Counter
	runDuration     metric.Float64Histogram
	historyDeleted  metric.Int64Counter
	walFilesRemoved metric.Int64Counter
	walBytesFreed   metric.Int64Counter
}

// NewDaemonMetrics creates daemon metrics following OTEL semantic conventions
func NewDaemonMetrics() (*DaemonMetrics, error) {
	return newDaemonMetricsWithProvider(otel.GetMeterProvider())
}

func newDaemonMetricsWithProvider(provider metric.MeterProvider) (*DaemonMetrics, error) {
	meter := provider.Meter("cloudctl.daemon")

	runs, err := meter.Int64Counter(
		"cloudctl.daemon.maintenance.runs",
		metric.WithDescription("Number of maintenance runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"cloudctl.daemon.maintenance.duration",
		metric.WithDescription("Duration of maintenance runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	historyDeleted, err := meter.Int64Counter(
		"cloudctl.storage.history.compacted",
		metric.WithDescription("Number of history records removed by compaction"),
		metric.WithUnit("{revision}"),
	)
	if err != nil {
		return nil, err
	}

	walFilesRemoved, err := meter.Int64Counter(
		"cloudctl.wal.files.removed",
		metric.WithDescription("Number of audit log files removed by retention"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, err
	}

	walBytesFreed, err := meter.Int64Counter(
		"cloudctl.wal.bytes.freed",
		metric.WithDescription("Bytes freed by audit log retention"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &DaemonMetrics{
		runs:            runs,
		runDuration:     runDuration,
		historyDeleted:  historyDeleted,
		walFilesRemoved: walFilesRemoved,
		walBytesFreed:   walBytesFreed,
	}, nil
}

// RecordMaintenance records a maintenance run with status
func (m *DaemonMetrics) RecordMaintenance(ctx context.Context, status string) {
	m.runs.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
}

// RecordMaintenanceDuration records maintenance duration
func (m *DaemonMetrics) RecordMaintenanceDuration(ctx context.Context, durationSeconds float64, status string) {
	m.runDuration.Record(ctx, durationSeconds,
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
}

// RecordHistoryCompacted records removed history records
func (m *DaemonMetrics) RecordHistoryCompacted(ctx context.Context, deleted int) {
	m.historyDeleted.Add(ctx, int64(deleted))
}

// RecordWALPruned records removed audit log files
func (m *DaemonMetrics) RecordWALPruned(ctx context.Context, files int, bytes int64) {
	m.walFilesRemoved.Add(ctx, int64(files))
	m.walBytesFreed.Add(ctx, bytes)
}
