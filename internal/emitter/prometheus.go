package emitter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yairfalse/cloudctl/telemetry"
	"github.com/yairfalse/cloudctl/types"
)

// PrometheusEmitter exposes the registry contents as metrics via OTEL.
type PrometheusEmitter struct {
	meter  metric.Meter
	logger *telemetry.Logger

	cloudInfo         metric.Int64ObservableGauge
	snapshotsTotal    metric.Int64Counter
	cloudChangesTotal metric.Int64Counter

	// state for the observable gauge
	mu     sync.RWMutex
	clouds []types.Cloud

	diffTracker *DiffTracker
}

// NewPrometheusEmitter creates a Prometheus emitter on the global meter
// provider.
func NewPrometheusEmitter(logger *telemetry.Logger) (*PrometheusEmitter, error) {
	return newPrometheusEmitterWithProvider(otel.GetMeterProvider(), logger)
}

func newPrometheusEmitterWithProvider(provider metric.MeterProvider, logger *telemetry.Logger) (*PrometheusEmitter, error) {
	if logger == nil {
		logger = telemetry.Nop()
	}
	e := &PrometheusEmitter{
		meter:       provider.Meter("cloudctl.inventory"),
		logger:      logger.Component("inventory"),
		diffTracker: NewDiffTracker(),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return e, nil
}

func (e *PrometheusEmitter) initMetrics() error {
	var err error

	e.cloudInfo, err = e.meter.Int64ObservableGauge(
		"cloudctl_cloud_info",
		metric.WithDescription("Registered cloud account information"),
		metric.WithInt64Callback(e.observeClouds),
	)
	if err != nil {
		return fmt.Errorf("create cloud_info gauge: %w", err)
	}

	e.snapshotsTotal, err = e.meter.Int64Counter(
		"cloudctl_inventory_snapshots_total",
		metric.WithDescription("Total registry snapshots taken"),
	)
	if err != nil {
		return fmt.Errorf("create snapshots counter: %w", err)
	}

	e.cloudChangesTotal, err = e.meter.Int64Counter(
		"cloudctl_cloud_changes_total",
		metric.WithDescription("Total cloud changes detected between snapshots"),
	)
	if err != nil {
		return fmt.Errorf("create cloud_changes counter: %w", err)
	}

	return nil
}

// Emit records the snapshot as metrics and logs what changed since the last
// one.
func (e *PrometheusEmitter) Emit(ctx context.Context, snap Snapshot) error {
	e.snapshotsTotal.Add(ctx, 1)
	e.emitDiffs(ctx, snap)

	e.mu.Lock()
	e.clouds = snap.Clouds
	e.mu.Unlock()

	e.diffTracker.Update(snap.Clouds)

	e.logger.WithContext(ctx).Debug().
		Int("clouds", len(snap.Clouds)).
		Time("taken_at", snap.TakenAt).
		Msg("inventory snapshot")
	return nil
}

func (e *PrometheusEmitter) emitDiffs(ctx context.Context, snap Snapshot) {
	diffs := e.diffTracker.ComputeDiff(snap.Clouds)
	if diffs == nil {
		// baseline
		return
	}

	for _, diff := range diffs {
		e.cloudChangesTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("provider", string(diff.Cloud.Provider)),
			attribute.String("change_type", string(diff.Type)),
		))

		event := e.logger.WithContext(ctx).Info().
			Str("cloud_id", diff.Cloud.ID).
			Str("name", diff.Cloud.Name).
			Str("provider", string(diff.Cloud.Provider)).
			Str("change", string(diff.Type))

		if diff.Type == DiffModified {
			for field, change := range diff.Changes {
				event = event.
					Str(field+".from", change.Previous).
					Str(field+".to", change.Current)
			}
		}
		event.Msg("cloud changed")
	}
}

// observeClouds is the callback for the cloud_info gauge.
func (e *PrometheusEmitter) observeClouds(_ context.Context, o metric.Int64Observer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, c := range e.clouds {
		attrs := []attribute.KeyValue{
			attribute.String("id", c.ID),
			attribute.String("name", c.Name),
			attribute.String("provider", string(c.Provider)),
			attribute.String("credential_type", c.CredentialType),
			attribute.String("event_process", strconv.FormatBool(c.EventProcessEnabled)),
			attribute.String("user_activity", strconv.FormatBool(c.UserActivityEnabled)),
			attribute.String("schedule_scan", strconv.FormatBool(c.ScheduleScanEnabled)),
			attribute.Int("regions", len(c.RegionList)),
		}
		if len(c.CloudGroupName) > 0 {
			attrs = append(attrs, attribute.String("groups", strings.Join(c.CloudGroupName, ",")))
		}
		o.Observe(1, metric.WithAttributes(attrs...))
	}
	return nil
}

// Close is a no-op for the Prometheus emitter.
func (e *PrometheusEmitter) Close() error {
	return nil
}
