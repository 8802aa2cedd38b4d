// Package daemon runs periodic housekeeping next to the API server:
// compacting the cloud revision history, pruning expired audit logs and
// publishing inventory snapshots.
package daemon

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/yairfalse/cloudctl/internal/emitter"
	"github.com/yairfalse/cloudctl/storage"
	"github.com/yairfalse/cloudctl/telemetry"
	"github.com/yairfalse/cloudctl/wal"
)

// Pruner removes audit log files past their retention
type Pruner interface {
	Prune() (wal.CleanupStats, error)
}

// Config holds daemon configuration
type Config struct {
	Interval      time.Duration
	KeepRevisions int64
}

// Daemon manages the maintenance loop
type Daemon struct {
	interval      time.Duration
	keepRevisions int64
	compactor     storage.Compactor
	pruner        Pruner
	reader        storage.CloudReader
	emitter       emitter.Emitter
	metrics       *DaemonMetrics
	logger        *telemetry.Logger
	startTime     time.Time
	runCount      atomic.Int64
	lastError     atomic.Value
}

// Option configures a Daemon
type Option func(*Daemon)

// WithInventory publishes a snapshot of reader to e on every run
func WithInventory(reader storage.CloudReader, e emitter.Emitter) Option {
	return func(d *Daemon) {
		d.reader = reader
		d.emitter = e
	}
}

// NewDaemon creates a new daemon instance. compactor and pruner may be nil.
func NewDaemon(config Config, compactor storage.Compactor, pruner Pruner, logger *telemetry.Logger, opts ...Option) (*Daemon, error) {
	metrics, err := NewDaemonMetrics()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = telemetry.Nop()
	}
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	d := &Daemon{
		interval:      config.Interval,
		keepRevisions: config.KeepRevisions,
		compactor:     compactor,
		pruner:        pruner,
		metrics:       metrics,
		logger:        logger.Component("daemon"),
		startTime:     time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start runs maintenance once and then on every interval until ctx ends
func (d *Daemon) Start(ctx context.Context) error {
	d.RunOnce(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce compacts history, prunes the audit log and emits the inventory
func (d *Daemon) RunOnce(ctx context.Context) {
	ctx, span := telemetry.Tracer.Start(ctx, "daemon.maintenance")
	defer span.End()

	start := time.Now()
	status := "success"

	if d.compactor != nil && d.keepRevisions > 0 {
		deleted, err := d.compactor.Compact(d.keepRevisions)
		if err != nil {
			status = "error"
			d.fail(ctx, "compact", err)
		} else {
			d.metrics.RecordHistoryCompacted(ctx, deleted)
		}
	}

	if d.pruner != nil {
		stats, err := d.pruner.Prune()
		if err != nil {
			status = "error"
			d.fail(ctx, "prune", err)
		} else {
			d.metrics.RecordWALPruned(ctx, stats.FilesRemoved, stats.BytesFreed)
			if stats.FilesRemoved > 0 {
				d.logger.WithContext(ctx).Info().
					Int("files_removed", stats.FilesRemoved).
					Int64("bytes_freed", stats.BytesFreed).
					Msg("audit log pruned")
			}
		}
	}

	if d.emitter != nil && d.reader != nil {
		if err := d.emitInventory(ctx); err != nil {
			status = "error"
			d.fail(ctx, "inventory", err)
		}
	}

	if status == "success" {
		d.lastError.Store("")
	}
	d.runCount.Add(1)
	d.metrics.RecordMaintenance(ctx, status)
	d.metrics.RecordMaintenanceDuration(ctx, time.Since(start).Seconds(), status)
}

func (d *Daemon) emitInventory(ctx context.Context) error {
	snap, err := emitter.Collect(ctx, d.reader)
	if err != nil {
		return err
	}
	return d.emitter.Emit(ctx, snap)
}

func (d *Daemon) fail(ctx context.Context, operation string, err error) {
	d.lastError.Store(operation + ": " + err.Error())
	d.logger.WithContext(ctx).Error().Err(err).Str("operation", operation).Msg("maintenance failed")
}

// Health returns daemon health status
func (d *Daemon) Health() HealthStatus {
	h := HealthStatus{
		Status: "healthy",
		Uptime: int64(time.Since(d.startTime).Seconds()),
		Runs:   d.runCount.Load(),
	}
	if msg, _ := d.lastError.Load().(string); msg != "" {
		h.Status = "degraded"
		h.LastError = msg
	}
	return h
}

// HealthStatus represents daemon health
type HealthStatus struct {
	Status    string `json:"status"`
	Uptime    int64  `json:"uptimeSeconds"`
	Runs      int64  `json:"maintenanceRuns"`
	LastError string `json:"lastError,omitempty"`
}

// RunCount returns total maintenance runs
func (d *Daemon) RunCount() int64 {
	return d.runCount.Load()
}
