// Package emitter publishes snapshots of the cloud registry to output
// backends and reports what changed between them.
package emitter

import (
	"context"
	"time"

	"github.com/yairfalse/cloudctl/storage"
	"github.com/yairfalse/cloudctl/types"
)

// Snapshot is the registry contents at one point in time. Credentials are
// masked.
type Snapshot struct {
	Clouds  []types.Cloud
	TakenAt time.Time
}

// Emitter outputs registry snapshots to a backend.
type Emitter interface {
	// Emit sends the snapshot to the backend.
	Emit(ctx context.Context, snap Snapshot) error

	// Close cleans up resources.
	Close() error
}

// MultiEmitter fans out to multiple emitters.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter that sends to multiple backends.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit sends to all emitters, returns first error.
func (m *MultiEmitter) Emit(ctx context.Context, snap Snapshot) error {
	for _, e := range m.emitters {
		if err := e.Emit(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all emitters.
func (m *MultiEmitter) Close() error {
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			return err
		}
	}
	return nil
}

const collectPageSize = 100

// Collect reads every stored cloud into a snapshot
func Collect(ctx context.Context, reader storage.CloudReader) (Snapshot, error) {
	snap := Snapshot{TakenAt: time.Now().UTC()}
	for page := 1; ; page++ {
		p, err := reader.List(ctx, storage.PageRequest{Page: page, PageSize: collectPageSize})
		if err != nil {
			return Snapshot{}, err
		}
		for _, c := range p.Items {
			snap.Clouds = append(snap.Clouds, c.Masked())
		}
		if page >= p.TotalPages {
			return snap, nil
		}
	}
}
