package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/yairfalse/cloudctl/telemetry"
	"github.com/yairfalse/cloudctl/types"
)

// Bucket names in bbolt
var (
	bucketClouds  = []byte("clouds")
	bucketHistory = []byte("history")
	bucketMeta    = []byte("meta")

	keyCurrentRevision = []byte("current_revision")
)

// DBFile is the database file name inside the storage directory
const DBFile = "cloudctl.db"

// BoltStore keeps the latest version of each cloud in bbolt and every
// write as a revision in a history bucket, etcd style
type BoltStore struct {
	mu sync.RWMutex

	// in-memory index in table order
	index *btree.BTreeG[indexEntry]
	// id to index entry, for removals on rename
	byID map[string]indexEntry

	db         *bbolt.DB
	currentRev int64
	dir        string
	logger     *telemetry.Logger
	now        func() time.Time
}

// indexEntry orders clouds by name and then id
type indexEntry struct {
	name     string
	id       string
	provider types.Provider
}

func lessEntry(a, b indexEntry) bool {
	if a.name != b.name {
		return a.name < b.name
	}
	return a.id < b.id
}

// historyRecord is one revision of one cloud
type historyRecord struct {
	ID        string       `json:"id"`
	Tombstone bool         `json:"tombstone,omitempty"`
	Cloud     *types.Cloud `json:"cloud,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// Option configures a BoltStore
type Option func(*BoltStore)

// WithLogger sets the store logger
func WithLogger(l *telemetry.Logger) Option {
	return func(s *BoltStore) { s.logger = l.Component("storage") }
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *BoltStore) { s.now = now }
}

// NewBoltStore opens or creates the store in dir
func NewBoltStore(dir string, opts ...Option) (*BoltStore, error) {
	dbPath := filepath.Join(dir, DBFile)

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketClouds, bucketHistory, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &BoltStore{
		index:  btree.NewG[indexEntry](32, lessEntry),
		byID:   make(map[string]indexEntry),
		db:     db,
		dir:    dir,
		logger: telemetry.Nop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.loadRevision(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.rebuildIndex(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the storage
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get returns the cloud with id
func (s *BoltStore) Get(ctx context.Context, id string) (types.Cloud, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "cloudctl.storage.get")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var c types.Cloud
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketClouds).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &c)
	})
	if err != nil {
		span.RecordError(err)
		return types.Cloud{}, err
	}
	return c, nil
}

// List returns one page of clouds ordered by name
func (s *BoltStore) List(ctx context.Context, req PageRequest) (Page, error) {
	_, span := telemetry.Tracer.Start(ctx, "cloudctl.storage.list")
	defer span.End()

	req = req.normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	s.index.Ascend(func(e indexEntry) bool {
		if req.Provider == "" || e.provider == req.Provider {
			ids = append(ids, e.id)
		}
		return true
	})

	// a predicate needs every candidate decoded before paging
	if req.Match != nil {
		var matched []types.Cloud
		err := s.db.View(func(tx *bbolt.Tx) error {
			return decodeEach(tx, ids, func(c types.Cloud) {
				if req.Match(c) {
					matched = append(matched, c)
				}
			})
		})
		if err != nil {
			span.RecordError(err)
			return Page{}, err
		}
		page := newPage(req, len(matched))
		start, end, ok := page.bounds()
		if ok {
			page.Items = append(page.Items, matched[start:end]...)
		}
		return page, nil
	}

	page := newPage(req, len(ids))
	start, end, ok := page.bounds()
	if !ok {
		return page, nil
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		return decodeEach(tx, ids[start:end], func(c types.Cloud) {
			page.Items = append(page.Items, c)
		})
	})
	if err != nil {
		span.RecordError(err)
		return Page{}, err
	}
	return page, nil
}

func decodeEach(tx *bbolt.Tx, ids []string, fn func(types.Cloud)) error {
	bucket := tx.Bucket(bucketClouds)
	for _, id := range ids {
		var c types.Cloud
		if err := json.Unmarshal(bucket.Get([]byte(id)), &c); err != nil {
			return fmt.Errorf("decode cloud %s: %w", id, err)
		}
		fn(c)
	}
	return nil
}

// Save creates or replaces a cloud
func (s *BoltStore) Save(ctx context.Context, c types.Cloud) (types.Cloud, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "cloudctl.storage.save")
	defer span.End()

	if err := c.CheckVariant(); err != nil {
		return types.Cloud{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c = c.Clone()
	now := s.now()
	creating := c.ID == ""
	if creating {
		c.ID = uuid.NewString()
	}

	rev := s.currentRev + 1
	err := s.db.Update(func(tx *bbolt.Tx) error {
		clouds := tx.Bucket(bucketClouds)

		existing := clouds.Get([]byte(c.ID))
		switch {
		case existing == nil:
			c.CreatedAt = now
		case creating:
			return fmt.Errorf("cloud id collision: %s", c.ID)
		default:
			var prev types.Cloud
			if err := json.Unmarshal(existing, &prev); err != nil {
				return err
			}
			c.CreatedAt = prev.CreatedAt
		}
		c.UpdatedAt = now

		value, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if err := clouds.Put([]byte(c.ID), value); err != nil {
			return err
		}
		return s.appendHistory(tx, rev, historyRecord{ID: c.ID, Cloud: &c, Timestamp: now})
	})
	if err != nil {
		s.logger.LogStorageError(ctx, "save", err)
		span.RecordError(err)
		return types.Cloud{}, err
	}

	s.currentRev = rev
	s.indexCloud(c)
	telemetry.RecordStorageWrite(ctx, "save", rev, s.index.Len())

	return c.Clone(), nil
}

// Delete removes a cloud and records a tombstone
func (s *BoltStore) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.Tracer.Start(ctx, "cloudctl.storage.delete")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	rev := s.currentRev + 1
	err := s.db.Update(func(tx *bbolt.Tx) error {
		clouds := tx.Bucket(bucketClouds)
		if clouds.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err := clouds.Delete([]byte(id)); err != nil {
			return err
		}
		return s.appendHistory(tx, rev, historyRecord{ID: id, Tombstone: true, Timestamp: s.now()})
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.currentRev = rev
	if e, ok := s.byID[id]; ok {
		s.index.Delete(e)
		delete(s.byID, id)
	}
	telemetry.RecordStorageWrite(ctx, "delete", rev, s.index.Len())

	return nil
}

// History returns every recorded revision of id, oldest first. Deleted
// revisions carry a nil cloud.
func (s *BoltStore) History(id string) ([]Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Revision
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketHistory).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			rev, key, err := parseHistoryKey(k)
			if err != nil {
				return err
			}
			if key != id {
				continue
			}
			var rec historyRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, Revision{Revision: rev, Deleted: rec.Tombstone, Cloud: rec.Cloud, Timestamp: rec.Timestamp})
		}
		return nil
	})
	return out, err
}

// Revision is one entry of a cloud's history
type Revision struct {
	Revision  int64
	Deleted   bool
	Cloud     *types.Cloud
	Timestamp time.Time
}

// CurrentRevision returns the current revision number
func (s *BoltStore) CurrentRevision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentRev
}

// Count returns the number of stored clouds
func (s *BoltStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

// Compact removes history older than the last keepRevisions revisions and
// returns how many entries were dropped
func (s *BoltStore) Compact(keepRevisions int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	start := time.Now()
	s.logger.LogCompaction(ctx, keepRevisions, s.currentRev)

	cutoff := s.currentRev - keepRevisions
	if cutoff <= 0 {
		return 0, nil
	}

	var deleted int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketHistory)
		c := bucket.Cursor()

		var toDelete [][]byte
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			rev, _, err := parseHistoryKey(k)
			if err != nil {
				return err
			}
			if rev > cutoff {
				break
			}
			toDelete = append(toDelete, append([]byte(nil), k...))
		}

		for _, key := range toDelete {
			if err := bucket.Delete(key); err != nil {
				return err
			}
		}
		deleted = len(toDelete)
		return nil
	})
	if err != nil {
		s.logger.LogStorageError(ctx, "compact", err)
		return 0, err
	}

	s.logger.LogCompactionComplete(ctx, deleted, float64(time.Since(start).Microseconds())/1000)
	return deleted, nil
}

func (s *BoltStore) appendHistory(tx *bbolt.Tx, rev int64, rec historyRecord) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := tx.Bucket(bucketHistory).Put(makeHistoryKey(rev, rec.ID), value); err != nil {
		return err
	}
	return tx.Bucket(bucketMeta).Put(keyCurrentRevision, int64ToBytes(rev))
}

func (s *BoltStore) indexCloud(c types.Cloud) {
	if old, ok := s.byID[c.ID]; ok {
		s.index.Delete(old)
	}
	e := indexEntry{name: strings.ToLower(c.Name), id: c.ID, provider: c.Provider}
	s.index.ReplaceOrInsert(e)
	s.byID[c.ID] = e
}

func (s *BoltStore) loadRevision() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyCurrentRevision)
		if data == nil {
			return nil
		}
		rev, err := bytesToInt64(data)
		if err != nil {
			return fmt.Errorf("corrupt revision: %w", err)
		}
		s.currentRev = rev
		return nil
	})
}

func (s *BoltStore) rebuildIndex() error {
	start := time.Now()
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketClouds).ForEach(func(k, v []byte) error {
			var c types.Cloud
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("decode cloud %s: %w", k, err)
			}
			s.indexCloud(c)
			return nil
		})
	})
	if err != nil {
		return err
	}
	s.logger.LogRebuildComplete(context.Background(), s.index.Len(), float64(time.Since(start).Microseconds())/1000)
	return nil
}

func makeHistoryKey(rev int64, id string) []byte {
	return []byte(fmt.Sprintf("%016d:%s", rev, id))
}

func parseHistoryKey(key []byte) (int64, string, error) {
	revPart, id, ok := strings.Cut(string(key), ":")
	if !ok {
		return 0, "", fmt.Errorf("malformed history key %q", key)
	}
	rev, err := strconv.ParseInt(revPart, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed history key %q: %w", key, err)
	}
	return rev, id, nil
}

func int64ToBytes(n int64) []byte {
	return []byte(strconv.FormatInt(n, 10))
}

func bytesToInt64(b []byte) (int64, error) {
	return strconv.ParseInt(string(b), 10, 64)
}
