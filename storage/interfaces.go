package storage

import (
	"context"
	"errors"

	"github.com/yairfalse/cloudctl/types"
)

// ErrNotFound is returned when no cloud has the requested id
var ErrNotFound = errors.New("cloud not found")

// CloudReader serves the management table and the edit form
type CloudReader interface {
	Get(ctx context.Context, id string) (types.Cloud, error)
	List(ctx context.Context, req PageRequest) (Page, error)
}

// CloudWriter persists submitted clouds
type CloudWriter interface {
	// Save creates the cloud when its ID is empty and replaces it otherwise.
	// The stored record, with ID and timestamps set, is returned.
	Save(ctx context.Context, c types.Cloud) (types.Cloud, error)
	Delete(ctx context.Context, id string) error
}

// CloudStore combines read and write access
type CloudStore interface {
	CloudReader
	CloudWriter
	CurrentRevision() int64
	Close() error
}

// Compactor trims the revision history
type Compactor interface {
	Compact(keepRevisions int64) (int, error)
}

// DefaultPageSize is used when a request does not set one
const DefaultPageSize = 10

// PageRequest selects one page of the cloud table. Page is 1-based.
type PageRequest struct {
	Page     int
	PageSize int
	Provider types.Provider
	// Match, when set, keeps only the clouds it accepts
	Match func(types.Cloud) bool
}

func (r PageRequest) normalize() PageRequest {
	if r.PageSize <= 0 {
		r.PageSize = DefaultPageSize
	}
	if r.Page <= 0 {
		r.Page = 1
	}
	return r
}

// Page is one slice of clouds ordered by name
type Page struct {
	Items      []types.Cloud `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	Total      int           `json:"total"`
	TotalPages int           `json:"totalPages"`
}

func newPage(req PageRequest, total int) Page {
	page := Page{
		Items:    []types.Cloud{},
		Page:     req.Page,
		PageSize: req.PageSize,
		Total:    total,
	}
	if total > 0 {
		page.TotalPages = (total-1)/req.PageSize + 1
	}
	return page
}

// bounds returns the item range of the page, or false when it is past the
// end. The page number is checked before any multiplication so huge page
// numbers and sizes cannot overflow.
func (p Page) bounds() (int, int, bool) {
	if p.Page < 1 || p.Page > p.TotalPages {
		return 0, 0, false
	}
	start := (p.Page - 1) * p.PageSize
	return start, start + min(p.PageSize, p.Total-start), true
}
