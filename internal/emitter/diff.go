package emitter

import (
	"slices"
	"strings"
	"sync"

	"github.com/yairfalse/cloudctl/types"
)

// DiffType classifies a change between two snapshots
type DiffType string

const (
	DiffAdded    DiffType = "added"
	DiffModified DiffType = "modified"
	DiffDeleted  DiffType = "deleted"
)

// Change is one field's old and new rendering
type Change struct {
	Previous string
	Current  string
}

// CloudDiff describes one cloud that changed between snapshots
type CloudDiff struct {
	Type     DiffType
	Cloud    types.Cloud
	Previous *types.Cloud
	Changes  map[string]Change
}

// DiffTracker tracks registry state between snapshots and detects changes.
type DiffTracker struct {
	mu          sync.RWMutex
	previous    map[string]types.Cloud
	initialized bool
}

// NewDiffTracker creates a new diff tracker.
func NewDiffTracker() *DiffTracker {
	return &DiffTracker{
		previous: make(map[string]types.Cloud),
	}
}

// ComputeDiff compares current clouds against the previous snapshot.
// Returns nil on the first snapshot and an empty slice when nothing changed.
func (d *DiffTracker) ComputeDiff(current []types.Cloud) []CloudDiff {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return nil
	}

	currentMap := indexClouds(current)
	diffs := make([]CloudDiff, 0)
	diffs = append(diffs, d.findDeletedAndModified(currentMap)...)
	diffs = append(diffs, d.findAdded(currentMap)...)

	slices.SortFunc(diffs, func(a, b CloudDiff) int {
		return strings.Compare(a.Cloud.ID, b.Cloud.ID)
	})
	return diffs
}

func indexClouds(clouds []types.Cloud) map[string]types.Cloud {
	m := make(map[string]types.Cloud, len(clouds))
	for _, c := range clouds {
		m[c.ID] = c
	}
	return m
}

func (d *DiffTracker) findDeletedAndModified(currentMap map[string]types.Cloud) []CloudDiff {
	var diffs []CloudDiff
	for id, prev := range d.previous {
		prevCopy := prev
		curr, exists := currentMap[id]
		if !exists {
			diffs = append(diffs, CloudDiff{Type: DiffDeleted, Cloud: prev, Previous: &prevCopy})
			continue
		}
		if changes := detectChanges(prev, curr); len(changes) > 0 {
			diffs = append(diffs, CloudDiff{
				Type:     DiffModified,
				Cloud:    curr,
				Previous: &prevCopy,
				Changes:  changes,
			})
		}
	}
	return diffs
}

func (d *DiffTracker) findAdded(currentMap map[string]types.Cloud) []CloudDiff {
	var diffs []CloudDiff
	for id, curr := range currentMap {
		if _, exists := d.previous[id]; !exists {
			diffs = append(diffs, CloudDiff{Type: DiffAdded, Cloud: curr})
		}
	}
	return diffs
}

// Update stores the current clouds as the baseline for future comparisons.
func (d *DiffTracker) Update(current []types.Cloud) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.previous = indexClouds(current)
	d.initialized = true
}

// detectChanges compares the rendered fields of two clouds. Timestamps are
// left out since every save moves them.
func detectChanges(prev, curr types.Cloud) map[string]Change {
	changes := make(map[string]Change)
	before, after := render(prev), render(curr)
	for field, p := range before {
		if c := after[field]; c != p {
			changes[field] = Change{Previous: p, Current: c}
		}
	}
	return changes
}

func render(c types.Cloud) map[string]string {
	out := map[string]string{
		"name":           c.Name,
		"cloudGroupName": strings.Join(c.CloudGroupName, ","),
		"regionList":     strings.Join(c.RegionList, ","),
		"proxyUrl":       c.ProxyURL,
		"features":       features(c),
		"schedule":       schedule(c),
		"credentialType": c.CredentialType,
		"credentials":    "",
		"eventSource":    "",
	}
	if c.Credentials != nil {
		out["credentials"] = joinMap(types.ToMap(c.Credentials))
	}
	if c.EventSource != nil {
		out["eventSource"] = joinMap(types.ToMap(c.EventSource))
	}
	return out
}

func features(c types.Cloud) string {
	var on []string
	if c.EventProcessEnabled {
		on = append(on, "events")
	}
	if c.UserActivityEnabled {
		on = append(on, "activity")
	}
	if c.ScheduleScanEnabled {
		on = append(on, "schedule")
	}
	return strings.Join(on, ",")
}

func schedule(c types.Cloud) string {
	s := c.ScheduleScanSetting
	if !c.ScheduleScanEnabled || s == nil {
		return ""
	}
	return strings.Join([]string{string(s.Frequency), s.Date, string(s.Weekday), s.Hour, s.Minute}, "/")
}

// joinMap renders m as sorted key=value pairs
func joinMap(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m[k])
	}
	return strings.Join(parts, ",")
}
