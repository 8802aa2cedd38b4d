// Package filter selects clouds for the management table by provider,
// cloud group and name.
package filter

import (
	"strings"

	"github.com/yairfalse/cloudctl/types"
)

// Filter controls which clouds are listed.
type Filter struct {
	excludeProviders map[types.Provider]bool
	includeGroups    []string
	excludeGroups    []string
	name             string
}

// New creates a new Filter. Every include group must be present on a cloud,
// any exclude group removes it, and name matches case-insensitively
// anywhere in the cloud name.
func New(excludeProviders []types.Provider, includeGroups, excludeGroups []string, name string) *Filter {
	excludeMap := make(map[types.Provider]bool)
	for _, p := range excludeProviders {
		excludeMap[p] = true
	}

	return &Filter{
		excludeProviders: excludeMap,
		includeGroups:    includeGroups,
		excludeGroups:    excludeGroups,
		name:             strings.ToLower(strings.TrimSpace(name)),
	}
}

// ShouldListProvider returns true if clouds of p may be listed.
func (f *Filter) ShouldListProvider(p types.Provider) bool {
	return !f.excludeProviders[p]
}

// Match returns true if the cloud passes every filter.
func (f *Filter) Match(c types.Cloud) bool {
	if !f.ShouldListProvider(c.Provider) {
		return false
	}

	// include groups: ALL must be present
	for _, g := range f.includeGroups {
		if !hasGroup(c, g) {
			return false
		}
	}

	// exclude groups: ANY match excludes
	for _, g := range f.excludeGroups {
		if hasGroup(c, g) {
			return false
		}
	}

	if f.name != "" && !strings.Contains(strings.ToLower(c.Name), f.name) {
		return false
	}
	return true
}

// FilterClouds returns only clouds that pass the filter.
func (f *Filter) FilterClouds(clouds []types.Cloud) []types.Cloud {
	if f.IsEmpty() {
		return clouds
	}

	filtered := make([]types.Cloud, 0, len(clouds))
	for _, c := range clouds {
		if f.Match(c) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// Predicate returns Match, or nil when the filter is empty so callers can
// skip it entirely
func (f *Filter) Predicate() func(types.Cloud) bool {
	if f.IsEmpty() {
		return nil
	}
	return f.Match
}

// IsEmpty returns true if no filters are configured.
func (f *Filter) IsEmpty() bool {
	return len(f.excludeProviders) == 0 && len(f.includeGroups) == 0 && len(f.excludeGroups) == 0 && f.name == ""
}

func hasGroup(c types.Cloud, group string) bool {
	for _, g := range c.CloudGroupName {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}
