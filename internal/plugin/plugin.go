// Package plugin defines the credential verifier plugins for cloudctl.
// A verifier checks a stored cloud against its provider: do the
// credentials authenticate, does the event source exist, are the selected
// regions enabled.
package plugin

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yairfalse/cloudctl/types"
)

// Verifier is the interface all provider plugins must implement.
type Verifier interface {
	// Provider returns the cloud provider this verifier handles
	Provider() types.Provider

	// Verify runs every check against c. An error means the checks could
	// not run at all; failed checks are reported in the Report.
	Verify(ctx context.Context, c types.Cloud) (Report, error)
}

// Check is the outcome of one verification step
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// Report collects the checks run against one cloud
type Report struct {
	CloudID   string    `json:"cloudId"`
	Provider  string    `json:"provider"`
	Account   string    `json:"account,omitempty"`
	Checks    []Check   `json:"checks"`
	CheckedAt time.Time `json:"checkedAt"`
}

// OK reports whether every check passed
func (r Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// Failed returns the checks that did not pass
func (r Report) Failed() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.OK {
			out = append(out, c)
		}
	}
	return out
}

// Registry holds registered verifiers.
var (
	registry = make(map[types.Provider]Verifier)
	mu       sync.RWMutex
)

// Register adds a verifier to the registry, replacing any earlier one
// for the same provider.
func Register(v Verifier) {
	mu.Lock()
	defer mu.Unlock()
	registry[v.Provider()] = v
}

// Get returns the verifier for a provider.
func Get(p types.Provider) (Verifier, bool) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := registry[p]
	return v, ok
}

// Providers returns the providers with a registered verifier, sorted.
func Providers() []types.Provider {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]types.Provider, 0, len(registry))
	for p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clear removes all verifiers from the registry. Used for testing.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[types.Provider]Verifier)
}
