package form

import (
	"fmt"

	"github.com/yairfalse/cloudctl/providers"
	"github.com/yairfalse/cloudctl/types"
)

// Widget is a field ready to render: its layout plus current value and error
type Widget struct {
	providers.FieldConfig
	Path  string `json:"path"`
	Value string `json:"value"`
	Error string `json:"error,omitempty"`
}

// CredentialWidgets returns the credential inputs for a provider and credential type
func CredentialWidgets(p types.Provider, credentialType string) []providers.FieldConfig {
	return providers.CredentialFields(p, credentialType)
}

// EventSourceWidgets returns the event source inputs for a provider
func EventSourceWidgets(p types.Provider) []providers.FieldConfig {
	return providers.EventSourceFields(p)
}

// MultiSelect is a set of chosen options with an optional pinned value
// that is always selected and cannot be toggled off
type MultiSelect struct {
	noun     string
	pinned   string
	options  []string
	selected []string
}

// NewRegionSelect builds the region picker for p. "global" is pinned.
func NewRegionSelect(p types.Provider, selected []string) *MultiSelect {
	m := &MultiSelect{
		noun:    "regions",
		pinned:  types.GlobalRegion,
		options: providers.Regions(p),
	}
	m.selected = []string{types.GlobalRegion}
	for _, r := range selected {
		if !m.Has(r) {
			m.selected = append(m.selected, r)
		}
	}
	return m
}

// NewGroupSelect builds the cloud group picker over options
func NewGroupSelect(options, selected []string) *MultiSelect {
	m := &MultiSelect{
		noun:    "groups",
		options: append([]string(nil), options...),
	}
	for _, g := range selected {
		if !m.Has(g) {
			m.selected = append(m.selected, g)
		}
	}
	return m
}

// Toggle flips membership of v. Toggling the pinned value does nothing.
// Values outside the option list are rejected, except that a selected
// value can always be removed.
func (m *MultiSelect) Toggle(v string) error {
	if v == m.pinned && m.pinned != "" {
		return nil
	}
	for i, s := range m.selected {
		if s == v {
			m.selected = append(m.selected[:i:i], m.selected[i+1:]...)
			return nil
		}
	}
	if !m.offered(v) {
		return fmt.Errorf("%w: %q", ErrUnknownOption, v)
	}
	m.selected = append(m.selected, v)
	return nil
}

// Has reports whether v is selected
func (m *MultiSelect) Has(v string) bool {
	for _, s := range m.selected {
		if s == v {
			return true
		}
	}
	return false
}

// Values returns the selection
func (m *MultiSelect) Values() []string {
	return append([]string{}, m.selected...)
}

// Options returns every offered value
func (m *MultiSelect) Options() []string {
	return append([]string{}, m.options...)
}

// Summary is the collapsed label of the picker
func (m *MultiSelect) Summary() string {
	if len(m.selected) == 0 {
		return fmt.Sprintf("Select %s", m.noun)
	}
	return fmt.Sprintf("%d %s selected", len(m.selected), m.noun)
}

func (m *MultiSelect) offered(v string) bool {
	// an empty option list accepts anything
	if len(m.options) == 0 {
		return v != ""
	}
	for _, o := range m.options {
		if o == v {
			return true
		}
	}
	return false
}
