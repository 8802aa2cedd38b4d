// Package providers holds the static description of every supported cloud
// provider: credential types and their fields, event source fields,
// regions and optional features.
package providers

import (
	"fmt"

	"github.com/yairfalse/cloudctl/types"
)

// Features lists the optional capabilities of a provider
type Features struct {
	ScheduleScan bool `json:"scheduleScan"`
	EventProcess bool `json:"eventProcess"`
	UserActivity bool `json:"userActivity"`
}

// Has reports whether feature f is supported
func (f Features) Has(feature types.Feature) bool {
	switch feature {
	case types.FeatureScheduleScan:
		return f.ScheduleScan
	case types.FeatureEventProcess:
		return f.EventProcess
	case types.FeatureUserActivity:
		return f.UserActivity
	default:
		return false
	}
}

// ProviderConfig is the static descriptor of one provider
type ProviderConfig struct {
	Name              string                   `json:"name"`
	CredentialTypes   []Option                 `json:"credentialTypes"`
	CredentialFields  map[string][]FieldConfig `json:"credentialFields"`
	EventSourceFields []FieldConfig            `json:"eventSourceFields"`
	Regions           []string                 `json:"regionList"`
	Features          Features                 `json:"supportedFeatures"`
}

func (c ProviderConfig) clone() ProviderConfig {
	out := c
	out.CredentialTypes = append([]Option(nil), c.CredentialTypes...)
	out.CredentialFields = make(map[string][]FieldConfig, len(c.CredentialFields))
	for k, v := range c.CredentialFields {
		out.CredentialFields[k] = cloneFields(v)
	}
	out.EventSourceFields = cloneFields(c.EventSourceFields)
	out.Regions = append([]string(nil), c.Regions...)
	return out
}

// registry is filled once by init and never written afterwards
var registry map[types.Provider]ProviderConfig

func init() {
	registry = map[types.Provider]ProviderConfig{
		types.ProviderAWS:   awsConfig(),
		types.ProviderAzure: azureConfig(),
		types.ProviderGCP:   gcpConfig(),
	}
}

// Lookup returns the descriptor for p or ErrUnknownProvider
func Lookup(p types.Provider) (ProviderConfig, error) {
	cfg, ok := registry[p]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("%w: %q", types.ErrUnknownProvider, string(p))
	}
	return cfg.clone(), nil
}

// ConfigFor returns the descriptor for p. Unknown providers yield an empty
// descriptor with no fields, regions or features.
func ConfigFor(p types.Provider) ProviderConfig {
	cfg, _ := Lookup(p)
	return cfg
}

// CredentialFields returns the fields for a credential type, or an empty
// list when the type is unknown for p
func CredentialFields(p types.Provider, credentialType string) []FieldConfig {
	cfg, ok := registry[p]
	if !ok {
		return []FieldConfig{}
	}
	return cloneFields(cfg.CredentialFields[credentialType])
}

// CredentialField finds a single credential field by key
func CredentialField(p types.Provider, credentialType, key string) (FieldConfig, bool) {
	for _, f := range registry[p].CredentialFields[credentialType] {
		if f.Key == key {
			return f.clone(), true
		}
	}
	return FieldConfig{}, false
}

// EventSourceFields returns the event source fields of p
func EventSourceFields(p types.Provider) []FieldConfig {
	return cloneFields(registry[p].EventSourceFields)
}

// Regions returns the region codes valid for p, "global" first
func Regions(p types.Provider) []string {
	return append([]string{}, registry[p].Regions...)
}

// IsRegion reports whether region is offered for p
func IsRegion(p types.Provider, region string) bool {
	for _, r := range registry[p].Regions {
		if r == region {
			return true
		}
	}
	return false
}

// IsFeatureSupported reports whether p offers feature
func IsFeatureSupported(p types.Provider, feature types.Feature) bool {
	return registry[p].Features.Has(feature)
}

// CredentialTypes returns the credential type options of p
func CredentialTypes(p types.Provider) []Option {
	return append([]Option{}, registry[p].CredentialTypes...)
}

// DefaultCredentialType returns the first enabled credential type of p
func DefaultCredentialType(p types.Provider) string {
	for _, o := range registry[p].CredentialTypes {
		if !o.Disabled {
			return o.Value
		}
	}
	return ""
}

// CredentialTypeAllowed reports whether credentialType exists for p and
// is selectable
func CredentialTypeAllowed(p types.Provider, credentialType string) bool {
	for _, o := range registry[p].CredentialTypes {
		if o.Value == credentialType {
			return !o.Disabled
		}
	}
	return false
}

// Providers returns every registered provider in display order
func Providers() []types.Provider {
	out := make([]types.Provider, 0, len(registry))
	for _, p := range types.AllProviders() {
		if _, ok := registry[p]; ok {
			out = append(out, p)
		}
	}
	return out
}
