package types

import (
	"errors"
	"fmt"
	"strings"
)

// Provider identifies a cloud vendor
type Provider string

const (
	ProviderAWS   Provider = "AWS"
	ProviderAzure Provider = "AZURE"
	ProviderGCP   Provider = "GCP"
)

// ErrUnknownProvider is returned whenever a provider tag is not one of AWS, AZURE or GCP
var ErrUnknownProvider = errors.New("unknown provider")

// AllProviders returns the providers in display order
func AllProviders() []Provider {
	return []Provider{ProviderAWS, ProviderAzure, ProviderGCP}
}

// ParseProvider reads a provider tag, accepting any letter case
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
	return p, nil
}

// Valid reports whether p is a known provider
func (p Provider) Valid() bool {
	switch p {
	case ProviderAWS, ProviderAzure, ProviderGCP:
		return true
	default:
		return false
	}
}

func (p Provider) String() string {
	return string(p)
}

// Feature is an optional capability a provider may support
type Feature string

const (
	FeatureScheduleScan Feature = "scheduleScan"
	FeatureEventProcess Feature = "eventProcess"
	FeatureUserActivity Feature = "userActivity"
)

// AllFeatures returns every optional feature
func AllFeatures() []Feature {
	return []Feature{FeatureScheduleScan, FeatureEventProcess, FeatureUserActivity}
}
