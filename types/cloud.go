package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// GlobalRegion is always part of a cloud's region list
const GlobalRegion = "global"

// Cloud is a registered cloud account. The Provider tag decides the
// concrete type of Credentials and EventSource.
type Cloud struct {
	ID                  string               `json:"id,omitempty"`
	Provider            Provider             `json:"provider"`
	Name                string               `json:"name"`
	CloudGroupName      []string             `json:"cloudGroupName,omitempty"`
	RegionList          []string             `json:"regionList"`
	ProxyURL            string               `json:"proxyUrl,omitempty"`
	EventProcessEnabled bool                 `json:"eventProcessEnabled"`
	UserActivityEnabled bool                 `json:"userActivityEnabled"`
	ScheduleScanEnabled bool                 `json:"scheduleScanEnabled"`
	ScheduleScanSetting *ScheduleScanSetting `json:"scheduleScanSetting,omitempty"`
	CredentialType      string               `json:"credentialType"`
	Credentials         Credentials          `json:"credentials"`
	EventSource         EventSource          `json:"eventSource,omitempty"`
	CreatedAt           time.Time            `json:"createdAt,omitzero"`
	UpdatedAt           time.Time            `json:"updatedAt,omitzero"`
}

// NewCloud returns a cloud with the defaults a freshly opened create form shows
func NewCloud(p Provider, credentialType string) (Cloud, error) {
	creds, err := NewCredentials(p)
	if err != nil {
		return Cloud{}, err
	}
	return Cloud{
		Provider:            p,
		CloudGroupName:      []string{},
		RegionList:          []string{GlobalRegion},
		ScheduleScanSetting: DefaultSchedule(),
		CredentialType:      credentialType,
		Credentials:         creds,
	}, nil
}

// Clone returns a deep copy of c
func (c Cloud) Clone() Cloud {
	out := c
	if c.CloudGroupName != nil {
		out.CloudGroupName = append([]string{}, c.CloudGroupName...)
	}
	if c.RegionList != nil {
		out.RegionList = append([]string{}, c.RegionList...)
	}
	out.ScheduleScanSetting = c.ScheduleScanSetting.Clone()
	if c.Credentials != nil {
		out.Credentials = c.Credentials.Clone()
	}
	if c.EventSource != nil {
		out.EventSource = c.EventSource.Clone()
	}
	return out
}

// CheckVariant reports an error when the credential or event source shape
// does not match the provider tag
func (c Cloud) CheckVariant() error {
	if !c.Provider.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, string(c.Provider))
	}
	if c.Credentials == nil {
		return fmt.Errorf("cloud %q has no credentials", c.Name)
	}
	if c.Credentials.Provider() != c.Provider {
		return fmt.Errorf("credentials shaped for %s on a %s cloud", c.Credentials.Provider(), c.Provider)
	}
	if c.EventSource != nil && c.EventSource.Provider() != c.Provider {
		return fmt.Errorf("event source shaped for %s on a %s cloud", c.EventSource.Provider(), c.Provider)
	}
	return nil
}

// HasRegion reports whether region is selected
func (c Cloud) HasRegion(region string) bool {
	for _, r := range c.RegionList {
		if r == region {
			return true
		}
	}
	return false
}

// cloudJSON mirrors Cloud with the variant fields left raw
type cloudJSON struct {
	ID                  string               `json:"id,omitempty"`
	Provider            Provider             `json:"provider"`
	Name                string               `json:"name"`
	CloudGroupName      []string             `json:"cloudGroupName,omitempty"`
	RegionList          []string             `json:"regionList"`
	ProxyURL            string               `json:"proxyUrl,omitempty"`
	EventProcessEnabled bool                 `json:"eventProcessEnabled"`
	UserActivityEnabled bool                 `json:"userActivityEnabled"`
	ScheduleScanEnabled bool                 `json:"scheduleScanEnabled"`
	ScheduleScanSetting *ScheduleScanSetting `json:"scheduleScanSetting,omitempty"`
	CredentialType      string               `json:"credentialType"`
	Credentials         map[string]string    `json:"credentials"`
	EventSource         map[string]string    `json:"eventSource,omitempty"`
	CreatedAt           time.Time            `json:"createdAt,omitzero"`
	UpdatedAt           time.Time            `json:"updatedAt,omitzero"`
}

// MarshalJSON writes the variant fields as plain objects
func (c Cloud) MarshalJSON() ([]byte, error) {
	raw := cloudJSON{
		ID:                  c.ID,
		Provider:            c.Provider,
		Name:                c.Name,
		CloudGroupName:      c.CloudGroupName,
		RegionList:          c.RegionList,
		ProxyURL:            c.ProxyURL,
		EventProcessEnabled: c.EventProcessEnabled,
		UserActivityEnabled: c.UserActivityEnabled,
		ScheduleScanEnabled: c.ScheduleScanEnabled,
		ScheduleScanSetting: c.ScheduleScanSetting,
		CredentialType:      c.CredentialType,
		Credentials:         map[string]string{},
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
	if c.Credentials != nil {
		raw.Credentials = ToMap(c.Credentials)
	}
	if c.EventSource != nil {
		raw.EventSource = ToMap(c.EventSource)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes a cloud, shaping credentials and event source by
// the provider tag. Unknown providers and foreign keys are errors.
func (c *Cloud) UnmarshalJSON(data []byte) error {
	var raw cloudJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Provider.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, string(raw.Provider))
	}

	creds, err := CredentialsFromMap(raw.Provider, raw.Credentials)
	if err != nil {
		return err
	}

	var es EventSource
	if raw.EventSource != nil {
		es, err = EventSourceFromMap(raw.Provider, raw.EventSource)
		if err != nil {
			return err
		}
	}

	*c = Cloud{
		ID:                  raw.ID,
		Provider:            raw.Provider,
		Name:                raw.Name,
		CloudGroupName:      raw.CloudGroupName,
		RegionList:          raw.RegionList,
		ProxyURL:            raw.ProxyURL,
		EventProcessEnabled: raw.EventProcessEnabled,
		UserActivityEnabled: raw.UserActivityEnabled,
		ScheduleScanEnabled: raw.ScheduleScanEnabled,
		ScheduleScanSetting: raw.ScheduleScanSetting,
		CredentialType:      raw.CredentialType,
		Credentials:         creds,
		EventSource:         es,
		CreatedAt:           raw.CreatedAt,
		UpdatedAt:           raw.UpdatedAt,
	}
	return nil
}
