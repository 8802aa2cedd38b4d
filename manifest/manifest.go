// Package manifest reads cloud definitions from YAML files so clouds can be
// applied and validated without the interactive form.
//
//	version: v1
//	kind: Cloud
//	provider: AWS
//	name: production
//	credentialType: ACCESS_KEY
//	credentials:
//	  accessKeyId: ${AWS_ACCESS_KEY_ID}
//	  secretAccessKey: ${AWS_SECRET_ACCESS_KEY}
//
// Several clouds may share a file as separate YAML documents.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yairfalse/cloudctl/providers"
	"github.com/yairfalse/cloudctl/types"
)

const (
	// Version is the manifest schema version this package reads and writes
	Version = "v1"
	// Kind is the only document kind
	Kind = "Cloud"
)

// Document is one cloud as written in a manifest
type Document struct {
	Version             string                     `yaml:"version"`
	Kind                string                     `yaml:"kind"`
	ID                  string                     `yaml:"id,omitempty"`
	Provider            string                     `yaml:"provider"`
	Name                string                     `yaml:"name"`
	CloudGroupName      []string                   `yaml:"cloudGroupName,omitempty"`
	RegionList          []string                   `yaml:"regionList,omitempty"`
	ProxyURL            string                     `yaml:"proxyUrl,omitempty"`
	EventProcessEnabled bool                       `yaml:"eventProcessEnabled,omitempty"`
	UserActivityEnabled bool                       `yaml:"userActivityEnabled,omitempty"`
	ScheduleScanEnabled bool                       `yaml:"scheduleScanEnabled,omitempty"`
	ScheduleScanSetting *types.ScheduleScanSetting `yaml:"scheduleScanSetting,omitempty"`
	CredentialType      string                     `yaml:"credentialType,omitempty"`
	Credentials         map[string]string          `yaml:"credentials,omitempty"`
	EventSource         map[string]string          `yaml:"eventSource,omitempty"`
}

// Load reads every document of a manifest file
func Load(path string) ([]Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	docs, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// Parse decodes a stream of YAML documents. Empty documents are skipped.
func Parse(r io.Reader) ([]Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var docs []Document
	for i := 1; ; i++ {
		var doc Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if doc.isEmpty() {
			continue
		}
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		docs = append(docs, doc)
	}

	if len(docs) == 0 {
		return nil, errors.New("manifest contains no clouds")
	}
	return docs, nil
}

func (d Document) isEmpty() bool {
	return d.Version == "" && d.Kind == "" && d.Provider == "" && d.Name == ""
}

// Validate checks the document header. Field rules are left to the
// validation package so manifests and the form report the same errors.
func (d Document) Validate() error {
	if d.Version != Version {
		return fmt.Errorf("version must be %q (got %q)", Version, d.Version)
	}
	if d.Kind != Kind {
		return fmt.Errorf("kind must be %q (got %q)", Kind, d.Kind)
	}
	if _, err := types.ParseProvider(d.Provider); err != nil {
		return err
	}
	return nil
}

// Cloud converts the document into a cloud record. Credential and event
// source values may reference environment variables as $VAR or ${VAR}.
func (d Document) Cloud() (types.Cloud, error) {
	p, err := types.ParseProvider(d.Provider)
	if err != nil {
		return types.Cloud{}, err
	}

	credentialType := d.CredentialType
	if credentialType == "" {
		credentialType = providers.DefaultCredentialType(p)
	}

	c, err := types.NewCloud(p, credentialType)
	if err != nil {
		return types.Cloud{}, err
	}

	creds, err := types.CredentialsFromMap(p, expand(d.Credentials))
	if err != nil {
		return types.Cloud{}, err
	}
	c.Credentials = creds

	if len(d.EventSource) > 0 {
		es, err := types.EventSourceFromMap(p, expand(d.EventSource))
		if err != nil {
			return types.Cloud{}, err
		}
		c.EventSource = es
	}

	c.ID = d.ID
	c.Name = d.Name
	c.ProxyURL = d.ProxyURL
	c.EventProcessEnabled = d.EventProcessEnabled
	c.UserActivityEnabled = d.UserActivityEnabled
	c.ScheduleScanEnabled = d.ScheduleScanEnabled
	if d.CloudGroupName != nil {
		c.CloudGroupName = append([]string{}, d.CloudGroupName...)
	}
	c.RegionList = withGlobal(d.RegionList)
	if d.ScheduleScanSetting != nil {
		c.ScheduleScanSetting = d.ScheduleScanSetting.Clone()
	}

	return c, nil
}

// FromCloud writes c as a manifest document. Secrets are written as
// stored; callers mask them first when the output is for display.
func FromCloud(c types.Cloud) Document {
	d := Document{
		Version:             Version,
		Kind:                Kind,
		ID:                  c.ID,
		Provider:            string(c.Provider),
		Name:                c.Name,
		CloudGroupName:      c.CloudGroupName,
		RegionList:          c.RegionList,
		ProxyURL:            c.ProxyURL,
		EventProcessEnabled: c.EventProcessEnabled,
		UserActivityEnabled: c.UserActivityEnabled,
		ScheduleScanEnabled: c.ScheduleScanEnabled,
		CredentialType:      c.CredentialType,
	}
	if c.ScheduleScanEnabled {
		d.ScheduleScanSetting = c.ScheduleScanSetting.Clone()
	}
	if c.Credentials != nil {
		d.Credentials = types.ToMap(c.Credentials)
	}
	if c.EventSource != nil {
		if m := types.ToMap(c.EventSource); len(m) > 0 {
			d.EventSource = m
		}
	}
	return d
}

// Encode writes the documents as a YAML stream
func Encode(w io.Writer, docs ...Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encode cloud %q: %w", d.Name, err)
		}
	}
	return enc.Close()
}

func expand(values map[string]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = os.ExpandEnv(v)
	}
	return out
}

func withGlobal(regions []string) []string {
	out := []string{types.GlobalRegion}
	for _, r := range regions {
		r = strings.TrimSpace(r)
		if r == "" || r == types.GlobalRegion {
			continue
		}
		out = append(out, r)
	}
	return out
}
