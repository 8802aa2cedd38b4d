package types

import (
	"fmt"
	"sort"
)

// Credentials is the provider-specific authentication record of a cloud.
// Implementations are AWSCredentials, AzureCredentials and GCPCredentials.
type Credentials interface {
	Provider() Provider
	Get(key string) string
	// Set stores value under key and reports false when key does not
	// belong to this provider's credential shape.
	Set(key, value string) bool
	Keys() []string
	Clone() Credentials
	credentials()
}

// EventSource is the provider-specific location account activity is read from.
// Implementations are AWSEventSource, AzureEventSource and GCPEventSource.
type EventSource interface {
	Provider() Provider
	Get(key string) string
	Set(key, value string) bool
	Keys() []string
	Clone() EventSource
	eventSource()
}

// AWSCredentials authenticates against AWS
type AWSCredentials struct {
	AccessKeyID     string `json:"accessKeyId,omitempty"`
	SecretAccessKey string `json:"secretAccessKey,omitempty"`
	RoleArn         string `json:"roleArn,omitempty"`
}

func (c *AWSCredentials) Provider() Provider { return ProviderAWS }
func (c *AWSCredentials) Keys() []string {
	return []string{"accessKeyId", "secretAccessKey", "roleArn"}
}
func (c *AWSCredentials) Clone() Credentials { cp := *c; return &cp }
func (c *AWSCredentials) credentials()      {}

func (c *AWSCredentials) Get(key string) string {
	if p := c.field(key); p != nil {
		return *p
	}
	return ""
}

func (c *AWSCredentials) Set(key, value string) bool {
	p := c.field(key)
	if p == nil {
		return false
	}
	*p = value
	return true
}

func (c *AWSCredentials) field(key string) *string {
	switch key {
	case "accessKeyId":
		return &c.AccessKeyID
	case "secretAccessKey":
		return &c.SecretAccessKey
	case "roleArn":
		return &c.RoleArn
	}
	return nil
}

// AzureCredentials authenticates an Azure AD application
type AzureCredentials struct {
	TenantID       string `json:"tenantId,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	ApplicationID  string `json:"applicationId,omitempty"`
	SecretKey      string `json:"secretKey,omitempty"`
}

func (c *AzureCredentials) Provider() Provider { return ProviderAzure }
func (c *AzureCredentials) Keys() []string {
	return []string{"tenantId", "subscriptionId", "applicationId", "secretKey"}
}
func (c *AzureCredentials) Clone() Credentials { cp := *c; return &cp }
func (c *AzureCredentials) credentials()      {}

func (c *AzureCredentials) Get(key string) string {
	if p := c.field(key); p != nil {
		return *p
	}
	return ""
}

func (c *AzureCredentials) Set(key, value string) bool {
	p := c.field(key)
	if p == nil {
		return false
	}
	*p = value
	return true
}

func (c *AzureCredentials) field(key string) *string {
	switch key {
	case "tenantId":
		return &c.TenantID
	case "subscriptionId":
		return &c.SubscriptionID
	case "applicationId":
		return &c.ApplicationID
	case "secretKey":
		return &c.SecretKey
	}
	return nil
}

// GCPCredentials carries a service account JSON key
type GCPCredentials struct {
	JSONText  string `json:"jsonText,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
}

func (c *GCPCredentials) Provider() Provider { return ProviderGCP }
func (c *GCPCredentials) Keys() []string     { return []string{"jsonText", "projectId"} }
func (c *GCPCredentials) Clone() Credentials { cp := *c; return &cp }
func (c *GCPCredentials) credentials()      {}

func (c *GCPCredentials) Get(key string) string {
	if p := c.field(key); p != nil {
		return *p
	}
	return ""
}

func (c *GCPCredentials) Set(key, value string) bool {
	p := c.field(key)
	if p == nil {
		return false
	}
	*p = value
	return true
}

func (c *GCPCredentials) field(key string) *string {
	switch key {
	case "jsonText":
		return &c.JSONText
	case "projectId":
		return &c.ProjectID
	}
	return nil
}

// AWSEventSource points at a CloudTrail trail
type AWSEventSource struct {
	CloudTrailName string `json:"cloudTrailName,omitempty"`
}

func (e *AWSEventSource) Provider() Provider { return ProviderAWS }
func (e *AWSEventSource) Keys() []string     { return []string{"cloudTrailName"} }
func (e *AWSEventSource) Clone() EventSource { cp := *e; return &cp }
func (e *AWSEventSource) eventSource()      {}

func (e *AWSEventSource) Get(key string) string {
	if key == "cloudTrailName" {
		return e.CloudTrailName
	}
	return ""
}

func (e *AWSEventSource) Set(key, value string) bool {
	if key != "cloudTrailName" {
		return false
	}
	e.CloudTrailName = value
	return true
}

// AzureEventSource points at a storage account container holding activity logs
type AzureEventSource struct {
	StorageAccountName string `json:"storageAccountName,omitempty"`
	ContainerName      string `json:"containerName,omitempty"`
}

func (e *AzureEventSource) Provider() Provider { return ProviderAzure }
func (e *AzureEventSource) Keys() []string {
	return []string{"storageAccountName", "containerName"}
}
func (e *AzureEventSource) Clone() EventSource { cp := *e; return &cp }
func (e *AzureEventSource) eventSource()      {}

func (e *AzureEventSource) Get(key string) string {
	switch key {
	case "storageAccountName":
		return e.StorageAccountName
	case "containerName":
		return e.ContainerName
	}
	return ""
}

func (e *AzureEventSource) Set(key, value string) bool {
	switch key {
	case "storageAccountName":
		e.StorageAccountName = value
	case "containerName":
		e.ContainerName = value
	default:
		return false
	}
	return true
}

// GCPEventSource points at a Cloud Storage bucket fed by a log sink
type GCPEventSource struct {
	BucketName  string `json:"bucketName,omitempty"`
	LogSinkName string `json:"logSinkName,omitempty"`
}

func (e *GCPEventSource) Provider() Provider { return ProviderGCP }
func (e *GCPEventSource) Keys() []string     { return []string{"bucketName", "logSinkName"} }
func (e *GCPEventSource) Clone() EventSource { cp := *e; return &cp }
func (e *GCPEventSource) eventSource()      {}

func (e *GCPEventSource) Get(key string) string {
	switch key {
	case "bucketName":
		return e.BucketName
	case "logSinkName":
		return e.LogSinkName
	}
	return ""
}

func (e *GCPEventSource) Set(key, value string) bool {
	switch key {
	case "bucketName":
		e.BucketName = value
	case "logSinkName":
		e.LogSinkName = value
	default:
		return false
	}
	return true
}

// NewCredentials returns an empty credential record shaped for p
func NewCredentials(p Provider) (Credentials, error) {
	switch p {
	case ProviderAWS:
		return &AWSCredentials{}, nil
	case ProviderAzure:
		return &AzureCredentials{}, nil
	case ProviderGCP:
		return &GCPCredentials{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, string(p))
	}
}

// NewEventSource returns an empty event source shaped for p
func NewEventSource(p Provider) (EventSource, error) {
	switch p {
	case ProviderAWS:
		return &AWSEventSource{}, nil
	case ProviderAzure:
		return &AzureEventSource{}, nil
	case ProviderGCP:
		return &GCPEventSource{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, string(p))
	}
}

// CredentialsFromMap builds credentials for p from loose key/value pairs.
// Keys that do not belong to p's shape are rejected.
func CredentialsFromMap(p Provider, values map[string]string) (Credentials, error) {
	creds, err := NewCredentials(p)
	if err != nil {
		return nil, err
	}
	for _, key := range sortedKeys(values) {
		if !creds.Set(key, values[key]) {
			return nil, fmt.Errorf("credential field %q is not valid for provider %s", key, p)
		}
	}
	return creds, nil
}

// EventSourceFromMap builds an event source for p from loose key/value pairs
func EventSourceFromMap(p Provider, values map[string]string) (EventSource, error) {
	es, err := NewEventSource(p)
	if err != nil {
		return nil, err
	}
	for _, key := range sortedKeys(values) {
		if !es.Set(key, values[key]) {
			return nil, fmt.Errorf("event source field %q is not valid for provider %s", key, p)
		}
	}
	return es, nil
}

// ToMap flattens a credential or event source record, skipping empty values
func ToMap(r interface {
	Keys() []string
	Get(string) string
}) map[string]string {
	out := make(map[string]string)
	for _, key := range r.Keys() {
		if v := r.Get(key); v != "" {
			out[key] = v
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
