package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/yairfalse/cloudctl/payload"
	"github.com/yairfalse/cloudctl/policy"
	"github.com/yairfalse/cloudctl/validation"
	"github.com/yairfalse/cloudctl/wal"
)

// Mode names recorded in audit entries and policy input
const (
	ModeCreate = "create"
	ModeEdit   = "edit"
)

// PolicyEvaluator decides whether a payload may be stored
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, p payload.Payload, mode string) (policy.Decision, error)
}

// Auditor records submissions
type Auditor interface {
	Append(entryType wal.EntryType, cloudID string, data any) error
	AppendError(entryType wal.EntryType, cloudID string, data any, err error) error
}

// DeniedError is returned when an admission policy rejects a cloud
type DeniedError struct {
	Violations []policy.Violation
}

func (e *DeniedError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		if v.Field != "" {
			msgs[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
		} else {
			msgs[i] = v.Message
		}
	}
	return "denied by policy: " + strings.Join(msgs, "; ")
}

// FieldErrors maps the violations onto form field errors. Violations
// without a field are reported on the cloud name.
func (e *DeniedError) FieldErrors() validation.Errors {
	out := make(validation.Errors, 0, len(e.Violations))
	for _, v := range e.Violations {
		path := v.Field
		if path == "" {
			path = validation.PathName
		}
		out = append(out, validation.FieldError{Path: path, Message: v.Message})
	}
	return out
}

// auditRecord is what the WAL keeps about a submission. It never carries
// credential values.
type auditRecord struct {
	Name           string   `json:"name"`
	Provider       string   `json:"provider"`
	Mode           string   `json:"mode"`
	CredentialType string   `json:"credential_type"`
	Regions        []string `json:"regions,omitempty"`
	Fields         []string `json:"fields,omitempty"`
	Revision       int64    `json:"revision,omitempty"`
}

func newAuditRecord(p payload.Payload, mode string) auditRecord {
	return auditRecord{
		Name:           p.Name,
		Provider:       string(p.Provider),
		Mode:           mode,
		CredentialType: p.CredentialType,
		Regions:        p.RegionList,
	}
}

type nopAuditor struct{}

func (nopAuditor) Append(wal.EntryType, string, any) error {
	return nil
}

func (nopAuditor) AppendError(wal.EntryType, string, any, error) error {
	return nil
}
