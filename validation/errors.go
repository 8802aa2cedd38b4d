package validation

import (
	"fmt"
	"strings"
)

// FieldError is a validation failure attributed to a dotted path of the
// cloud record, such as "credentials.accessKeyId"
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Errors is the full set of failures of one validation pass
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return strings.Join(parts, "; ")
}

// Err returns e as an error, or nil when there are no failures
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Get returns the message recorded for path
func (e Errors) Get(path string) (string, bool) {
	for _, fe := range e {
		if fe.Path == path {
			return fe.Message, true
		}
	}
	return "", false
}

// Paths lists the failing paths in report order
func (e Errors) Paths() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Path
	}
	return out
}

// ByPath indexes the failures by path
func (e Errors) ByPath() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		out[fe.Path] = fe.Message
	}
	return out
}
