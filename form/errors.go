package form

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a submit is attempted while another is pending
	ErrBusy = errors.New("submit already in progress")
	// ErrFeatureUnsupported is returned when enabling a feature the provider lacks
	ErrFeatureUnsupported = errors.New("feature not supported by provider")
	// ErrCredentialTypeUnavailable is returned for unknown or disabled credential types
	ErrCredentialTypeUnavailable = errors.New("credential type not available")
	// ErrUnknownField is returned when a field key is not part of the current layout
	ErrUnknownField = errors.New("unknown field")
	// ErrUnknownOption is returned when toggling a value that is not offered
	ErrUnknownOption = errors.New("unknown option")
	// ErrNotApplicable is returned when setting a schedule field the frequency does not use
	ErrNotApplicable = errors.New("field not used by current frequency")
	// ErrInvalidValue is returned for values outside an enumeration
	ErrInvalidValue = errors.New("invalid value")
)

// SubmitError wraps a failure reported by the submit collaborator. The
// form keeps its state so the user can retry.
type SubmitError struct {
	CloudName string
	Cause     error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit cloud %q: %v", e.CloudName, e.Cause)
}

func (e *SubmitError) Unwrap() error {
	return e.Cause
}
