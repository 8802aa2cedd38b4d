// Package validation checks a cloud record against the schema of its
// provider. Failures are returned as data, one FieldError per violated
// rule; nothing here panics or mutates the input.
package validation

import (
	"github.com/yairfalse/cloudctl/types"
)

// Validate runs every rule against c. On success it returns a copy of c
// and nil. Each call starts from an empty error set.
//
// An unrecognised provider tag is a hard failure reported at "provider";
// no other rule runs because no schema applies.
func Validate(c types.Cloud) (types.Cloud, Errors) {
	c = c.Clone()

	if !c.Provider.Valid() {
		return c, Errors{{Path: PathProvider, Message: "Provider must be one of AWS, AZURE, GCP."}}
	}

	var errs Errors
	for _, r := range rules {
		for _, path := range r.paths(c) {
			if fe := r.check(c, path); fe != nil {
				errs = append(errs, *fe)
			}
		}
	}
	if len(errs) > 0 {
		return c, errs
	}
	return c, nil
}

// ValidateField runs only the rules governing path. It returns the same
// message Validate would report for that path, or nil.
func ValidateField(c types.Cloud, path string) *FieldError {
	if !c.Provider.Valid() {
		if path == PathProvider {
			return &FieldError{Path: PathProvider, Message: "Provider must be one of AWS, AZURE, GCP."}
		}
		return nil
	}
	for _, r := range rules {
		for _, p := range r.paths(c) {
			if p != path {
				continue
			}
			if fe := r.check(c, p); fe != nil {
				return fe
			}
		}
	}
	return nil
}

// Quick is the pre-submit pass: cloud name and required credential fields
// only, with the same paths and messages as Validate
func Quick(c types.Cloud) Errors {
	var errs Errors
	paths := append([]string{PathName}, credentialFieldPaths(c)...)
	for _, path := range paths {
		if fe := ValidateField(c, path); fe != nil {
			errs = append(errs, *fe)
		}
	}
	return errs
}
