package core

import (
	"fmt"
)

// ValidationError reports a ParsedEmail that is missing a required field.
// It is the only error the engine raises to callers; everything else
// degrades into the report.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parsed email: missing required field %q", e.Field)
}

// Validate checks that the upstream parser supplied every required field.
// Empty strings and empty collections are legal; nil collections are not,
// since the contract distinguishes "no URLs" from "URLs never extracted".
func (e *ParsedEmail) Validate() error {
	if e == nil {
		return &ValidationError{Field: "parsed_email"}
	}
	if e.URLs == nil {
		return &ValidationError{Field: "urls"}
	}
	if e.Attachments == nil {
		return &ValidationError{Field: "attachments"}
	}
	return nil
}
