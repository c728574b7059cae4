package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoRecords marks a batch envelope without the records field. The whole
// invocation ends without processing anything
var ErrNoRecords = errors.New("batch envelope has no records field")

// MissingFieldError enumerates every required field absent from an event
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return "missing required event fields: " + strings.Join(e.Fields, ", ")
}

// ResolutionError marks a malformed consultant code. The message text matches
// what downstream alerting greps for
type ResolutionError struct {
	Code string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("ConsultantCode Inexistente: %s.", e.Code)
}
