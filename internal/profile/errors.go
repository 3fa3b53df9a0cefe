package profile

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an acquisition failed. Callers switch on the kind
// instead of inspecting messages.
type ErrorKind string

// Supported error kinds.
const (
	KindNavigation        ErrorKind = "NavigationFailure"
	KindSecurityChallenge ErrorKind = "SecurityChallenge"
	KindLoginRequired     ErrorKind = "LoginRequired"
	KindLoginFailed       ErrorKind = "LoginFailed"
	KindExtraction        ErrorKind = "ExtractionFailure"
	KindCapacity          ErrorKind = "CapacityExhausted"
	KindUnknown           ErrorKind = "UnknownAcquisitionError"
)

// AcquisitionError is the tagged failure returned by the acquisition pipeline.
type AcquisitionError struct {
	Kind    ErrorKind
	Stage   string
	Message string
	Err     error
}

// NewError builds an AcquisitionError of the given kind.
func NewError(kind ErrorKind, message string, err error) *AcquisitionError {
	return &AcquisitionError{Kind: kind, Message: message, Err: err}
}

func (e *AcquisitionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind carried by err. Errors that were never
// classified report KindUnknown; a nil error reports "".
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var acqErr *AcquisitionError
	if errors.As(err, &acqErr) {
		return acqErr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
