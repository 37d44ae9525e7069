package models

import (
	"errors"
	"fmt"
)

// Stable error codes reported to callers in the `error` field.
const (
	CodeInsufficientData     = "insufficient_data"
	CodeMalformedObservation = "malformed_observation"
	CodeValidationFailed     = "validation_failed"
	CodeInternal             = "internal"
)

// MinObservations is the smallest series a line can be fitted to.
const MinObservations = 2

// ErrInsufficientData matches any *InsufficientDataError via errors.Is.
var ErrInsufficientData = errors.New("insufficient data")

// ErrNumericDegeneracy marks a fit whose coefficients or predictions overflow float64. It is
// handled inside the engine and never reported under its own code.
var ErrNumericDegeneracy = errors.New("numeric degeneracy")

// ErrMalformedObservation matches any *MalformedObservationError via errors.Is.
var ErrMalformedObservation = errors.New("malformed observation")

// InsufficientDataError reports a series too short (or a weight vector misaligned) to fit.
type InsufficientDataError struct {
	Category string
	Got      int
	Need     int
	Reason   string
}

func (e *InsufficientDataError) Error() string {
	msg := fmt.Sprintf("insufficient data: got %d observations, need at least %d", e.Got, e.Need)
	if e.Reason != "" {
		msg = "insufficient data: " + e.Reason
	}
	if e.Category != "" {
		return fmt.Sprintf("%s (category %q)", msg, e.Category)
	}
	return msg
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// MalformedObservationError reports a value or timestamp that cannot be parsed.
type MalformedObservationError struct {
	Category string
	Index    int
	Field    string
	Raw      string
	Err      error
}

func (e *MalformedObservationError) Error() string {
	where := fmt.Sprintf("observation %d", e.Index)
	if e.Category != "" {
		where = fmt.Sprintf("category %q %s", e.Category, where)
	}
	if e.Err != nil {
		return fmt.Sprintf("malformed %s in %s: %q: %v", e.Field, where, e.Raw, e.Err)
	}
	return fmt.Sprintf("malformed %s in %s: %q", e.Field, where, e.Raw)
}

func (e *MalformedObservationError) Is(target error) bool { return target == ErrMalformedObservation }

func (e *MalformedObservationError) Unwrap() error { return e.Err }

// ErrInvalidRequest matches any *InvalidRequestError via errors.Is.
var ErrInvalidRequest = errors.New("invalid request")

// InvalidRequestError reports a request field outside its allowed range.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidRequestError) Is(target error) bool { return target == ErrInvalidRequest }

// ErrorCode maps an error to its stable caller-facing code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientData):
		return CodeInsufficientData
	case errors.Is(err, ErrMalformedObservation):
		return CodeMalformedObservation
	case errors.Is(err, ErrInvalidRequest):
		return CodeValidationFailed
	default:
		return CodeInternal
	}
}

// IsReportable reports whether err is caused by the request rather than by the service.
func IsReportable(err error) bool {
	code := ErrorCode(err)
	return code != "" && code != CodeInternal
}
