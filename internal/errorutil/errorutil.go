// Package errorutil defines the error taxonomy shared by the feature pipeline,
// the batch jobs and the request layer.
package errorutil

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed or out-of-range input that reached the core.
type ValidationError struct {
	Field    string
	DeviceID int64
	Reason   string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.DeviceID != 0 {
		fmt.Fprintf(&b, " (device %d)", e.DeviceID)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientDataError reports a group or batch with fewer records than an
// aggregation needs. Callers skip the group rather than failing the batch.
type InsufficientDataError struct {
	What     string
	DeviceID int64
	Date     string
	Have     int
	Need     int
}

func (e *InsufficientDataError) Error() string {
	msg := fmt.Sprintf("insufficient data for %s: have %d, need %d", e.What, e.Have, e.Need)
	if e.DeviceID != 0 {
		msg += fmt.Sprintf(" (device %d", e.DeviceID)
		if e.Date != "" {
			msg += ", date " + e.Date
		}
		msg += ")"
	}
	return msg
}

// ConfigurationError is fatal for the model it names: the artifact does not
// match what the feature builder produces.
type ConfigurationError struct {
	Model  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for model %q: %s", e.Model, e.Reason)
}

// UpstreamUnavailableError reports that an external data source could not be
// reached during extraction. Nothing derived is written when it occurs.
type UpstreamUnavailableError struct {
	Source  string
	Records int
	Err     error
}

func (e *UpstreamUnavailableError) Error() string {
	if e.Records > 0 {
		return fmt.Sprintf("upstream %s unavailable after %d records: %v", e.Source, e.Records, e.Err)
	}
	return fmt.Sprintf("upstream %s unavailable: %v", e.Source, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsInsufficientData reports whether err wraps an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

// IsConfiguration reports whether err wraps a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsUpstreamUnavailable reports whether err wraps an UpstreamUnavailableError.
func IsUpstreamUnavailable(err error) bool {
	var target *UpstreamUnavailableError
	return errors.As(err, &target)
}
