package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound means the geocoding provider answered but had no match.
	ErrNotFound = errors.New("location not found")

	// ErrEntryNotFound means the directory store has no entry with the requested id.
	ErrEntryNotFound = errors.New("directory entry not found")
)

// FormatError reports malformed coordinate or query text.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid coordinate format %q: %s", e.Input, e.Reason)
}

// RangeError reports a value outside the global latitude/longitude bounds.
type RangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %g out of range [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

// RegionError reports a coordinate outside the configured bounding region.
type RegionError struct {
	Coordinate Coordinate
	Region     BBox
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("coordinate (%s) outside region %s", e.Coordinate, e.Region)
}

// ValidationError reports an invalid request or form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ProviderError wraps a transport or provider failure. StatusCode is zero
// when no HTTP response was received.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d %s: %v", e.Provider, e.Op, e.StatusCode, http.StatusText(e.StatusCode), e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsInputError reports whether err is a locally correctable input problem
// (format, range, region or validation) rather than a lookup or transport failure.
func IsInputError(err error) bool {
	var (
		fe *FormatError
		re *RangeError
		ge *RegionError
		ve *ValidationError
	)
	return errors.As(err, &fe) || errors.As(err, &re) || errors.As(err, &ge) || errors.As(err, &ve)
}
