package tracks

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("track not found")
	ErrInvalidName      = errors.New("invalid track name")
	ErrEmptyGPX         = errors.New("empty GPX file")
	ErrMissingElevation = errors.New("expected elevation to be known")
	ErrNoTrackPoints    = errors.New("GPX file has no track points")
	ErrSingleTrackPoint = errors.New("GPX file needs at least two track points")
)

// ConversionError wraps a failure while generating a file from a GPX.
type ConversionError struct {
	Source string
	Target string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s to %s: %v", e.Source, e.Target, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// errorName is the body of a failed generation response: the short type
// name of the innermost error, or its message for plain sentinel errors.
func errorName(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	name := fmt.Sprintf("%T", err)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if name == "errorString" {
		return err.Error()
	}
	return name
}
