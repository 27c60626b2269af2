package webtrack

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated          = errors.New("webtrack: truncated")
	ErrInvalidHeader      = errors.New("webtrack: invalid header")
	ErrUnsupportedVersion = errors.New("webtrack: unsupported version")
	ErrOutOfRange         = errors.New("webtrack: value out of range")
)

type ErrorKind int

const (
	Truncated ErrorKind = iota + 1
	InvalidHeader
	UnsupportedVersion
)

func (k ErrorKind) sentinel() error {
	switch k {
	case Truncated:
		return ErrTruncated
	case InvalidHeader:
		return ErrInvalidHeader
	case UnsupportedVersion:
		return ErrUnsupportedVersion
	}
	return nil
}

// DecodeError is returned for any buffer that cannot be decoded. A decode
// never returns a partial Track.
type DecodeError struct {
	Kind    ErrorKind
	Section string
	Offset  int
	Detail  string
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%v at offset %d", e.Kind.sentinel(), e.Offset)
	if e.Section != "" {
		msg += " (" + e.Section + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DecodeError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}
