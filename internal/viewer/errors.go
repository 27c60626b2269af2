package viewer

import (
	"errors"
	"fmt"
)

var (
	ErrNetworkFailure = errors.New("network failure")
	ErrServerError    = errors.New("server error")
)

type FetchErrorKind int

const (
	NetworkFailure FetchErrorKind = iota
	ServerError
)

// FetchError is a failed track download. For ServerError, Message is the
// response body as sent by the server.
type FetchError struct {
	Kind    FetchErrorKind
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Kind == ServerError {
		return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
	}
	if e.Err != nil {
		return "network failure: " + e.Err.Error()
	}
	return "network failure"
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetworkFailure:
		return e.Kind == NetworkFailure
	case ErrServerError:
		return e.Kind == ServerError
	}
	return false
}
