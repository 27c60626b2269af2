package geometry

import (
	"errors"
	"fmt"
)

var ErrTooFewPoints = errors.New("geometry: a path needs at least two samples")

type ErrorKind int

const (
	TooFewPoints ErrorKind = iota + 1
)

type GeometryError struct {
	Kind  ErrorKind
	Count int
}

func (e *GeometryError) Error() string {
	switch e.Kind {
	case TooFewPoints:
		return fmt.Sprintf("%v, got %d", ErrTooFewPoints, e.Count)
	default:
		return "geometry: unknown error"
	}
}

func (e *GeometryError) Is(target error) bool {
	return e.Kind == TooFewPoints && target == ErrTooFewPoints
}
