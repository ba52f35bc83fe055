package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownBlockType = errors.New("unknown block type")
	ErrNotAJourney      = errors.New("block is not a journey")
	ErrBlockNotFound    = errors.New("block not found")
	ErrMissingID        = errors.New("block record has no id")
	ErrJourneyNotFound  = errors.New("journey not found")
)

// UnknownBlockTypeError is returned when a raw record carries a type tag
// outside the known variant set.
type UnknownBlockTypeError struct {
	ID   string
	Type string
}

func (e *UnknownBlockTypeError) Error() string {
	return fmt.Sprintf("block %s: unknown block type %q", e.ID, e.Type)
}

func (e *UnknownBlockTypeError) Is(target error) bool {
	return target == ErrUnknownBlockType
}
