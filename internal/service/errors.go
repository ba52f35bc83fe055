package service

import "errors"

var (
	// ErrCycle is returned when a move would place a block inside its own subtree.
	ErrCycle = errors.New("move would create a cycle")
	// ErrBusy is returned when another mutation holds part of the affected subtree.
	ErrBusy = errors.New("subtree is being modified")
	// ErrPropertiesMismatch is returned when a property record does not belong to the block's variant.
	ErrPropertiesMismatch = errors.New("properties do not match block type")
	// ErrEmptySnapshot is returned when pasting or restoring nothing.
	ErrEmptySnapshot = errors.New("snapshot is empty")
)
