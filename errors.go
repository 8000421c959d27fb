package flipclock

import "errors"

var (
	// ErrContainerNotFound is reported when a document has no container for
	// a field.
	ErrContainerNotFound = errors.New("field container not found")

	// ErrSlotNotFound is reported when a container has no slot for a
	// position.
	ErrSlotNotFound = errors.New("digit slot not found")

	// ErrNilDocument is returned by New when no Document is supplied.
	ErrNilDocument = errors.New("document must not be nil")

	// ErrInvalidInterval is returned for a non-positive tick interval.
	ErrInvalidInterval = errors.New("interval must be greater than 0")
)
