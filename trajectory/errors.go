package trajectory

import "errors"

var (
	// ErrCorruptIndex is returned when points.json exists but fails to
	// parse. The log refuses to open rather than silently discarding the
	// recorded points; recovery requires explicit operator action.
	ErrCorruptIndex = errors.New("trajectory: corrupt point index")

	// ErrIndexOutOfRange is returned by Payload for an index outside the
	// recorded point list.
	ErrIndexOutOfRange = errors.New("trajectory: point index out of range")

	// ErrInvalidKind is returned when a point kind is neither Observation
	// nor Action.
	ErrInvalidKind = errors.New("trajectory: invalid point kind")

	// ErrClosed is returned when writing to a closed log.
	ErrClosed = errors.New("trajectory: log is closed")
)
