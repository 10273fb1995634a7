package media

import "errors"

var (
	// ErrPayloadNotFound is returned when a reference points at a file
	// that no longer exists.
	ErrPayloadNotFound = errors.New("media: payload file not found")

	// ErrMissingArrayMeta is returned when an array reference lacks the
	// shape or dtype needed to load it.
	ErrMissingArrayMeta = errors.New("media: array reference missing shape or dtype")

	// ErrCorruptPayload is returned when a payload file exists but fails
	// framing, checksum, or format validation.
	ErrCorruptPayload = errors.New("media: corrupt payload")

	// ErrKindMismatch is returned when the payload value does not match
	// the declared media type (e.g. an Array stored as TypeJSON).
	ErrKindMismatch = errors.New("media: payload does not match media type")
)
