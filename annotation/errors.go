package annotation

import "errors"

var (
	// ErrUnknownAnnotator is returned when an annotation references an
	// annotator id that is not in the project roster.
	ErrUnknownAnnotator = errors.New("annotation: unknown annotator")

	// ErrConfidenceRange is returned when a confidence score falls
	// outside [0, 1].
	ErrConfidenceRange = errors.New("annotation: confidence must be in [0, 1]")

	// ErrCorrupt is returned when a project or annotation file exists but
	// fails to parse. No silent reset: the file is left for the operator.
	ErrCorrupt = errors.New("annotation: corrupt file")

	// ErrNameRequired is returned when creating a project at an empty
	// directory without a name.
	ErrNameRequired = errors.New("annotation: project name required to create")
)
