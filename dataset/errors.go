package dataset

import "errors"

var (
	// ErrInstanceNotFound is returned when a referenced instance id does
	// not exist in the dataset.
	ErrInstanceNotFound = errors.New("dataset: instance not found")

	// ErrAgentNotInRoster is returned when an operation references an
	// agent id outside the instance's fixed roster. The roster is set at
	// instance creation and never grows.
	ErrAgentNotInRoster = errors.New("dataset: agent not in instance roster")

	// ErrCorrupt is returned when a metadata file exists but fails to
	// parse. The dataset refuses to proceed rather than resetting state.
	ErrCorrupt = errors.New("dataset: corrupt metadata")

	// ErrNameRequired is returned when creating a dataset at an empty
	// directory without a name.
	ErrNameRequired = errors.New("dataset: name required to create")

	// ErrClosed is returned when operating on a closed dataset.
	ErrClosed = errors.New("dataset: closed")
)
