package metricset

import "errors"

var (
	// ErrDuplicateMetric is returned when adding a metric whose name is
	// already in the set.
	ErrDuplicateMetric = errors.New("metricset: duplicate metric name")

	// ErrMetricNotFound is returned when a requested metric is not in the
	// set.
	ErrMetricNotFound = errors.New("metricset: metric not found")

	// ErrCorrupt is returned when a manifest or metric file exists but
	// fails to parse. No silent reset: the file is left for the operator.
	ErrCorrupt = errors.New("metricset: corrupt file")

	// ErrNameRequired is returned when creating a set at an empty
	// directory without a name.
	ErrNameRequired = errors.New("metricset: set name required to create")
)
