// Package autolibra is the public entry point for the AutoLibra trajectory
// and annotation store.
//
// The store is a plain filesystem tree: a dataset of multi-agent
// trajectories, a sibling annotation project keyed by the same
// (instance, agent) identifiers, and an optional set of evaluation
// metrics. Converters, evaluation pipelines, and serving layers consume
// these handles:
//
//	ds, err := autolibra.OpenDataset(".data/webarena", "webarena",
//	    autolibra.WithLogger(logger),
//	)
//	if err != nil { ... }
//	defer ds.Close()
//
// The import graph enforces a strict no-cycle rule: autolibra (root)
// imports the domain packages, but the domain packages never import
// autolibra (root).
package autolibra

import (
	"github.com/Open-Social-World/autolibra/annotation"
	"github.com/Open-Social-World/autolibra/dataset"
	"github.com/Open-Social-World/autolibra/metricset"
)

// Version is the module version reported by the CLI and in logs.
const Version = "0.1.0"

// OpenDataset opens (or creates) the dataset rooted at path.
func OpenDataset(path, name string, opts ...Option) (*dataset.Dataset, error) {
	o := resolve(opts)
	var dopts []dataset.Option
	if o.logger != nil {
		dopts = append(dopts, dataset.WithLogger(o.logger))
	}
	if o.now != nil {
		dopts = append(dopts, dataset.WithClock(o.now))
	}
	if o.description != "" {
		dopts = append(dopts, dataset.WithDescription(o.description))
	}
	return dataset.Open(path, name, dopts...)
}

// OpenAnnotations opens (or creates) the annotation project rooted at path.
func OpenAnnotations(path, projectName string, opts ...Option) (*annotation.System, error) {
	o := resolve(opts)
	var aopts []annotation.Option
	if o.logger != nil {
		aopts = append(aopts, annotation.WithLogger(o.logger))
	}
	if o.now != nil {
		aopts = append(aopts, annotation.WithClock(o.now))
	}
	if o.description != "" {
		aopts = append(aopts, annotation.WithDescription(o.description))
	}
	return annotation.Open(path, projectName, aopts...)
}

// OpenMetricSet opens (or creates) the metric set rooted at path.
func OpenMetricSet(path, name string, opts ...Option) (*metricset.Set, error) {
	o := resolve(opts)
	var mopts []metricset.Option
	if o.logger != nil {
		mopts = append(mopts, metricset.WithLogger(o.logger))
	}
	if o.now != nil {
		mopts = append(mopts, metricset.WithClock(o.now))
	}
	return metricset.Open(path, name, mopts...)
}
