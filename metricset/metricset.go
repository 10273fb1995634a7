// Package metricset stores named evaluation criteria as one YAML file per
// metric plus a manifest listing the member names.
//
// Layout under the set root:
//
//	metadata.yaml           set metadata + member name list
//	metrics/<name>.yaml     one file per metric
package metricset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Open-Social-World/autolibra/internal/fsutil"
)

// Metric is a single evaluation criterion with example behaviors on both
// sides of the line. The evaluation pipeline that consumes these lives
// outside this module.
type Metric struct {
	Name          string   `json:"name" yaml:"name"`
	Explanation   string   `json:"explanation" yaml:"explanation"`
	GoodBehaviors []string `json:"good_behaviors" yaml:"good_behaviors"`
	BadBehaviors  []string `json:"bad_behaviors" yaml:"bad_behaviors"`
}

// Metadata is the set manifest persisted as metadata.yaml.
type Metadata struct {
	CreatedAt   time.Time `yaml:"created_at"`
	Name        string    `yaml:"name"`
	MetricNames []string  `yaml:"metric_names"`
	InducedFrom string    `yaml:"induced_from,omitempty"`
	Version     string    `yaml:"version,omitempty"`
}

// Set is an open handle on one metric-set directory. All mutations hold a
// single mutex; the manifest is rewritten atomically after each change.
type Set struct {
	base         string
	metricsDir   string
	manifestPath string
	logger       *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	manifest Metadata
	metrics  map[string]Metric
}

// Option configures a Set at open time.
type Option func(*Set)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Set) { s.logger = logger }
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Set) { s.now = now }
}

// WithInducedFrom records the dataset the metrics were derived from. Only
// applied at creation.
func WithInducedFrom(source string) Option {
	return func(s *Set) { s.manifest.InducedFrom = source }
}

// WithVersion sets the set version string. Only applied at creation.
func WithVersion(version string) Option {
	return func(s *Set) { s.manifest.Version = version }
}

// sanitizeName makes a metric name filename-safe. Slashes would escape the
// metrics directory.
func sanitizeName(name string) string {
	return strings.ReplaceAll(name, "/", "_")
}

// Open opens the metric set rooted at path, creating it when no manifest
// exists yet. On reopen the persisted manifest wins and every member named
// in it is loaded into memory; a member file missing or unparsable at that
// point surfaces as an error rather than a silently smaller set.
func Open(path, name string, opts ...Option) (*Set, error) {
	s := &Set{
		base:         path,
		metricsDir:   filepath.Join(path, "metrics"),
		manifestPath: filepath.Join(path, "metadata.yaml"),
		logger:       slog.Default(),
		now:          time.Now,
		metrics:      map[string]Metric{},
	}
	for _, fn := range opts {
		fn(s)
	}

	if err := os.MkdirAll(s.metricsDir, 0o755); err != nil {
		return nil, fmt.Errorf("metricset: init %s: %w", path, err)
	}

	var persisted Metadata
	err := fsutil.LoadYAML(s.manifestPath, &persisted)
	switch {
	case err == nil:
		if name != "" && name != persisted.Name {
			s.logger.Warn("metric set already exists, keeping persisted manifest",
				"path", path, "persisted_name", persisted.Name, "requested_name", name)
		}
		s.manifest = persisted
		if err := s.hydrate(); err != nil {
			return nil, err
		}
		return s, nil
	case errors.Is(err, fs.ErrNotExist):
		// Fall through to create.
	case errors.Is(err, fsutil.ErrDecode):
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.manifestPath, err)
	default:
		return nil, err
	}

	if name == "" {
		return nil, ErrNameRequired
	}
	s.manifest.Name = name
	s.manifest.CreatedAt = s.now().UTC()
	s.manifest.MetricNames = []string{}
	if err := fsutil.SaveYAML(s.manifestPath, s.manifest); err != nil {
		return nil, err
	}
	s.logger.Info("created metric set", "path", path, "name", name)
	return s, nil
}

// hydrate loads every metric the manifest names into the in-memory map.
func (s *Set) hydrate() error {
	for _, name := range s.manifest.MetricNames {
		metric, err := s.readMetric(name)
		if err != nil {
			return err
		}
		s.metrics[name] = metric
	}
	return nil
}

func (s *Set) metricPath(name string) string {
	return filepath.Join(s.metricsDir, name+".yaml")
}

func (s *Set) readMetric(name string) (Metric, error) {
	var metric Metric
	path := s.metricPath(name)
	if err := fsutil.LoadYAML(path, &metric); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return Metric{}, fmt.Errorf("%w: %s (named in manifest)", ErrMetricNotFound, name)
		case errors.Is(err, fsutil.ErrDecode):
			return Metric{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		default:
			return Metric{}, err
		}
	}
	return metric, nil
}

// Metadata returns a copy of the set manifest.
func (s *Set) Metadata() Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.manifest
	m.MetricNames = append([]string(nil), s.manifest.MetricNames...)
	return m
}

// Add inserts metrics into the set, writing one file per metric and then
// rewriting the manifest. Names are slash-sanitized before use. The whole
// batch is validated up front: a duplicate anywhere in it fails the call
// before any file is written.
func (s *Set) Add(ctx context.Context, metrics ...Metric) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[string]bool{}
	for i := range metrics {
		metrics[i].Name = sanitizeName(metrics[i].Name)
		name := metrics[i].Name
		if name == "" {
			return fmt.Errorf("metricset: metric name is required")
		}
		if _, exists := s.metrics[name]; exists || seen[name] {
			return fmt.Errorf("%w: %s", ErrDuplicateMetric, name)
		}
		seen[name] = true
	}

	for _, metric := range metrics {
		if err := fsutil.SaveYAML(s.metricPath(metric.Name), metric); err != nil {
			return err
		}
		s.metrics[metric.Name] = metric
		s.manifest.MetricNames = append(s.manifest.MetricNames, metric.Name)
		s.logger.Debug("added metric", "set", s.manifest.Name, "metric", metric.Name)
	}
	return fsutil.SaveYAML(s.manifestPath, s.manifest)
}

// Get reads one metric back from disk, so edits made out of band are
// visible without reopening the set.
func (s *Set) Get(ctx context.Context, name string) (Metric, error) {
	if err := ctx.Err(); err != nil {
		return Metric{}, err
	}
	name = sanitizeName(name)

	s.mu.Lock()
	_, ok := s.metrics[name]
	s.mu.Unlock()
	if !ok {
		return Metric{}, fmt.Errorf("%w: %s", ErrMetricNotFound, name)
	}
	return s.readMetric(name)
}

// List returns the member metric names in sorted order.
func (s *Set) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := append([]string(nil), s.manifest.MetricNames...)
	sort.Strings(names)
	return names
}

// Metrics returns a copy of the in-memory metric map.
func (s *Set) Metrics() map[string]Metric {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Metric, len(s.metrics))
	for name, metric := range s.metrics {
		out[name] = metric
	}
	return out
}
