// Package dataset manages a directory tree of multi-agent interaction
// episodes: instance metadata, per-agent trajectory logs, and the
// dataset-level aggregate.
//
// Layout under the dataset root:
//
//	metadata.yaml                               dataset aggregate
//	instances/<instance_id>/metadata.json       instance + agent roster
//	instances/<instance_id>/<agent_id>/         one trajectory log per agent
//
// Listing operations walk the directory tree; there is no secondary index.
// InstancesByAgentType in particular is a full scan with one metadata load
// per instance — O(n), acceptable at this dataset scale.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Open-Social-World/autolibra/internal/fsutil"
	"github.com/Open-Social-World/autolibra/trajectory"
)

const schemaVersion = "1.0"

// scanConcurrency bounds the parallel metadata loads in full-scan queries.
const scanConcurrency = 8

type trajectoryKey struct {
	instanceID string
	agentID    string
}

// Dataset is an open handle on one dataset root. Handles are explicit:
// open at start, close at shutdown, inject into whatever needs one.
type Dataset struct {
	base         string
	instancesDir string
	metadataPath string
	logger       *slog.Logger
	now          func() time.Time

	mu     sync.Mutex
	meta   Metadata
	cache  map[trajectoryKey]*trajectory.Log
	closed bool
}

// Option configures a Dataset at open time.
type Option func(*Dataset)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dataset) { d.logger = logger }
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dataset) { d.now = now }
}

// WithDescription sets the description used when creating a new dataset.
func WithDescription(description string) Option {
	return func(d *Dataset) { d.meta.Description = description }
}

// WithVersion sets the version used when creating a new dataset.
// Defaults to "1.0".
func WithVersion(version string) Option {
	return func(d *Dataset) { d.meta.Version = version }
}

// Open opens the dataset rooted at path, creating it if the directory
// holds no metadata yet. This is an explicit open-or-create contract: the
// first call creates the dataset with the given name and options; later
// opens return the persisted state and log a notice if the arguments
// differ, rather than silently discarding them.
func Open(path, name string, opts ...Option) (*Dataset, error) {
	d := &Dataset{
		base:         path,
		instancesDir: filepath.Join(path, "instances"),
		metadataPath: filepath.Join(path, "metadata.yaml"),
		logger:       slog.Default(),
		now:          time.Now,
		cache:        map[trajectoryKey]*trajectory.Log{},
	}
	d.meta.Version = "1.0"
	for _, fn := range opts {
		fn(d)
	}

	if err := os.MkdirAll(d.instancesDir, 0o755); err != nil {
		return nil, fmt.Errorf("dataset: init %s: %w", path, err)
	}

	var persisted Metadata
	err := fsutil.LoadYAML(d.metadataPath, &persisted)
	switch {
	case err == nil:
		if name != "" && name != persisted.Name {
			d.logger.Warn("dataset already exists, keeping persisted metadata",
				"path", path, "persisted_name", persisted.Name, "requested_name", name)
		}
		d.meta = persisted
		return d, nil
	case errors.Is(err, fs.ErrNotExist):
		// Fall through to create.
	case errors.Is(err, fsutil.ErrDecode):
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, d.metadataPath, err)
	default:
		return nil, err
	}

	if name == "" {
		return nil, ErrNameRequired
	}
	now := d.now().UTC()
	d.meta.Name = name
	d.meta.CreatedAt = now
	d.meta.UpdatedAt = now
	d.meta.SchemaVersion = schemaVersion
	if err := d.saveMetadataLocked(); err != nil {
		return nil, err
	}
	d.logger.Info("created dataset", "path", path, "name", name)
	return d, nil
}

// saveMetadataLocked rewrites metadata.yaml atomically. Callers hold d.mu
// or have exclusive access during Open.
func (d *Dataset) saveMetadataLocked() error {
	return fsutil.SaveYAML(d.metadataPath, d.meta)
}

// Metadata returns a copy of the dataset aggregate.
func (d *Dataset) Metadata() Metadata {
	d.mu.Lock()
	defer d.mu.Unlock()
	meta := d.meta
	meta.AgentTypes = append([]string(nil), d.meta.AgentTypes...)
	return meta
}

// CreateInstance allocates a fresh instance id, persists its metadata and
// roster, eagerly opens one empty trajectory log per agent, and updates
// the dataset aggregate.
func (d *Dataset) CreateInstance(ctx context.Context, agents map[string]AgentMetadata, metadata map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for agentID, am := range agents {
		if am.AgentID == "" {
			am.AgentID = agentID
			agents[agentID] = am
		} else if am.AgentID != agentID {
			return "", fmt.Errorf("dataset: agent metadata id %q does not match roster key %q", am.AgentID, agentID)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", ErrClosed
	}

	instanceID := uuid.NewString()
	instancePath := filepath.Join(d.instancesDir, instanceID)

	instance := Instance{
		InstanceID: instanceID,
		Timestamp:  d.now().UTC(),
		Agents:     agents,
		Metadata:   metadata,
	}
	if instance.Metadata == nil {
		instance.Metadata = map[string]any{}
	}
	if err := fsutil.SaveJSON(filepath.Join(instancePath, "metadata.json"), instance); err != nil {
		return "", err
	}

	for agentID := range agents {
		log, err := d.openLogLocked(instanceID, agentID)
		if err != nil {
			return "", err
		}
		d.cache[trajectoryKey{instanceID, agentID}] = log
	}

	types := map[string]bool{}
	for _, t := range d.meta.AgentTypes {
		types[t] = true
	}
	for _, am := range agents {
		types[am.AgentType] = true
	}
	d.meta.AgentTypes = make([]string, 0, len(types))
	for t := range types {
		d.meta.AgentTypes = append(d.meta.AgentTypes, t)
	}
	sort.Strings(d.meta.AgentTypes)
	d.meta.TotalInstances++
	d.meta.UpdatedAt = d.now().UTC()
	if err := d.saveMetadataLocked(); err != nil {
		return "", err
	}

	return instanceID, nil
}

func (d *Dataset) openLogLocked(instanceID, agentID string) (*trajectory.Log, error) {
	dir := filepath.Join(d.instancesDir, instanceID, agentID)
	return trajectory.Open(instanceID+"_"+agentID, dir, trajectory.WithLogger(d.logger))
}

// Instance loads the metadata of one instance.
func (d *Dataset) Instance(ctx context.Context, instanceID string) (Instance, error) {
	if err := ctx.Err(); err != nil {
		return Instance{}, err
	}
	var instance Instance
	path := filepath.Join(d.instancesDir, instanceID, "metadata.json")
	if err := fsutil.LoadJSON(path, &instance); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return Instance{}, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
		case errors.Is(err, fsutil.ErrDecode):
			return Instance{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		default:
			return Instance{}, err
		}
	}
	return instance, nil
}

// ListInstances returns all instance ids, sorted. A directory listing, no
// pagination.
func (d *Dataset) ListInstances(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.instancesDir)
	if err != nil {
		return nil, fmt.Errorf("dataset: list instances: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Trajectory returns the trajectory log for (instanceID, agentID),
// opening it on first use and caching the handle. The agent must belong
// to the instance's roster.
func (d *Dataset) Trajectory(ctx context.Context, instanceID, agentID string) (*trajectory.Log, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if log, ok := d.cache[trajectoryKey{instanceID, agentID}]; ok {
		return log, nil
	}

	instance, err := d.Instance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if _, ok := instance.Agents[agentID]; !ok {
		return nil, fmt.Errorf("%w: %s in instance %s", ErrAgentNotInRoster, agentID, instanceID)
	}

	log, err := d.openLogLocked(instanceID, agentID)
	if err != nil {
		return nil, err
	}
	d.cache[trajectoryKey{instanceID, agentID}] = log
	return log, nil
}

// AddDataPoint appends one point to an agent's trajectory. Convenience
// wrapper over Trajectory + AddPoint; the same roster check applies.
func (d *Dataset) AddDataPoint(ctx context.Context, instanceID, agentID string, req trajectory.AddPointRequest) error {
	if req.AgentID == "" {
		req.AgentID = agentID
	}
	log, err := d.Trajectory(ctx, instanceID, agentID)
	if err != nil {
		return err
	}
	return log.AddPoint(ctx, req)
}

// InstancesByAgentType returns the ids of all instances whose roster
// contains at least one agent of the given type. Full scan with one
// metadata load per instance; not indexed.
func (d *Dataset) InstancesByAgentType(ctx context.Context, agentType string) ([]string, error) {
	ids, err := d.ListInstances(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		matching []string
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			instance, err := d.Instance(ctx, id)
			if err != nil {
				return err
			}
			for _, am := range instance.Agents {
				if am.AgentType == agentType {
					mu.Lock()
					matching = append(matching, id)
					mu.Unlock()
					break
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(matching)
	return matching, nil
}

// Close flushes and releases every cached trajectory log. Safe to call
// more than once; no on-disk file changes after the first call.
func (d *Dataset) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var firstErr error
	for key, log := range d.cache {
		if err := log.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("dataset: close trajectory %s_%s: %w", key.instanceID, key.agentID, err)
		}
	}
	d.cache = map[trajectoryKey]*trajectory.Log{}
	return firstErr
}
