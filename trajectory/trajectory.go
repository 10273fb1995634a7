// Package trajectory maintains the ordered event log of one agent within
// one recorded episode. Observations and actions are symmetric: both are
// Points differing only in kind, stored in append order with no enforced
// chronology — consumers that need time order sort explicitly.
//
// The point index is rewritten whole and atomically replaced on every
// append, so readers never see a half-written index. Writes are O(n) in
// the point count; trajectories in this domain run to hundreds of points.
package trajectory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/Open-Social-World/autolibra/internal/fsutil"
	"github.com/Open-Social-World/autolibra/internal/telemetry"
	"github.com/Open-Social-World/autolibra/media"
)

// Kind tags a point as an observation or an action.
type Kind string

const (
	Observation Kind = "observation"
	Action      Kind = "action"
)

func (k Kind) valid() bool {
	return k == Observation || k == Action
}

// Point is one observation or action event. The agent id repeats the
// trajectory key so the index file is self-describing.
type Point struct {
	Timestamp time.Time       `json:"timestamp"`
	AgentID   string          `json:"agent_id"`
	Kind      Kind            `json:"point_type"`
	Ref       media.Reference `json:"data_reference"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
}

// AddPointRequest carries the arguments for Log.AddPoint.
type AddPointRequest struct {
	Timestamp time.Time
	AgentID   string
	Kind      Kind
	Payload   media.Payload
	MediaType media.Type
	Metadata  map[string]any
}

var (
	meterOnce      sync.Once
	pointsAppended metric.Int64Counter
)

func instruments() {
	meterOnce.Do(func() {
		m := telemetry.Meter("github.com/Open-Social-World/autolibra/trajectory")
		pointsAppended, _ = m.Int64Counter("autolibra.trajectory.points_appended",
			metric.WithDescription("Trajectory points appended"))
	})
}

// Log is the append-growing point sequence for one (instance, agent) pair.
// A single Log serializes its writers through an internal mutex; the
// dataset manager guarantees one Log per key in-process. Cross-process
// concurrent writers to the same key are unsafe by design: atomic replace
// prevents torn writes but not lost updates between two read-modify-replace
// writers.
type Log struct {
	id        string
	indexPath string
	store     *media.Store
	logger    *slog.Logger

	mu     sync.Mutex
	points []Point
	closed bool
}

// Option configures a Log.
type Option func(*Log)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) { l.logger = logger }
}

// Open loads or creates the trajectory log stored under dir. A present but
// malformed index file fails with ErrCorruptIndex.
func Open(id, dir string, opts ...Option) (*Log, error) {
	l := &Log{
		id:        id,
		indexPath: filepath.Join(dir, "points.json"),
		logger:    slog.Default(),
	}
	for _, fn := range opts {
		fn(l)
	}

	store, err := media.NewStore(dir, media.WithLogger(l.logger))
	if err != nil {
		return nil, err
	}
	l.store = store

	if err := fsutil.LoadJSON(l.indexPath, &l.points); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Fresh trajectory.
		case errors.Is(err, fsutil.ErrDecode):
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptIndex, l.indexPath, err)
		default:
			return nil, err
		}
	}

	instruments()
	return l, nil
}

// ID returns the trajectory identifier (instance_agent).
func (l *Log) ID() string { return l.id }

// AddPoint persists the payload, appends the point, and rewrites the index
// atomically. On index write failure the previous persisted state and the
// in-memory list are both left unchanged.
func (l *Log) AddPoint(ctx context.Context, req AddPointRequest) error {
	if !req.Kind.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, req.Kind)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}

	ref, err := l.store.Put(ctx, req.Payload, req.MediaType, l.id, req.Timestamp, string(req.Kind))
	if err != nil {
		return err
	}

	point := Point{
		Timestamp: req.Timestamp,
		AgentID:   req.AgentID,
		Kind:      req.Kind,
		Ref:       ref,
		Metadata:  req.Metadata,
	}
	if point.Metadata == nil {
		point.Metadata = map[string]any{}
	}

	l.points = append(l.points, point)
	if err := l.saveLocked(); err != nil {
		l.points = l.points[:len(l.points)-1]
		return err
	}

	if pointsAppended != nil {
		pointsAppended.Add(ctx, 1)
	}
	return nil
}

// saveLocked rewrites the whole index file. Callers hold l.mu.
func (l *Log) saveLocked() error {
	if err := fsutil.SaveJSON(l.indexPath, l.points); err != nil {
		return fmt.Errorf("trajectory %s: save index: %w", l.id, err)
	}
	return nil
}

// Points returns the points in append order.
func (l *Log) Points() []Point {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Point(nil), l.points...)
}

// Len returns the number of recorded points.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.points)
}

// Payload reloads the payload of the point at index from disk.
func (l *Log) Payload(ctx context.Context, index int) (media.Payload, error) {
	l.mu.Lock()
	if index < 0 || index >= len(l.points) {
		n := len(l.points)
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, n)
	}
	ref := l.points[index].Ref
	l.mu.Unlock()

	return l.store.Get(ctx, ref)
}

// ByKind returns all points of the given kind, in append order.
func (l *Log) ByKind(kind Kind) []Point {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Point
	for _, p := range l.points {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// ByAgent returns all points recorded for the given agent id.
func (l *Log) ByAgent(agentID string) []Point {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Point
	for _, p := range l.points {
		if p.AgentID == agentID {
			out = append(out, p)
		}
	}
	return out
}

// InTimeRange returns all points with start <= timestamp <= end.
func (l *Log) InTimeRange(start, end time.Time) []Point {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Point
	for _, p := range l.points {
		if !p.Timestamp.Before(start) && !p.Timestamp.After(end) {
			out = append(out, p)
		}
	}
	return out
}

// Close releases the payload store. Every append already persisted the
// index, so there is nothing to flush. Safe to call more than once; a
// closed log rejects further writes.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.store.Close()
}
