// Package annotation stores human- and judge-authored annotations keyed by
// the same (instance id, agent id) pairs as the dataset, in a sibling
// directory tree it does not share with the trajectory store.
//
// Layout under the annotation root:
//
//	project.yaml                                project metadata + roster
//	annotations/<instance_id>_<agent_id>.json   per-key annotation list
package annotation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/Open-Social-World/autolibra/internal/fsutil"
	"github.com/Open-Social-World/autolibra/internal/telemetry"
)

const scanConcurrency = 8

var (
	meterOnce        sync.Once
	annotationsAdded metric.Int64Counter
)

func instruments() {
	meterOnce.Do(func() {
		m := telemetry.Meter("github.com/Open-Social-World/autolibra/annotation")
		annotationsAdded, _ = m.Int64Counter("autolibra.annotation.annotations_added",
			metric.WithDescription("Annotations appended"))
	})
}

// System is an open handle on one annotation project root. Writers to the
// same (instance, agent) key serialize through a per-key mutex; the
// project file has its own lock. Cross-process writers are not
// coordinated — atomic replace prevents torn files but not lost updates.
type System struct {
	base           string
	annotationsDir string
	projectPath    string
	logger         *slog.Logger
	now            func() time.Time

	mu      sync.Mutex // guards project
	project Project

	lockMu   sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// Option configures a System at open time.
type Option func(*System)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *System) { s.logger = logger }
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *System) { s.now = now }
}

// WithDescription sets the project description used at creation.
func WithDescription(description string) Option {
	return func(s *System) { s.project.Description = description }
}

// WithSchema sets the content schema used at creation. The schema
// documents the expected annotation shape; it is not enforced.
func WithSchema(schema map[string]any) Option {
	return func(s *System) { s.project.Schema = schema }
}

// WithGuidelines sets the annotator guideline text used at creation.
func WithGuidelines(guidelines string) Option {
	return func(s *System) { s.project.Guidelines = guidelines }
}

// Open opens the annotation project rooted at path, creating it when no
// project file exists yet. Same open-or-create contract as the dataset:
// on reopen the persisted project wins and differing arguments only log a
// notice.
func Open(path, projectName string, opts ...Option) (*System, error) {
	s := &System{
		base:           path,
		annotationsDir: filepath.Join(path, "annotations"),
		projectPath:    filepath.Join(path, "project.yaml"),
		logger:         slog.Default(),
		now:            time.Now,
		keyLocks:       map[string]*sync.Mutex{},
	}
	for _, fn := range opts {
		fn(s)
	}

	if err := os.MkdirAll(s.annotationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("annotation: init %s: %w", path, err)
	}

	var persisted Project
	err := fsutil.LoadYAML(s.projectPath, &persisted)
	switch {
	case err == nil:
		if projectName != "" && projectName != persisted.Name {
			s.logger.Warn("annotation project already exists, keeping persisted metadata",
				"path", path, "persisted_name", persisted.Name, "requested_name", projectName)
		}
		s.project = persisted
		if s.project.Annotators == nil {
			s.project.Annotators = map[string]Annotator{}
		}
		instruments()
		return s, nil
	case errors.Is(err, fs.ErrNotExist):
		// Fall through to create.
	case errors.Is(err, fsutil.ErrDecode):
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.projectPath, err)
	default:
		return nil, err
	}

	if projectName == "" {
		return nil, ErrNameRequired
	}
	now := s.now().UTC()
	s.project.ProjectID = uuid.NewString()
	s.project.Name = projectName
	s.project.CreatedAt = now
	s.project.UpdatedAt = now
	if s.project.Schema == nil {
		s.project.Schema = map[string]any{}
	}
	s.project.Annotators = map[string]Annotator{}
	if err := s.saveProjectLocked(); err != nil {
		return nil, err
	}
	s.logger.Info("created annotation project", "path", path, "name", projectName)
	instruments()
	return s, nil
}

// saveProjectLocked rewrites project.yaml atomically. Callers hold s.mu or
// have exclusive access during Open.
func (s *System) saveProjectLocked() error {
	return fsutil.SaveYAML(s.projectPath, s.project)
}

// Project returns a copy of the project metadata.
func (s *System) Project() Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.project
	p.Annotators = make(map[string]Annotator, len(s.project.Annotators))
	for id, a := range s.project.Annotators {
		p.Annotators[id] = a
	}
	return p
}

// AddAnnotator registers an annotator in the project roster and rewrites
// the project file. Registering an existing id replaces its entry.
func (s *System) AddAnnotator(ctx context.Context, annotator Annotator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if annotator.AnnotatorID == "" || annotator.Name == "" {
		return fmt.Errorf("annotation: annotator id and name are required")
	}
	if annotator.Metadata == nil {
		annotator.Metadata = map[string]any{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.project.Annotators[annotator.AnnotatorID] = annotator
	s.project.UpdatedAt = s.now().UTC()
	return s.saveProjectLocked()
}

func (s *System) keyLock(key string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.keyLocks[key] = lock
	}
	return lock
}

func (s *System) keyPath(instanceID, agentID string) string {
	return filepath.Join(s.annotationsDir, instanceID+"_"+agentID+".json")
}

// AddAnnotationRequest carries the arguments for AddAnnotation.
type AddAnnotationRequest struct {
	InstanceID  string
	AgentID     string
	AnnotatorID string
	Content     map[string]any
	Span        *Span
	Confidence  *float64
	Metadata    map[string]any
}

// AddAnnotation appends an annotation to the per-key list and rewrites
// that file atomically. Fails with ErrUnknownAnnotator for unregistered
// annotators, leaving the on-disk list untouched.
func (s *System) AddAnnotation(ctx context.Context, req AddAnnotationRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	_, registered := s.project.Annotators[req.AnnotatorID]
	s.mu.Unlock()
	if !registered {
		return "", fmt.Errorf("%w: %s", ErrUnknownAnnotator, req.AnnotatorID)
	}
	if req.Confidence != nil && (*req.Confidence < 0 || *req.Confidence > 1) {
		return "", fmt.Errorf("%w: %v", ErrConfidenceRange, *req.Confidence)
	}

	now := s.now().UTC()
	ann := Annotation{
		AnnotationID: uuid.NewString(),
		AnnotatorID:  req.AnnotatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Content:      req.Content,
		Span:         req.Span,
		Confidence:   req.Confidence,
		Metadata:     req.Metadata,
	}
	if ann.Content == nil {
		ann.Content = map[string]any{}
	}
	if ann.Metadata == nil {
		ann.Metadata = map[string]any{}
	}

	key := req.InstanceID + "_" + req.AgentID
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	list, err := s.Annotations(ctx, req.InstanceID, req.AgentID)
	if err != nil {
		return "", err
	}
	list.Annotations = append(list.Annotations, ann)
	if err := fsutil.SaveJSON(s.keyPath(req.InstanceID, req.AgentID), list); err != nil {
		return "", err
	}

	if annotationsAdded != nil {
		annotationsAdded.Add(ctx, 1)
	}
	return ann.AnnotationID, nil
}

// Annotations returns the ordered annotation list for one (instance,
// agent) key, empty if none exist on disk.
func (s *System) Annotations(ctx context.Context, instanceID, agentID string) (TrajectoryAnnotations, error) {
	if err := ctx.Err(); err != nil {
		return TrajectoryAnnotations{}, err
	}
	list := TrajectoryAnnotations{InstanceID: instanceID, AgentID: agentID}
	path := s.keyPath(instanceID, agentID)
	if err := fsutil.LoadJSON(path, &list); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return list, nil
		case errors.Is(err, fsutil.ErrDecode):
			return TrajectoryAnnotations{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		default:
			return TrajectoryAnnotations{}, err
		}
	}
	return list, nil
}

// scan loads every per-key file, applies filter to each annotation, and
// returns the keys that kept at least one match. A nil filter keeps all.
func (s *System) scan(ctx context.Context, filter func(Annotation) bool) (map[string][]Annotation, error) {
	entries, err := os.ReadDir(s.annotationsDir)
	if err != nil {
		return nil, fmt.Errorf("annotation: scan: %w", err)
	}

	var (
		mu  sync.Mutex
		out = map[string][]Annotation{}
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var list TrajectoryAnnotations
			path := filepath.Join(s.annotationsDir, entry.Name())
			if err := fsutil.LoadJSON(path, &list); err != nil {
				if errors.Is(err, fsutil.ErrDecode) {
					return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
				}
				return err
			}
			var matched []Annotation
			for _, ann := range list.Annotations {
				if filter == nil || filter(ann) {
					matched = append(matched, ann)
				}
			}
			if len(matched) > 0 {
				mu.Lock()
				out[list.Key()] = matched
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ByAnnotator returns every annotation authored by one annotator, keyed by
// "<instance>_<agent>". Full scan of all per-key files; not indexed.
func (s *System) ByAnnotator(ctx context.Context, annotatorID string) (map[string][]Annotation, error) {
	return s.scan(ctx, func(ann Annotation) bool {
		return ann.AnnotatorID == annotatorID
	})
}

// ByTimeRange returns annotations whose span starts at or after start and,
// when both end bounds are present, ends at or before end. Annotations
// without a span never match.
func (s *System) ByTimeRange(ctx context.Context, start time.Time, end *time.Time) (map[string][]Annotation, error) {
	return s.scan(ctx, func(ann Annotation) bool {
		if ann.Span == nil {
			return false
		}
		if ann.Span.StartTime.Before(start) {
			return false
		}
		if end != nil && ann.Span.EndTime != nil && ann.Span.EndTime.After(*end) {
			return false
		}
		return true
	})
}

// All returns every annotation in the project, keyed by
// "<instance>_<agent>".
func (s *System) All(ctx context.Context) (map[string][]Annotation, error) {
	return s.scan(ctx, nil)
}
