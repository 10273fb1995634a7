package annotation

import "time"

// Annotator identifies one registered human or automated judge.
type Annotator struct {
	AnnotatorID string         `json:"annotator_id" yaml:"annotator_id"`
	Name        string         `json:"name" yaml:"name"`
	Role        string         `json:"role,omitempty" yaml:"role,omitempty"`
	Expertise   string         `json:"expertise_level,omitempty" yaml:"expertise_level,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Span scopes an annotation to part of a trajectory. The three addressing
// modes — start time, optional end time, optional explicit point indices —
// may coexist.
type Span struct {
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	PointIndices []int      `json:"point_indices,omitempty"`
}

// Annotation is a single note attached to an (instance, agent) trajectory.
type Annotation struct {
	AnnotationID string         `json:"annotation_id"`
	AnnotatorID  string         `json:"annotator_id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Content      map[string]any `json:"content"`
	Span         *Span          `json:"span,omitempty"`
	Confidence   *float64       `json:"confidence,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// TrajectoryAnnotations is the ordered, append-only annotation list for
// one (instance, agent) key, stored as one file per key.
type TrajectoryAnnotations struct {
	InstanceID  string         `json:"instance_id"`
	AgentID     string         `json:"agent_id"`
	Annotations []Annotation   `json:"annotations"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Key returns the "<instance>_<agent>" identifier used in file names and
// query result maps.
func (t TrajectoryAnnotations) Key() string {
	return t.InstanceID + "_" + t.AgentID
}

// Project holds the annotation effort's metadata: a content schema that
// documents (without enforcing) the expected annotation shape, guidelines
// for annotators, and the registered annotator roster.
type Project struct {
	ProjectID   string               `yaml:"project_id"`
	Name        string               `yaml:"name"`
	Description string               `yaml:"description"`
	Schema      map[string]any       `yaml:"annotation_schema"`
	Guidelines  string               `yaml:"guidelines,omitempty"`
	CreatedAt   time.Time            `yaml:"created_at"`
	UpdatedAt   time.Time            `yaml:"updated_at"`
	Annotators  map[string]Annotator `yaml:"annotators"`
	Metadata    map[string]any       `yaml:"metadata,omitempty"`
}
