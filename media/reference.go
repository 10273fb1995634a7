package media

// Reference describes how a stored payload is materialized on disk. It
// carries only the location and the metadata needed to reload the payload,
// never the payload itself.
type Reference struct {
	MediaType Type           `json:"media_type" yaml:"media_type"`
	Path      string         `json:"file_path" yaml:"file_path"`
	Shape     []int64        `json:"shape,omitempty" yaml:"shape,omitempty"`
	DType     DType          `json:"dtype,omitempty" yaml:"dtype,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
