package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Open-Social-World/autolibra/internal/fsutil"
	"github.com/Open-Social-World/autolibra/internal/telemetry"
)

// stampLayout renders timestamps into file names. Nanosecond precision,
// no colons, so names stay valid on every filesystem.
const stampLayout = "20060102T150405.000000000Z"

var (
	meterOnce      sync.Once
	payloadsStored metric.Int64Counter
	payloadBytes   metric.Int64Counter
)

func instruments() {
	meterOnce.Do(func() {
		m := telemetry.Meter("github.com/Open-Social-World/autolibra/media")
		payloadsStored, _ = m.Int64Counter("autolibra.media.payloads_stored",
			metric.WithDescription("Payload files written"))
		payloadBytes, _ = m.Int64Counter("autolibra.media.payload_bytes",
			metric.WithDescription("Payload bytes written"),
			metric.WithUnit("By"))
	})
}

func record(ctx context.Context, mediaType Type, bytes int) {
	attrs := metric.WithAttributes(attribute.String("media_type", string(mediaType)))
	if payloadsStored != nil {
		payloadsStored.Add(ctx, 1, attrs)
	}
	if payloadBytes != nil {
		payloadBytes.Add(ctx, int64(bytes), attrs)
	}
}

// Store persists payloads under a base directory and loads them back from
// references. It keeps no cache: every Get re-reads from disk, since array
// payloads can be large and callers rarely reload the same point twice.
type Store struct {
	base    string
	jsonDir string
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore opens a payload store rooted at base, creating the directory
// tree on demand.
func NewStore(base string, opts ...Option) (*Store, error) {
	s := &Store{
		base:    base,
		jsonDir: filepath.Join(base, "json_data"),
		logger:  slog.Default(),
	}
	for _, fn := range opts {
		fn(s)
	}
	if err := os.MkdirAll(s.jsonDir, 0o755); err != nil {
		return nil, fmt.Errorf("media: init store at %s: %w", base, err)
	}
	instruments()
	return s, nil
}

// Put persists a payload and returns a Reference that can reload it.
// Structured payloads are written verbatim to a file named after
// (trajectory, point kind, timestamp); arrays get a fresh unique file under
// a directory derived from the same key.
func (s *Store) Put(ctx context.Context, payload Payload, mediaType Type, trajectoryID string, ts time.Time, pointKind string) (Reference, error) {
	if err := ctx.Err(); err != nil {
		return Reference{}, err
	}
	stamp := ts.UTC().Format(stampLayout)

	if mediaType.Structured() {
		doc, ok := payload.(Structured)
		if !ok {
			return Reference{}, fmt.Errorf("%w: %s payload must be Structured", ErrKindMismatch, mediaType)
		}
		if !json.Valid(doc.Doc) {
			return Reference{}, fmt.Errorf("media: structured payload is not valid JSON")
		}
		name := fmt.Sprintf("%s_%s_%s.json", trajectoryID, pointKind, stamp)
		path := filepath.Join(s.jsonDir, name)
		if err := fsutil.WriteAtomic(path, doc.Doc); err != nil {
			return Reference{}, err
		}
		record(ctx, mediaType, len(doc.Doc))
		return Reference{
			MediaType: TypeJSON,
			Path:      path,
			Metadata:  map[string]any{"timestamp": stamp},
		}, nil
	}

	arr, ok := payload.(*Array)
	if !ok {
		return Reference{}, fmt.Errorf("%w: %s payload must be an Array", ErrKindMismatch, mediaType)
	}
	raw, err := encodeArray(arr)
	if err != nil {
		return Reference{}, err
	}
	path := filepath.Join(s.base, trajectoryID, pointKind, stamp, uuid.NewString()+".array")
	if err := fsutil.WriteAtomic(path, raw); err != nil {
		return Reference{}, err
	}
	record(ctx, mediaType, len(raw))
	return Reference{
		MediaType: mediaType,
		Path:      path,
		Shape:     append([]int64(nil), arr.Shape...),
		DType:     arr.DType,
	}, nil
}

// Get loads the payload a reference points at, dispatching on its media
// type. Array loads fail with typed errors when the reference lacks
// shape/dtype metadata or the file is absent.
func (s *Store) Get(ctx context.Context, ref Reference) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if ref.MediaType.Structured() {
		data, err := os.ReadFile(ref.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrPayloadNotFound, ref.Path)
			}
			return nil, fmt.Errorf("media: read %s: %w", ref.Path, err)
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("%w: %s is not valid JSON", ErrCorruptPayload, ref.Path)
		}
		return Structured{Doc: data}, nil
	}

	if len(ref.Shape) == 0 || ref.DType == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingArrayMeta, ref.Path)
	}
	raw, err := os.ReadFile(ref.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPayloadNotFound, ref.Path)
		}
		return nil, fmt.Errorf("media: read %s: %w", ref.Path, err)
	}
	arr, err := decodeArray(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ref.Path, err)
	}
	if err := checkAgainstReference(arr, ref); err != nil {
		return nil, err
	}
	return arr, nil
}

// checkAgainstReference verifies that the decoded file matches the shape
// and dtype the reference declared.
func checkAgainstReference(arr *Array, ref Reference) error {
	if arr.DType != ref.DType {
		return fmt.Errorf("%w: %s holds dtype %s, reference says %s",
			ErrCorruptPayload, ref.Path, arr.DType, ref.DType)
	}
	if len(arr.Shape) != len(ref.Shape) {
		return fmt.Errorf("%w: %s shape %v does not match reference %v",
			ErrCorruptPayload, ref.Path, arr.Shape, ref.Shape)
	}
	for i := range arr.Shape {
		if arr.Shape[i] != ref.Shape[i] {
			return fmt.Errorf("%w: %s shape %v does not match reference %v",
				ErrCorruptPayload, ref.Path, arr.Shape, ref.Shape)
		}
	}
	return nil
}

// Close releases the store. Present for lifecycle symmetry with the
// trajectory log; the store holds no open handles between calls.
func (s *Store) Close() error { return nil }
