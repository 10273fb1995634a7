package trajectory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Open-Social-World/autolibra/media"
)

// RenderedPoint is a point with its payload loaded and decoded, the form
// the evaluation pipeline and the CLI viewer consume.
type RenderedPoint struct {
	Timestamp time.Time      `json:"timestamp"`
	AgentID   string         `json:"agent_id"`
	Kind      Kind           `json:"point_type"`
	Data      any            `json:"data"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Render materializes the whole trajectory, loading every payload from
// disk. Structured payloads decode to their JSON value; arrays decode to a
// map with dtype, shape, and element values.
func Render(ctx context.Context, l *Log) ([]RenderedPoint, error) {
	points := l.Points()
	out := make([]RenderedPoint, 0, len(points))
	for i, p := range points {
		payload, err := l.Payload(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("trajectory %s: render point %d: %w", l.id, i, err)
		}
		data, err := renderPayload(payload)
		if err != nil {
			return nil, fmt.Errorf("trajectory %s: render point %d: %w", l.id, i, err)
		}
		out = append(out, RenderedPoint{
			Timestamp: p.Timestamp,
			AgentID:   p.AgentID,
			Kind:      p.Kind,
			Data:      data,
			Metadata:  p.Metadata,
		})
	}
	return out, nil
}

func renderPayload(payload media.Payload) (any, error) {
	switch v := payload.(type) {
	case media.Structured:
		var data any
		if err := json.Unmarshal(v.Doc, &data); err != nil {
			return nil, err
		}
		return data, nil
	case *media.Array:
		values, err := arrayValues(v)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"dtype":  string(v.DType),
			"shape":  v.Shape,
			"values": values,
		}, nil
	default:
		return nil, fmt.Errorf("unknown payload variant %T", payload)
	}
}

func arrayValues(a *media.Array) (any, error) {
	switch a.DType {
	case media.Float64:
		return a.Float64s()
	case media.Float32:
		return a.Float32s()
	default:
		// Integer dtypes widen to int64 so uint8 image bytes do not
		// serialize as base64.
		return a.Int64s()
	}
}
