package tools

import (
	"context"
	"encoding/json"

	"github.com/collabcanvas/canvasd/internal/agent"
	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/internal/store"
	"github.com/collabcanvas/canvasd/pkg/models"
)

// simpleShape is the trimmed view of a shape returned to the model. Provenance
// and timestamps are noise at that level and cost tokens.
type simpleShape struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	Fill     string  `json:"fill,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`
	Text     string  `json:"text,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`
}

func simplify(shapes []*models.Shape) []simpleShape {
	out := make([]simpleShape, 0, len(shapes))
	for _, s := range shapes {
		out = append(out, simpleShape{
			ID:       s.ID,
			Type:     string(s.Type),
			X:        s.X,
			Y:        s.Y,
			Width:    s.Width,
			Height:   s.Height,
			Fill:     s.Fill,
			Rotation: s.Rotation,
			Text:     s.Text,
			FontSize: s.FontSize,
		})
	}
	return out
}

// GetCanvasShapesTool lists every shape on a canvas. It never fails: store
// errors are logged and an empty list is returned, so the model always gets a
// usable observation.
type GetCanvasShapesTool struct {
	deps
}

// NewGetCanvasShapes creates the read tool.
func NewGetCanvasShapes(st store.Store, logger *observability.Logger) *GetCanvasShapesTool {
	return &GetCanvasShapesTool{deps{store: st, logger: logger}}
}

func (t *GetCanvasShapesTool) Name() string { return "get_canvas_shapes" }

func (t *GetCanvasShapesTool) Description() string {
	return "Get all shapes currently on the canvas. Call this FIRST when manipulating existing shapes to get their IDs."
}

func (t *GetCanvasShapesTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"canvas_id": canvasIDProperty(),
		},
	})
}

func (t *GetCanvasShapesTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		CanvasID string `json:"canvas_id"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &input); err != nil {
			return toolError("Invalid parameters: " + err.Error()), nil
		}
	}

	shapes, err := t.store.GetShapes(ctx, canvasOr(input.CanvasID))
	if err != nil {
		if t.logger != nil {
			t.logger.Error(ctx, "failed to fetch canvas shapes", "error", err)
		}
		shapes = nil
	}
	payload, err := json.Marshal(simplify(shapes))
	if err != nil {
		return toolError("encode result: " + err.Error()), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}
