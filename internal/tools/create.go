package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/collabcanvas/canvasd/internal/agent"
	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/internal/store"
	"github.com/collabcanvas/canvasd/pkg/models"
)

// CreateShapeTool creates one rectangle or circle.
type CreateShapeTool struct {
	deps
}

// NewCreateShape creates the single-shape create tool.
func NewCreateShape(st store.Store, logger *observability.Logger) *CreateShapeTool {
	return &CreateShapeTool{deps{store: st, logger: logger}}
}

func (t *CreateShapeTool) Name() string { return "create_shape" }

func (t *CreateShapeTool) Description() string {
	return "Create a rectangle or circle on the canvas at the given top-left position."
}

func (t *CreateShapeTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"shape_type": map[string]interface{}{
				"type":        "string",
				"description": "\"rectangle\" or \"circle\".",
			},
			"x": map[string]interface{}{
				"type":        "number",
				"description": "X position of the top-left corner.",
			},
			"y": map[string]interface{}{
				"type":        "number",
				"description": "Y position of the top-left corner.",
			},
			"width": map[string]interface{}{
				"type":        "number",
				"description": "Width in pixels (default: 100).",
			},
			"height": map[string]interface{}{
				"type":        "number",
				"description": "Height in pixels (default: 100, circle uses width as diameter).",
			},
			"color": map[string]interface{}{
				"type":        "string",
				"description": "Color name or hex code (default: \"blue\").",
			},
			"rotation": map[string]interface{}{
				"type":        "number",
				"description": "Rotation angle in degrees (default: 0).",
			},
			"canvas_id": canvasIDProperty(),
		},
		"required": []string{"shape_type", "x", "y"},
	})
}

func (t *CreateShapeTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		ShapeType string   `json:"shape_type"`
		X         float64  `json:"x"`
		Y         float64  `json:"y"`
		Width     *float64 `json:"width"`
		Height    *float64 `json:"height"`
		Color     string   `json:"color"`
		Rotation  float64  `json:"rotation"`
		CanvasID  string   `json:"canvas_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("Invalid parameters: " + err.Error()), nil
	}

	shapeType := strings.ToLower(strings.TrimSpace(input.ShapeType))
	if shapeType != "rectangle" && shapeType != "circle" {
		shapeType = "rectangle"
	}
	width := 100.0
	if input.Width != nil {
		width = *input.Width
	}
	height := 100.0
	if input.Height != nil {
		height = *input.Height
	}
	// Circles are sized by diameter.
	if shapeType == "circle" {
		height = width
	}
	color := input.Color
	if color == "" {
		color = "blue"
	}

	shape := &models.Shape{
		ID:          uuid.NewString(),
		Type:        models.ShapeType(shapeType),
		X:           input.X,
		Y:           input.Y,
		Width:       width,
		Height:      height,
		Fill:        NormalizeColor(color),
		Rotation:    models.NormalizeRotation(input.Rotation),
		Stroke:      "#000000",
		StrokeWidth: 0,
	}
	if err := shape.Validate(); err != nil {
		return toolError("Invalid shape: " + err.Error()), nil
	}

	if err := t.store.AddShape(ctx, canvasOr(input.CanvasID), shape, t.meta()); err != nil {
		return toolError(fmt.Sprintf("Error creating shape: %v", err)), nil
	}
	return toolOK(map[string]interface{}{
		"message":  fmt.Sprintf("Created %s at position (%g, %g)", shapeType, input.X, input.Y),
		"shape_id": shape.ID,
		"shape":    shape,
	}), nil
}

// CreateTextTool creates one text element. Width and height are estimated from
// the content so the renderer has a usable bounding box.
type CreateTextTool struct {
	deps
}

// NewCreateText creates the text create tool.
func NewCreateText(st store.Store, logger *observability.Logger) *CreateTextTool {
	return &CreateTextTool{deps{store: st, logger: logger}}
}

func (t *CreateTextTool) Name() string { return "create_text" }

func (t *CreateTextTool) Description() string {
	return "Create a text element on the canvas."
}

func (t *CreateTextTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Text content to display.",
			},
			"x": map[string]interface{}{
				"type":        "number",
				"description": "X position of the top-left corner.",
			},
			"y": map[string]interface{}{
				"type":        "number",
				"description": "Y position of the top-left corner.",
			},
			"font_size": map[string]interface{}{
				"type":        "number",
				"description": "Font size in pixels (default: 16).",
			},
			"color": map[string]interface{}{
				"type":        "string",
				"description": "Color name or hex code (default: \"black\").",
			},
			"font_family": map[string]interface{}{
				"type":        "string",
				"description": "Font family (default: \"Arial\").",
			},
			"canvas_id": canvasIDProperty(),
		},
		"required": []string{"text", "x", "y"},
	})
}

func (t *CreateTextTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Text       string  `json:"text"`
		X          float64 `json:"x"`
		Y          float64 `json:"y"`
		FontSize   float64 `json:"font_size"`
		Color      string  `json:"color"`
		FontFamily string  `json:"font_family"`
		CanvasID   string  `json:"canvas_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("Invalid parameters: " + err.Error()), nil
	}
	if strings.TrimSpace(input.Text) == "" {
		return toolError("text is required"), nil
	}
	fontSize := input.FontSize
	if fontSize <= 0 {
		fontSize = 16
	}
	color := input.Color
	if color == "" {
		color = "black"
	}
	fontFamily := input.FontFamily
	if fontFamily == "" {
		fontFamily = "Arial"
	}

	shape := &models.Shape{
		ID:         uuid.NewString(),
		Type:       models.ShapeText,
		X:          input.X,
		Y:          input.Y,
		Text:       input.Text,
		FontSize:   fontSize,
		FontFamily: fontFamily,
		Fill:       NormalizeColor(color),
		Width:      float64(len(input.Text)) * fontSize * 0.6,
		Height:     fontSize * 1.2,
		Stroke:     "#000000",
	}
	if err := shape.Validate(); err != nil {
		return toolError("Invalid text shape: " + err.Error()), nil
	}

	if err := t.store.AddShape(ctx, canvasOr(input.CanvasID), shape, t.meta()); err != nil {
		return toolError(fmt.Sprintf("Error creating text: %v", err)), nil
	}
	return toolOK(map[string]interface{}{
		"message":  fmt.Sprintf("Created text %q at position (%g, %g)", input.Text, input.X, input.Y),
		"shape_id": shape.ID,
		"shape":    shape,
	}), nil
}
