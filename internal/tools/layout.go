package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/collabcanvas/canvasd/internal/agent"
	"github.com/collabcanvas/canvasd/internal/observability"
	"github.com/collabcanvas/canvasd/internal/store"
	"github.com/collabcanvas/canvasd/pkg/models"
)

// CreateGridTool creates a rows x cols grid of rectangles in one batch write.
type CreateGridTool struct {
	deps
}

// NewCreateGrid creates the grid tool.
func NewCreateGrid(st store.Store, logger *observability.Logger) *CreateGridTool {
	return &CreateGridTool{deps{store: st, logger: logger}}
}

func (t *CreateGridTool) Name() string { return "create_grid" }

func (t *CreateGridTool) Description() string {
	return "Create a grid of rectangles on the canvas."
}

func (t *CreateGridTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"rows": map[string]interface{}{
				"type":        "integer",
				"description": "Number of rows.",
			},
			"cols": map[string]interface{}{
				"type":        "integer",
				"description": "Number of columns.",
			},
			"cell_width": map[string]interface{}{
				"type":        "number",
				"description": "Width of each cell (default: 80).",
			},
			"cell_height": map[string]interface{}{
				"type":        "number",
				"description": "Height of each cell (default: 80).",
			},
			"start_x": map[string]interface{}{
				"type":        "number",
				"description": "Starting X position (default: 100).",
			},
			"start_y": map[string]interface{}{
				"type":        "number",
				"description": "Starting Y position (default: 100).",
			},
			"spacing": map[string]interface{}{
				"type":        "number",
				"description": "Space between cells (default: 20).",
			},
			"color": map[string]interface{}{
				"type":        "string",
				"description": "Color name or hex code (default: \"blue\").",
			},
			"canvas_id": canvasIDProperty(),
		},
		"required": []string{"rows", "cols"},
	})
}

func (t *CreateGridTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Rows       int      `json:"rows"`
		Cols       int      `json:"cols"`
		CellWidth  *float64 `json:"cell_width"`
		CellHeight *float64 `json:"cell_height"`
		StartX     *float64 `json:"start_x"`
		StartY     *float64 `json:"start_y"`
		Spacing    *float64 `json:"spacing"`
		Color      string   `json:"color"`
		CanvasID   string   `json:"canvas_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("Invalid parameters: " + err.Error()), nil
	}
	if input.Rows <= 0 || input.Cols <= 0 {
		return toolError("rows and cols must be positive"), nil
	}

	cellWidth := valueOr(input.CellWidth, 80)
	cellHeight := valueOr(input.CellHeight, 80)
	startX := valueOr(input.StartX, 100)
	startY := valueOr(input.StartY, 100)
	spacing := valueOr(input.Spacing, 20)
	color := input.Color
	if color == "" {
		color = "blue"
	}
	fill := NormalizeColor(color)

	shapes := make([]*models.Shape, 0, input.Rows*input.Cols)
	for row := 0; row < input.Rows; row++ {
		for col := 0; col < input.Cols; col++ {
			shapes = append(shapes, &models.Shape{
				ID:     uuid.NewString(),
				Type:   models.ShapeRectangle,
				X:      startX + float64(col)*(cellWidth+spacing),
				Y:      startY + float64(row)*(cellHeight+spacing),
				Width:  cellWidth,
				Height: cellHeight,
				Fill:   fill,
				Stroke: "#000000",
			})
		}
	}

	if err := t.store.AddShapesBatch(ctx, canvasOr(input.CanvasID), shapes, t.meta()); err != nil {
		return toolError(fmt.Sprintf("Error creating grid: %v", err)), nil
	}
	return toolOK(map[string]interface{}{
		"message":     fmt.Sprintf("Created %dx%d grid with %d rectangles", input.Rows, input.Cols, len(shapes)),
		"shape_count": len(shapes),
		"shapes":      shapes,
	}), nil
}

// CreateFormTool lays out a small form (title, labels, fields, button) as a
// group of text and rectangle shapes.
type CreateFormTool struct {
	deps
}

// NewCreateForm creates the form tool.
func NewCreateForm(st store.Store, logger *observability.Logger) *CreateFormTool {
	return &CreateFormTool{deps{store: st, logger: logger}}
}

func (t *CreateFormTool) Name() string { return "create_form" }

func (t *CreateFormTool) Description() string {
	return "Create a form with multiple elements (title, labels, input fields, button)."
}

func (t *CreateFormTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"form_type": map[string]interface{}{
				"type":        "string",
				"description": "Type of form: \"login\", \"signup\", or \"contact\" (default: \"login\").",
			},
			"x": map[string]interface{}{
				"type":        "number",
				"description": "Starting X position (default: 200).",
			},
			"y": map[string]interface{}{
				"type":        "number",
				"description": "Starting Y position (default: 150).",
			},
			"canvas_id": canvasIDProperty(),
		},
	})
}

func (t *CreateFormTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		FormType string   `json:"form_type"`
		X        *float64 `json:"x"`
		Y        *float64 `json:"y"`
		CanvasID string   `json:"canvas_id"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &input); err != nil {
			return toolError("Invalid parameters: " + err.Error()), nil
		}
	}

	formType := strings.ToLower(strings.TrimSpace(input.FormType))
	if formType == "" {
		formType = "login"
	}
	x := valueOr(input.X, 200)
	y := valueOr(input.Y, 150)

	var fields []string
	var title, buttonText string
	switch formType {
	case "login":
		title, buttonText = "Login", "Login"
		fields = []string{"Username:", "Password:"}
	case "signup":
		title, buttonText = "Sign Up", "Sign Up"
		fields = []string{"Name:", "Email:", "Password:"}
	case "contact":
		title, buttonText = "Contact Us", "Send"
		fields = []string{"Name:", "Email:", "Message:"}
	default:
		return toolError(fmt.Sprintf("Unsupported form type %q", formType)), nil
	}

	shapes := []*models.Shape{{
		ID:         uuid.NewString(),
		Type:       models.ShapeText,
		X:          x,
		Y:          y,
		Text:       title,
		FontSize:   24,
		FontFamily: "Arial",
		Fill:       "#000000",
		Width:      100,
		Height:     30,
		Stroke:     "#000000",
	}}
	offset := 50.0
	for _, label := range fields {
		shapes = append(shapes,
			&models.Shape{
				ID:         uuid.NewString(),
				Type:       models.ShapeText,
				X:          x,
				Y:          y + offset,
				Text:       label,
				FontSize:   14,
				FontFamily: "Arial",
				Fill:       "#333333",
				Width:      100,
				Height:     20,
				Stroke:     "#000000",
			},
			&models.Shape{
				ID:     uuid.NewString(),
				Type:   models.ShapeRectangle,
				X:      x,
				Y:      y + offset + 25,
				Width:  250,
				Height: 40,
				Fill:   "#FFFFFF",
				Stroke: "#000000",
			},
		)
		offset += 80
	}
	buttonY := y + offset + 5
	shapes = append(shapes,
		&models.Shape{
			ID:     uuid.NewString(),
			Type:   models.ShapeRectangle,
			X:      x,
			Y:      buttonY,
			Width:  250,
			Height: 45,
			Fill:   "#007BFF",
			Stroke: "#000000",
		},
		&models.Shape{
			ID:         uuid.NewString(),
			Type:       models.ShapeText,
			X:          x + 85,
			Y:          buttonY + 12,
			Text:       buttonText,
			FontSize:   16,
			FontFamily: "Arial",
			Fill:       "#FFFFFF",
			Width:      80,
			Height:     20,
			Stroke:     "#000000",
		},
	)

	if err := t.store.AddShapesBatch(ctx, canvasOr(input.CanvasID), shapes, t.meta()); err != nil {
		return toolError(fmt.Sprintf("Error creating form: %v", err)), nil
	}
	return toolOK(map[string]interface{}{
		"message":     fmt.Sprintf("Created %s form with %d elements", formType, len(shapes)),
		"shape_count": len(shapes),
		"shapes":      shapes,
	}), nil
}

// ArrangeTool lays out every shape on the canvas along one axis: sort by the
// current coordinate, then place each shape at a running offset of the
// previous position plus extent plus spacing, starting at x/y 100. One batch
// update writes the result.
type ArrangeTool struct {
	deps
	vertical bool
}

// NewArrangeHorizontal creates the horizontal arrange tool.
func NewArrangeHorizontal(st store.Store, logger *observability.Logger) *ArrangeTool {
	return &ArrangeTool{deps: deps{store: st, logger: logger}}
}

// NewArrangeVertical creates the vertical arrange tool.
func NewArrangeVertical(st store.Store, logger *observability.Logger) *ArrangeTool {
	return &ArrangeTool{deps: deps{store: st, logger: logger}, vertical: true}
}

func (t *ArrangeTool) Name() string {
	if t.vertical {
		return "arrange_vertical"
	}
	return "arrange_horizontal"
}

func (t *ArrangeTool) Description() string {
	if t.vertical {
		return "Arrange all shapes on the canvas in a vertical line, ordered by their current Y position."
	}
	return "Arrange all shapes on the canvas in a horizontal line, ordered by their current X position."
}

func (t *ArrangeTool) Schema() json.RawMessage {
	return marshalSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"spacing": map[string]interface{}{
				"type":        "number",
				"description": "Space between shapes in pixels (default: 10).",
			},
			"canvas_id": canvasIDProperty(),
		},
	})
}

// arrangeStart is where the first arranged shape lands on the primary axis.
const arrangeStart = 100.0

func (t *ArrangeTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Spacing  *float64 `json:"spacing"`
		CanvasID string   `json:"canvas_id"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &input); err != nil {
			return toolError("Invalid parameters: " + err.Error()), nil
		}
	}
	spacing := valueOr(input.Spacing, 10)

	canvasID := canvasOr(input.CanvasID)
	shapes, err := t.store.GetShapes(ctx, canvasID)
	if err != nil {
		return toolError(fmt.Sprintf("Error fetching shapes: %v", err)), nil
	}
	if len(shapes) == 0 {
		return toolError("No shapes on the canvas to arrange"), nil
	}

	sorted := append([]*models.Shape(nil), shapes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if t.vertical {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	field := "x"
	if t.vertical {
		field = "y"
	}
	offset := arrangeStart
	updates := make([]store.ShapeUpdate, 0, len(sorted))
	for _, shape := range sorted {
		updates = append(updates, store.ShapeUpdate{
			ID:     shape.ID,
			Fields: map[string]any{field: offset},
		})
		if t.vertical {
			offset += shape.Height + spacing
		} else {
			offset += shape.Width + spacing
		}
	}

	if err := t.store.UpdateShapesBatch(ctx, canvasID, updates, t.meta()); err != nil {
		return toolError(fmt.Sprintf("Error arranging shapes: %v", err)), nil
	}
	direction := "horizontally"
	if t.vertical {
		direction = "vertically"
	}
	return toolOK(map[string]interface{}{
		"message":     fmt.Sprintf("Arranged %d shapes %s", len(updates), direction),
		"shape_count": len(updates),
	}), nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}
