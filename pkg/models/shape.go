package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ShapeType identifies the kind of canvas element.
type ShapeType string

const (
	ShapeRectangle ShapeType = "rectangle"
	ShapeCircle    ShapeType = "circle"
	ShapeText      ShapeType = "text"
)

// ValidShapeType reports whether t is one of the supported shape kinds.
func ValidShapeType(t string) bool {
	switch ShapeType(t) {
	case ShapeRectangle, ShapeCircle, ShapeText:
		return true
	}
	return false
}

// Shape is a persisted canvas element. X and Y are the top-left corner of the
// bounding box for every shape type, circles included. Rotation is degrees in
// [0, 360). Text fields are present iff Type is ShapeText.
type Shape struct {
	ID          string    `json:"id"`
	Type        ShapeType `json:"type"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width,omitempty"`
	Height      float64   `json:"height,omitempty"`
	Rotation    float64   `json:"rotation,omitempty"`
	Fill        string    `json:"fill,omitempty"`
	Stroke      string    `json:"stroke,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`

	Text       string  `json:"text,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`

	IsAIGenerated bool   `json:"isAIGenerated,omitempty"`
	CanvasID      string `json:"canvasId,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`
	CreatedBy     string `json:"createdBy,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Validate checks structural invariants before a shape is written.
func (s *Shape) Validate() error {
	if !ValidShapeType(string(s.Type)) {
		return fmt.Errorf("unsupported shape type %q", s.Type)
	}
	if s.Type == ShapeText {
		if strings.TrimSpace(s.Text) == "" {
			return fmt.Errorf("text shape requires non-empty text")
		}
		if s.FontSize <= 0 {
			return fmt.Errorf("text shape requires positive fontSize")
		}
	} else {
		if s.Text != "" || s.FontSize != 0 {
			return fmt.Errorf("%s shape must not carry text fields", s.Type)
		}
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("%s shape requires positive width and height", s.Type)
		}
	}
	return nil
}

// NormalizeRotation maps an arbitrary angle in degrees onto [0, 360).
func NormalizeRotation(deg float64) float64 {
	r := math.Mod(deg, 360)
	if r < 0 {
		r += 360
	}
	return r
}

// Viewport is the caller's visible canvas region.
type Viewport struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// Valid reports whether the viewport describes a non-empty region.
func (v *Viewport) Valid() bool {
	return v != nil && v.XMax > v.XMin && v.YMax > v.YMin
}
