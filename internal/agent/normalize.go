package agent

import (
	"encoding/json"

	"github.com/collabcanvas/canvasd/pkg/models"
)

// ObservationKind classifies one decoded tool output or final answer.
// The set is closed: anything that does not match a kind is Unrecognized and
// contributes nothing to the command result.
type ObservationKind int

const (
	// KindUnrecognized marks output that carries no shape data.
	KindUnrecognized ObservationKind = iota

	// KindSingleShape is one object carrying a "type" field.
	KindSingleShape

	// KindShapeList is a list of shape objects, or an envelope holding one
	// under "shape"/"shapes".
	KindShapeList

	// KindCommandDirective is an object carrying a "command" field, passed
	// through to the client verbatim.
	KindCommandDirective
)

// Observation is the classified form of one tool output.
type Observation struct {
	Kind      ObservationKind
	Shapes    []*models.Shape
	Directive json.RawMessage
}

// Classify decodes raw JSON output into the observation union.
//
// Matching rules, checked in order on objects:
//   - "shapes" list: every element carrying "type" becomes a shape
//   - "shape" object: single nested shape
//   - "type" at top level: the object itself is a shape
//   - "command": directive passthrough
//
// A top-level list keeps its elements that carry "type". Everything else,
// including unparseable input, is Unrecognized.
func Classify(raw []byte) Observation {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return Observation{Kind: KindUnrecognized}
	}

	switch typed := value.(type) {
	case map[string]any:
		if list, ok := typed["shapes"].([]any); ok {
			return Observation{Kind: KindShapeList, Shapes: decodeShapeList(list)}
		}
		if nested, ok := typed["shape"].(map[string]any); ok {
			if shape := decodeShape(nested); shape != nil {
				return Observation{Kind: KindShapeList, Shapes: []*models.Shape{shape}}
			}
			return Observation{Kind: KindUnrecognized}
		}
		if _, ok := typed["type"]; ok {
			if shape := decodeShape(typed); shape != nil {
				return Observation{Kind: KindSingleShape, Shapes: []*models.Shape{shape}}
			}
			return Observation{Kind: KindUnrecognized}
		}
		if _, ok := typed["command"]; ok {
			return Observation{Kind: KindCommandDirective, Directive: append(json.RawMessage(nil), raw...)}
		}
		return Observation{Kind: KindUnrecognized}
	case []any:
		shapes := decodeShapeList(typed)
		if len(shapes) == 0 {
			return Observation{Kind: KindUnrecognized}
		}
		return Observation{Kind: KindShapeList, Shapes: shapes}
	default:
		return Observation{Kind: KindUnrecognized}
	}
}

// Normalize flattens a run's tool outputs and final answer into shapes and
// directives. Order follows tool invocation order; the final answer
// contributes only records that carry a "type" field. No deduplication:
// the store's write order already decided persistence.
func Normalize(steps []Step, finalText string) ([]*models.Shape, []json.RawMessage) {
	shapes := make([]*models.Shape, 0)
	var directives []json.RawMessage

	for _, step := range steps {
		if step.IsError {
			continue
		}
		obs := Classify([]byte(step.Output))
		switch obs.Kind {
		case KindSingleShape, KindShapeList:
			shapes = append(shapes, obs.Shapes...)
		case KindCommandDirective:
			directives = append(directives, obs.Directive)
		}
	}

	obs := Classify([]byte(finalText))
	switch obs.Kind {
	case KindSingleShape, KindShapeList:
		shapes = append(shapes, obs.Shapes...)
	}

	return shapes, directives
}

func decodeShapeList(list []any) []*models.Shape {
	shapes := make([]*models.Shape, 0, len(list))
	for _, element := range list {
		obj, ok := element.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := obj["type"]; !ok {
			continue
		}
		if shape := decodeShape(obj); shape != nil {
			shapes = append(shapes, shape)
		}
	}
	return shapes
}

func decodeShape(obj map[string]any) *models.Shape {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	var shape models.Shape
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil
	}
	return &shape
}
