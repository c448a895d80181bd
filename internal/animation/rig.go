// Package animation plays the reference motion of an exercise: a base pose
// deformed by keyframed joint transformations, projected through a slowly
// orbiting perspective camera.
package animation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRig is returned for rigs that cannot be played.
var ErrInvalidRig = errors.New("invalid rig")

// AnimationType selects the playback curve.
type AnimationType string

const (
	Loop        AnimationType = "loop"
	Oscillating AnimationType = "oscillating"
)

// Axis is a rotation axis.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// Vec3 is a point or offset as written in rig definitions: [x, y, z].
type Vec3 [3]float64

func (v Vec3) vec() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// Rig is the declarative reference animation of an exercise.
type Rig struct {
	BasePoints    map[string]Vec3 `json:"basePoints" yaml:"basePoints"`
	Keyframes     []Keyframe      `json:"keyframes" yaml:"keyframes"`
	AnimationType AnimationType   `json:"animationType,omitempty" yaml:"animationType,omitempty"`
}

// Keyframe holds the transformations that apply at one progress value.
type Keyframe struct {
	Progress        float64         `json:"progress" yaml:"progress"`
	Transformations Transformations `json:"transformations" yaml:"transformations"`
}

// Transformation moves one joint relative to another. The concrete types
// are RelativeTranslate and RotateAroundJoint.
type Transformation interface {
	// Target is the joint being moved.
	Target() string
	// Anchor is the joint the target is positioned from.
	Anchor() string

	isTransformation()
}

// RelativeTranslate places Joint at RelativeTo + Offset.
type RelativeTranslate struct {
	Joint      string
	Offset     Vec3
	RelativeTo string
}

func (t RelativeTranslate) Target() string  { return t.Joint }
func (t RelativeTranslate) Anchor() string  { return t.RelativeTo }
func (RelativeTranslate) isTransformation() {}

// RotateAroundJoint places Joint at Distance from PivotJoint, rotated by
// Angle degrees about Axis from the +Y direction.
type RotateAroundJoint struct {
	Joint      string
	PivotJoint string
	Axis       Axis
	Angle      float64
	Distance   float64
}

func (t RotateAroundJoint) Target() string  { return t.Joint }
func (t RotateAroundJoint) Anchor() string  { return t.PivotJoint }
func (RotateAroundJoint) isTransformation() {}

const (
	typeRelativeTranslate = "relative_translate"
	typeRotateAroundJoint = "rotate_around_joint"
)

// wireTransformation is the flat, type-tagged encoding of a Transformation.
type wireTransformation struct {
	Type       string  `json:"type" yaml:"type"`
	Joint      string  `json:"joint" yaml:"joint"`
	Offset     *Vec3   `json:"offset,omitempty" yaml:"offset,omitempty"`
	RelativeTo string  `json:"relativeTo,omitempty" yaml:"relativeTo,omitempty"`
	PivotJoint string  `json:"pivotJoint,omitempty" yaml:"pivotJoint,omitempty"`
	Axis       Axis    `json:"axis,omitempty" yaml:"axis,omitempty"`
	Angle      float64 `json:"angle,omitempty" yaml:"angle,omitempty"`
	Distance   float64 `json:"distance,omitempty" yaml:"distance,omitempty"`
}

func (w wireTransformation) decode() (Transformation, error) {
	switch strings.ToLower(w.Type) {
	case typeRelativeTranslate:
		t := RelativeTranslate{Joint: w.Joint, RelativeTo: w.RelativeTo}
		if w.Offset != nil {
			t.Offset = *w.Offset
		}
		return t, nil
	case typeRotateAroundJoint:
		return RotateAroundJoint{
			Joint:      w.Joint,
			PivotJoint: w.PivotJoint,
			Axis:       w.Axis,
			Angle:      w.Angle,
			Distance:   w.Distance,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown transformation type %q", ErrInvalidRig, w.Type)
	}
}

func encode(t Transformation) (wireTransformation, error) {
	switch t := t.(type) {
	case RelativeTranslate:
		off := t.Offset
		return wireTransformation{
			Type:       typeRelativeTranslate,
			Joint:      t.Joint,
			Offset:     &off,
			RelativeTo: t.RelativeTo,
		}, nil
	case RotateAroundJoint:
		return wireTransformation{
			Type:       typeRotateAroundJoint,
			Joint:      t.Joint,
			PivotJoint: t.PivotJoint,
			Axis:       t.Axis,
			Angle:      t.Angle,
			Distance:   t.Distance,
		}, nil
	default:
		return wireTransformation{}, fmt.Errorf("%w: unsupported transformation %T", ErrInvalidRig, t)
	}
}

// Transformations is a list of Transformation values with a type-tagged
// JSON and YAML encoding.
type Transformations []Transformation

func (ts Transformations) toWire() ([]wireTransformation, error) {
	out := make([]wireTransformation, 0, len(ts))
	for _, t := range ts {
		w, err := encode(t)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func fromWire(ws []wireTransformation) (Transformations, error) {
	out := make(Transformations, 0, len(ws))
	for _, w := range ws {
		t, err := w.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// MarshalJSON implements json.Marshaler.
func (ts Transformations) MarshalJSON() ([]byte, error) {
	ws, err := ts.toWire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(ws)
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Transformations) UnmarshalJSON(data []byte) error {
	var ws []wireTransformation
	if err := json.Unmarshal(data, &ws); err != nil {
		return err
	}
	out, err := fromWire(ws)
	if err != nil {
		return err
	}
	*ts = out
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (ts Transformations) MarshalYAML() (interface{}, error) {
	return ts.toWire()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (ts *Transformations) UnmarshalYAML(value *yaml.Node) error {
	var ws []wireTransformation
	if err := value.Decode(&ws); err != nil {
		return err
	}
	out, err := fromWire(ws)
	if err != nil {
		return err
	}
	*ts = out
	return nil
}
