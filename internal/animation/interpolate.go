package animation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// CycleSeconds is the length of one playback cycle.
const CycleSeconds = 2.0

// Progress maps elapsed seconds onto the playback curve. Loop is a linear
// sawtooth 0→1; Oscillating eases 0→1→0 over one cycle.
func (c *Compiled) Progress(elapsed float64) float64 {
	linear := math.Mod(elapsed, CycleSeconds)
	if linear < 0 {
		linear += CycleSeconds
	}
	if c.animationType == Oscillating {
		return (1 - math.Cos(linear*math.Pi)) / 2
	}
	return linear / CycleSeconds
}

// bracket returns the keyframes surrounding progress and the local blend
// factor between them.
func (c *Compiled) bracket(progress float64) (start, end int, t float64) {
	for i := len(c.progress) - 1; i >= 0; i-- {
		if c.progress[i] <= progress {
			start = i
			break
		}
	}
	end = start + 1
	if last := len(c.progress) - 1; end > last {
		end = last
	}
	if span := c.progress[end] - c.progress[start]; span > 0 {
		t = (progress - c.progress[start]) / span
	}
	// Before the first keyframe there is nothing to extrapolate from.
	return start, end, math.Max(0, math.Min(1, t))
}

// PoseAt resolves the 3D position of every joint at progress.
func (c *Compiled) PoseAt(progress float64) map[string]r3.Vec {
	points := make(map[string]r3.Vec, len(c.base)+len(c.order))
	for name, p := range c.base {
		points[name] = p
	}

	start, end, t := c.bracket(progress)
	for _, joint := range c.order {
		track := c.tracks[joint]
		if p, ok := blend(points, track[start], track[end], t); ok {
			points[joint] = p
		}
	}
	return points
}

// blend interpolates one joint between its start and end transformations.
// A translation with no counterpart applies as is. A rotation with no
// counterpart, or opposite a translation, swings from or to zero angle so a
// joint entering or leaving a rotation keyframe moves without a jump.
func blend(points map[string]r3.Vec, s, e Transformation, t float64) (r3.Vec, bool) {
	switch s := s.(type) {
	case RelativeTranslate:
		switch e := e.(type) {
		case RelativeTranslate:
			anchor, ok := points[s.RelativeTo]
			if !ok {
				return r3.Vec{}, false
			}
			return r3.Add(anchor, lerpVec(s.Offset.vec(), e.Offset.vec(), t)), true
		case RotateAroundJoint:
			pivot, ok := points[e.PivotJoint]
			if !ok {
				return r3.Vec{}, false
			}
			return rotateAround(pivot, lerp(0, e.Angle, t), e.Axis, e.Distance), true
		case nil:
			return translate(points, s)
		}
	case RotateAroundJoint:
		switch e := e.(type) {
		case RotateAroundJoint:
			pivot, ok := points[s.PivotJoint]
			if !ok {
				return r3.Vec{}, false
			}
			return rotateAround(pivot, lerp(s.Angle, e.Angle, t), s.Axis, s.Distance), true
		case RelativeTranslate, nil:
			pivot, ok := points[s.PivotJoint]
			if !ok {
				return r3.Vec{}, false
			}
			return rotateAround(pivot, lerp(s.Angle, 0, t), s.Axis, s.Distance), true
		}
	case nil:
		switch e := e.(type) {
		case RelativeTranslate:
			return translate(points, e)
		case RotateAroundJoint:
			pivot, ok := points[e.PivotJoint]
			if !ok {
				return r3.Vec{}, false
			}
			return rotateAround(pivot, lerp(0, e.Angle, t), e.Axis, e.Distance), true
		}
	}
	return r3.Vec{}, false
}

func translate(points map[string]r3.Vec, tr RelativeTranslate) (r3.Vec, bool) {
	anchor, ok := points[tr.RelativeTo]
	if !ok {
		return r3.Vec{}, false
	}
	return r3.Add(anchor, tr.Offset.vec()), true
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func lerpVec(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// rotateAround rotates the vector (0, distance, 0) by degrees about axis and
// adds it to pivot.
func rotateAround(pivot r3.Vec, degrees float64, axis Axis, distance float64) r3.Vec {
	rad := degrees * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	v := r3.Vec{Y: distance}

	var r r3.Vec
	switch axis {
	case AxisX:
		r = r3.Vec{X: v.X, Y: v.Y*cos - v.Z*sin, Z: v.Y*sin + v.Z*cos}
	case AxisY:
		r = r3.Vec{X: v.X*cos + v.Z*sin, Y: v.Y, Z: -v.X*sin + v.Z*cos}
	case AxisZ:
		r = r3.Vec{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos, Z: v.Z}
	}
	return r3.Add(pivot, r)
}
