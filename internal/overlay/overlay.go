// Package overlay maps pose landmarks onto screen space and builds the
// skeleton line segments drawn over the live camera preview.
package overlay

import (
	"github.com/korefront/repcoach/internal/pose"
)

// Facing identifies which camera produced a frame.
type Facing string

const (
	Front Facing = "front"
	Back  Facing = "back"
)

// ParseFacing maps a config value onto a Facing. Anything but "back" is
// treated as the front camera.
func ParseFacing(s string) Facing {
	if Facing(s) == Back {
		return Back
	}
	return Front
}

// Viewport is the target drawing area in pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a screen-space position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Connection joins two landmark indices.
type Connection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Topology is an ordered set of connections.
type Topology struct {
	Version     int
	Connections []Connection
}

// TopologyV1 is the canonical body skeleton: face, torso, arms and legs.
// It has 21 pairs, the full table both skeleton screens draw, rather than a
// trimmed 19-pair set; nine of the pairs outline the face.
var TopologyV1 = Topology{
	Version: 1,
	Connections: []Connection{
		// Face
		{8, 6}, {6, 5}, {5, 4}, {4, 0}, {0, 1}, {1, 2}, {2, 3}, {3, 7}, {10, 9},
		// Torso
		{pose.LeftShoulder, pose.RightShoulder},
		{pose.LeftShoulder, pose.LeftHip},
		{pose.RightShoulder, pose.RightHip},
		{pose.LeftHip, pose.RightHip},
		// Arms
		{pose.LeftShoulder, pose.LeftElbow}, {pose.LeftElbow, pose.LeftWrist},
		{pose.RightShoulder, pose.RightElbow}, {pose.RightElbow, pose.RightWrist},
		// Legs
		{pose.LeftHip, pose.LeftKnee}, {pose.LeftKnee, pose.LeftAnkle},
		{pose.RightHip, pose.RightKnee}, {pose.RightKnee, pose.RightAnkle},
	},
}

// Segment is one drawable skeleton line.
type Segment struct {
	Connection
	P1 Point `json:"p1"`
	P2 Point `json:"p2"`
}

// ToScreen maps a normalized landmark into the viewport. The sensor is
// rotated 90° relative to the display, so the axes are swapped; front
// camera images are mirrored; Y is flipped.
func ToScreen(l pose.Landmark, vp Viewport, facing Facing) Point {
	x := l.Y * vp.Width
	y := l.X * vp.Height
	if facing == Front {
		x = vp.Width - x
	}
	y = vp.Height - y
	return Point{X: x, Y: y}
}

// FromScreen is the inverse of ToScreen. Depth is not recoverable and is
// left at zero. A degenerate viewport yields the zero landmark.
func FromScreen(p Point, vp Viewport, facing Facing) pose.Landmark {
	if vp.Width == 0 || vp.Height == 0 {
		return pose.Landmark{}
	}
	x, y := p.X, vp.Height-p.Y
	if facing == Front {
		x = vp.Width - x
	}
	return pose.Landmark{X: y / vp.Height, Y: x / vp.Width}
}

// Segments builds one segment per connection whose endpoints both exist
// in points. Partial frames are allowed; missing or non-finite endpoints
// drop the connection.
func Segments(points []pose.Landmark, vp Viewport, facing Facing, topo Topology) []Segment {
	if len(points) == 0 {
		return nil
	}

	segments := make([]Segment, 0, len(topo.Connections))
	for _, c := range topo.Connections {
		a, ok := landmarkAt(points, c.Start)
		if !ok {
			continue
		}
		b, ok := landmarkAt(points, c.End)
		if !ok {
			continue
		}
		segments = append(segments, Segment{
			Connection: c,
			P1:         ToScreen(a, vp, facing),
			P2:         ToScreen(b, vp, facing),
		})
	}
	return segments
}

func landmarkAt(points []pose.Landmark, i int) (pose.Landmark, bool) {
	if i < 0 || i >= len(points) {
		return pose.Landmark{}, false
	}
	l := points[i]
	return l, l.Valid()
}
