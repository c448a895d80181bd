package animation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/korefront/repcoach/internal/overlay"
)

const (
	// FOV is the perspective constant of the preview camera.
	FOV = 400.0
	// OrbitRate is the camera's rotation about Y in radians per second.
	OrbitRate = 0.4
	// FitMargin leaves a border around the fitted skeleton.
	FitMargin = 0.9
	// centerYOffset shifts the projection centre below the viewport middle.
	centerYOffset = 50.0
)

// Connections is the stick-figure topology drawn for a rig.
var Connections = [][2]string{
	{"neck", "mid_hip"},
	{"neck", "left_shoulder"}, {"left_shoulder", "left_elbow"}, {"left_elbow", "left_wrist"},
	{"neck", "right_shoulder"}, {"right_shoulder", "right_elbow"}, {"right_elbow", "right_wrist"},
	{"mid_hip", "left_hip"}, {"left_hip", "left_knee"}, {"left_knee", "left_ankle"},
	{"mid_hip", "right_hip"}, {"right_hip", "right_knee"}, {"right_knee", "right_ankle"},
}

// Point2D is a projected joint.
type Point2D struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Depth  float64 `json:"depth"`
	Radius float64 `json:"radius"`
	Moving bool    `json:"moving"`
}

// Segment is one projected bone.
type Segment struct {
	From      string        `json:"from"`
	To        string        `json:"to"`
	P1        overlay.Point `json:"p1"`
	P2        overlay.Point `json:"p2"`
	Highlight bool          `json:"highlight"`
}

// Frame is one rendered animation frame.
type Frame struct {
	Elapsed  float64            `json:"elapsed"`
	Progress float64            `json:"progress"`
	Points   map[string]Point2D `json:"points"`
	Segments []Segment          `json:"segments"`
}

// Render produces the frame shown elapsed seconds into playback.
func (c *Compiled) Render(elapsed float64, vp overlay.Viewport) Frame {
	return c.RenderAt(c.Progress(elapsed), elapsed, vp)
}

// RenderAt projects the pose at progress with the camera orbited to its
// position at elapsed seconds and fits it into vp.
func (c *Compiled) RenderAt(progress, elapsed float64, vp overlay.Viewport) Frame {
	pose := c.PoseAt(progress)
	rotationY := elapsed * OrbitRate

	names := make([]string, 0, len(pose))
	for name := range pose {
		names = append(names, name)
	}
	sort.Strings(names)

	cx, cy := vp.Width/2, vp.Height/2+centerYOffset
	points := make(map[string]Point2D, len(pose))
	for _, name := range names {
		p := Project(pose[name], rotationY, cx, cy)
		p.Moving = c.moving[name]
		p.Radius = markerRadius(p.Depth, p.Moving)
		points[name] = p
	}
	fit(points, names, vp)

	frame := Frame{
		Elapsed:  elapsed,
		Progress: progress,
		Points:   points,
	}
	for _, conn := range Connections {
		a, ok := points[conn[0]]
		if !ok || !finite(a) {
			continue
		}
		b, ok := points[conn[1]]
		if !ok || !finite(b) {
			continue
		}
		frame.Segments = append(frame.Segments, Segment{
			From:      conn[0],
			To:        conn[1],
			P1:        overlay.Point{X: a.X, Y: a.Y},
			P2:        overlay.Point{X: b.X, Y: b.Y},
			Highlight: a.Moving && b.Moving,
		})
	}
	return frame
}

// Project rotates p about the Y axis and applies the perspective divide.
// Depth holds the rotated Z.
func Project(p r3.Vec, rotationY, cx, cy float64) Point2D {
	cos, sin := math.Cos(rotationY), math.Sin(rotationY)
	x := p.X*cos - p.Z*sin
	z := p.X*sin + p.Z*cos
	persp := perspective(z)
	return Point2D{
		X:     x*persp + cx,
		Y:     p.Y*persp + cy,
		Depth: z,
	}
}

func perspective(z float64) float64 {
	if d := FOV - z; d != 0 {
		return FOV / d
	}
	return 1
}

func markerRadius(depth float64, moving bool) float64 {
	if moving {
		return math.Max(3, 5*perspective(depth))
	}
	return math.Max(2, 4*perspective(depth))
}

// fit scales and centres points uniformly into vp.
func fit(points map[string]Point2D, names []string, vp overlay.Viewport) {
	if len(names) == 0 {
		return
	}
	xs := make([]float64, 0, len(names))
	ys := make([]float64, 0, len(names))
	for _, name := range names {
		p := points[name]
		if !finite(p) {
			continue
		}
		xs = append(xs, p.X)
		ys = append(ys, p.Y)
	}
	if len(xs) == 0 {
		return
	}

	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)
	w, h := maxX-minX, maxY-minY
	if w == 0 {
		w = 1
	}
	if h == 0 {
		h = 1
	}
	scale := math.Min(vp.Width/w, vp.Height/h) * FitMargin
	offX := (vp.Width-w*scale)/2 - minX*scale
	offY := (vp.Height-h*scale)/2 - minY*scale

	for _, name := range names {
		p := points[name]
		p.X = p.X*scale + offX
		p.Y = p.Y*scale + offY
		points[name] = p
	}
}

func finite(p Point2D) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
