package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/korefront/repcoach/internal/pose"
)

// Style controls how a skeleton is burnt into a camera image.
type Style struct {
	LineColor  color.RGBA
	PointColor color.RGBA
	Thickness  int
	Radius     int
}

// DefaultStyle matches the preview colours used by the web client.
func DefaultStyle() Style {
	return Style{
		LineColor:  color.RGBA{R: 0, G: 255, B: 0, A: 255},
		PointColor: color.RGBA{R: 255, G: 170, B: 0, A: 255},
		Thickness:  3,
		Radius:     4,
	}
}

// Draw burns the skeleton for points into img. Camera images are already in
// sensor orientation, so landmarks map straight onto pixel coordinates here
// instead of going through ToScreen.
func Draw(img *gocv.Mat, points []pose.Landmark, topo Topology, style Style) {
	if img == nil || img.Empty() || len(points) == 0 {
		return
	}
	w, h := float64(img.Cols()), float64(img.Rows())
	px := func(l pose.Landmark) image.Point {
		return image.Pt(int(l.X*w), int(l.Y*h))
	}

	for _, c := range topo.Connections {
		a, ok := landmarkAt(points, c.Start)
		if !ok {
			continue
		}
		b, ok := landmarkAt(points, c.End)
		if !ok {
			continue
		}
		gocv.Line(img, px(a), px(b), style.LineColor, style.Thickness)
	}

	for _, l := range points {
		if !l.Valid() {
			continue
		}
		gocv.Circle(img, px(l), style.Radius, style.PointColor, -1)
	}
}

// DrawSegments draws segments that were already mapped to screen space.
func DrawSegments(img *gocv.Mat, segments []Segment, style Style) {
	if img == nil || img.Empty() {
		return
	}
	for _, s := range segments {
		p1 := image.Pt(int(s.P1.X), int(s.P1.Y))
		p2 := image.Pt(int(s.P2.X), int(s.P2.Y))
		gocv.Line(img, p1, p2, style.LineColor, style.Thickness)
	}
}
