package api

import (
	"bytes"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/korefront/repcoach/internal/animation"
	"github.com/korefront/repcoach/internal/overlay"
)

var (
	boneColor      = color.RGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff}
	highlightColor = color.RGBA{R: 0x00, G: 0xc8, B: 0x53, A: 0xff}
	jointColor     = color.RGBA{R: 0x42, G: 0x42, B: 0x42, A: 0xff}
)

// renderPreview draws frame as a PNG. Screen Y grows downwards, plot Y
// upwards, so Y is flipped against the viewport height.
func renderPreview(title string, frame animation.Frame, vp overlay.Viewport) ([]byte, error) {
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.X.Min, p.X.Max = 0, vp.Width
	p.Y.Min, p.Y.Max = 0, vp.Height

	flip := func(pt overlay.Point) plotter.XY {
		return plotter.XY{X: pt.X, Y: vp.Height - pt.Y}
	}

	for _, seg := range frame.Segments {
		line, err := plotter.NewLine(plotter.XYs{flip(seg.P1), flip(seg.P2)})
		if err != nil {
			return nil, err
		}
		line.Color = boneColor
		line.Width = vg.Points(2)
		if seg.Highlight {
			line.Color = highlightColor
			line.Width = vg.Points(3)
		}
		p.Add(line)
	}

	names := make([]string, 0, len(frame.Points))
	for name := range frame.Points {
		names = append(names, name)
	}
	sort.Strings(names)

	var still, moving plotter.XYs
	for _, name := range names {
		pt := frame.Points[name]
		if math.IsNaN(pt.X) || math.IsNaN(pt.Y) || math.IsInf(pt.X, 0) || math.IsInf(pt.Y, 0) {
			continue
		}
		xy := flip(overlay.Point{X: pt.X, Y: pt.Y})
		if pt.Moving {
			moving = append(moving, xy)
		} else {
			still = append(still, xy)
		}
	}
	for _, set := range []struct {
		xys    plotter.XYs
		color  color.Color
		radius vg.Length
	}{
		{still, jointColor, vg.Points(2.5)},
		{moving, highlightColor, vg.Points(3.5)},
	} {
		if len(set.xys) == 0 {
			continue
		}
		scatter, err := plotter.NewScatter(set.xys)
		if err != nil {
			return nil, err
		}
		scatter.GlyphStyle.Color = set.color
		scatter.GlyphStyle.Radius = set.radius
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
	}

	wt, err := p.WriterTo(vg.Length(vp.Width), vg.Length(vp.Height), "png")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
