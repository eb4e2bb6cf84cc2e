package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/gait.report/internal/gait/l3kinematics"
	"github.com/banshee-data/gait.report/internal/gait/pipeline"
)

// Plot size, shared by file and writer output.
const (
	plotWidth  = 14 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// angleTrace selects one joint angle from a bundle.
type angleTrace struct {
	name string
	pick func(l3kinematics.AngleBundle) l3kinematics.Measurement
	dash []vg.Length
}

var angleTraces = []angleTrace{
	{name: "knee", pick: func(b l3kinematics.AngleBundle) l3kinematics.Measurement { return b.Knee }},
	{name: "ankle", pick: func(b l3kinematics.AngleBundle) l3kinematics.Measurement { return b.Ankle }, dash: []vg.Length{vg.Points(4), vg.Points(2)}},
}

var sideColors = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 214, G: 39, B: 40, A: 255},
}

// newAnglePlot builds the knee/ankle trace plot. Undefined angles are left
// out of the line rather than drawn as zero.
func newAnglePlot(recs []pipeline.FrameRecord) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Joint angles"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Angle (deg)"

	for i, side := range legSides(recs) {
		for _, tr := range angleTraces {
			pts := make(plotter.XYs, 0, len(recs))
			for _, r := range recs {
				m := tr.pick(r.Legs[side].Angles)
				if !m.Defined {
					continue
				}
				pts = append(pts, plotter.XY{X: float64(r.Index), Y: m.Degrees})
			}
			if len(pts) == 0 {
				continue
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return nil, err
			}
			line.Color = sideColors[i%len(sideColors)]
			line.Width = vg.Points(1)
			line.Dashes = tr.dash
			p.Add(line)
			p.Legend.Add(fmt.Sprintf("%s %s", side, tr.name), line)
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WriteAnglePlot renders the joint-angle traces as PNG to w.
func WriteAnglePlot(w io.Writer, recs []pipeline.FrameRecord) error {
	p, err := newAnglePlot(recs)
	if err != nil {
		return fmt.Errorf("build angle plot: %w", err)
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("render angle plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write angle plot: %w", err)
	}
	return nil
}
