package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	particlefilter "github.com/jhoydich/landmark-pf"
	"github.com/jhoydich/landmark-pf/internal/runner"
)

// TrajectoryPlot builds a plot of the estimated path, the ground truth path
// when available, and the landmark map.
func TrajectoryPlot(records []runner.Record, landmarks []particlefilter.Landmark) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Particle Filter Localization"
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())

	if len(landmarks) > 0 {
		lms := make(plotter.XYs, len(landmarks))
		for i, lm := range landmarks {
			lms[i].X, lms[i].Y = lm.X, lm.Y
		}
		s, err := plotter.NewScatter(lms)
		if err != nil {
			return nil, fmt.Errorf("landmark scatter: %w", err)
		}
		s.GlyphStyle.Shape = draw.CrossGlyph{}
		s.GlyphStyle.Color = color.RGBA{R: 90, G: 90, B: 90, A: 255}
		p.Add(s)
		p.Legend.Add("landmarks", s)
	}

	if len(records) == 0 {
		return p, nil
	}

	pred := make(plotter.XYs, len(records))
	var truth plotter.XYs
	for i, r := range records {
		pred[i].X, pred[i].Y = r.Pred.X, r.Pred.Y
		if r.HasTruth {
			truth = append(truth, plotter.XY{X: r.Truth.X, Y: r.Truth.Y})
		}
	}

	if len(truth) > 0 {
		l, err := plotter.NewLine(truth)
		if err != nil {
			return nil, fmt.Errorf("truth line: %w", err)
		}
		l.LineStyle.Color = color.RGBA{G: 160, A: 255}
		l.LineStyle.Width = vg.Points(2)
		p.Add(l)
		p.Legend.Add("ground truth", l)
	}

	l, err := plotter.NewLine(pred)
	if err != nil {
		return nil, fmt.Errorf("estimate line: %w", err)
	}
	l.LineStyle.Color = color.RGBA{R: 220, A: 255}
	l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(l)
	p.Legend.Add("estimate", l)

	return p, nil
}

// SaveTrajectoryPlot writes the trajectory plot to path. The image format
// follows the file extension (png, svg, pdf, ...).
func SaveTrajectoryPlot(path string, records []runner.Record, landmarks []particlefilter.Landmark) error {
	p, err := TrajectoryPlot(records, landmarks)
	if err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
