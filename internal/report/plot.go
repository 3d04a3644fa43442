package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/anonymise"
)

// WriteConvergencePlot saves a PNG of the cell size trajectory over the
// outer-loop iterations, showing how the size search bracketed the boundary
// between conforming and non-conforming grids.
func WriteConvergencePlot(path string, trace []anonymise.IterationStat) error {
	if len(trace) == 0 {
		return fmt.Errorf("empty convergence trace")
	}

	sizes := make(plotter.XYs, len(trace))
	steps := make(plotter.XYs, len(trace))
	for i, it := range trace {
		sizes[i].X = float64(it.Iteration)
		sizes[i].Y = it.CellSize.X
		steps[i].X = float64(it.Iteration)
		steps[i].Y = it.Step
	}

	p := plot.New()
	p.Title.Text = "Grid size convergence"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "degrees"

	sizeLine, err := plotter.NewLine(sizes)
	if err != nil {
		return fmt.Errorf("failed to build size line: %w", err)
	}
	stepLine, err := plotter.NewLine(steps)
	if err != nil {
		return fmt.Errorf("failed to build step line: %w", err)
	}
	stepLine.LineStyle.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}

	p.Add(sizeLine, stepLine)
	p.Legend.Add("cell size", sizeLine)
	p.Legend.Add("step", stepLine)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
