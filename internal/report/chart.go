package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/anonymise"
)

// WriteOccupancyChart renders a bar chart (HTML) of cell occupancy for the
// accepted grid: x axis is systems per cell, y axis is the number of cells
// holding that many systems.
func WriteOccupancyChart(w io.Writer, counts map[anonymise.Cell]int, title string) error {
	occupancies, cells := Histogram(counts)

	labels := make([]string, len(occupancies))
	data := make([]opts.BarData, len(cells))
	for i, n := range occupancies {
		labels[i] = fmt.Sprintf("%d", n)
		data[i] = opts.BarData{Value: cells[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("%d non-empty cells", len(counts)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "systems per cell"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "cells"}),
	)
	bar.SetXAxis(labels).AddSeries("cells", data)

	return bar.Render(w)
}
