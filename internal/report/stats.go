// Package report summarises and renders the outcome of a grid search: cell
// occupancy statistics, an occupancy histogram chart, and a convergence plot
// of the size search.
package report

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/anonymise"
)

// OccupancySummary describes how many systems the accepted grid's non-empty
// cells hold.
type OccupancySummary struct {
	Cells  int     `json:"cells"`
	Min    int     `json:"min"`
	Max    int     `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
}

// Summarise computes occupancy statistics over the non-empty cells of an
// accepted grid.
func Summarise(counts map[anonymise.Cell]int) OccupancySummary {
	if len(counts) == 0 {
		return OccupancySummary{}
	}

	xs := make([]float64, 0, len(counts))
	min, max := 0, 0
	for _, n := range counts {
		xs = append(xs, float64(n))
		if min == 0 || n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	sort.Float64s(xs)

	// stat.StdDev is NaN for a single sample, which would poison the JSON
	// encoding of the summary.
	sd := 0.0
	if len(xs) > 1 {
		sd = stat.StdDev(xs, nil)
	}

	return OccupancySummary{
		Cells:  len(counts),
		Min:    min,
		Max:    max,
		Mean:   stat.Mean(xs, nil),
		StdDev: sd,
		Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, xs, nil),
	}
}

// Histogram buckets cell occupancy into counts per occupancy value, for the
// occupancy chart. The returned slices are aligned and ordered by occupancy.
func Histogram(counts map[anonymise.Cell]int) (occupancies []int, cells []int) {
	byOccupancy := make(map[int]int)
	for _, n := range counts {
		byOccupancy[n]++
	}

	occupancies = make([]int, 0, len(byOccupancy))
	for n := range byOccupancy {
		occupancies = append(occupancies, n)
	}
	sort.Ints(occupancies)

	cells = make([]int, len(occupancies))
	for i, n := range occupancies {
		cells[i] = byOccupancy[n]
	}
	return occupancies, cells
}
