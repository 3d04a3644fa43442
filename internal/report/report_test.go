package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SheffieldSolar/GDPR-Location-Anonymiser/internal/anonymise"
)

func sampleCounts() map[anonymise.Cell]int {
	return map[anonymise.Cell]int{
		{Lon: 0.0, Lat: 0.0}: 3,
		{Lon: 0.1, Lat: 0.0}: 3,
		{Lon: 0.0, Lat: 0.1}: 5,
		{Lon: 0.1, Lat: 0.1}: 9,
	}
}

func TestSummarise(t *testing.T) {
	s := Summarise(sampleCounts())

	if s.Cells != 4 {
		t.Errorf("Cells = %d, want 4", s.Cells)
	}
	if s.Min != 3 || s.Max != 9 {
		t.Errorf("Min/Max = %d/%d, want 3/9", s.Min, s.Max)
	}
	if math.Abs(s.Mean-5.0) > 1e-9 {
		t.Errorf("Mean = %f, want 5.0", s.Mean)
	}
	if s.Median < 3 || s.Median > 5 {
		t.Errorf("Median = %f, want within [3, 5]", s.Median)
	}
}

// A grid with one occupied cell has no spread to estimate; the summary must
// report zero rather than NaN, which JSON cannot encode.
func TestSummariseSingleCell(t *testing.T) {
	s := Summarise(map[anonymise.Cell]int{{Lon: 0, Lat: 0}: 3})

	if s.Cells != 1 || s.Min != 3 || s.Max != 3 {
		t.Errorf("expected a single cell of occupancy 3, got %+v", s)
	}
	if math.Abs(s.Mean-3.0) > 1e-9 {
		t.Errorf("Mean = %f, want 3.0", s.Mean)
	}
	if s.StdDev != 0 {
		t.Errorf("StdDev = %f, want 0", s.StdDev)
	}
}

func TestSummariseEmpty(t *testing.T) {
	s := Summarise(nil)
	if s.Cells != 0 || s.Mean != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

func TestHistogram(t *testing.T) {
	occupancies, cells := Histogram(sampleCounts())

	if len(occupancies) != 3 {
		t.Fatalf("expected 3 distinct occupancies, got %v", occupancies)
	}
	if occupancies[0] != 3 || cells[0] != 2 {
		t.Errorf("expected two cells of occupancy 3, got occupancy %d x %d cells",
			occupancies[0], cells[0])
	}
	if occupancies[2] != 9 || cells[2] != 1 {
		t.Errorf("expected one cell of occupancy 9, got occupancy %d x %d cells",
			occupancies[2], cells[2])
	}
}

func TestWriteOccupancyChart(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOccupancyChart(&buf, sampleCounts(), "occupancy"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "occupancy") {
		t.Error("chart output does not contain the title")
	}
	if !strings.Contains(out, "echarts") {
		t.Error("chart output does not look like an echarts document")
	}
}

func TestWriteConvergencePlot(t *testing.T) {
	trace := []anonymise.IterationStat{
		{Iteration: 1, CellSize: anonymise.CellSize{X: 0.1, Y: 0.1}, Step: 0.066, Accepted: false},
		{Iteration: 2, CellSize: anonymise.CellSize{X: 0.166, Y: 0.166}, Step: 0.066, Accepted: true},
		{Iteration: 3, CellSize: anonymise.CellSize{X: 0.133, Y: 0.133}, Step: 0.033, Accepted: true},
	}

	path := filepath.Join(t.TempDir(), "convergence.png")
	if err := WriteConvergencePlot(path, trace); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("plot file missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestWriteConvergencePlotEmptyTrace(t *testing.T) {
	if err := WriteConvergencePlot(filepath.Join(t.TempDir(), "x.png"), nil); err == nil {
		t.Error("expected an error for an empty trace")
	}
}
