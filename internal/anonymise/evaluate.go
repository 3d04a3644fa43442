package anonymise

import (
	"math"
	"math/rand"
)

// Evaluation is the outcome of testing one candidate grid against the
// location set. Acceptance is decided once per trial from the accumulated
// exclusion count, never inferred from residual loop state.
type Evaluation struct {
	// Accepted is true when every sparse cell's members fit inside the
	// tolerance budget.
	Accepted bool
	// Excluded holds the members of every sparse cell encountered before
	// the trial completed or was abandoned.
	Excluded []Location
	// SparseCells lists the blacklisted cells matching Excluded.
	SparseCells []Cell
}

// axisOrigin returns the lower-left corner ordinate of the first cell along
// one axis. A positive offset leaves a strip [min, min+offset) below the
// shifted origin, so the enumeration starts one cell early to cover it;
// locations there belong to that leading cell, not to no cell at all.
func axisOrigin(min, offset, delta float64) float64 {
	if offset > 0 {
		return min + offset - delta
	}
	return min + offset
}

// axisCorners enumerates cell lower-left corner ordinates along one axis,
// from the axis origin to the extent's far edge. The first and last cells may
// extend past the extent; that is tolerated, not clipped. Corners are
// computed by index rather than accumulation to avoid float drift over long
// axes.
func axisCorners(min, max, offset, delta float64) []float64 {
	start := axisOrigin(min, offset, delta)
	n := 0
	for start+float64(n)*delta < max+delta {
		n++
	}
	corners := make([]float64, n)
	for i := range corners {
		corners[i] = start + float64(i)*delta
	}
	return corners
}

// cellIndex maps an ordinate to its axis cell index under the half-open
// membership rule. An index outside [0, n) means the ordinate falls in no
// enumerated cell.
func cellIndex(v, min, offset, delta float64) int {
	return int(math.Floor((v - axisOrigin(min, offset, delta)) / delta))
}

// Evaluate partitions the location set into the cells of the candidate grid
// and classifies each cell. Sparse cell members accumulate as exclusion
// candidates; once their count exceeds tolerance the remaining cells are
// abandoned and the trial is rejected.
//
// Cells are visited in a randomized order, shuffled independently per axis
// per trial. This decorrelates which cells get blacklisted first when the
// tolerance budget is scarce, so exclusions are not biased towards the
// low-longitude corner of the extent.
func Evaluate(locations []Location, grid Grid, extent Extent, minSystems, tolerance int,
	rng *rand.Rand, progress func(done, total int)) Evaluation {

	lons := axisCorners(extent.MinLon, extent.MaxLon, grid.Offset.X, grid.Size.X)
	lats := axisCorners(extent.MinLat, extent.MaxLat, grid.Offset.Y, grid.Size.Y)

	// Bucket locations by cell index up front so each cell visit is a map
	// lookup rather than a scan of the whole location table.
	type cellKey struct{ i, j int }
	buckets := make(map[cellKey][]int)
	for idx, loc := range locations {
		i := cellIndex(loc.Longitude, extent.MinLon, grid.Offset.X, grid.Size.X)
		j := cellIndex(loc.Latitude, extent.MinLat, grid.Offset.Y, grid.Size.Y)
		if i < 0 || i >= len(lons) || j < 0 || j >= len(lats) {
			continue
		}
		buckets[cellKey{i, j}] = append(buckets[cellKey{i, j}], idx)
	}

	xOrder := rng.Perm(len(lons))
	yOrder := rng.Perm(len(lats))

	total := len(lons) * len(lats)
	done := 0
	excluded := []Location{}
	sparse := []Cell{}
	accepted := true

scan:
	for _, i := range xOrder {
		for _, j := range yOrder {
			done++
			if progress != nil {
				progress(done, total)
			}
			members := buckets[cellKey{i, j}]
			if Classify(len(members), minSystems) != CellSparse {
				continue
			}
			for _, idx := range members {
				excluded = append(excluded, locations[idx])
			}
			sparse = append(sparse, Cell{Lon: lons[i], Lat: lats[j]})
			if len(excluded) > tolerance {
				accepted = false
				break scan
			}
		}
	}

	return Evaluation{Accepted: accepted, Excluded: excluded, SparseCells: sparse}
}

// CellCounts returns the occupancy of every non-empty cell of the grid.
// It applies the same half-open membership rule as Evaluate and is used for
// occupancy reporting on an accepted grid.
func CellCounts(locations []Location, grid Grid, extent Extent) map[Cell]int {
	lons := axisCorners(extent.MinLon, extent.MaxLon, grid.Offset.X, grid.Size.X)
	lats := axisCorners(extent.MinLat, extent.MaxLat, grid.Offset.Y, grid.Size.Y)

	counts := make(map[Cell]int)
	for _, loc := range locations {
		i := cellIndex(loc.Longitude, extent.MinLon, grid.Offset.X, grid.Size.X)
		j := cellIndex(loc.Latitude, extent.MinLat, grid.Offset.Y, grid.Size.Y)
		if i < 0 || i >= len(lons) || j < 0 || j >= len(lats) {
			continue
		}
		counts[Cell{Lon: lons[i], Lat: lats[j]}]++
	}
	return counts
}
