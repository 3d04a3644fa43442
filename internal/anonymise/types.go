// Package anonymise determines the fishnet grid parameters needed to publish
// a set of point locations under k-anonymity: every grid cell that contains
// any location must contain at least MinSystems of them, with up to Tolerance
// locations excluded from publication instead.
package anonymise

import (
	"errors"
	"fmt"
	"math/rand"
)

// Default search parameters.
const (
	// DefaultMinSystems is the minimum number of systems per grid cell.
	DefaultMinSystems = 3
	// DefaultTolerance is the number of systems that may be discarded to
	// achieve a smaller grid size.
	DefaultTolerance = 10
	// DefaultConverge is the step size below which the search stops refining.
	DefaultConverge = 0.001
	// DefaultInitialCellSize is the starting cell edge length in degrees.
	DefaultInitialCellSize = 0.1
	// DefaultMaxIterations bounds the outer search loop.
	DefaultMaxIterations = 1000
)

// DefaultExtent is the bounding box covering all admissible grid cells,
// independent of the actual data range. It covers the UK.
var DefaultExtent = Extent{MinLon: -7.0, MinLat: 49.0, MaxLon: 2.2, MaxLat: 61.0}

// Location is a single point to be anonymised. The input location set is
// immutable; the search only takes views over it.
type Location struct {
	ID        string  `json:"id"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Extent is the bounding box the grid spans.
type Extent struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Offset shifts the grid origin relative to the extent's lower-left corner.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CellSize is the cell edge length along each axis in degrees.
type CellSize struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Grid is a candidate fishnet: cell lower-left corners sit at
// MinLon + Offset.X + i*Size.X, MinLat + Offset.Y + j*Size.Y.
type Grid struct {
	Offset Offset   `json:"offset"`
	Size   CellSize `json:"cell_size"`
}

// Cell identifies a grid cell by its lower-left corner. Membership is
// half-open on both axes: Lon <= longitude < Lon+Size.X and likewise for
// latitude, so no location is counted twice at a boundary.
type Cell struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// CellClass is the k-anonymity classification of a cell.
type CellClass int

const (
	// CellEmpty has no members and is ignored.
	CellEmpty CellClass = iota
	// CellConforming has at least MinSystems members.
	CellConforming
	// CellSparse has 1..MinSystems-1 members; its members must be excluded
	// from publication for the grid to be acceptable.
	CellSparse
)

// Classify returns the class of a cell with n members.
func Classify(n, minSystems int) CellClass {
	switch {
	case n == 0:
		return CellEmpty
	case n < minSystems:
		return CellSparse
	default:
		return CellConforming
	}
}

// Sentinel errors returned by the search.
var (
	// ErrInvalidParams reports a configuration that fails validation.
	// Invalid values are never silently clamped.
	ErrInvalidParams = errors.New("invalid search parameters")
	// ErrNonConvergence reports that the outer loop exhausted its iteration
	// budget before the step shrank below the convergence threshold.
	ErrNonConvergence = errors.New("grid search did not converge")
)

// Params configures a grid search.
type Params struct {
	MinSystems      int
	Tolerance       int
	Extent          Extent
	Converge        float64
	InitialCellSize CellSize
	MaxIterations   int

	// Rand supplies the shuffle order for offset and cell trials. A seeded
	// source makes runs reproducible; if nil the search seeds one itself.
	Rand *rand.Rand

	// Progress, if non-nil, is invoked once per cell scanned during an
	// offset trial. The search functions identically with no hook attached.
	Progress func(done, total int)
}

// DefaultParams returns the standard search configuration.
func DefaultParams() Params {
	return Params{
		MinSystems:      DefaultMinSystems,
		Tolerance:       DefaultTolerance,
		Extent:          DefaultExtent,
		Converge:        DefaultConverge,
		InitialCellSize: CellSize{X: DefaultInitialCellSize, Y: DefaultInitialCellSize},
		MaxIterations:   DefaultMaxIterations,
	}
}

// Validate checks the parameters, failing fast before any search iteration.
func (p Params) Validate() error {
	if p.MinSystems < 1 {
		return fmt.Errorf("%w: min_systems must be >= 1, got %d", ErrInvalidParams, p.MinSystems)
	}
	if p.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must be >= 0, got %d", ErrInvalidParams, p.Tolerance)
	}
	if p.Converge <= 0 {
		return fmt.Errorf("%w: converge must be positive, got %f", ErrInvalidParams, p.Converge)
	}
	if p.InitialCellSize.X <= 0 || p.InitialCellSize.Y <= 0 {
		return fmt.Errorf("%w: initial cell size must be positive, got (%f, %f)",
			ErrInvalidParams, p.InitialCellSize.X, p.InitialCellSize.Y)
	}
	if p.Extent.MinLon >= p.Extent.MaxLon || p.Extent.MinLat >= p.Extent.MaxLat {
		return fmt.Errorf("%w: extent min must be below max on both axes, got %+v",
			ErrInvalidParams, p.Extent)
	}
	if p.MaxIterations < 1 {
		return fmt.Errorf("%w: max_iterations must be >= 1, got %d", ErrInvalidParams, p.MaxIterations)
	}
	return nil
}
