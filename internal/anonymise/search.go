package anonymise

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// action records the direction of the previous cell-size adjustment. The
// step policy halves the step whenever the search reverses direction, which
// stops it oscillating between a size that barely succeeds and one that
// barely fails.
type action int

const (
	actionNone action = iota
	actionGrow
	actionShrink
)

// TerminationReason explains why a search returned a result.
type TerminationReason int

const (
	// Converged means the step shrank below the convergence threshold on a
	// successful offset trial.
	Converged TerminationReason = iota
	// EmptyInput means no locations were supplied: the initial grid is
	// trivially conforming and no search iterations ran.
	EmptyInput
)

func (r TerminationReason) String() string {
	switch r {
	case Converged:
		return "converged"
	case EmptyInput:
		return "empty_input"
	default:
		return "unknown"
	}
}

// IterationStat records one outer-loop iteration for convergence reporting.
type IterationStat struct {
	Iteration int      `json:"iteration"`
	CellSize  CellSize `json:"cell_size"`
	Step      float64  `json:"step"`
	Accepted  bool     `json:"accepted"`
}

// Result is the accepted grid together with the exclusions it requires.
type Result struct {
	Offset      Offset
	CellSize    CellSize
	SparseCells []Cell
	Excluded    []Location
	Reason      TerminationReason
	Iterations  int
	Trace       []IterationStat
}

// Search finds the finest cell size and best-matching offset such that every
// non-empty cell of the grid holds at least p.MinSystems locations, allowing
// up to p.Tolerance locations to be excluded from publication instead.
//
// The outer loop adjusts the cell size: on any offset success it shrinks by
// the current step, on total failure it grows, halving the step on each
// direction reversal until the step falls below p.Converge. The inner loop
// tries the four half-cell offsets (0 and size/2 on each axis) in randomized
// order, stopping at the first accepted evaluation.
//
// The context is checked once per outer iteration; convergence time is
// otherwise unbounded, so the loop also carries an explicit iteration budget
// and returns ErrNonConvergence when it is exhausted.
func Search(ctx context.Context, locations []Location, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rng := p.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	if len(locations) == 0 {
		return &Result{
			CellSize:    p.InitialCellSize,
			SparseCells: []Cell{},
			Excluded:    []Location{},
			Reason:      EmptyInput,
		}, nil
	}

	size := p.InitialCellSize
	step := size.X * 2.0 / 3.0
	last := actionNone
	var trace []IterationStat

	for iter := 1; iter <= p.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		off, ev, ok := trialOffsets(locations, size, p, rng)
		trace = append(trace, IterationStat{Iteration: iter, CellSize: size, Step: step, Accepted: ok})

		if ok {
			if step <= p.Converge {
				return &Result{
					Offset:      off,
					CellSize:    size,
					SparseCells: ev.SparseCells,
					Excluded:    ev.Excluded,
					Reason:      Converged,
					Iterations:  iter,
					Trace:       trace,
				}, nil
			}
			if last == actionGrow {
				// Direction reversal: halve to prevent overshoot.
				step *= 0.5
			} else {
				// Back off until the shrink keeps the size positive.
				for size.X-step < 0 {
					step *= 2.0 / 3.0
				}
			}
			size.X -= step
			size.Y -= step
			last = actionShrink
		} else {
			if last == actionShrink {
				step *= 0.5
			}
			size.X += step
			size.Y += step
			last = actionGrow
		}

		// A degenerate grid at or below the convergence floor is never tried.
		if size.X < p.Converge {
			size.X = p.Converge
		}
		if size.Y < p.Converge {
			size.Y = p.Converge
		}
	}

	return nil, fmt.Errorf("%w after %d iterations", ErrNonConvergence, p.MaxIterations)
}

// trialOffsets runs one offset trial phase at a fixed cell size: the four
// half-cell shifts in randomized sub-order, first accepted evaluation wins.
func trialOffsets(locations []Location, size CellSize, p Params, rng *rand.Rand) (Offset, Evaluation, bool) {
	offsets := []Offset{
		{X: 0, Y: 0},
		{X: size.X / 2, Y: 0},
		{X: 0, Y: size.Y / 2},
		{X: size.X / 2, Y: size.Y / 2},
	}
	rng.Shuffle(len(offsets), func(i, j int) {
		offsets[i], offsets[j] = offsets[j], offsets[i]
	})

	var lastEv Evaluation
	for _, off := range offsets {
		grid := Grid{Offset: off, Size: size}
		ev := Evaluate(locations, grid, p.Extent, p.MinSystems, p.Tolerance, rng, p.Progress)
		if ev.Accepted {
			return off, ev, true
		}
		lastEv = ev
	}
	return Offset{}, lastEv, false
}
