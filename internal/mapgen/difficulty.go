package mapgen

import (
	"fmt"
	"math"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 5

	// Corridor length is expressed as a multiple of the straight cell count.
	// The whole range is split evenly between the difficulty levels.
	overallMinScale = 1.0
	overallMaxScale = 2.0

	scaleEpsilon = 1e-9
)

// Band is the corridor length window and detour probability for one difficulty.
type Band struct {
	ScaleMin     float64
	ScaleMax     float64
	DetourChance float64
}

// BandFor returns the band for a difficulty between 1 (longest, most winding
// corridors) and 5 (straightest).
func BandFor(difficulty int) (Band, error) {
	if difficulty < MinDifficulty || difficulty > MaxDifficulty {
		return Band{}, fmt.Errorf("%w: got %d", ErrInvalidDifficulty, difficulty)
	}

	step := (overallMaxScale - overallMinScale) / float64(MaxDifficulty)
	maxScale := overallMaxScale - float64(difficulty-1)*step
	minScale := maxScale - step

	midpoint := (minScale + maxScale) / 2
	detour := (midpoint - overallMinScale) / (overallMaxScale - overallMinScale)

	return Band{ScaleMin: minScale, ScaleMax: maxScale, DetourChance: detour}, nil
}

// Window returns the accepted corridor lengths [lo, hi] for a straight cell
// count. A grid walk between two cells always has the parity of the straight
// walk, so the window is widened by one when it would hold no reachable length.
// hi may therefore exceed floor(ScaleMax*cells), by the parity step and when
// the band rounds to an empty range; treat the band edges as approximate.
func (b Band) Window(cells int) (lo, hi int) {
	lo = int(math.Ceil(b.ScaleMin*float64(cells) - scaleEpsilon))
	hi = int(math.Floor(b.ScaleMax*float64(cells) + scaleEpsilon))
	if lo < cells {
		lo = cells
	}
	if hi < lo {
		hi = lo
	}
	if !windowHasParity(lo, hi, cells) {
		hi++
	}
	return lo, hi
}

// DistanceWindow returns the accepted fork distances for a branch whose
// nearest possible fork is dmin cells away.
func (b Band) DistanceWindow(dmin int) (lo, hi int) {
	lo = int(math.Ceil(b.ScaleMin*float64(dmin) - scaleEpsilon))
	hi = int(math.Floor(b.ScaleMax*float64(dmin) + scaleEpsilon))
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func windowHasParity(lo, hi, cells int) bool {
	for n := lo; n <= hi; n++ {
		if (n-cells)%2 == 0 {
			return true
		}
	}
	return false
}

// relaxWindow widens a window by two cells per relaxation step, never below
// the straight cell count.
func relaxWindow(lo, hi, cells, steps int) (int, int) {
	if steps <= 0 {
		return lo, hi
	}
	lo -= 2 * steps
	if lo < cells {
		lo = cells
	}
	return lo, hi + 2*steps
}

// deviation scores a corridor length against a window. Overshoot costs three
// times as much as undershoot.
func deviation(length, lo, hi int) int {
	switch {
	case length < lo:
		return lo - length
	case length > hi:
		return 3 * (length - hi)
	default:
		return 0
	}
}
