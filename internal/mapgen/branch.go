package mapgen

import (
	"context"
	"fmt"
	"math"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lawnchairsociety/steamtunnels/internal/logger"
)

// AddSpecialPoint places a new spawn or goal at an isolated location and
// connects it to the existing corridor network with a branch ending at a fork
// tile. It returns ErrPointNotPlaced when no location could be connected;
// the map is unchanged in that case.
func (m *Map) AddSpecialPoint(ctx context.Context, kind Kind) (Point, error) {
	ctx, span := m.tracer.Start(ctx, "mapgen.add_special_point")
	defer span.End()
	span.SetAttributes(attribute.String("point.kind", kind.String()))

	for location := 1; location <= m.cfg.MaxLocationAttempts; location++ {
		if err := ctx.Err(); err != nil {
			return Point{}, err
		}

		p, ok := m.pickIsolatedPoint()
		if !ok {
			continue
		}

		for _, fork := range m.forkCandidates(p) {
			path, err := m.searchBranch(ctx, p, fork)
			if err != nil {
				if ctx.Err() != nil {
					return Point{}, err
				}
				continue
			}

			m.commitBranch(kind, path)
			span.SetAttributes(
				attribute.String("point.at", p.String()),
				attribute.String("point.fork", fork.String()),
				attribute.Int("point.branch_length", len(path)),
				attribute.Int("point.locations", location),
			)
			logger.Debug("Added special point", "kind", kind.String(), "at", p.String(), "fork", fork.String(), "length", len(path))
			return p, nil
		}
	}

	err := fmt.Errorf("%w: %s after %d locations", ErrPointNotPlaced, kind, m.cfg.MaxLocationAttempts)
	span.RecordError(err)
	span.SetStatus(codes.Error, "placement failed")
	return Point{}, err
}

// pickIsolatedPoint draws random empty tiles until one lies outside the
// isolation square of every corridor tile.
func (m *Map) pickIsolatedPoint() (Point, bool) {
	radius := m.cfg.IsolationSize / 2
	if radius < 1 {
		radius = 1
	}

	for i := 0; i < m.cfg.MaxPlacementAttempts; i++ {
		p := Point{m.spanCoord(m.Width), m.spanCoord(m.Height)}
		if m.stateAt(p) != StateEmpty {
			continue
		}
		if m.nearCorridor(p, radius) {
			continue
		}
		if m.clusters(p, m.solidAt) {
			continue
		}
		return p, true
	}
	return Point{}, false
}

func (m *Map) nearCorridor(p Point, radius int) bool {
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if m.walkable(Point{p.X + dx, p.Y + dy}) {
				return true
			}
		}
	}
	return false
}

// forkCandidates returns a shuffled shortlist of path tiles a branch from p may
// end on. Only tiles whose distance to p sits inside the band's distance
// window, measured from the nearest eligible tile, are considered.
func (m *Map) forkCandidates(p Point) []Point {
	var eligible []Point
	dmin := math.MaxInt
	for i := range m.tiles {
		t := &m.tiles[i]
		if t.state != StatePath {
			continue
		}
		f := t.Point()
		// A junction already carries its one extra branch.
		if m.corridorDegree(f) >= 3 || !m.hasOpening(f) {
			continue
		}
		eligible = append(eligible, f)
		if d := p.CellDistance(f); d < dmin {
			dmin = d
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	lo, hi := m.band.DistanceWindow(dmin)
	var candidates []Point
	for len(candidates) == 0 {
		for _, f := range eligible {
			if d := p.CellDistance(f); d >= lo && d <= hi {
				candidates = append(candidates, f)
			}
		}
		// The nearest tile always qualifies once lo reaches dmin.
		lo--
		hi++
	}

	m.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > m.cfg.MaxForkCandidates {
		candidates = candidates[:m.cfg.MaxForkCandidates]
	}
	return candidates
}

// hasOpening reports whether a branch could enter fork f through at least one
// empty neighbour without clustering or widening the corridor.
func (m *Map) hasOpening(f Point) bool {
	for _, d := range AllDirections() {
		q := f.Step(d)
		if m.stateAt(q) != StateEmpty || m.clusters(q, m.solidAt) {
			continue
		}
		touches := false
		for _, e := range AllDirections() {
			r := q.Step(e)
			if r != f && m.walkable(r) {
				touches = true
				break
			}
		}
		if !touches {
			return true
		}
	}
	return false
}

// branchRelaxSteps is how many times a branch window widens within the
// attempt budget.
const branchRelaxSteps = 4

// searchBranch carves from the new point to a fork. It returns the first
// attempt inside the length window, or the attempt with the lowest deviation
// once the budget is spent.
func (m *Map) searchBranch(ctx context.Context, from, fork Point) ([]Point, error) {
	cells := from.CellDistance(fork)
	lo, hi := m.band.Window(cells)
	c := newCarver(m, from, fork)

	relaxEvery := m.cfg.MaxBranchAttempts / branchRelaxSteps
	if relaxEvery < 1 {
		relaxEvery = 1
	}

	var best []Point
	bestScore := math.MaxInt
	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		c.within(relaxWindow(lo, hi, cells, (attempts-1)/relaxEvery))
		path := c.run()
		if path == nil {
			return struct{}{}, errDeadEnd
		}
		score := deviation(len(path), lo, hi)
		if score < bestScore {
			best, bestScore = path, score
		}
		if score > 0 {
			return struct{}{}, errOutsideWindow
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(&backoff.ZeroBackOff{}), backoff.WithMaxTries(uint(m.cfg.MaxBranchAttempts)))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if best == nil {
		return nil, fmt.Errorf("%w: branch %s to %s: %w", ErrUngeneratable, from, fork, err)
	}
	if bestScore > 0 {
		logger.Debug("Using best-effort branch", "from", from.String(), "fork", fork.String(), "length", len(best), "window_lo", lo, "window_hi", hi)
	}
	return best, nil
}

// commitBranch stamps the new point, the branch interior and refreshes masks.
// The fork keeps its state.
func (m *Map) commitBranch(kind Kind, path []Point) {
	m.addSpecialPoint(kind, path[0])
	for _, p := range path[1 : len(path)-1] {
		m.tiles[m.index(p)].SetState(StatePath)
	}
	m.restampSpecialPoints()
	m.ComputeBitmasks()
}
