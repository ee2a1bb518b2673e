package mapgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/cenkalti/backoff/v5"
	"github.com/zyedidia/generic/mapset"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lawnchairsociety/steamtunnels/internal/logger"
)

var (
	errDeadEnd         = errors.New("search exhausted without reaching the goal")
	errOutsideWindow   = errors.New("corridor length outside the window")
	errGoalUnreachable = errors.New("goal is walled off")
)

// frame is one level of the explicit DFS stack.
type frame struct {
	at   Point
	dirs []Direction
	next int
}

// carver runs depth-first corridor searches between two points. It reads the
// grid but never writes to it.
type carver struct {
	m       *Map
	rng     *rand.Rand
	start   Point
	goal    Point
	detour  float64
	lo, hi  int // corridor lengths the search may finish with
	visited mapset.Set[Point]
	onPath  mapset.Set[Point]
}

func newCarver(m *Map, start, goal Point) *carver {
	return &carver{
		m:      m,
		rng:    m.rng,
		start:  start,
		goal:   goal,
		detour: m.band.DetourChance,
		lo:     start.CellDistance(goal),
		hi:     len(m.tiles),
	}
}

// within sets the length window for the next attempts.
func (c *carver) within(lo, hi int) {
	c.lo, c.hi = lo, hi
}

// run performs one search attempt with fresh visited and path sets. It returns
// the corridor from start to goal inclusive, or nil on a dead end.
func (c *carver) run() []Point {
	c.visited = mapset.New[Point]()
	c.onPath = mapset.New[Point]()
	c.visited.Put(c.start)
	c.onPath.Put(c.start)

	stack := []frame{{at: c.start, dirs: c.directions(c.start)}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.at == c.goal {
			path := make([]Point, len(stack))
			for i, f := range stack {
				path[i] = f.at
			}
			return path
		}

		if top.next >= len(top.dirs) {
			// Backtrack. The cell stays visited for the rest of the attempt.
			c.onPath.Remove(top.at)
			stack = stack[:len(stack)-1]
			continue
		}

		from := top.at
		n := from.Step(top.dirs[top.next])
		top.next++
		if !c.accept(n, from, len(stack)+1) {
			continue
		}
		c.visited.Put(n)
		c.onPath.Put(n)
		stack = append(stack, frame{at: n, dirs: c.directions(n)})
	}
	return nil
}

// accept decides whether n may extend the corridor from parent, making it
// length cells long. Steps that can no longer finish inside the window are
// pruned without being marked visited.
func (c *carver) accept(n, parent Point, length int) bool {
	if !c.m.In(n) || c.visited.Has(n) {
		return false
	}
	if n == c.goal {
		if length < c.lo || length > c.hi {
			return false
		}
		return !c.m.clusters(n, c.solid) && !c.touchesPath(n, parent)
	}
	if length+n.CellDistance(c.goal)-1 > c.hi {
		return false
	}
	if c.m.stateAt(n) != StateEmpty {
		return false
	}
	if c.m.clusters(n, c.solid) {
		return false
	}
	return !c.hugs(n, parent)
}

func (c *carver) solid(p Point) bool {
	return c.m.stateAt(p).IsSolid() || c.onPath.Has(p)
}

func (c *carver) corridor(p Point) bool {
	return c.m.walkable(p) || c.onPath.Has(p)
}

// hugs reports whether n touches a corridor cell other than its parent or the
// goal, which would make the corridor two cells wide.
func (c *carver) hugs(n, parent Point) bool {
	for _, d := range AllDirections() {
		q := n.Step(d)
		if q == parent || q == c.goal {
			continue
		}
		if c.corridor(q) {
			return true
		}
	}
	return false
}

// touchesPath reports whether n borders the current path anywhere but parent.
func (c *carver) touchesPath(n, parent Point) bool {
	for _, d := range AllDirections() {
		q := n.Step(d)
		if q != parent && c.onPath.Has(q) {
			return true
		}
	}
	return false
}

// directions orders the moves to try from p.
func (c *carver) directions(p Point) []Direction {
	dirs := AllDirections()
	for i, d := range dirs {
		if p.Step(d) == c.goal {
			dirs[0], dirs[i] = dirs[i], dirs[0]
			return dirs
		}
	}

	if c.rng.Float64() < c.detour {
		c.shuffle(dirs)
		return dirs
	}

	var preferred, others []Direction
	for _, d := range dirs {
		if p.Step(d).CellDistance(c.goal) < p.CellDistance(c.goal) {
			preferred = append(preferred, d)
		} else {
			others = append(others, d)
		}
	}
	c.shuffle(preferred)
	c.shuffle(others)
	return append(preferred, others...)
}

func (c *carver) shuffle(dirs []Direction) {
	c.rng.Shuffle(len(dirs), func(i, j int) {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	})
}

// clusters reports whether marking p solid would complete a 2x2 block of solid
// cells, with solid deciding the state of the other three.
func (m *Map) clusters(p Point, solid func(Point) bool) bool {
	for dx := -1; dx <= 0; dx++ {
		for dy := -1; dy <= 0; dy++ {
			full := true
			for _, q := range [4]Point{
				{p.X + dx, p.Y + dy},
				{p.X + dx + 1, p.Y + dy},
				{p.X + dx, p.Y + dy + 1},
				{p.X + dx + 1, p.Y + dy + 1},
			} {
				if q != p && !solid(q) {
					full = false
					break
				}
			}
			if full {
				return true
			}
		}
	}
	return false
}

func (m *Map) solidAt(p Point) bool {
	return m.stateAt(p).IsSolid()
}

// openFrom reports whether goal can be reached from start over empty tiles at
// all, ignoring the shape rules. It rules out hopeless searches up front.
func (m *Map) openFrom(start, goal Point) bool {
	seen := mapset.New[Point]()
	seen.Put(start)
	queue := []Point{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range AllDirections() {
			n := cur.Step(d)
			if n == goal {
				return true
			}
			if seen.Has(n) || m.stateAt(n) != StateEmpty {
				continue
			}
			seen.Put(n)
			queue = append(queue, n)
		}
	}
	return false
}

// searchCorridor runs carve attempts until one finishes inside the length
// window or the attempt ceiling is hit. The window widens every RelaxAfter
// failures.
func (m *Map) searchCorridor(ctx context.Context, start, goal Point) ([]Point, int, error) {
	cells := start.CellDistance(goal)
	lo, hi := m.band.Window(cells)
	c := newCarver(m, start, goal)

	attempts := 0
	path, err := backoff.Retry(ctx, func() ([]Point, error) {
		if attempts == 0 && !m.openFrom(start, goal) {
			return nil, backoff.Permanent(errGoalUnreachable)
		}
		attempts++
		c.within(relaxWindow(lo, hi, cells, (attempts-1)/m.cfg.RelaxAfter))
		path := c.run()
		if path == nil {
			return nil, errDeadEnd
		}
		return path, nil
	}, backoff.WithBackOff(&backoff.ZeroBackOff{}), backoff.WithMaxTries(uint(m.cfg.MaxCarveAttempts)))
	if err != nil {
		return nil, attempts, fmt.Errorf("%w after %d attempts from %s to %s: %w", ErrUngeneratable, attempts, start, goal, err)
	}
	return path, attempts, nil
}

// CarvePath carves a width-one corridor from start to goal whose length falls
// inside the difficulty window and commits it to the grid.
func (m *Map) CarvePath(ctx context.Context, start, goal Point) ([]Point, error) {
	ctx, span := m.tracer.Start(ctx, "mapgen.carve")
	defer span.End()

	if !m.In(start) || !m.In(goal) {
		return nil, fmt.Errorf("%w: carve %s to %s", ErrOutOfBounds, start, goal)
	}
	if start == goal {
		return nil, fmt.Errorf("%w: start and goal are both %s", ErrUngeneratable, start)
	}

	path, attempts, err := m.searchCorridor(ctx, start, goal)
	span.SetAttributes(
		attribute.String("carve.start", start.String()),
		attribute.String("carve.goal", goal.String()),
		attribute.Int("carve.attempts", attempts),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "carve failed")
		logger.Warning("Corridor carve failed", "start", start.String(), "goal", goal.String(), "attempts", attempts, "error", err)
		return nil, err
	}

	m.commitCorridor(path)
	span.SetAttributes(attribute.Int("carve.length", len(path)))
	logger.Debug("Carved corridor", "start", start.String(), "goal", goal.String(), "length", len(path), "attempts", attempts)
	return path, nil
}

// CarvePrimaryPath carves the corridor between the first spawn and first goal.
func (m *Map) CarvePrimaryPath(ctx context.Context) ([]Point, error) {
	if len(m.spawns) == 0 || len(m.goals) == 0 {
		return nil, ErrNoSpecialPoints
	}
	return m.CarvePath(ctx, m.spawns[0], m.goals[0])
}

// RecarvePrimaryPath clears every corridor and extra special point, keeping
// the first spawn and goal, and carves a fresh corridor between them.
func (m *Map) RecarvePrimaryPath(ctx context.Context) ([]Point, error) {
	if len(m.spawns) == 0 || len(m.goals) == 0 {
		return nil, ErrNoSpecialPoints
	}
	for i := range m.tiles {
		if m.tiles[i].state.IsCorridor() {
			m.tiles[i].ClearState()
		}
	}
	m.spawns = m.spawns[:1]
	m.goals = m.goals[:1]
	m.restampSpecialPoints()
	m.ComputeBitmasks()
	return m.CarvePrimaryPath(ctx)
}

// commitCorridor writes a carved path to the grid. Spawns and goals on the path
// keep their state.
func (m *Map) commitCorridor(path []Point) {
	for _, p := range path {
		t := &m.tiles[m.index(p)]
		if t.state == StateSpawn || t.state == StateGoal {
			continue
		}
		t.SetState(StatePath)
	}
	m.restampSpecialPoints()
	m.ComputeBitmasks()
}
