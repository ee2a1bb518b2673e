package mapgen

import (
	"errors"
	"fmt"

	"codeberg.org/anaseto/gruid"
	"codeberg.org/anaseto/gruid/paths"
	"github.com/zyedidia/generic/mapset"
)

// corridorPath implements the paths.Pather interface over corridor tiles.
type corridorPath struct {
	m   *Map
	nbs paths.Neighbors
}

func (cp *corridorPath) Neighbors(p gruid.Point) []gruid.Point {
	if !cp.m.walkable(fromGruid(p)) {
		return nil
	}
	return cp.nbs.Cardinal(p, func(q gruid.Point) bool {
		return cp.m.walkable(fromGruid(q))
	})
}

func toGruid(p Point) gruid.Point {
	return gruid.Point{X: p.X, Y: p.Y}
}

func fromGruid(p gruid.Point) Point {
	return Point{p.X, p.Y}
}

// pathRange returns a path range matching the current grid size.
func (m *Map) pathRange() *paths.PathRange {
	return paths.NewPathRange(gruid.NewRange(0, 0, m.Width, m.Height))
}

// GoalDistances returns the corridor length in cells from spawn to every goal
// it can reach. Unreachable goals are absent.
func (m *Map) GoalDistances(spawn Point) map[Point]int {
	dist := make(map[Point]int, len(m.goals))
	if !m.walkable(spawn) {
		return dist
	}

	maxCost := m.Width * m.Height
	pr := m.pathRange()
	pr.BreadthFirstMap(&corridorPath{m: m}, []gruid.Point{toGruid(spawn)}, maxCost)
	for _, g := range m.goals {
		cost := pr.BreadthFirstMapAt(toGruid(g))
		if cost > maxCost {
			continue
		}
		dist[g] = cost + 1
	}
	return dist
}

// Violation is a structural rule broken by the current grid.
type Violation struct {
	Point Point  `json:"point"`
	Rule  string `json:"rule"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s at %s", v.Rule, v.Point)
}

const (
	RuleBorder   = "border"
	RuleCluster  = "cluster"
	RuleCrossing = "crossing"
	RuleOrphan   = "orphan"
	RuleStranded = "stranded"
)

// corridorDegree counts the walkable orthogonal neighbours of p.
func (m *Map) corridorDegree(p Point) int {
	n := 0
	for _, d := range AllDirections() {
		if m.walkable(p.Step(d)) {
			n++
		}
	}
	return n
}

// Violations checks the grid against its structural rules: an intact border
// ring, no 2x2 block of solid tiles, no corridor tile joined on all four
// sides, every corridor tile connected to both a spawn and a goal, and every
// spawn able to reach a goal.
func (m *Map) Violations() []Violation {
	var out []Violation

	for i := range m.tiles {
		t := &m.tiles[i]
		p := t.Point()
		if m.onRing(p) && t.state != StateBorder && t.state != StateSpawn && t.state != StateGoal {
			out = append(out, Violation{p, RuleBorder})
		}
		if p.X < m.Width-1 && p.Y < m.Height-1 && t.state.IsSolid() {
			block := [3]Point{{p.X + 1, p.Y}, {p.X, p.Y + 1}, {p.X + 1, p.Y + 1}}
			if m.solidAt(block[0]) && m.solidAt(block[1]) && m.solidAt(block[2]) {
				out = append(out, Violation{p, RuleCluster})
			}
		}
		if t.state.IsCorridor() && m.corridorDegree(p) > 3 {
			out = append(out, Violation{p, RuleCrossing})
		}
	}

	// Corridor tiles sharing a component with at least one spawn and one goal.
	served := mapset.New[Point]()
	pr := m.pathRange()
	seen := mapset.New[Point]()
	for _, s := range m.spawns {
		if seen.Has(s) {
			continue
		}
		component := pr.CCMap(&corridorPath{m: m}, toGruid(s))
		members := mapset.New[Point]()
		for _, q := range component {
			members.Put(fromGruid(q))
		}
		hasGoal := false
		for _, g := range m.goals {
			if members.Has(g) {
				hasGoal = true
				break
			}
		}
		members.Each(func(q Point) {
			seen.Put(q)
			if hasGoal {
				served.Put(q)
			}
		})
		if !hasGoal {
			out = append(out, Violation{s, RuleStranded})
		}
	}

	for i := range m.tiles {
		t := &m.tiles[i]
		if t.state.IsCorridor() && t.state != StateSpawn && !served.Has(t.Point()) {
			out = append(out, Violation{t.Point(), RuleOrphan})
		}
	}
	return out
}

// Validate returns nil when the grid satisfies every structural rule, and an
// error listing the violations otherwise. Cluster and border violations are
// reported as ErrInvalidState, connectivity ones as ErrDisconnected.
func (m *Map) Validate() error {
	var errs []error
	for _, v := range m.Violations() {
		switch v.Rule {
		case RuleOrphan, RuleStranded:
			errs = append(errs, fmt.Errorf("%w: %s", ErrDisconnected, v))
		default:
			errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidState, v))
		}
	}
	return errors.Join(errs...)
}
