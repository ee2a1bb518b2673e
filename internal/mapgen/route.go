package mapgen

import (
	"context"
	"fmt"
	"math"

	"github.com/lawnchairsociety/steamtunnels/internal/logger"
)

// goalWeightExponent controls how strongly near goals are favoured.
const goalWeightExponent = 1.5

// PickGoal chooses a goal reachable from spawn, weighting each by
// 1/length^1.5 so nearer goals are picked more often. It returns false when no
// goal is reachable.
func (m *Map) PickGoal(spawn Point) (Point, bool) {
	dist := m.GoalDistances(spawn)
	if len(dist) == 0 {
		return Point{}, false
	}

	reachable := make([]Point, 0, len(dist))
	weights := make([]float64, 0, len(dist))
	total := 0.0
	for _, g := range m.goals {
		d, ok := dist[g]
		if !ok {
			continue
		}
		w := 1 / math.Pow(float64(d), goalWeightExponent)
		reachable = append(reachable, g)
		weights = append(weights, w)
		total += w
	}

	r := m.rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return reachable[i], true
		}
		r -= w
	}
	return reachable[len(reachable)-1], true
}

// Route returns the tile sequence an enemy entering at spawn walks to a
// weighted goal. When the spawn has lost its connection a corridor to the
// first goal is carved again before routing.
func (m *Map) Route(ctx context.Context, spawn Point) ([]Point, error) {
	if len(m.goals) == 0 {
		return nil, ErrNoSpecialPoints
	}
	if !m.In(spawn) {
		return nil, fmt.Errorf("%w: spawn %s", ErrOutOfBounds, spawn)
	}

	goal, ok := m.PickGoal(spawn)
	if !ok {
		goal = m.goals[0]
		logger.Warning("No goal reachable from spawn, carving a new corridor", "spawn", spawn.String(), "goal", goal.String())
		if _, err := m.CarvePath(ctx, spawn, goal); err != nil {
			return nil, err
		}
	}

	path := m.ShortestWalkablePath(spawn, goal)
	if path == nil {
		return nil, fmt.Errorf("%w: %s to %s", ErrDisconnected, spawn, goal)
	}
	return path, nil
}
