package mapgen

import (
	"context"
	"errors"
	"testing"

	"github.com/zyedidia/generic/mapset"
)

func TestCarvePrimaryPath(t *testing.T) {
	for difficulty := MinDifficulty; difficulty <= MaxDifficulty; difficulty++ {
		m := mustMap(t, 30, 20, difficulty, int64(100+difficulty))
		spawn, goal := m.Spawns()[0], m.Goals()[0]

		path, err := m.CarvePrimaryPath(context.Background())
		if err != nil {
			t.Fatalf("difficulty %d: CarvePrimaryPath() error = %v", difficulty, err)
		}

		checkCorridor(t, path, spawn, goal)
		checkStructure(t, m, 0)

		if m.Tile(spawn).State() != StateSpawn || m.Tile(goal).State() != StateGoal {
			t.Errorf("difficulty %d: carving overwrote the spawn or goal", difficulty)
		}
		for _, p := range path[1 : len(path)-1] {
			if m.Tile(p).State() != StatePath {
				t.Errorf("difficulty %d: corridor tile %s is %s", difficulty, p, m.Tile(p).State())
			}
		}
		if bfs := m.ShortestWalkablePath(spawn, goal); bfs == nil {
			t.Errorf("difficulty %d: spawn and goal are not connected", difficulty)
		}
	}
}

// Scenario: a fresh 20x15 map at difficulty 3 carves a connected, width-one
// corridor between its opposite-side spawn and goal.
func TestCarveSmallMapMediumDifficulty(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		m := mustMap(t, 20, 15, 3, seed)
		spawn, goal := m.Spawns()[0], m.Goals()[0]

		path, err := m.CarvePrimaryPath(context.Background())
		if err != nil {
			t.Fatalf("seed %d: CarvePrimaryPath() error = %v", seed, err)
		}
		checkCorridor(t, path, spawn, goal)
		checkStructure(t, m, 0)

		if len(path) < spawn.CellDistance(goal) {
			t.Errorf("seed %d: corridor has %d cells, shorter than the straight %d", seed, len(path), spawn.CellDistance(goal))
		}
		if bfs := m.ShortestWalkablePath(spawn, goal); bfs == nil {
			t.Errorf("seed %d: spawn and goal are not connected", seed)
		}
	}
}

func TestRecarvePrimaryPath(t *testing.T) {
	m := mustMap(t, 24, 24, 4, 21)
	spawn, goal := m.Spawns()[0], m.Goals()[0]
	if _, err := m.CarvePrimaryPath(context.Background()); err != nil {
		t.Fatalf("CarvePrimaryPath() error = %v", err)
	}
	// A failed placement leaves the map unchanged, which is fine here.
	m.AddSpecialPoint(context.Background(), KindSpawn)

	path, err := m.RecarvePrimaryPath(context.Background())
	if err != nil {
		t.Fatalf("RecarvePrimaryPath() error = %v", err)
	}
	checkCorridor(t, path, spawn, goal)
	checkStructure(t, m, 0)

	if len(m.Spawns()) != 1 || len(m.Goals()) != 1 {
		t.Errorf("expected only the primary pair, got %d spawns and %d goals", len(m.Spawns()), len(m.Goals()))
	}
	corridor := 0
	for _, tile := range m.Tiles() {
		if tile.State().IsCorridor() {
			corridor++
		}
	}
	if corridor != len(path) {
		t.Errorf("%d corridor tiles on the map, want %d", corridor, len(path))
	}
}

// Scenario: 10x10 map, difficulty 5, spawn (2,2), goal (7,7).
func TestCarveEasyWindow(t *testing.T) {
	cfg := DefaultConfig(10, 10, 5)
	cfg.Seed = 42
	m, err := NewBlank(cfg)
	if err != nil {
		t.Fatalf("NewBlank() error = %v", err)
	}
	spawn, goal := Point{2, 2}, Point{7, 7}
	if err := m.PlaceSpecialPoint(KindSpawn, spawn); err != nil {
		t.Fatalf("PlaceSpecialPoint(spawn) error = %v", err)
	}
	if err := m.PlaceSpecialPoint(KindGoal, goal); err != nil {
		t.Fatalf("PlaceSpecialPoint(goal) error = %v", err)
	}

	path, err := m.CarvePrimaryPath(context.Background())
	if err != nil {
		t.Fatalf("CarvePrimaryPath() error = %v", err)
	}

	checkCorridor(t, path, spawn, goal)
	if len(path) < 11 || len(path) > 13 {
		t.Errorf("len(path) = %d, want 11..13", len(path))
	}
	checkStructure(t, m, 0)
}

func TestCarveLengthWithinWindow(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		m := mustMap(t, 40, 30, 3, seed)
		spawn, goal := m.Spawns()[0], m.Goals()[0]
		cells := spawn.CellDistance(goal)

		path, attempts, err := m.searchCorridor(context.Background(), spawn, goal)
		if err != nil {
			t.Fatalf("seed %d: searchCorridor() error = %v", seed, err)
		}

		lo, hi := m.Band().Window(cells)
		lo, hi = relaxWindow(lo, hi, cells, (attempts-1)/m.Config().RelaxAfter)
		if len(path) < lo || len(path) > hi {
			t.Errorf("seed %d: len(path) = %d after %d attempts, want %d..%d", seed, len(path), attempts, lo, hi)
		}
	}
}

func TestCarveDeterministic(t *testing.T) {
	ctx := context.Background()
	a := mustMap(t, 30, 20, 2, 1234)
	b := mustMap(t, 30, 20, 2, 1234)

	pa, err := a.CarvePrimaryPath(ctx)
	if err != nil {
		t.Fatalf("CarvePrimaryPath() error = %v", err)
	}
	pb, err := b.CarvePrimaryPath(ctx)
	if err != nil {
		t.Fatalf("CarvePrimaryPath() error = %v", err)
	}

	if len(pa) != len(pb) {
		t.Fatalf("same seed produced lengths %d and %d", len(pa), len(pb))
	}
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("same seed diverged at step %d: %s vs %s", i, pa[i], pb[i])
		}
	}
	if a.Digest() != b.Digest() {
		t.Error("same seed produced different digests")
	}
}

func TestCarveWalledOffGoal(t *testing.T) {
	m := mustRows(t,
		"##########",
		"#........#",
		"#.S......#",
		"#........#",
		"#....+++.#",
		"#....+G+.#",
		"#....+++.#",
		"#........#",
		"#........#",
		"##########",
	)
	before := m.Digest()

	_, err := m.CarvePath(context.Background(), Point{2, 2}, Point{6, 5})
	if !errors.Is(err, ErrUngeneratable) {
		t.Fatalf("CarvePath() error = %v, want ErrUngeneratable", err)
	}
	if m.Digest() != before {
		t.Error("failed carve modified the grid")
	}
}

func TestCarveRejectsBadEndpoints(t *testing.T) {
	m := mustMap(t, 20, 20, 3, 9)
	ctx := context.Background()

	if _, err := m.CarvePath(ctx, Point{-1, 3}, Point{5, 5}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("CarvePath(out of bounds) error = %v, want ErrOutOfBounds", err)
	}
	if _, err := m.CarvePath(ctx, Point{5, 5}, Point{5, 5}); !errors.Is(err, ErrUngeneratable) {
		t.Errorf("CarvePath(same point) error = %v, want ErrUngeneratable", err)
	}
}

func TestCarverRejectsHugging(t *testing.T) {
	m := mustRows(t,
		"##########",
		"#........#",
		"#.S......#",
		"#........#",
		"#..+++++.#",
		"#........#",
		"#......G.#",
		"#........#",
		"#........#",
		"##########",
	)
	c := newCarver(m, Point{2, 2}, Point{7, 6})
	c.visited = mapset.New[Point]()
	c.onPath = mapset.New[Point]()

	// Any tile directly above or below the existing corridor would widen it.
	for x := 3; x <= 7; x++ {
		for _, y := range []int{3, 5} {
			p := Point{x, y}
			if c.accept(p, Point{x - 1, y}, 2) {
				t.Errorf("accept(%s) = true next to an existing corridor", p)
			}
		}
	}
}

func TestCarverPrunesLongDetours(t *testing.T) {
	m, err := NewBlank(DefaultConfig(20, 20, 5))
	if err != nil {
		t.Fatalf("NewBlank() error = %v", err)
	}
	c := newCarver(m, Point{3, 3}, Point{3, 8})
	c.within(6, 8)
	c.visited = mapset.New[Point]()
	c.onPath = mapset.New[Point]()

	tests := []struct {
		n      Point
		length int
		want   bool
	}{
		{Point{3, 4}, 2, true},
		{Point{3, 8}, 6, true},  // goal inside the window
		{Point{3, 8}, 5, false}, // goal reached too early
		{Point{3, 8}, 9, false},
		{Point{9, 4}, 4, false}, // cannot come back in time
	}

	for _, tc := range tests {
		if got := c.accept(tc.n, tc.n.Step(North), tc.length); got != tc.want {
			t.Errorf("accept(%s, length %d) = %v, want %v", tc.n, tc.length, got, tc.want)
		}
	}
}

func TestClusters(t *testing.T) {
	m := mustRows(t,
		"##########",
		"#........#",
		"#.++.....#",
		"#.+......#",
		"#........#",
		"#........#",
		"#........#",
		"#........#",
		"#........#",
		"##########",
	)

	tests := []struct {
		p    Point
		want bool
	}{
		{Point{3, 3}, true},  // completes the block with (2,2) (3,2) (2,3)
		{Point{4, 3}, false}, // only (3,2) is solid
		{Point{1, 1}, true},  // border corner
		{Point{5, 5}, false},
	}

	for _, tc := range tests {
		if got := m.clusters(tc.p, m.solidAt); got != tc.want {
			t.Errorf("clusters(%s) = %v, want %v", tc.p, got, tc.want)
		}
	}
}
