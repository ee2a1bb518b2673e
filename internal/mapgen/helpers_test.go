package mapgen

import "testing"

// ringMap is a 10x10 map with two equally long routes from S to G.
var ringMap = []string{
	"##########",
	"#........#",
	"#.S++++..#",
	"#.+...+..#",
	"#.+...+..#",
	"#.++++G..#",
	"#........#",
	"#........#",
	"#........#",
	"##########",
}

func mustRows(t *testing.T, rows ...string) *Map {
	t.Helper()
	m, err := FromRows(nil, rows)
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	return m
}

func mustMap(t *testing.T, width, height, difficulty int, seed int64) *Map {
	t.Helper()
	cfg := DefaultConfig(width, height, difficulty)
	cfg.Seed = seed
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New(%dx%d, difficulty %d) error = %v", width, height, difficulty, err)
	}
	return m
}

// checkStructure asserts the rules every generated map must satisfy.
func checkStructure(t *testing.T, m *Map, maxJunctions int) {
	t.Helper()

	for _, v := range m.Violations() {
		t.Errorf("violation: %s", v)
	}

	junctions := 0
	for _, tile := range m.Tiles() {
		if !tile.State().IsCorridor() {
			continue
		}
		n := m.corridorDegree(tile.Point())
		if n > 3 {
			t.Errorf("corridor tile %s has %d corridor neighbours, want at most 3", tile.Point(), n)
		}
		if n > 2 {
			junctions++
		}
	}
	if junctions > maxJunctions {
		t.Errorf("%d tiles have more than two corridor neighbours, want at most %d", junctions, maxJunctions)
	}

	for _, s := range m.Spawns() {
		if len(m.GoalDistances(s)) == 0 {
			t.Errorf("spawn %s reaches no goal", s)
		}
	}
}

// checkCorridor asserts a carved path is a simple orthogonal walk.
func checkCorridor(t *testing.T, path []Point, start, goal Point) {
	t.Helper()

	if len(path) == 0 {
		t.Fatal("empty corridor")
	}
	if path[0] != start || path[len(path)-1] != goal {
		t.Errorf("corridor runs %s to %s, want %s to %s", path[0], path[len(path)-1], start, goal)
	}
	seen := make(map[Point]bool, len(path))
	for i, p := range path {
		if seen[p] {
			t.Errorf("corridor visits %s twice", p)
		}
		seen[p] = true
		if i > 0 && path[i-1].CellDistance(p) != 2 {
			t.Errorf("corridor jumps from %s to %s", path[i-1], p)
		}
	}
	if (len(path)-start.CellDistance(goal))%2 != 0 {
		t.Errorf("corridor length %d has the wrong parity for %d cells", len(path), start.CellDistance(goal))
	}
}
