package mapgen

import (
	"context"
	"errors"
	"testing"
)

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want error
	}{
		{"nil", nil, ErrInvalidSize},
		{"narrow", DefaultConfig(9, 20, 3), ErrInvalidSize},
		{"short", DefaultConfig(20, 4, 3), ErrInvalidSize},
		{"easy", DefaultConfig(20, 20, 0), ErrInvalidDifficulty},
		{"hard", DefaultConfig(20, 20, 6), ErrInvalidDifficulty},
		{"huge", DefaultConfig(300, 20, 3), ErrInvalidSize},
	}

	for _, tc := range tests {
		if _, err := New(tc.cfg); !errors.Is(err, tc.want) {
			t.Errorf("%s: New() error = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestNewStampsBorder(t *testing.T) {
	m := mustMap(t, 30, 20, 3, 7)

	if len(m.Tiles()) != 30*20 {
		t.Fatalf("len(Tiles()) = %d, want %d", len(m.Tiles()), 30*20)
	}
	for _, tile := range m.Tiles() {
		onRing := tile.X == 0 || tile.Y == 0 || tile.X == 29 || tile.Y == 19
		if onRing != (tile.State() == StateBorder) {
			t.Errorf("tile %s state %s, on ring = %v", tile.Point(), tile.State(), onRing)
		}
	}
}

func TestNewPlacesOppositePair(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		m := mustMap(t, 30, 20, 3, seed)

		spawns, goals := m.Spawns(), m.Goals()
		if len(spawns) != 1 || len(goals) != 1 {
			t.Fatalf("seed %d: %d spawns and %d goals, want 1 and 1", seed, len(spawns), len(goals))
		}
		s, g := spawns[0], goals[0]
		if m.Tile(s).State() != StateSpawn || m.Tile(g).State() != StateGoal {
			t.Errorf("seed %d: spawn %s is %s, goal %s is %s", seed, s, m.Tile(s).State(), g, m.Tile(g).State())
		}
		if !m.interior(s) || !m.interior(g) {
			t.Errorf("seed %d: spawn %s or goal %s outside the placement area", seed, s, g)
		}

		// One coordinate sits in the near band and the other in the far band.
		near := func(v int) bool { return v >= 2 && v <= 4 }
		farX := func(v int) bool { return v >= 30-5 && v <= 30-3 }
		farY := func(v int) bool { return v >= 20-5 && v <= 20-3 }
		horizontal := (near(s.X) && farX(g.X)) || (near(g.X) && farX(s.X))
		vertical := (near(s.Y) && farY(g.Y)) || (near(g.Y) && farY(s.Y))
		if !horizontal && !vertical {
			t.Errorf("seed %d: spawn %s and goal %s are not on opposite sides", seed, s, g)
		}
	}
}

func TestNewBlankHasNoSpecialPoints(t *testing.T) {
	m, err := NewBlank(DefaultConfig(12, 12, 5))
	if err != nil {
		t.Fatalf("NewBlank() error = %v", err)
	}
	if len(m.Spawns()) != 0 || len(m.Goals()) != 0 {
		t.Errorf("NewBlank() placed %d spawns and %d goals", len(m.Spawns()), len(m.Goals()))
	}
	if _, err := m.CarvePrimaryPath(context.Background()); !errors.Is(err, ErrNoSpecialPoints) {
		t.Errorf("CarvePrimaryPath() error = %v, want ErrNoSpecialPoints", err)
	}
}

func TestPlaceSpecialPoint(t *testing.T) {
	m, err := NewBlank(DefaultConfig(12, 12, 5))
	if err != nil {
		t.Fatalf("NewBlank() error = %v", err)
	}

	if err := m.PlaceSpecialPoint(KindSpawn, Point{3, 3}); err != nil {
		t.Fatalf("PlaceSpecialPoint(spawn) error = %v", err)
	}
	if err := m.PlaceSpecialPoint(KindGoal, Point{8, 8}); err != nil {
		t.Fatalf("PlaceSpecialPoint(goal) error = %v", err)
	}

	tests := []struct {
		p    Point
		want error
	}{
		{Point{3, 3}, ErrOccupied},
		{Point{0, 5}, ErrOutOfBounds},
		{Point{1, 5}, ErrOutOfBounds},
		{Point{12, 5}, ErrOutOfBounds},
	}
	for _, tc := range tests {
		if err := m.PlaceSpecialPoint(KindGoal, tc.p); !errors.Is(err, tc.want) {
			t.Errorf("PlaceSpecialPoint(%s) error = %v, want %v", tc.p, err, tc.want)
		}
	}

	if got := m.Spawns(); len(got) != 1 || got[0] != (Point{3, 3}) {
		t.Errorf("Spawns() = %v, want [(3,3)]", got)
	}
	if got := m.Goals(); len(got) != 1 || got[0] != (Point{8, 8}) {
		t.Errorf("Goals() = %v, want [(8,8)]", got)
	}
}

func TestSpawnsReturnsCopy(t *testing.T) {
	m := mustMap(t, 20, 20, 3, 3)
	spawns := m.Spawns()
	spawns[0] = Point{-1, -1}
	if m.Spawns()[0] == (Point{-1, -1}) {
		t.Error("Spawns() exposes the internal slice")
	}
}

func TestTileOutsideGrid(t *testing.T) {
	m := mustMap(t, 20, 20, 3, 3)
	for _, p := range []Point{{-1, 0}, {0, -1}, {20, 0}, {0, 20}} {
		if m.Tile(p) != nil {
			t.Errorf("Tile(%s) != nil", p)
		}
		if m.In(p) {
			t.Errorf("In(%s) = true", p)
		}
	}
}

func TestRegenerate(t *testing.T) {
	m := mustMap(t, 30, 20, 3, 11)
	ctx := context.Background()
	if _, err := m.CarvePrimaryPath(ctx); err != nil {
		t.Fatalf("CarvePrimaryPath() error = %v", err)
	}

	m.Regenerate(ctx)

	paths := 0
	for _, tile := range m.Tiles() {
		if tile.State() == StatePath {
			paths++
		}
	}
	if paths != 0 {
		t.Errorf("Regenerate() left %d path tiles", paths)
	}
	if len(m.Spawns()) != 1 || len(m.Goals()) != 1 {
		t.Errorf("Regenerate() placed %d spawns and %d goals, want 1 and 1", len(m.Spawns()), len(m.Goals()))
	}
}

func TestZeroLimitsUseDefaults(t *testing.T) {
	m, err := New(&Config{Width: 20, Height: 20, Difficulty: 2, Seed: 5})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got := m.Config()
	if got.EdgeOffset != defaultEdgeOffset || got.MaxCarveAttempts != defaultMaxCarveAttempts {
		t.Errorf("Config() = %+v, want defaults filled", got)
	}
	if got.Seed != 5 {
		t.Errorf("Config().Seed = %d, want 5", got.Seed)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		state State
	}{
		{"spawn", KindSpawn, StateSpawn},
		{"goal", KindGoal, StateGoal},
	}

	for _, tc := range tests {
		k, err := ParseKind(tc.name)
		if err != nil || k != tc.kind {
			t.Errorf("ParseKind(%q) = %v, %v, want %v", tc.name, k, err, tc.kind)
		}
		if k.String() != tc.name || k.State() != tc.state {
			t.Errorf("%v: String() = %q State() = %s", k, k.String(), k.State())
		}
	}

	if _, err := ParseKind("tower"); err == nil {
		t.Error("ParseKind(tower) succeeded")
	}
}
