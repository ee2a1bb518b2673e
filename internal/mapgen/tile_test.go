package mapgen

import (
	"errors"
	"testing"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateEmpty, "empty"},
		{StatePath, "path"},
		{StateSpawn, "spawn"},
		{StateGoal, "goal"},
		{StateBorder, "border"},
		{State(99), "unknown"},
	}

	for _, tc := range tests {
		if got := tc.s.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", tc.s, got, tc.want)
		}
	}
}

func TestParseState(t *testing.T) {
	for _, s := range []State{StateEmpty, StatePath, StateSpawn, StateGoal, StateBorder} {
		got, err := ParseState(s.String())
		if err != nil {
			t.Errorf("ParseState(%q) error = %v", s, err)
			continue
		}
		if got != s {
			t.Errorf("ParseState(%q) = %s, want %s", s, got, s)
		}
	}

	if _, err := ParseState("lava"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ParseState(lava) error = %v, want ErrInvalidState", err)
	}
}

func TestStateClassification(t *testing.T) {
	tests := []struct {
		s        State
		corridor bool
		solid    bool
		color    int
	}{
		{StateEmpty, false, false, 0},
		{StatePath, true, true, 1},
		{StateSpawn, true, true, 2},
		{StateGoal, true, true, 3},
		{StateBorder, false, true, 4},
	}

	for _, tc := range tests {
		if got := tc.s.IsCorridor(); got != tc.corridor {
			t.Errorf("%s.IsCorridor() = %v, want %v", tc.s, got, tc.corridor)
		}
		if got := tc.s.IsSolid(); got != tc.solid {
			t.Errorf("%s.IsSolid() = %v, want %v", tc.s, got, tc.solid)
		}
		if got := tc.s.Color(); got != tc.color {
			t.Errorf("%s.Color() = %d, want %d", tc.s, got, tc.color)
		}
	}
}

func TestTileSetState(t *testing.T) {
	tile := &Tile{X: 3, Y: 4}
	tile.SetState(StateGoal)
	if tile.State() != StateGoal {
		t.Errorf("State() = %s, want goal", tile.State())
	}

	tile.Mask = 5
	tile.ClearState()
	if tile.State() != StateEmpty || tile.Mask != 0 {
		t.Errorf("after ClearState state = %s mask = %d, want empty 0", tile.State(), tile.Mask)
	}
}

func TestTileSetInvalidStatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("SetState(99) did not panic")
		}
	}()

	tile := &Tile{}
	tile.SetState(State(99))
}

func TestTileTrySetState(t *testing.T) {
	tile := &Tile{}
	if err := tile.trySetState(State(-1)); !errors.Is(err, ErrInvalidState) {
		t.Errorf("trySetState(-1) error = %v, want ErrInvalidState", err)
	}
	if tile.State() != StateEmpty {
		t.Errorf("state changed to %s after rejected set", tile.State())
	}
}

func TestDirectionOpposite(t *testing.T) {
	tests := []struct {
		d    Direction
		want Direction
	}{
		{North, South},
		{South, North},
		{East, West},
		{West, East},
	}

	for _, tc := range tests {
		if got := tc.d.Opposite(); got != tc.want {
			t.Errorf("%s.Opposite() = %s, want %s", tc.d, got, tc.want)
		}
	}
}

func TestDirectionBit(t *testing.T) {
	tests := []struct {
		d    Direction
		want Bitmask
	}{
		{North, 1},
		{East, 2},
		{South, 4},
		{West, 8},
	}

	for _, tc := range tests {
		if got := tc.d.Bit(); got != tc.want {
			t.Errorf("%s.Bit() = %d, want %d", tc.d, got, tc.want)
		}
	}

	mask := North.Bit() | West.Bit()
	if !mask.Has(North) || !mask.Has(West) || mask.Has(East) || mask.Has(South) {
		t.Errorf("Bitmask(%d).Has reported wrong neighbours", mask)
	}
}

func TestPointStep(t *testing.T) {
	p := Point{5, 5}
	tests := []struct {
		d    Direction
		want Point
	}{
		{North, Point{5, 4}},
		{East, Point{6, 5}},
		{South, Point{5, 6}},
		{West, Point{4, 5}},
	}

	for _, tc := range tests {
		if got := p.Step(tc.d); got != tc.want {
			t.Errorf("%s.Step(%s) = %s, want %s", p, tc.d, got, tc.want)
		}
		if back := p.Step(tc.d).Step(tc.d.Opposite()); back != p {
			t.Errorf("step %s and back = %s, want %s", tc.d, back, p)
		}
	}
}

func TestCellDistance(t *testing.T) {
	tests := []struct {
		a, b Point
		want int
	}{
		{Point{0, 0}, Point{0, 0}, 1},
		{Point{0, 0}, Point{1, 0}, 2},
		{Point{2, 2}, Point{7, 7}, 11},
		{Point{7, 7}, Point{2, 2}, 11},
		{Point{3, 9}, Point{3, 1}, 9},
	}

	for _, tc := range tests {
		if got := tc.a.CellDistance(tc.b); got != tc.want {
			t.Errorf("%s.CellDistance(%s) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}

	a := &Tile{X: 2, Y: 2}
	b := &Tile{X: 7, Y: 7}
	if got := a.ManhattanDistanceTo(b); got != 11 {
		t.Errorf("ManhattanDistanceTo() = %d, want 11", got)
	}
}
