package wave

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lawnchairsociety/steamtunnels/internal/mapgen"
)

func newGeneratedMap(t *testing.T, size, difficulty int, seed int64) *mapgen.Map {
	t.Helper()
	cfg := mapgen.DefaultConfig(size, size, difficulty)
	cfg.Seed = seed
	m, err := mapgen.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.CarvePrimaryPath(t.Context()); err != nil {
		t.Fatalf("CarvePrimaryPath: %v", err)
	}
	return m
}

func TestScheduleDefaults(t *testing.T) {
	s := DefaultSchedule()

	tests := []struct {
		wave                int
		expand, spawn, goal bool
	}{
		{1, false, false, false},
		{2, false, false, false},
		{4, false, true, false},
		{5, true, false, false},
		{6, false, false, true},
		{8, false, true, false},
		{10, true, false, false},
		{12, false, true, true},
		{20, true, true, false},
		{60, true, true, true},
	}

	for _, tt := range tests {
		if got := s.ShouldExpand(tt.wave); got != tt.expand {
			t.Errorf("ShouldExpand(%d) = %v, want %v", tt.wave, got, tt.expand)
		}
		if got := s.ShouldAddSpawn(tt.wave); got != tt.spawn {
			t.Errorf("ShouldAddSpawn(%d) = %v, want %v", tt.wave, got, tt.spawn)
		}
		if got := s.ShouldAddGoal(tt.wave); got != tt.goal {
			t.Errorf("ShouldAddGoal(%d) = %v, want %v", tt.wave, got, tt.goal)
		}
	}
}

func TestScheduleNeverChangesWaveOne(t *testing.T) {
	s := Schedule{ExpandEvery: 1, SpawnEvery: 1, GoalEvery: 1}
	if s.ShouldExpand(1) || s.ShouldAddSpawn(1) || s.ShouldAddGoal(1) {
		t.Error("wave 1 must not change the map")
	}
	if !s.ShouldExpand(2) {
		t.Error("interval 1 should fire on wave 2")
	}
}

func TestScheduleZeroDisables(t *testing.T) {
	var s Schedule
	for wave := 1; wave <= 30; wave++ {
		if s.ShouldExpand(wave) || s.ShouldAddSpawn(wave) || s.ShouldAddGoal(wave) {
			t.Fatalf("zero schedule fired on wave %d", wave)
		}
	}
}

func TestPaceFor(t *testing.T) {
	tests := []struct {
		wave     int
		enemies  int
		interval time.Duration
		speed    float64
	}{
		{1, 12, 1450 * time.Millisecond, 32},
		{10, 38, 1000 * time.Millisecond, 50},
		{40, 122, 200 * time.Millisecond, 110},
	}

	for _, tt := range tests {
		p := PaceFor(tt.wave)
		if p.Enemies != tt.enemies {
			t.Errorf("PaceFor(%d).Enemies = %d, want %d", tt.wave, p.Enemies, tt.enemies)
		}
		if diff := p.SpawnInterval - tt.interval; diff > time.Millisecond || diff < -time.Millisecond {
			t.Errorf("PaceFor(%d).SpawnInterval = %v, want %v", tt.wave, p.SpawnInterval, tt.interval)
		}
		if p.Speed != tt.speed {
			t.Errorf("PaceFor(%d).Speed = %v, want %v", tt.wave, p.Speed, tt.speed)
		}
	}
}

func TestDirectorAdvance(t *testing.T) {
	m := newGeneratedMap(t, 24, 5, 11)
	d := NewDirector(m, DefaultSchedule())

	changes, err := d.Run(t.Context(), 6)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(changes) != 6 || d.Wave() != 6 {
		t.Fatalf("expected 6 waves, got %d (director at %d)", len(changes), d.Wave())
	}

	for _, c := range changes[:3] {
		if c.Changed() || len(c.Failures) > 0 {
			t.Errorf("wave %d should not touch the map: %s", c.Wave, c)
		}
	}

	spawnWave := changes[3]
	if spawnWave.Spawn == nil && len(spawnWave.Failures) == 0 {
		t.Errorf("wave 4 should add a spawn or report why not: %s", spawnWave)
	}

	expandWave := changes[4]
	if !expandWave.Expanded {
		t.Errorf("wave 5 should expand: %s", expandWave)
	}
	if m.Width != 30 || m.Height != 30 {
		t.Errorf("map is %dx%d after expansion, want 30x30", m.Width, m.Height)
	}

	goalWave := changes[5]
	if goalWave.Goal == nil && len(goalWave.Failures) == 0 {
		t.Errorf("wave 6 should add a goal or report why not: %s", goalWave)
	}
	if goalWave.Digest != m.Digest() {
		t.Error("report digest does not match the map")
	}

	// Whatever was added must be wired into the network.
	if err := m.Validate(); err != nil {
		t.Errorf("map invalid after waves: %v", err)
	}
}

func TestDirectorAdvanceReportsFailures(t *testing.T) {
	m := newGeneratedMap(t, 12, 5, 3)
	d := NewDirector(m, Schedule{SpawnEvery: 2, ExpandEvery: 2, ExpandWidth: -1})

	d.Advance(t.Context())
	c, err := d.Advance(t.Context())
	if err != nil {
		t.Fatalf("Advance returned error for a non-fatal failure: %v", err)
	}
	if c.Expanded {
		t.Error("negative expansion should fail")
	}
	if len(c.Failures) == 0 {
		t.Fatal("expected the failed expansion to be reported")
	}
	if !errors.Is(c.Failures[0], mapgen.ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", c.Failures[0])
	}
}

func TestDirectorStopsGrowingAtMaxSize(t *testing.T) {
	cfg := mapgen.DefaultConfig(16, 16, 5)
	cfg.Seed = 9
	cfg.MaxSize = 28
	m, err := mapgen.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := m.CarvePrimaryPath(t.Context()); err != nil {
		t.Fatalf("CarvePrimaryPath: %v", err)
	}
	d := NewDirector(m, Schedule{ExpandEvery: 2, ExpandWidth: 6, ExpandHeight: 6})

	changes, err := d.Run(t.Context(), 8)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Width != 28 || m.Height != 28 {
		t.Errorf("map is %dx%d, want 28x28", m.Width, m.Height)
	}
	last := changes[len(changes)-1]
	if last.Expanded || len(last.Failures) == 0 || !errors.Is(last.Failures[0], mapgen.ErrInvalidSize) {
		t.Errorf("wave %d: expanded=%v failures=%v, want an ErrInvalidSize failure", last.Wave, last.Expanded, last.Failures)
	}
}

func TestDirectorAdvanceCancelled(t *testing.T) {
	m := newGeneratedMap(t, 16, 5, 5)
	d := NewDirector(m, Schedule{SpawnEvery: 1})
	d.Advance(t.Context())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := d.Advance(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestChangesString(t *testing.T) {
	p := mapgen.Point{X: 3, Y: 4}
	c := Changes{Wave: 4, Spawn: &p}
	if got := c.String(); got != "wave 4: spawn@"+p.String() {
		t.Errorf("String() = %q", got)
	}
	if got := (Changes{Wave: 2}).String(); got != "wave 2: no changes" {
		t.Errorf("String() = %q", got)
	}
}
