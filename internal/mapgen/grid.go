package mapgen

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lawnchairsociety/steamtunnels/internal/logger"
	"github.com/lawnchairsociety/steamtunnels/internal/telemetry"
)

// Kind selects which special point an operation places.
type Kind int

const (
	KindSpawn Kind = iota
	KindGoal
)

func (k Kind) String() string {
	if k == KindGoal {
		return "goal"
	}
	return "spawn"
}

// State returns the tile state a point of this kind is stamped with.
func (k Kind) State() State {
	if k == KindGoal {
		return StateGoal
	}
	return StateSpawn
}

// ParseKind converts "spawn" or "goal" to a Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "spawn":
		return KindSpawn, nil
	case "goal":
		return KindGoal, nil
	}
	return KindSpawn, fmt.Errorf("%w: unknown special point kind %q", ErrInvalidState, name)
}

// Map is a rectangular grid of tiles together with the ordered spawn and goal
// lists. The first spawn and the first goal are the primary pair.
type Map struct {
	Width      int
	Height     int
	Difficulty int
	Seed       int64

	cfg    Config
	band   Band
	tiles  []Tile // row-major
	spawns []Point
	goals  []Point
	rng    *rand.Rand
	tracer trace.Tracer
}

// New creates a map, stamps its border and places the first spawn and goal
// on opposite sides. No corridor is carved yet.
func New(cfg *Config) (*Map, error) {
	m, err := NewBlank(cfg)
	if err != nil {
		return nil, err
	}
	m.placeOppositePair()
	return m, nil
}

// NewBlank creates a bordered map with no spawn or goal.
func NewBlank(cfg *Config) (*Map, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidSize)
	}
	c := cfg.withDefaults()

	band, err := BandFor(c.Difficulty)
	if err != nil {
		return nil, err
	}
	if least := c.MinSize(); c.Width < least || c.Height < least {
		return nil, fmt.Errorf("%w: %dx%d is smaller than %dx%d", ErrInvalidSize, c.Width, c.Height, least, least)
	}
	if c.Width > c.MaxSize || c.Height > c.MaxSize {
		return nil, fmt.Errorf("%w: %dx%d is larger than %dx%d", ErrInvalidSize, c.Width, c.Height, c.MaxSize, c.MaxSize)
	}

	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	m := &Map{
		Width:      c.Width,
		Height:     c.Height,
		Difficulty: c.Difficulty,
		Seed:       seed,
		cfg:        c,
		band:       band,
		rng:        rand.New(rand.NewSource(seed)),
		tracer:     telemetry.Tracer("mapgen"),
	}
	m.tiles = newTiles(m.Width, m.Height)
	m.stampBorder()
	return m, nil
}

func newTiles(width, height int) []Tile {
	tiles := make([]Tile, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			tiles[y*width+x] = Tile{X: x, Y: y}
		}
	}
	return tiles
}

// Band returns the difficulty band the map carves with.
func (m *Map) Band() Band {
	return m.band
}

// Config returns a copy of the effective generation parameters.
func (m *Map) Config() Config {
	c := m.cfg
	c.Width, c.Height, c.Seed = m.Width, m.Height, m.Seed
	return c
}

// Rand exposes the map's random source so callers that drive the map (waves,
// routing) stay on a single seeded stream.
func (m *Map) Rand() *rand.Rand {
	return m.rng
}

// In reports whether p lies inside the grid.
func (m *Map) In(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.Width && p.Y < m.Height
}

func (m *Map) index(p Point) int {
	return p.Y*m.Width + p.X
}

func (m *Map) pointAt(i int) Point {
	return Point{i % m.Width, i / m.Width}
}

// Tile returns the tile at p, or nil when p is outside the grid.
func (m *Map) Tile(p Point) *Tile {
	if !m.In(p) {
		return nil
	}
	return &m.tiles[m.index(p)]
}

// Tiles returns the tiles in row-major order. The slice aliases the grid.
func (m *Map) Tiles() []Tile {
	return m.tiles
}

// stateAt treats everything outside the grid as border.
func (m *Map) stateAt(p Point) State {
	if !m.In(p) {
		return StateBorder
	}
	return m.tiles[m.index(p)].state
}

func (m *Map) walkable(p Point) bool {
	return m.stateAt(p).IsCorridor()
}

// Spawns returns the spawn points in placement order.
func (m *Map) Spawns() []Point {
	return append([]Point(nil), m.spawns...)
}

// Goals returns the goal points in placement order.
func (m *Map) Goals() []Point {
	return append([]Point(nil), m.goals...)
}

func (m *Map) onRing(p Point) bool {
	return p.X == 0 || p.Y == 0 || p.X == m.Width-1 || p.Y == m.Height-1
}

// interior reports whether p lies inside the placement area kept EdgeOffset
// away from the outer edge.
func (m *Map) interior(p Point) bool {
	eo := m.cfg.EdgeOffset
	return p.X >= eo && p.Y >= eo && p.X <= m.Width-1-eo && p.Y <= m.Height-1-eo
}

// stampBorder marks the outermost ring. Spawns and goals keep their state.
func (m *Map) stampBorder() {
	for i := range m.tiles {
		t := &m.tiles[i]
		if !m.onRing(t.Point()) {
			continue
		}
		if t.state == StateSpawn || t.state == StateGoal {
			continue
		}
		t.SetState(StateBorder)
	}
}

// restampSpecialPoints reapplies spawn and goal states from the lists.
func (m *Map) restampSpecialPoints() {
	for _, p := range m.spawns {
		m.tiles[m.index(p)].SetState(StateSpawn)
	}
	for _, p := range m.goals {
		m.tiles[m.index(p)].SetState(StateGoal)
	}
}

// PlaceSpecialPoint stamps a spawn or goal on an empty tile inside the
// placement area and appends it to the matching list.
func (m *Map) PlaceSpecialPoint(kind Kind, p Point) error {
	if !m.In(p) || !m.interior(p) {
		return fmt.Errorf("%w: %s %s", ErrOutOfBounds, kind, p)
	}
	if s := m.stateAt(p); s != StateEmpty {
		return fmt.Errorf("%w: %s at %s is %s", ErrOccupied, kind, p, s)
	}
	m.addSpecialPoint(kind, p)
	m.ComputeBitmasks()
	return nil
}

func (m *Map) addSpecialPoint(kind Kind, p Point) {
	m.tiles[m.index(p)].SetState(kind.State())
	if kind == KindGoal {
		m.goals = append(m.goals, p)
	} else {
		m.spawns = append(m.spawns, p)
	}
}

// placeOppositePair places the first spawn and goal near opposite edges.
func (m *Map) placeOppositePair() {
	horizontal := m.rng.Intn(2) == 0
	spawnNear := m.rng.Intn(2) == 0

	var near, far Point
	if horizontal {
		near = Point{m.bandCoord(m.Width, false), m.spanCoord(m.Height)}
		far = Point{m.bandCoord(m.Width, true), m.spanCoord(m.Height)}
	} else {
		near = Point{m.spanCoord(m.Width), m.bandCoord(m.Height, false)}
		far = Point{m.spanCoord(m.Width), m.bandCoord(m.Height, true)}
	}

	spawn, goal := far, near
	if spawnNear {
		spawn, goal = near, far
	}
	m.addSpecialPoint(KindSpawn, spawn)
	m.addSpecialPoint(KindGoal, goal)
	m.ComputeBitmasks()

	logger.Debug("Placed primary pair", "spawn", spawn.String(), "goal", goal.String(), "horizontal", horizontal)
}

// bandCoord draws a coordinate within placementBandDepth cells of the
// placement area's near or far edge.
func (m *Map) bandCoord(size int, far bool) int {
	depth := m.cfg.EdgeOffset + m.rng.Intn(placementBandDepth)
	if far {
		return size - 1 - depth
	}
	return depth
}

// spanCoord draws a coordinate anywhere across the placement area.
func (m *Map) spanCoord(size int) int {
	lo := m.cfg.EdgeOffset
	hi := size - 1 - m.cfg.EdgeOffset
	return lo + m.rng.Intn(hi-lo+1)
}

// Regenerate discards the grid and builds a fresh one of the same size with a
// new primary pair. The random stream continues, so successive maps differ.
func (m *Map) Regenerate(ctx context.Context) {
	_, span := m.tracer.Start(ctx, "mapgen.regenerate")
	defer span.End()

	m.tiles = newTiles(m.Width, m.Height)
	m.spawns = nil
	m.goals = nil
	m.stampBorder()
	m.placeOppositePair()

	span.SetAttributes(
		attribute.Int("map.width", m.Width),
		attribute.Int("map.height", m.Height),
	)
}

// Generate regenerates the grid and carves the primary corridor.
func (m *Map) Generate(ctx context.Context) ([]Point, error) {
	m.Regenerate(ctx)
	return m.CarvePrimaryPath(ctx)
}
