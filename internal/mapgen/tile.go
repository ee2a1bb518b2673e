package mapgen

import "fmt"

// State is the semantic state of a single grid cell. States are mutually
// exclusive.
type State int

const (
	StateEmpty State = iota
	StatePath
	StateSpawn
	StateGoal
	StateBorder
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePath:
		return "path"
	case StateSpawn:
		return "spawn"
	case StateGoal:
		return "goal"
	case StateBorder:
		return "border"
	default:
		return "unknown"
	}
}

// ParseState converts a state name back to a State.
func ParseState(name string) (State, error) {
	switch name {
	case "empty", "":
		return StateEmpty, nil
	case "path":
		return StatePath, nil
	case "spawn":
		return StateSpawn, nil
	case "goal":
		return StateGoal, nil
	case "border":
		return StateBorder, nil
	}
	return StateEmpty, fmt.Errorf("%w: %q", ErrInvalidState, name)
}

// Valid reports whether s is one of the enumerated states.
func (s State) Valid() bool {
	return s >= StateEmpty && s <= StateBorder
}

// IsCorridor reports whether the state is walkable (path, spawn or goal).
func (s State) IsCorridor() bool {
	return s == StatePath || s == StateSpawn || s == StateGoal
}

// IsSolid reports whether the state counts toward the 2x2 cluster rule.
func (s State) IsSolid() bool {
	return s.IsCorridor() || s == StateBorder
}

// Color returns the legacy integer colour code of the state. It is derived
// data for renderers and never read back.
func (s State) Color() int {
	switch s {
	case StatePath:
		return 1
	case StateSpawn:
		return 2
	case StateGoal:
		return 3
	case StateBorder:
		return 4
	default:
		return 0
	}
}

// Direction represents a cardinal direction in the grid
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// String returns the string representation of a Direction
func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

// Opposite returns the opposite direction
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case East:
		return West
	case South:
		return North
	case West:
		return East
	default:
		return d
	}
}

// Bit returns the autotile bit for the direction: North=1, East=2, South=4, West=8.
func (d Direction) Bit() Bitmask {
	return Bitmask(1) << uint(d)
}

// AllDirections returns all four cardinal directions
func AllDirections() []Direction {
	return []Direction{North, East, South, West}
}

// Point is an integer grid coordinate.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// Step returns the neighbouring point in the given direction.
func (p Point) Step(d Direction) Point {
	switch d {
	case North:
		return Point{p.X, p.Y - 1}
	case South:
		return Point{p.X, p.Y + 1}
	case East:
		return Point{p.X + 1, p.Y}
	case West:
		return Point{p.X - 1, p.Y}
	}
	return p
}

// CellDistance returns |dx| + |dy| + 1, the number of cells on a straight
// orthogonal walk between p and q including both endpoints.
func (p Point) CellDistance(q Point) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y) + 1
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Bitmask is the 4-bit autotile mask of a corridor tile.
type Bitmask uint8

// Has reports whether the neighbour in direction d is corridor.
func (b Bitmask) Has(d Direction) bool {
	return b&d.Bit() != 0
}

// Tile represents a single cell of the map grid
type Tile struct {
	X, Y  int
	Mask  Bitmask
	state State
}

// State returns the current state of the tile.
func (t *Tile) State() State {
	return t.state
}

// SetState assigns one of the enumerated states. Any other value is a
// programming error and panics.
func (t *Tile) SetState(s State) {
	if err := t.trySetState(s); err != nil {
		panic(fmt.Sprintf("tile %d,%d: %v", t.X, t.Y, err))
	}
}

func (t *Tile) trySetState(s State) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidState, int(s))
	}
	t.state = s
	return nil
}

// ClearState resets the tile to empty.
func (t *Tile) ClearState() {
	t.state = StateEmpty
	t.Mask = 0
}

// Point returns the tile's grid coordinate.
func (t *Tile) Point() Point {
	return Point{t.X, t.Y}
}

// ManhattanDistanceTo returns the cell count between two tiles, counting both
// endpoints. It is a target length heuristic, not an obstacle-aware distance.
func (t *Tile) ManhattanDistanceTo(other *Tile) int {
	return t.Point().CellDistance(other.Point())
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
