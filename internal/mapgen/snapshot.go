package mapgen

import (
	"fmt"
	"strings"
)

// Glyphs used by the text rendering of a map.
const (
	GlyphBorder = '#'
	GlyphEmpty  = '.'
	GlyphPath   = '+'
	GlyphSpawn  = 'S'
	GlyphGoal   = 'G'
)

// Glyph returns the text glyph for a state.
func (s State) Glyph() rune {
	switch s {
	case StateBorder:
		return GlyphBorder
	case StatePath:
		return GlyphPath
	case StateSpawn:
		return GlyphSpawn
	case StateGoal:
		return GlyphGoal
	default:
		return GlyphEmpty
	}
}

func stateForGlyph(r rune) (State, bool) {
	switch r {
	case GlyphBorder:
		return StateBorder, true
	case GlyphEmpty:
		return StateEmpty, true
	case GlyphPath:
		return StatePath, true
	case GlyphSpawn:
		return StateSpawn, true
	case GlyphGoal:
		return StateGoal, true
	}
	return StateEmpty, false
}

// Snapshot is a serialisable copy of a map's layout.
type Snapshot struct {
	Width      int      `yaml:"width" json:"width"`
	Height     int      `yaml:"height" json:"height"`
	Difficulty int      `yaml:"difficulty" json:"difficulty"`
	Seed       int64    `yaml:"seed" json:"seed"`
	Digest     string   `yaml:"digest" json:"digest"`
	Spawns     []Point  `yaml:"spawns" json:"spawns"`
	Goals      []Point  `yaml:"goals" json:"goals"`
	Rows       []string `yaml:"rows" json:"rows"`
	Masks      []string `yaml:"masks,omitempty" json:"masks,omitempty"` // one hex digit per tile
}

// Rows renders the grid one string per row.
func (m *Map) Rows() []string {
	rows := make([]string, m.Height)
	var b strings.Builder
	for y := 0; y < m.Height; y++ {
		b.Reset()
		for x := 0; x < m.Width; x++ {
			b.WriteRune(m.tiles[y*m.Width+x].state.Glyph())
		}
		rows[y] = b.String()
	}
	return rows
}

// String renders the grid as newline separated rows.
func (m *Map) String() string {
	return strings.Join(m.Rows(), "\n")
}

// Snapshot captures the current layout.
func (m *Map) Snapshot() Snapshot {
	const hexDigits = "0123456789abcdef"
	masks := make([]string, m.Height)
	row := make([]byte, m.Width)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			row[x] = hexDigits[m.tiles[y*m.Width+x].Mask&0xf]
		}
		masks[y] = string(row)
	}

	return Snapshot{
		Width:      m.Width,
		Height:     m.Height,
		Difficulty: m.Difficulty,
		Seed:       m.Seed,
		Digest:     m.Digest(),
		Spawns:     m.Spawns(),
		Goals:      m.Goals(),
		Rows:       m.Rows(),
		Masks:      masks,
	}
}

// FromRows builds a map from its text rendering. The size comes from the rows
// and overrides cfg. Spawns and goals are collected in row-major order.
func FromRows(cfg *Config, rows []string) (*Map, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidSize)
	}
	c := DefaultConfig(0, 0, MaxDifficulty)
	if cfg != nil {
		c = &Config{}
		*c = *cfg
	}
	c.Width = len([]rune(rows[0]))
	c.Height = len(rows)

	m, err := NewBlank(c)
	if err != nil {
		return nil, err
	}

	for y, row := range rows {
		runes := []rune(row)
		if len(runes) != m.Width {
			return nil, fmt.Errorf("%w: row %d has %d tiles, want %d", ErrInvalidSize, y, len(runes), m.Width)
		}
		for x, r := range runes {
			s, ok := stateForGlyph(r)
			if !ok {
				return nil, fmt.Errorf("%w: glyph %q at (%d,%d)", ErrInvalidState, r, x, y)
			}
			p := Point{x, y}
			m.tiles[m.index(p)].SetState(s)
			switch s {
			case StateSpawn:
				m.spawns = append(m.spawns, p)
			case StateGoal:
				m.goals = append(m.goals, p)
			}
		}
	}
	m.ComputeBitmasks()
	return m, nil
}

// FromSnapshot rebuilds a map from a snapshot. Spawn and goal order is taken
// from the snapshot lists when present, and they must match the rows.
func FromSnapshot(cfg *Config, s Snapshot) (*Map, error) {
	c := DefaultConfig(s.Width, s.Height, s.Difficulty)
	if cfg != nil {
		c = &Config{}
		*c = *cfg
		c.Difficulty = s.Difficulty
	}
	c.Seed = s.Seed

	m, err := FromRows(c, s.Rows)
	if err != nil {
		return nil, err
	}
	if m.Width != s.Width || m.Height != s.Height {
		return nil, fmt.Errorf("%w: rows are %dx%d, snapshot says %dx%d", ErrInvalidSize, m.Width, m.Height, s.Width, s.Height)
	}

	if len(s.Spawns) > 0 {
		if err := m.reorder(&m.spawns, s.Spawns, StateSpawn); err != nil {
			return nil, err
		}
	}
	if len(s.Goals) > 0 {
		if err := m.reorder(&m.goals, s.Goals, StateGoal); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Map) reorder(dst *[]Point, order []Point, want State) error {
	if len(order) != len(*dst) {
		return fmt.Errorf("%w: snapshot lists %d %s points, rows hold %d", ErrInvalidState, len(order), want, len(*dst))
	}
	for _, p := range order {
		if m.stateAt(p) != want || !m.In(p) {
			return fmt.Errorf("%w: %s listed at %s", ErrInvalidState, want, p)
		}
	}
	*dst = append([]Point(nil), order...)
	return nil
}
