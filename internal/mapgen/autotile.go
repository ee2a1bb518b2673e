package mapgen

// ComputeBitmasks sets every corridor tile's mask from its corridor
// neighbours (North=1, East=2, South=4, West=8). Other tiles get zero.
func (m *Map) ComputeBitmasks() {
	for i := range m.tiles {
		t := &m.tiles[i]
		t.Mask = 0
		if !t.state.IsCorridor() {
			continue
		}
		p := t.Point()
		for _, d := range AllDirections() {
			if m.walkable(p.Step(d)) {
				t.Mask |= d.Bit()
			}
		}
	}
}

// Mask returns the autotile mask at p, zero outside the grid.
func (m *Map) Mask(p Point) Bitmask {
	if !m.In(p) {
		return 0
	}
	return m.tiles[m.index(p)].Mask
}
