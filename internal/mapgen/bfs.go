package mapgen

// ShortestWalkablePath returns a shortest 4-connected sequence of corridor
// tiles from start to end, both included. Neighbours are expanded in
// north, east, south, west order and the first path found wins. It returns nil
// when either endpoint is not walkable or no path exists.
func (m *Map) ShortestWalkablePath(start, end Point) []Point {
	if !m.walkable(start) || !m.walkable(end) {
		return nil
	}
	if start == end {
		return []Point{start}
	}

	prev := make([]int, len(m.tiles))
	for i := range prev {
		prev[i] = -1
	}
	si := m.index(start)
	prev[si] = si

	queue := []Point{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, d := range AllDirections() {
			n := current.Step(d)
			if !m.walkable(n) {
				continue
			}
			ni := m.index(n)
			if prev[ni] != -1 {
				continue
			}
			prev[ni] = m.index(current)
			if n == end {
				return m.unwind(prev, si, ni)
			}
			queue = append(queue, n)
		}
	}
	return nil
}

func (m *Map) unwind(prev []int, from, to int) []Point {
	var path []Point
	for i := to; ; i = prev[i] {
		path = append(path, m.pointAt(i))
		if i == from {
			break
		}
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// Reachable reports whether a corridor connects a and b.
func (m *Map) Reachable(a, b Point) bool {
	return m.ShortestWalkablePath(a, b) != nil
}
