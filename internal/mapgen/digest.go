package mapgen

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Digest returns a hex BLAKE2b-256 fingerprint of the grid size, tile states
// and the ordered spawn and goal lists. Masks are derived and not included.
func (m *Map) Digest() string {
	buf := make([]byte, 0, 8+len(m.tiles)+8*(len(m.spawns)+len(m.goals))+8)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.Width))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(m.Height))
	for i := range m.tiles {
		buf = append(buf, byte(m.tiles[i].state))
	}
	for _, list := range [][]Point{m.spawns, m.goals} {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(list)))
		for _, p := range list {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(m.index(p)))
		}
	}
	sum := blake2b.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
