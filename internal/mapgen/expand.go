package mapgen

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/lawnchairsociety/steamtunnels/internal/logger"
)

// Expand grows the grid by addWidth columns and addHeight rows, shifting the
// existing content by half of each so it stays centred. The old border is
// cleared and a new one stamped. Corridor tiles that would land on the new
// border are dropped with a warning. Expansion never fails once the sizes are
// valid: neither may be negative and the result may not exceed Config.MaxSize.
func (m *Map) Expand(ctx context.Context, addWidth, addHeight int) error {
	if addWidth < 0 || addHeight < 0 {
		return fmt.Errorf("%w: cannot shrink by %dx%d", ErrInvalidSize, addWidth, addHeight)
	}
	if limit := m.cfg.MaxSize; addWidth > limit-m.Width || addHeight > limit-m.Height {
		return fmt.Errorf("%w: growing %dx%d by %dx%d exceeds %dx%d",
			ErrInvalidSize, m.Width, m.Height, addWidth, addHeight, limit, limit)
	}
	_, span := m.tracer.Start(ctx, "mapgen.expand")
	defer span.End()

	offX, offY := addWidth/2, addHeight/2
	newWidth, newHeight := m.Width+addWidth, m.Height+addHeight
	tiles := newTiles(newWidth, newHeight)
	onNewRing := func(p Point) bool {
		return p.X == 0 || p.Y == 0 || p.X == newWidth-1 || p.Y == newHeight-1
	}

	dropped := 0
	for i := range m.tiles {
		old := &m.tiles[i]
		if old.state == StateEmpty {
			continue
		}
		np := Point{old.X + offX, old.Y + offY}
		ring := onNewRing(np)

		if old.state == StateBorder && !ring {
			continue
		}
		if old.state == StatePath && ring {
			logger.Warning("Dropping corridor tile on new border", "from", old.Point().String(), "to", np.String())
			dropped++
			continue
		}
		if err := tiles[np.Y*newWidth+np.X].trySetState(old.state); err != nil {
			logger.Warning("Skipping tile during expansion", "tile", old.Point().String(), "error", err)
			dropped++
		}
	}

	m.Width, m.Height, m.tiles = newWidth, newHeight, tiles
	for i := range m.spawns {
		m.spawns[i] = Point{m.spawns[i].X + offX, m.spawns[i].Y + offY}
	}
	for i := range m.goals {
		m.goals[i] = Point{m.goals[i].X + offX, m.goals[i].Y + offY}
	}
	m.stampBorder()
	m.restampSpecialPoints()
	m.ComputeBitmasks()

	if err := m.Validate(); err != nil {
		logger.Warning("Expanded map failed validation", "error", err)
	}

	span.SetAttributes(
		attribute.Int("map.width", m.Width),
		attribute.Int("map.height", m.Height),
		attribute.Int("expand.dropped", dropped),
	)
	logger.Debug("Expanded map", "width", m.Width, "height", m.Height, "offset_x", offX, "offset_y", offY)
	return nil
}
