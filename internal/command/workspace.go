package command

import (
	"context"
	"sync"

	"github.com/lawnchairsociety/steamtunnels/internal/database"
	"github.com/lawnchairsociety/steamtunnels/internal/mapgen"
	"github.com/lawnchairsociety/steamtunnels/internal/wave"
)

// Archiver stores snapshots. *database.Database satisfies it.
type Archiver interface {
	SaveLayout(label string, waves int, s mapgen.Snapshot) (*database.Layout, bool, error)
}

// DefaultMaxWaves caps how many waves one wave command may advance.
const DefaultMaxWaves = 50

// Workspace is one inspected map with its wave director. Commands on a
// workspace are serialised by its mutex.
type Workspace struct {
	mu       sync.Mutex
	cfg      mapgen.Config
	schedule wave.Schedule
	archive  Archiver
	m        *mapgen.Map
	director *wave.Director
	maxWaves int
}

// NewWorkspace generates the first map. archive may be nil.
func NewWorkspace(ctx context.Context, cfg *mapgen.Config, schedule wave.Schedule, archive Archiver) (*Workspace, error) {
	w := &Workspace{cfg: *cfg, schedule: schedule, archive: archive, maxWaves: DefaultMaxWaves}
	if err := w.generate(ctx, w.cfg); err != nil {
		return nil, err
	}
	return w, nil
}

// SetMaxWaves caps how many waves one wave command may advance. n <= 0
// restores DefaultMaxWaves.
func (w *Workspace) SetMaxWaves(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if n <= 0 {
		n = DefaultMaxWaves
	}
	w.maxWaves = n
}

// generate replaces the map with a new one carved from cfg.
func (w *Workspace) generate(ctx context.Context, cfg mapgen.Config) error {
	m, err := mapgen.New(&cfg)
	if err != nil {
		return err
	}
	if _, err := m.CarvePrimaryPath(ctx); err != nil {
		return err
	}
	w.m = m
	w.director = wave.NewDirector(m, w.schedule)
	return nil
}

// Map returns the current map. Callers must not mutate it while commands run.
func (w *Workspace) Map() *mapgen.Map {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.m
}

// Wave returns the last wave started on the current map.
func (w *Workspace) Wave() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.director.Wave()
}

// Snapshot captures the current map.
func (w *Workspace) Snapshot() mapgen.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.m.Snapshot()
}
