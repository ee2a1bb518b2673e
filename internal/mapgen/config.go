package mapgen

// Config contains parameters for map generation
type Config struct {
	Width      int
	Height     int
	Difficulty int   // 1 (long, winding corridors) to 5 (straight ones)
	Seed       int64 // 0 selects a time based seed
	MaxSize    int   // Largest width or height New and Expand accept

	EdgeOffset    int // Distance kept between special points and the border ring
	IsolationSize int // Side of the square around corridor tiles where no new point may land

	MaxCarveAttempts     int // Ceiling on DFS attempts for one corridor
	RelaxAfter           int // Failed attempts before the length window widens
	MaxBranchAttempts    int // DFS attempts per fork candidate
	MaxForkCandidates    int // Shortlist size per new special point
	MaxPlacementAttempts int // Random draws when looking for a free location
	MaxLocationAttempts  int // Locations tried before giving up on a special point
}

const (
	defaultMaxSize              = 256
	defaultEdgeOffset           = 2
	defaultIsolationSize        = 3
	defaultMaxCarveAttempts     = 2000
	defaultRelaxAfter           = 200
	defaultMaxBranchAttempts    = 60
	defaultMaxForkCandidates    = 8
	defaultMaxPlacementAttempts = 100
	defaultMaxLocationAttempts  = 10

	// Depth of the band near an edge where opposite-side points are drawn.
	placementBandDepth = 3
)

// DefaultConfig returns reasonable defaults for a map of the given size
func DefaultConfig(width, height, difficulty int) *Config {
	return &Config{
		Width:                width,
		Height:               height,
		Difficulty:           difficulty,
		MaxSize:              defaultMaxSize,
		EdgeOffset:           defaultEdgeOffset,
		IsolationSize:        defaultIsolationSize,
		MaxCarveAttempts:     defaultMaxCarveAttempts,
		RelaxAfter:           defaultRelaxAfter,
		MaxBranchAttempts:    defaultMaxBranchAttempts,
		MaxForkCandidates:    defaultMaxForkCandidates,
		MaxPlacementAttempts: defaultMaxPlacementAttempts,
		MaxLocationAttempts:  defaultMaxLocationAttempts,
	}
}

// MinSize returns the smallest width or height that leaves room for two
// non-overlapping placement bands.
func (c *Config) MinSize() int {
	return 2 * (c.EdgeOffset + placementBandDepth)
}

// withDefaults fills unset limits so a zero value config stays usable.
func (c Config) withDefaults() Config {
	if c.MaxSize <= 0 {
		c.MaxSize = defaultMaxSize
	}
	if c.EdgeOffset <= 0 {
		c.EdgeOffset = defaultEdgeOffset
	}
	if c.IsolationSize <= 0 {
		c.IsolationSize = defaultIsolationSize
	}
	if c.MaxCarveAttempts <= 0 {
		c.MaxCarveAttempts = defaultMaxCarveAttempts
	}
	if c.RelaxAfter <= 0 {
		c.RelaxAfter = defaultRelaxAfter
	}
	if c.MaxBranchAttempts <= 0 {
		c.MaxBranchAttempts = defaultMaxBranchAttempts
	}
	if c.MaxForkCandidates <= 0 {
		c.MaxForkCandidates = defaultMaxForkCandidates
	}
	if c.MaxPlacementAttempts <= 0 {
		c.MaxPlacementAttempts = defaultMaxPlacementAttempts
	}
	if c.MaxLocationAttempts <= 0 {
		c.MaxLocationAttempts = defaultMaxLocationAttempts
	}
	return c
}
