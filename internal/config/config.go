// Package config loads steamtunnels settings from YAML with environment overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/steamtunnels/internal/database"
	"github.com/lawnchairsociety/steamtunnels/internal/mapgen"
	"github.com/lawnchairsociety/steamtunnels/internal/wave"
)

// DefaultPath is where binaries look for the config file.
const DefaultPath = "data/steamtunnels.yaml"

// Config holds every steamtunnels setting.
type Config struct {
	Map       MapConfig       `yaml:"map"`
	Limits    LimitsConfig    `yaml:"limits"`
	Waves     WavesConfig     `yaml:"waves"`
	Inspector InspectorConfig `yaml:"inspector"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// MapConfig holds the shape of a freshly generated map.
type MapConfig struct {
	Width      int   `yaml:"width"`
	Height     int   `yaml:"height"`
	Difficulty int   `yaml:"difficulty"`
	Seed       int64 `yaml:"seed"` // 0 picks a time based seed

	// EdgeOffset is the gap kept between special points and the border ring.
	EdgeOffset int `yaml:"edge_offset"`

	// IsolationSize is the side of the square around corridor tiles that new
	// spawns and goals must stay out of.
	IsolationSize int `yaml:"isolation_size"`
}

// LimitsConfig holds the attempt ceilings of the generator and the caps on
// inspector requests.
type LimitsConfig struct {
	MaxMapSize           int `yaml:"max_map_size"`          // largest width or height, also bounds expand
	MaxWavesPerCommand   int `yaml:"max_waves_per_command"` // waves one inspector command may advance
	MaxCarveAttempts     int `yaml:"max_carve_attempts"`
	RelaxAfter           int `yaml:"relax_after"`
	MaxBranchAttempts    int `yaml:"max_branch_attempts"`
	MaxForkCandidates    int `yaml:"max_fork_candidates"`
	MaxPlacementAttempts int `yaml:"max_placement_attempts"`
	MaxLocationAttempts  int `yaml:"max_location_attempts"`
}

// WavesConfig holds the wave schedule. An interval of 0 disables that change.
type WavesConfig struct {
	ExpandEvery  int `yaml:"expand_every"`
	SpawnEvery   int `yaml:"spawn_every"`
	GoalEvery    int `yaml:"goal_every"`
	ExpandWidth  int `yaml:"expand_width"`
	ExpandHeight int `yaml:"expand_height"`
}

// InspectorConfig holds settings for the websocket inspector.
type InspectorConfig struct {
	Address     string            `yaml:"address"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

// RateLimitConfig holds command rate limiting settings.
type RateLimitConfig struct {
	// MaxCommands is the number of commands allowed per window.
	MaxCommands int `yaml:"max_commands"`

	// WindowSeconds is the length of the counting window in seconds.
	WindowSeconds int `yaml:"window_seconds"`

	// LockoutSeconds is the initial lockout duration in seconds.
	LockoutSeconds int `yaml:"lockout_seconds"`

	// MaxLockoutSeconds is the maximum lockout duration (for exponential backoff).
	MaxLockoutSeconds int `yaml:"max_lockout_seconds"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections allowed from a single IP address.
	// 0 means unlimited (not recommended).
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent connections to the server.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`

	// TrustProxyHeaders takes the client IP from X-Forwarded-For or X-Real-IP.
	// Enable only behind a reverse proxy that sets them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// ArchiveConfig selects the database layouts are archived in.
type ArchiveConfig struct {
	Driver     string         `yaml:"driver"` // "sqlite" or "postgres"
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	SSLMode         string `yaml:"sslmode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	pg := database.DefaultPostgresConfig()
	return &Config{
		Map: MapConfig{
			Width:         32,
			Height:        24,
			Difficulty:    3,
			EdgeOffset:    2,
			IsolationSize: 3,
		},
		Limits: LimitsConfig{
			MaxMapSize:           256,
			MaxWavesPerCommand:   50,
			MaxCarveAttempts:     2000,
			RelaxAfter:           200,
			MaxBranchAttempts:    60,
			MaxForkCandidates:    8,
			MaxPlacementAttempts: 100,
			MaxLocationAttempts:  10,
		},
		Waves: WavesConfig{
			ExpandEvery:  5,
			SpawnEvery:   4,
			GoalEvery:    6,
			ExpandWidth:  6,
			ExpandHeight: 6,
		},
		Inspector: InspectorConfig{
			Address: ":8420",
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{}, // Same-origin only by default
				MaxMessageSize: 4096,
			},
			Connections: ConnectionsConfig{
				MaxPerIP: 3,
				MaxTotal: 50,
			},
			RateLimit: RateLimitConfig{
				MaxCommands:       20,
				WindowSeconds:     10,
				LockoutSeconds:    30,
				MaxLockoutSeconds: 300,
			},
		},
		Archive: ArchiveConfig{
			Driver:     "sqlite",
			SQLitePath: "data/layouts.db",
			Postgres: PostgresConfig{
				Host:            pg.Host,
				Port:            pg.Port,
				SSLMode:         pg.SSLMode,
				Database:        "steamtunnels",
				MaxOpenConns:    pg.MaxOpenConns,
				MaxIdleConns:    pg.MaxIdleConns,
				ConnMaxLifetime: int(pg.ConnMaxLifetime / time.Second),
			},
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies STEAMTUNNELS_*
// environment overrides. If the file doesn't exist, defaults are used.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return config, err
		}
	} else if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), err
	}

	if err := config.applyEnv(); err != nil {
		return config, err
	}
	return config, nil
}

// applyEnv overrides settings from the environment.
func (c *Config) applyEnv() error {
	ints := []struct {
		key string
		dst *int
	}{
		{"STEAMTUNNELS_WIDTH", &c.Map.Width},
		{"STEAMTUNNELS_HEIGHT", &c.Map.Height},
		{"STEAMTUNNELS_DIFFICULTY", &c.Map.Difficulty},
		{"STEAMTUNNELS_DB_PORT", &c.Archive.Postgres.Port},
	}
	for _, o := range ints {
		v := os.Getenv(o.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", o.key, err)
		}
		*o.dst = n
	}

	if v := os.Getenv("STEAMTUNNELS_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("STEAMTUNNELS_SEED: %w", err)
		}
		c.Map.Seed = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"STEAMTUNNELS_ADDRESS", &c.Inspector.Address},
		{"STEAMTUNNELS_DB_DRIVER", &c.Archive.Driver},
		{"STEAMTUNNELS_DB_PATH", &c.Archive.SQLitePath},
		{"STEAMTUNNELS_DB_HOST", &c.Archive.Postgres.Host},
		{"STEAMTUNNELS_DB_USER", &c.Archive.Postgres.User},
		{"STEAMTUNNELS_DB_PASSWORD", &c.Archive.Postgres.Password},
		{"STEAMTUNNELS_DB_NAME", &c.Archive.Postgres.Database},
		{"STEAMTUNNELS_DB_SSLMODE", &c.Archive.Postgres.SSLMode},
	}
	for _, o := range strs {
		if v := os.Getenv(o.key); v != "" {
			*o.dst = v
		}
	}
	c.Archive.Driver = strings.ToLower(c.Archive.Driver)
	return nil
}

// MapConfig converts the map and limits sections for the generator.
func (c *Config) MapConfig() *mapgen.Config {
	cfg := mapgen.DefaultConfig(c.Map.Width, c.Map.Height, c.Map.Difficulty)
	cfg.Seed = c.Map.Seed
	cfg.EdgeOffset = c.Map.EdgeOffset
	cfg.IsolationSize = c.Map.IsolationSize
	cfg.MaxSize = c.Limits.MaxMapSize
	cfg.MaxCarveAttempts = c.Limits.MaxCarveAttempts
	cfg.RelaxAfter = c.Limits.RelaxAfter
	cfg.MaxBranchAttempts = c.Limits.MaxBranchAttempts
	cfg.MaxForkCandidates = c.Limits.MaxForkCandidates
	cfg.MaxPlacementAttempts = c.Limits.MaxPlacementAttempts
	cfg.MaxLocationAttempts = c.Limits.MaxLocationAttempts
	return cfg
}

// Schedule converts the waves section for the wave director.
func (c *Config) Schedule() wave.Schedule {
	return wave.Schedule{
		ExpandEvery:  c.Waves.ExpandEvery,
		SpawnEvery:   c.Waves.SpawnEvery,
		GoalEvery:    c.Waves.GoalEvery,
		ExpandWidth:  c.Waves.ExpandWidth,
		ExpandHeight: c.Waves.ExpandHeight,
	}
}

// DatabaseConfig converts the archive section for the database package.
func (c *Config) DatabaseConfig() database.Config {
	pg := c.Archive.Postgres
	return database.Config{
		Driver:     c.Archive.Driver,
		SQLitePath: c.Archive.SQLitePath,
		Postgres: database.PostgresConfig{
			Host:            pg.Host,
			Port:            pg.Port,
			User:            pg.User,
			Password:        pg.Password,
			Database:        pg.Database,
			SSLMode:         pg.SSLMode,
			MaxOpenConns:    pg.MaxOpenConns,
			MaxIdleConns:    pg.MaxIdleConns,
			ConnMaxLifetime: time.Duration(pg.ConnMaxLifetime) * time.Second,
		},
	}
}

// IsOriginAllowed applies the inspector CORS policy. An empty list means
// same-origin only; "*" admits everything; other entries match exactly.
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}
	return slices.Contains(c.AllowedOrigins, "*") || slices.Contains(c.AllowedOrigins, origin)
}

// isSameOrigin reports whether origin names requestHost. Clients that send no
// Origin header, such as the test client and tunnelview, are allowed.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, requestHost)
}
