// Command tunnelgen generates a tower-defense map, optionally plays it
// through a number of waves, and prints the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/steamtunnels/internal/config"
	"github.com/lawnchairsociety/steamtunnels/internal/database"
	"github.com/lawnchairsociety/steamtunnels/internal/logger"
	"github.com/lawnchairsociety/steamtunnels/internal/mapgen"
	"github.com/lawnchairsociety/steamtunnels/internal/telemetry"
	"github.com/lawnchairsociety/steamtunnels/internal/wave"
)

func main() {
	configFile := flag.String("config", config.DefaultPath, "Path to steamtunnels config YAML file")
	width := flag.Int("width", 0, "Map width (default from config)")
	height := flag.Int("height", 0, "Map height (default from config)")
	difficulty := flag.Int("difficulty", 0, "Difficulty 1-5 (default from config)")
	seed := flag.Int64("seed", 0, "Generation seed (default: config, then time based)")
	waves := flag.Int("waves", 0, "Number of waves to play through after generation")
	outputFile := flag.String("output", "", "Write the final snapshot as YAML to this file")
	archive := flag.Bool("archive", false, "Store the final layout in the archive database")
	label := flag.String("label", "", "Label for the archived layout")
	showLegend := flag.Bool("legend", true, "Show legend")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Note: .env file not loaded: %v", err)
	}

	logConfig, _ := logger.LoadConfig(*configFile)
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx)
	if err != nil {
		logger.Warning("Telemetry setup failed, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				logger.Warning("Telemetry shutdown failed", "error", err)
			}
		}()
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load config, using defaults", "path", *configFile, "error", err)
		cfg = config.DefaultConfig()
	}
	if *width > 0 {
		cfg.Map.Width = *width
	}
	if *height > 0 {
		cfg.Map.Height = *height
	}
	if *difficulty > 0 {
		cfg.Map.Difficulty = *difficulty
	}
	if *seed != 0 {
		cfg.Map.Seed = *seed
	}

	m, changes, err := generate(ctx, cfg, *waves)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Print(render(m, changes, *showLegend))

	snap := m.Snapshot()
	if *outputFile != "" {
		if err := writeSnapshot(*outputFile, snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Snapshot written to %s\n", *outputFile)
	}

	if *archive {
		if err := archiveSnapshot(cfg, *label, *waves, snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error archiving layout: %v\n", err)
			os.Exit(1)
		}
	}
}

// generate builds the map and advances it through the requested waves.
func generate(ctx context.Context, cfg *config.Config, waves int) (*mapgen.Map, []wave.Changes, error) {
	m, err := mapgen.New(cfg.MapConfig())
	if err != nil {
		return nil, nil, err
	}
	if _, err := m.CarvePrimaryPath(ctx); err != nil {
		return nil, nil, err
	}
	logger.Info("Map generated", "width", m.Width, "height", m.Height, "difficulty", m.Difficulty, "seed", m.Seed)

	if waves <= 0 {
		return m, nil, nil
	}
	changes, err := wave.NewDirector(m, cfg.Schedule()).Run(ctx, waves)
	if err != nil {
		return nil, nil, err
	}
	return m, changes, nil
}

func render(m *mapgen.Map, changes []wave.Changes, showLegend bool) string {
	var output strings.Builder

	output.WriteString(fmt.Sprintf("Map %dx%d (Difficulty: %d, Seed: %d)\n", m.Width, m.Height, m.Difficulty, m.Seed))
	output.WriteString(fmt.Sprintf("Digest: %s\n", m.Digest()))
	output.WriteString(strings.Repeat("=", max(m.Width, 20)) + "\n")
	output.WriteString(m.String())
	if !strings.HasSuffix(output.String(), "\n") {
		output.WriteString("\n")
	}

	for _, c := range changes {
		if c.Changed() || len(c.Failures) > 0 {
			output.WriteString(c.String() + "\n")
		}
	}

	if violations := m.Violations(); len(violations) > 0 {
		output.WriteString("\nViolations:\n")
		for _, v := range violations {
			output.WriteString("  " + v.String() + "\n")
		}
	}

	if showLegend {
		output.WriteString(legend())
	}
	return output.String()
}

func legend() string {
	return fmt.Sprintf("\nLegend: %c border  %c empty  %c path  %c spawn  %c goal\n",
		mapgen.GlyphBorder, mapgen.GlyphEmpty, mapgen.GlyphPath, mapgen.GlyphSpawn, mapgen.GlyphGoal)
}

func writeSnapshot(path string, snap mapgen.Snapshot) error {
	data, err := yaml.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func archiveSnapshot(cfg *config.Config, label string, waves int, snap mapgen.Snapshot) error {
	db, err := database.OpenWithConfig(cfg.DatabaseConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	layout, created, err := db.SaveLayout(label, waves, snap)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Layout archived as #%d\n", layout.ID)
	} else {
		fmt.Printf("Layout already archived as #%d\n", layout.ID)
	}
	return nil
}
