// Command tunnelview shows a generated map in the terminal and lets the
// user grow it key by key.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lawnchairsociety/steamtunnels/internal/command"
	"github.com/lawnchairsociety/steamtunnels/internal/config"
	"github.com/lawnchairsociety/steamtunnels/internal/database"
	"github.com/lawnchairsociety/steamtunnels/internal/inspect"
	"github.com/lawnchairsociety/steamtunnels/internal/logger"
	"github.com/lawnchairsociety/steamtunnels/internal/telemetry"
)

func main() {
	configFile := flag.String("config", config.DefaultPath, "Path to steamtunnels config YAML file")
	difficulty := flag.Int("difficulty", 0, "Difficulty 1-5 (default from config)")
	seed := flag.Int64("seed", 0, "Generation seed (default: config, then time based)")
	archive := flag.Bool("archive", false, "Enable the archive command")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Note: .env file not loaded: %v", err)
	}

	// The terminal belongs to the viewer, so logs only go to the file.
	logConfig, _ := logger.LoadConfig(*configFile)
	logConfig.ConsoleEnabled = false
	logConfig.FileEnabled = true
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx)
	if err == nil {
		defer shutdown(context.Background())
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load config, using defaults", "path", *configFile, "error", err)
		cfg = config.DefaultConfig()
	}
	if *difficulty > 0 {
		cfg.Map.Difficulty = *difficulty
	}
	if *seed != 0 {
		cfg.Map.Seed = *seed
	}

	var archiver command.Archiver
	if *archive {
		db, err := database.OpenWithConfig(cfg.DatabaseConfig())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open archive database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		archiver = db
	}

	ws, err := command.NewWorkspace(ctx, cfg.MapConfig(), cfg.Schedule(), archiver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ws.SetMaxWaves(cfg.Limits.MaxWavesPerCommand)

	screen, err := inspect.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open terminal: %v\n", err)
		os.Exit(1)
	}

	err = inspect.NewViewer(screen, ws).Run(ctx)
	screen.Fini()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	snap := ws.Snapshot()
	fmt.Printf("Final map %dx%d after wave %d, digest %s\n", snap.Width, snap.Height, ws.Wave(), snap.Digest)
}
