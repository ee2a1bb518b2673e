// Command tunnelserve runs the WebSocket map inspector.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lawnchairsociety/steamtunnels/internal/config"
	"github.com/lawnchairsociety/steamtunnels/internal/database"
	"github.com/lawnchairsociety/steamtunnels/internal/logger"
	"github.com/lawnchairsociety/steamtunnels/internal/server"
	"github.com/lawnchairsociety/steamtunnels/internal/telemetry"
)

func main() {
	configFile := flag.String("config", config.DefaultPath, "Path to steamtunnels config YAML file")
	address := flag.String("address", "", "Listen address (default from config)")
	noArchive := flag.Bool("no-archive", false, "Run without the layout archive database")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Note: .env file not loaded: %v", err)
	}

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(*configFile)
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Info("Starting steamtunnels inspector")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx)
	if err != nil {
		logger.Warning("Telemetry setup failed, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Warning("Telemetry shutdown failed", "error", err)
			}
		}()
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load config, using defaults", "path", *configFile, "error", err)
		cfg = config.DefaultConfig()
	}
	if *address != "" {
		cfg.Inspector.Address = *address
	}

	origins := cfg.Inspector.WebSocket.AllowedOrigins
	if len(origins) == 0 {
		logger.Info("WebSocket CORS policy", "mode", "same-origin")
	} else if len(origins) == 1 && origins[0] == "*" {
		logger.Warning("WebSocket CORS allows all origins (not recommended for production)")
	} else {
		logger.Info("WebSocket CORS policy", "allowed_origins", origins)
	}

	srv := server.NewServer(cfg)

	if !*noArchive {
		db, err := database.OpenWithConfig(cfg.DatabaseConfig())
		if err != nil {
			log.Fatalf("Failed to open archive database: %v", err)
		}
		defer db.Close()
		srv.SetDatabase(db)
		logger.Info("Layout archive opened", "driver", db.Dialect().Type())
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Error("Inspector server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
