package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"

	"github.com/orangewood-co/relaystream/cleanup"
	"github.com/orangewood-co/relaystream/recording"
	"github.com/orangewood-co/relaystream/stream"
)

func main() {
	// Load .env file if it exists
	godotenv.Load()

	var (
		configPath = flag.String("config", "", "Path to config file (default: XDG config directory)")
	)
	flag.Parse()

	// Use XDG config directory if not specified
	if *configPath == "" {
		var err error
		*configPath, err = xdg.ConfigFile("relaystream/config.yaml")
		if err != nil {
			*configPath = filepath.Join(os.ExpandEnv("$HOME"), ".config/relaystream/config.yaml")
		}
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if config.Server.Debug {
		config.LogLevel = "debug"
	}
	logger := NewLogger(config.LogLevel)

	logger.Printf("starting relay server...")
	logger.Printf("listening on %s:%d", config.Server.Host, config.Server.Port)
	logger.Printf("max concurrent streams: %d", config.Streams.MaxConcurrent)
	logger.Printf("recording enabled: %v", config.Recording.Enabled)

	if err := os.MkdirAll(config.Recording.BaseDir, 0o755); err != nil {
		logger.Fatalf("failed to create recordings directory: %v", err)
	}

	streamManager := stream.NewManager(config.Streams.MaxConcurrent, config.Streams.MaxBufferFrames, logger)
	recordingService := recording.NewService(config.Recording.BaseDir, config.Recording.FPS, config.Recording.Codec, logger)
	cleanupManager := cleanup.New(
		streamManager,
		recordingService,
		config.Recording.BaseDir,
		time.Duration(config.Streams.TimeoutSeconds)*time.Second,
		config.Recording.RetentionDays,
		logger,
	)

	if err := cleanupManager.Start(config.Cleanup.IntervalSeconds, config.Cleanup.ScheduleTime); err != nil {
		logger.Fatalf("failed to start cleanup manager: %v", err)
	}

	server := NewAPIServer(config, streamManager, recordingService, logger)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverDone:
		if err != nil {
			logger.Printf("server stopped: %v", err)
		}
	case sig := <-sigChan:
		logger.Printf("received signal: %v", sig)
	}

	logger.Printf("shutting down...")
	cleanupManager.Stop()
	recordingService.StopAll()
	if err := server.Stop(); err != nil {
		logger.Printf("error during server shutdown: %v", err)
	}
}
