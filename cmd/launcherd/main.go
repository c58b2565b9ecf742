package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/server"
)

func main() {
	port := flag.String("port", "", "Listen port (overrides LAUNCHER_PORT)")
	catalogDir := flag.String("catalog", "", "Catalog directory (overrides LAUNCHER_CATALOG_DIR)")
	agentURL := flag.String("agent", "", "Window agent URL (overrides LAUNCHER_AGENT_URL)")
	dev := flag.Bool("dev", false, "Development mode: colored logs, debug level")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *catalogDir != "" {
		cfg.Catalog.Dir = *catalogDir
	}
	if *agentURL != "" {
		cfg.Agent.URL = *agentURL
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received %s, shutting down gracefully...", sig)
		if err := srv.Close(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
