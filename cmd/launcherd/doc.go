// Package main is the entry point for the launcher daemon.
//
// The daemon tracks every application a kiosk shell launches, correlates
// each one with its main window through the window agent, and reports
// state over REST and WebSocket.
//
// Architecture:
//
//	Shell (kiosk UI) → launcherd → Window Agent (OS window calls)
//	                            → Emulator Host (packaged apps)
//
// The daemon provides:
//   - REST API for launching, switching and terminating instances
//   - WebSocket stream of lifecycle events for the task bar
//   - Single-instance dedup with cross-user policies
//   - Background liveness and focus polling
//   - Prometheus metrics and a JSON counter endpoint
//
// Configuration:
//   - Environment variables, LAUNCHER_* (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./launcherd -port 8100 -catalog /var/lib/launcher/catalog -agent http://localhost:8190
//
//	# Development mode (colored logs, debug level)
//	./launcherd -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
