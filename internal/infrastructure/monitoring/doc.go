/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the launcher
daemon, tracking HTTP requests, launches, window discovery, instance states,
and window agent calls.

# Features

- HTTP request metrics (latency, throughput)
- Launch metrics (attempts by category and status, duration)
- Window discovery metrics (correlation duration, init timeouts)
- Instance gauges by lifecycle state
- Switch, terminate, and liveness poll counters
- Event fan-out metrics (published, dropped on slow subscribers)
- WebSocket connection metrics
- Window agent call metrics (duration, status)
- Sliding-window latency summaries (mean, p50, p95, p99) for the JSON API

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record custom metrics
	metrics.RecordLaunch("native", "success", elapsed)
	metrics.SetInstanceStates(map[string]int{"running": 3})

	// Time window agent calls
	timer := monitoring.NewTimer(metrics, "activate_window")
	// ... perform call ...
	timer.Stop("success")

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
