/*
Package resilience provides circuit breaker implementation for graceful degradation.

# Overview

This package implements the circuit breaker pattern to keep the launcher
responsive when the window agent becomes unavailable or slow. Instead of
hammering a dead agent on every poll cycle, calls fail fast while the
circuit is open and instances degrade per the window-facade contract.

# Features

- Three-state circuit breaker (Closed, Open, Half-Open)
- Configurable failure thresholds and timeouts
- Error classification: expected outcomes (stale handles, unknown windows) never trip the circuit
- Automatic state transitions
- State change callbacks for monitoring
- Thread-safe operations

# Usage

	// Create a circuit breaker for the window agent
	breaker := resilience.New("window-agent", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsFailure: func(err error) bool {
			return err != nil && !errors.IsInvalidHandle(err)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("Breaker state change", zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	// Execute a call through the breaker
	err := breaker.Do(func() error {
		return client.ActivateWindow(ctx, handle)
	})

# States

- Closed: Normal operation, requests pass through
- Open: Agent unavailable, requests fail immediately with ErrCircuitOpen
- Half-Open: Testing if the agent recovered, limited requests allowed

# Pattern

The circuit breaker transitions between states based on success/failure rates:

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
