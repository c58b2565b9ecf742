// Package types provides shared data structures for the launcher backend.
//
// This package defines the core types used across all backend components,
// ensuring type safety and consistent data structures.
//
// Core Types:
//   - Application: Catalog record describing a launchable application
//   - ApplicationInstance: Running instance tracked by the registry
//   - WindowHandle: Weak reference to a top-level OS window
//   - ProcessStats: Process resource snapshot from the window agent
//
// State Management:
//   - ApplicationState: Lifecycle state enum with the allowed-transition table
//   - Category: Application category enum (native, web, embedded, emulated)
//
// Events:
//   - Event: Lifecycle event envelope published to subscribers
//   - InstanceSnapshot: Flat, serialization-safe instance copy for events
//
// Request Types:
//   - LaunchRequest, TerminateRequest: REST API bindings
//
// Example Usage:
//
//	inst := types.ApplicationInstance{
//	    ID:        id.NewInstanceID(),
//	    App:       app,
//	    State:     types.StateStarting,
//	    StartTime: time.Now(),
//	}
package types
