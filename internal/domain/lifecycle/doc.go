// Package lifecycle drives application instances from launch to removal.
//
// Components:
//   - Orchestrator: launch with single-instance dedup, foreground
//     switching, termination
//   - Window discovery: bounded background workers retrying correlation
//     with backoff until the per-app window init timeout
//   - Poller: periodic process liveness, window validity and focus
//     reconciliation
//   - Switcher: cyclic alt-tab selection over live instances
//   - Bus: non-blocking event fan-out over per-subscriber buffered
//     channels
//
// Launch Protocol:
//  1. Catalog lookup, launcher selection by category and priority
//  2. Dedup: a live instance of a single-instance app redirects the
//     caller to it instead of spawning again
//  3. Launcher starts the app; the instance registers as Starting
//  4. Discovery binds the main window in the background and moves the
//     instance to Running or Active
//
// State changes always pass the registry's transition table, and
// multi-step operations on one instance serialize on its lock. Subscribers
// receive instance.activated, instance.deactivated, instance.closed and
// instance.state_changed events; a full subscriber buffer drops the event
// for that subscriber only.
package lifecycle
