/*
Package agent implements winsys.Manager against the native window agent.

The agent is the OS-side sidecar owning real window-system calls; this
client talks to its HTTP API with per-call context timeouts, retry on
connection errors, and a circuit breaker. Lookup misses and stale
handles are expected outcomes and never trip the breaker.
*/
package agent
