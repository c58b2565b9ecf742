package types

// WindowHandle is a weak reference to a top-level OS window. The ID is the
// opaque native handle; the remaining fields are cached metadata that may go
// stale at any time. Consumers revalidate through the window facade before
// acting on a handle.
type WindowHandle struct {
	ID      uint64 `json:"id"`
	Title   string `json:"title"`
	Class   string `json:"class,omitempty"`
	PID     int32  `json:"pid"`
	Visible bool   `json:"visible"`
}

// IsZero reports whether the handle references no window
func (w WindowHandle) IsZero() bool {
	return w.ID == 0
}

// ProcessStats is a process resource snapshot reported by the window agent
type ProcessStats struct {
	PID        int32   `json:"pid"`
	MemoryMB   float64 `json:"memory_mb"`
	Responding bool    `json:"responding"`
	Running    bool    `json:"running"`
}
