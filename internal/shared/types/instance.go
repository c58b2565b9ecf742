package types

import (
	"time"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/id"
)

// ApplicationInstance is a single tracked launch of a catalog application.
// Instance ids are unique for the registry's lifetime and never reused.
type ApplicationInstance struct {
	ID         id.InstanceID    `json:"id"`
	App        Application      `json:"app"` // Copy of the catalog record, read-only
	PID        int32            `json:"pid"` // Synthetic (host pid or 0) for virtual and handle-less launches
	Window     *WindowHandle    `json:"window,omitempty"`
	State      ApplicationState `json:"state"`
	StartTime  time.Time        `json:"start_time"`
	LastUpdate time.Time        `json:"last_update"`
	LaunchedBy string           `json:"launched_by"` // Opaque launching-user identity
	IsVirtual  bool             `json:"is_virtual"`  // In-process instance, no dedicated OS process

	// Refreshed by polling
	IsResponding bool    `json:"is_responding"`
	IsMinimized  bool    `json:"is_minimized"`
	MemoryMB     float64 `json:"memory_mb"`
}

// Snapshot returns a deep copy safe to hand to event subscribers
func (i ApplicationInstance) Snapshot() ApplicationInstance {
	out := i
	if i.Window != nil {
		w := *i.Window
		out.Window = &w
	}
	return out
}

// HasWindow reports whether a main window has been correlated
func (i ApplicationInstance) HasWindow() bool {
	return i.Window != nil && !i.Window.IsZero()
}

// Stats contains instance registry statistics
type Stats struct {
	Total    int                      `json:"total"`
	Live     int                      `json:"live"`
	ByState  map[ApplicationState]int `json:"by_state"`
	ActiveID *id.InstanceID           `json:"active_id,omitempty"` // Foreground instance, if any
}
