package types

import (
	"time"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/id"
)

// EventType identifies a lifecycle event kind
type EventType string

const (
	EventInstanceActivated    EventType = "instance.activated"
	EventInstanceDeactivated  EventType = "instance.deactivated"
	EventInstanceClosed       EventType = "instance.closed"
	EventInstanceStateChanged EventType = "instance.state_changed"
)

// Event is the envelope published to lifecycle subscribers. Instance is a
// snapshot taken at publish time; From/To are set for state changes only.
type Event struct {
	ID       id.EventID          `json:"id"`
	Type     EventType           `json:"type"`
	Time     time.Time           `json:"time"`
	Instance ApplicationInstance `json:"instance"`
	From     ApplicationState    `json:"from,omitempty"`
	To       ApplicationState    `json:"to,omitempty"`
}
