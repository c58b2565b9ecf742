package lifecycle

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/monitoring"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/id"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventActivated    EventType = "instance.activated"
	EventDeactivated  EventType = "instance.deactivated"
	EventClosed       EventType = "instance.closed"
	EventStateChanged EventType = "instance.state_changed"
)

// Event is the envelope delivered to subscribers. Instance is a flat copy
// and safe to serialize after delivery.
type Event struct {
	ID       id.EventID                `json:"id"`
	Type     EventType                 `json:"type"`
	Time     time.Time                 `json:"time"`
	Instance types.ApplicationInstance `json:"instance"`
	From     types.ApplicationState    `json:"from,omitempty"`
	To       types.ApplicationState    `json:"to,omitempty"`
}

// Bus fans lifecycle events out to subscribers over per-subscriber buffered
// channels. Publishing never blocks: a subscriber whose buffer is full loses
// the event, and the drop is counted. Publishers are the lifecycle workers
// that detected the change.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	nextSub int
	closed  bool

	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewBus creates an event bus.
func NewBus(logger *logging.Logger, metrics *monitoring.Metrics) *Bus {
	return &Bus{
		subs:    make(map[int]chan Event),
		logger:  logger.Component("event-bus"),
		metrics: metrics,
	}
}

// Subscribe registers a subscriber with the given buffer size and returns
// its receive channel plus a cancel func. Cancel closes the channel and is
// safe to call more than once. Subscribing to a closed bus returns an
// already-closed channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	subID := b.nextSub
	b.nextSub++
	b.subs[subID] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[subID]; ok {
			delete(b.subs, subID)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers evt to every subscriber without blocking. Missing envelope
// fields are filled in.
func (b *Bus) Publish(evt Event) {
	if evt.ID == "" {
		evt.ID = id.NewEventID()
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	b.metrics.RecordEvent(string(evt.Type))
	for subID, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			b.metrics.RecordEventDropped(string(evt.Type))
			b.logger.Warn("Subscriber buffer full, event dropped",
				zap.Int("subscriber", subID),
				zap.String("type", string(evt.Type)),
				zap.String("instance_id", evt.Instance.ID.String()),
			)
		}
	}
}

// Close closes every subscriber channel and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for subID, ch := range b.subs {
		delete(b.subs, subID)
		close(ch)
	}
}
