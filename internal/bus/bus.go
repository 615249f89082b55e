// Package bus is a minimal in-process publish/subscribe dispatcher.
// The context gate, aggregator, and capture scheduler subscribe to
// navigation/idle/power events independently instead of being
// hard-wired into one orchestrator function.
package bus

import (
	"sync"
	"time"

	"github.com/shoreagents/staffmon/internal/domain"
)

// Topic names an event stream.
type Topic string

const (
	// TopicNavigation fires on every portal navigation event.
	TopicNavigation Topic = "navigation"

	// TopicIdleStarted fires once when idle duration crosses the
	// configured threshold.
	TopicIdleStarted Topic = "idle.started"

	// TopicIdleEnded fires on the idle-to-active transition, carrying
	// the confirmed idle span. Only this event credits idle time.
	TopicIdleEnded Topic = "idle.ended"

	// TopicInactivity fires once when idle duration crosses the
	// screenshot inactivity threshold, which is configured
	// independently of the tracking idle threshold.
	TopicInactivity Topic = "idle.inactivity"

	// TopicPowerSuspend and TopicPowerResume mirror host power events.
	TopicPowerSuspend Topic = "power.suspend"
	TopicPowerResume  Topic = "power.resume"
)

// Event is the payload delivered to subscribers. Fields are populated
// per topic; unused fields are zero.
type Event struct {
	Topic    Topic
	At       time.Time
	Context  domain.WorkContext // TopicNavigation
	IdleFor  time.Duration      // TopicIdleStarted, TopicInactivity
	IdleSpan time.Duration      // TopicIdleEnded
}

// Handler consumes one event. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

// Bus fans events out to per-topic subscriber lists.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Topic][]Handler
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[Topic][]Handler)}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic Topic, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Publish delivers the event to every subscriber of its topic.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.RLock()
	subs := b.handlers[ev.Topic]
	b.mu.RUnlock()
	for _, h := range subs {
		h(ev)
	}
}
