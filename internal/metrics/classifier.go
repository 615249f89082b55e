// Package metrics implements the idle/active classifier and the
// cumulative metrics aggregator for the current shift.
package metrics

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shoreagents/staffmon/internal/bus"
	"github.com/shoreagents/staffmon/internal/domain"
)

// Classifier decides whether the user is active or idle at each
// sampling tick. It prefers the platform idle probe and falls back to
// the timestamp of the last observed input event.
//
// The classifier is the single owner of idle accrual: on the
// idle-to-active transition it publishes the confirmed idle span on the
// bus, and only that event credits idle time in the aggregator. The
// tick loop itself never adds idle seconds, so a span is counted
// exactly once.
type Classifier struct {
	probe            domain.IdleProber
	threshold        time.Duration
	captureThreshold time.Duration
	bus              *bus.Bus
	logger           *zap.Logger

	mu           sync.Mutex
	lastActivity time.Time
	idleSince    time.Time // zero while active
	captureFired bool      // inactivity event sent this episode
	suspended    bool      // break coordinator gate
}

// NewClassifier creates a classifier. The capture threshold is the
// separate crossing for the screenshot inactivity trigger. A nil or
// unavailable probe degrades to the timestamp fallback, logged once.
func NewClassifier(probe domain.IdleProber, threshold, captureThreshold time.Duration, b *bus.Bus, logger *zap.Logger) *Classifier {
	c := &Classifier{
		probe:            probe,
		threshold:        threshold,
		captureThreshold: captureThreshold,
		bus:              b,
		logger:           logger,
		lastActivity:     time.Now(),
	}
	if probe == nil || !probe.Available() {
		c.probe = nil
		logger.Info("platform idle probe unavailable, using activity-timestamp fallback")
	}
	return c
}

// IdleSeconds returns seconds since the last global input. Pure read,
// no side effects, never fails.
func (c *Classifier) IdleSeconds() float64 {
	if c.probe != nil {
		if s, err := c.probe.IdleSeconds(); err == nil {
			return s
		}
	}
	c.mu.Lock()
	last := c.lastActivity
	c.mu.Unlock()
	return time.Since(last).Seconds()
}

// IsIdle reports whether idle duration has reached the threshold.
func (c *Classifier) IsIdle() bool {
	return c.IdleSeconds() >= c.threshold.Seconds()
}

// NoteActivity records an observed input event for the fallback path.
// Called by input observers; cheap enough for every event.
func (c *Classifier) NoteActivity(at time.Time) {
	c.mu.Lock()
	if at.After(c.lastActivity) {
		c.lastActivity = at
	}
	c.mu.Unlock()
}

// Suspend disables idle-transition events during a break. Idle state
// is discarded so a break never converts into a credited idle span.
func (c *Classifier) Suspend() {
	c.mu.Lock()
	c.suspended = true
	c.idleSince = time.Time{}
	c.captureFired = false
	c.mu.Unlock()
}

// Resume re-enables idle-transition events after a break.
func (c *Classifier) Resume() {
	c.mu.Lock()
	c.suspended = false
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

// Observe is called once per tick. It detects threshold crossings and
// idle-to-active transitions, publishing TopicIdleStarted,
// TopicIdleEnded, and TopicInactivity.
func (c *Classifier) Observe(now time.Time) {
	idleFor := time.Duration(c.IdleSeconds() * float64(time.Second))

	c.mu.Lock()
	if c.suspended {
		c.mu.Unlock()
		return
	}

	var events []bus.Event

	switch {
	case idleFor >= c.threshold && c.idleSince.IsZero():
		// Crossed into idle. The span starts at the crossing: the
		// window before it is already counted as active by the tick
		// loop, and a probe value reaching back across a break never
		// enters the span.
		c.idleSince = now
		events = append(events, bus.Event{Topic: bus.TopicIdleStarted, At: now, IdleFor: idleFor})

	case idleFor < c.threshold && !c.idleSince.IsZero():
		span := now.Sub(c.idleSince)
		c.idleSince = time.Time{}
		if span > 0 {
			events = append(events, bus.Event{Topic: bus.TopicIdleEnded, At: now, IdleSpan: span})
		}
	}

	// The screenshot trigger has its own crossing, once per episode.
	if idleFor >= c.captureThreshold {
		if !c.captureFired {
			c.captureFired = true
			events = append(events, bus.Event{Topic: bus.TopicInactivity, At: now, IdleFor: idleFor})
		}
	} else {
		c.captureFired = false
	}
	c.mu.Unlock()

	for _, ev := range events {
		c.bus.Publish(ev)
	}
}
