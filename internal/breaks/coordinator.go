// Package breaks implements the explicit pause/resume gate for
// scheduled rest periods, independent of organic idle detection.
package breaks

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shoreagents/staffmon/internal/domain"
)

// Pausable is the aggregator surface the coordinator drives.
type Pausable interface {
	Pause()
	Resume()
}

// IdleSuppressor is the classifier surface the coordinator drives:
// idle-detection side effects are disabled for the break's duration.
type IdleSuppressor interface {
	Suspend()
	Resume()
}

// Coordinator is the {WORKING, ON_BREAK} state machine. It is the sole
// writer of break state; aggregator and capture scheduler read it to
// avoid acting during a break. At most one open session at a time.
type Coordinator struct {
	aggregator Pausable
	classifier IdleSuppressor
	store      domain.StateStore
	logger     *zap.Logger

	mu      sync.Mutex
	current *domain.BreakSession
}

// NewCoordinator creates a coordinator in the WORKING state. A nil
// store disables open-break persistence.
func NewCoordinator(agg Pausable, cls IdleSuppressor, store domain.StateStore, logger *zap.Logger) *Coordinator {
	return &Coordinator{aggregator: agg, classifier: cls, store: store, logger: logger}
}

// Restore resumes a break left open by a previous process. Called once
// at startup, before tracking starts.
func (c *Coordinator) Restore() {
	if c.store == nil {
		return
	}
	open, err := c.store.LoadOpenBreak()
	if err != nil {
		c.logger.Warn("could not load open break session", zap.Error(err))
		return
	}
	if open == nil {
		return
	}
	c.mu.Lock()
	c.current = open
	c.mu.Unlock()
	c.aggregator.Pause()
	c.classifier.Suspend()
	c.logger.Info("resumed open break session", zap.String("type", string(open.Type)))
}

// OnBreak reports whether a break session is open.
func (c *Coordinator) OnBreak() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Current returns a copy of the open session, nil when working.
func (c *Coordinator) Current() *domain.BreakSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	cp := *c.current
	return &cp
}

// Start opens a break session, pauses the aggregator, and disables
// idle-detection side effects. Starting while already on break is an
// idempotent no-op returning the existing session.
func (c *Coordinator) Start(typ domain.BreakType, awayReason string, scheduledStart *time.Time) *domain.BreakSession {
	c.mu.Lock()
	if c.current != nil {
		cp := *c.current
		c.mu.Unlock()
		c.logger.Debug("break already open", zap.String("type", string(cp.Type)))
		return &cp
	}

	now := time.Now()
	session := &domain.BreakSession{
		Type:           typ,
		AwayReason:     awayReason,
		ScheduledStart: scheduledStart,
		ActualStart:    &now,
	}
	if scheduledStart != nil && now.After(*scheduledStart) {
		session.Late = true
		session.LateBy = now.Sub(*scheduledStart).Seconds()
	}
	c.current = session
	cp := *session
	c.mu.Unlock()

	c.aggregator.Pause()
	c.classifier.Suspend()
	if c.store != nil {
		if err := c.store.SaveOpenBreak(cp); err != nil {
			c.logger.Warn("could not persist open break", zap.Error(err))
		}
	}

	c.logger.Info("break started",
		zap.String("type", string(typ)),
		zap.Bool("late", session.Late))
	return &cp
}

// End closes the open session, resumes the aggregator, and re-enables
// idle detection. Ending while working is an idempotent no-op.
func (c *Coordinator) End() *domain.BreakSession {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return nil
	}
	now := time.Now()
	c.current.ActualEnd = &now
	closed := *c.current
	c.current = nil
	c.mu.Unlock()

	c.aggregator.Resume()
	c.classifier.Resume()
	if c.store != nil {
		if err := c.store.ClearOpenBreak(); err != nil {
			c.logger.Warn("could not clear open break", zap.Error(err))
		}
	}

	c.logger.Info("break ended", zap.String("type", string(closed.Type)))
	return &closed
}
