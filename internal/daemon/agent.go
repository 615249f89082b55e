// Package daemon wires the telemetry components together and runs them
// as one event/timer-driven agent process.
package daemon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shoreagents/staffmon/internal/breaks"
	"github.com/shoreagents/staffmon/internal/bus"
	"github.com/shoreagents/staffmon/internal/capture"
	"github.com/shoreagents/staffmon/internal/domain"
	"github.com/shoreagents/staffmon/internal/identity"
	"github.com/shoreagents/staffmon/internal/metrics"
	"github.com/shoreagents/staffmon/internal/syncer"
)

// Config holds the agent's housekeeping cadences.
type Config struct {
	ObserverInterval time.Duration // app/bandwidth/clipboard sampling
	RolloverInterval time.Duration // local-midnight detection
}

// DefaultConfig returns the agent defaults.
func DefaultConfig() Config {
	return Config{
		ObserverInterval: 5 * time.Second,
		RolloverInterval: 30 * time.Second,
	}
}

// Agent owns the component graph: classifier feeds aggregator each
// tick, observers feed discrete increments, the break coordinator
// gates accrual, the capture scheduler and sync engine run on their
// own cadences. Everything is constructor-wired; no globals.
type Agent struct {
	config     Config
	events     *bus.Bus
	gate       *Gate
	classifier *metrics.Classifier
	aggregator *metrics.Aggregator
	breaks     *breaks.Coordinator
	engine     *syncer.Engine
	scheduler  *capture.Scheduler
	binder     *identity.Binder

	apps      domain.ApplicationObserver
	bandwidth domain.BandwidthObserver
	clipboard domain.ClipboardWatcher

	logger *zap.Logger

	mu        sync.Mutex
	runCtx    context.Context
	trackStop context.CancelFunc
	startedAt time.Time
	lastDay   int
}

// NewAgent wires the agent. Nil observers degrade to "counter stays
// at zero", logged once at startup.
func NewAgent(
	config Config,
	events *bus.Bus,
	gate *Gate,
	classifier *metrics.Classifier,
	aggregator *metrics.Aggregator,
	breakCoordinator *breaks.Coordinator,
	engine *syncer.Engine,
	scheduler *capture.Scheduler,
	binder *identity.Binder,
	apps domain.ApplicationObserver,
	bandwidth domain.BandwidthObserver,
	clipboard domain.ClipboardWatcher,
	logger *zap.Logger,
) *Agent {
	a := &Agent{
		config:     config,
		events:     events,
		gate:       gate,
		classifier: classifier,
		aggregator: aggregator,
		breaks:     breakCoordinator,
		engine:     engine,
		scheduler:  scheduler,
		binder:     binder,
		apps:       apps,
		bandwidth:  bandwidth,
		clipboard:  clipboard,
		logger:     logger,
	}

	if apps == nil || !apps.Available() {
		a.apps = nil
		logger.Info("application observer unavailable, applicationsUsed stays empty")
	}
	if bandwidth == nil || !bandwidth.Available() {
		a.bandwidth = nil
		logger.Info("bandwidth observer unavailable, bandwidthBytes stays zero")
	}
	if clipboard == nil || !clipboard.Available() {
		a.clipboard = nil
		logger.Info("clipboard watcher unavailable, clipboardActions stays zero")
	}

	a.subscribe()
	return a
}

// subscribe registers the agent's bus handlers. The gate, aggregator,
// and scheduler each listen independently.
func (a *Agent) subscribe() {
	a.events.Subscribe(bus.TopicNavigation, a.gate.HandleNavigation)

	a.events.Subscribe(bus.TopicIdleEnded, func(ev bus.Event) {
		a.aggregator.AddIdleTime(ev.IdleSpan.Seconds())
	})

	a.events.Subscribe(bus.TopicInactivity, func(ev bus.Event) {
		a.mu.Lock()
		ctx := a.runCtx
		a.mu.Unlock()
		if ctx == nil {
			return
		}
		// Uploads must not block the publisher's tick goroutine.
		go a.scheduler.HandleInactivity(ctx)
	})

	a.events.Subscribe(bus.TopicPowerSuspend, func(bus.Event) {
		a.logger.Info("host suspending, pausing accrual")
		a.aggregator.Pause()
	})
	a.events.Subscribe(bus.TopicPowerResume, func(bus.Event) {
		if a.breaks.OnBreak() {
			return // break pause outranks power resume
		}
		a.logger.Info("host resumed, resuming accrual")
		a.aggregator.Resume()
		a.classifier.NoteActivity(time.Now())
	})

	a.gate.OnTransition(a.startTracking, a.stopTracking)
}

// Run starts the agent's long-lived loops and blocks until the
// context is canceled. In-flight network calls finish on their own
// bounded timeouts rather than being aborted, since a partially
// acknowledged delta is unrecoverable.
func (a *Agent) Run(ctx context.Context) error {
	a.mu.Lock()
	a.runCtx = ctx
	a.startedAt = time.Now()
	a.lastDay = time.Now().Day()
	a.mu.Unlock()

	a.breaks.Restore()

	go a.binder.Run(ctx)

	a.startTracking()

	observerTicker := time.NewTicker(a.config.ObserverInterval)
	rolloverTicker := time.NewTicker(a.config.RolloverInterval)
	defer observerTicker.Stop()
	defer rolloverTicker.Stop()

	a.logger.Info("agent started")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("agent stopping")
			a.stopTracking()
			return ctx.Err()

		case <-observerTicker.C:
			a.sampleObservers()

		case <-rolloverTicker.C:
			a.checkMidnightRollover()
		}
	}
}

// startTracking launches the aggregator tick loop, the sync engine,
// and the capture scheduler under a cancelable sub-context. Refused
// outright while the context is ineligible: no tick loop, no sync, and
// no initial capture.
func (a *Agent) startTracking() {
	if !a.gate.Eligible() {
		a.logger.Info("tracking not started, context ineligible")
		return
	}
	a.mu.Lock()
	if a.trackStop != nil || a.runCtx == nil {
		a.mu.Unlock()
		return
	}
	trackCtx, cancel := context.WithCancel(a.runCtx)
	a.trackStop = cancel
	a.mu.Unlock()

	a.aggregator.Start(trackCtx)
	a.scheduler.Enable()
	go a.engine.Run(trackCtx)
	go a.scheduler.Run(trackCtx)
}

// stopTracking tears the tracking loops down. Idempotent.
func (a *Agent) stopTracking() {
	a.mu.Lock()
	cancel := a.trackStop
	a.trackStop = nil
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	a.scheduler.Disable()
	a.aggregator.Stop()
	cancel()
}

// sampleObservers feeds discrete increments from the optional platform
// observers into the aggregator. Skipped entirely during breaks.
func (a *Agent) sampleObservers() {
	if a.breaks.OnBreak() {
		return
	}
	if a.apps != nil {
		if fresh, err := a.apps.Sample(); err == nil {
			for _, name := range fresh {
				a.aggregator.RecordAppSwitch(name)
			}
		}
	}
	if a.bandwidth != nil {
		if delta, err := a.bandwidth.DeltaBytes(); err == nil {
			a.aggregator.AddBandwidth(delta)
		}
	}
	if a.clipboard != nil {
		if changed, err := a.clipboard.Changed(); err == nil && changed {
			a.aggregator.RecordClipboardChange()
		}
	}
}

// checkMidnightRollover resets the shift at local-date change. The
// baseline is discarded with the counters so the next delta is
// absolute, keeping server-side totals correct across the rollover.
func (a *Agent) checkMidnightRollover() {
	a.mu.Lock()
	day := time.Now().Day()
	rolled := day != a.lastDay
	a.lastDay = day
	a.mu.Unlock()

	if rolled {
		a.logger.Info("local midnight rollover, resetting shift")
		a.ClockIn()
	}
}

// --- local command surface ---

// StartTracking starts the tracking loops if the context is eligible.
func (a *Agent) StartTracking() { a.startTracking() }

// StopTracking stops the tracking loops. Idempotent.
func (a *Agent) StopTracking() { a.stopTracking() }

// PauseTracking suspends accrual without stopping the loops.
func (a *Agent) PauseTracking() { a.aggregator.Pause() }

// ResumeTracking resumes accrual unless a break is open.
func (a *Agent) ResumeTracking() {
	if a.breaks.OnBreak() {
		return
	}
	a.aggregator.Resume()
}

// StartBreak opens a break session.
func (a *Agent) StartBreak(typ domain.BreakType, awayReason string, scheduledStart *time.Time) *domain.BreakSession {
	return a.breaks.Start(typ, awayReason, scheduledStart)
}

// EndBreak closes the open break session, nil if none.
func (a *Agent) EndBreak() *domain.BreakSession {
	return a.breaks.End()
}

// ClockIn resets the shift: discard the sync baseline, zero the
// counters, then kick a prompt sync to establish the fresh baseline.
// The baseline discard runs before anything acts on the new shift so
// residual deltas cannot leak across.
func (a *Agent) ClockIn() {
	a.engine.Reset()
	a.aggregator.Reset()
	a.engine.Kick()
}

// ForceSync requests an immediate sync round.
func (a *Agent) ForceSync() { a.engine.Kick() }

// ForceCapture runs a manual capture cycle.
func (a *Agent) ForceCapture() {
	a.mu.Lock()
	ctx := a.runCtx
	a.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	a.scheduler.CaptureAllScreens(ctx, domain.CaptureManual)
}

// Snapshot returns the current cumulative metrics.
func (a *Agent) Snapshot() domain.MetricSnapshot {
	return a.aggregator.Snapshot()
}

// Status summarizes the agent's state for the status surface.
type Status struct {
	Tracking    bool                   `json:"tracking"`
	Paused      bool                   `json:"paused"`
	OnBreak     bool                   `json:"onBreak"`
	Break       *domain.BreakSession   `json:"break,omitempty"`
	Context     domain.WorkContext     `json:"context"`
	IdleSeconds float64                `json:"idleSeconds"`
	StaffID     string                 `json:"staffId,omitempty"`
	DeviceID    string                 `json:"deviceId,omitempty"`
	UptimeSec   float64                `json:"uptimeSeconds"`
	Baseline    *domain.MetricSnapshot `json:"lastAcknowledged,omitempty"`
}

// Status reports tracking, break, and identity state.
func (a *Agent) Status() Status {
	a.mu.Lock()
	started := a.startedAt
	a.mu.Unlock()

	ic := a.binder.Current()
	return Status{
		Tracking:    a.aggregator.Running(),
		Paused:      a.aggregator.Paused(),
		OnBreak:     a.breaks.OnBreak(),
		Break:       a.breaks.Current(),
		Context:     a.gate.Context(),
		IdleSeconds: a.classifier.IdleSeconds(),
		StaffID:     ic.StaffID,
		DeviceID:    ic.DeviceID,
		UptimeSec:   time.Since(started).Seconds(),
		Baseline:    a.engine.Baseline(),
	}
}

// Navigate publishes a navigation event on behalf of the surrounding
// application shell.
func (a *Agent) Navigate(ctx domain.WorkContext) {
	a.events.Publish(bus.Event{Topic: bus.TopicNavigation, Context: ctx})
}

// BindCredential installs a login-derived session credential.
func (a *Agent) BindCredential(token string) { a.binder.SetCredential(token) }

// ClearCredential drops the credential on logout.
func (a *Agent) ClearCredential() { a.binder.ClearCredential() }
