package metrics

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shoreagents/staffmon/internal/domain"
)

// Set membership beyond this many entries is counted but not stored, so
// sync payloads stay bounded.
const maxSetEntries = 1000

// EligibilityGate is consulted before the tick loop starts. Tracking
// must stay down while the workstation shows a non-staff context.
type EligibilityGate interface {
	Eligible() bool
}

// Aggregator owns the cumulative counters and timers for the current
// shift. All operations are pure in-memory state changes and cannot
// fail; platform observers that cannot initialize simply leave their
// counter at zero.
type Aggregator struct {
	classifier *Classifier
	gate       EligibilityGate
	interval   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	snap     domain.MetricSnapshot
	apps     map[string]struct{}
	urls     map[string]struct{}
	paused   bool
	running  bool
	stopLoop context.CancelFunc
}

// NewAggregator creates an aggregator ticking at the given interval.
func NewAggregator(classifier *Classifier, gate EligibilityGate, interval time.Duration, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		classifier: classifier,
		gate:       gate,
		interval:   interval,
		logger:     logger,
		apps:       make(map[string]struct{}),
		urls:       make(map[string]struct{}),
	}
}

// Start begins periodic ticking. No-op if already running or if the
// gate reports an ineligible context.
func (a *Aggregator) Start(ctx context.Context) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	if a.gate != nil && !a.gate.Eligible() {
		a.mu.Unlock()
		a.logger.Info("tracking not started, context ineligible")
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	a.running = true
	a.stopLoop = cancel
	a.mu.Unlock()

	a.logger.Info("tracking started", zap.Duration("interval", a.interval))
	go a.loop(loopCtx)
}

// Stop halts the tick loop. Idempotent.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	cancel := a.stopLoop
	a.running = false
	a.stopLoop = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
		a.logger.Info("tracking stopped")
	}
}

// Running reports whether the tick loop is active.
func (a *Aggregator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *Aggregator) loop(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.classifier.Observe(now)
			a.Tick(a.interval)
		}
	}
}

// Tick advances the shift timers by one elapsed interval. Screen time
// accrues unconditionally; active time accrues only while the
// classifier reports activity. Idle time is credited separately via
// AddIdleTime when the classifier confirms a span, never here.
func (a *Aggregator) Tick(elapsed time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.paused {
		return
	}
	sec := elapsed.Seconds()
	a.snap.ScreenSeconds += sec
	if !a.classifier.IsIdle() {
		a.snap.ActiveSeconds += sec
	}
	a.snap.ProductivityScore = productivityScore(a.snap)
}

// RecordInput increments the counter matching a discrete input event.
func (a *Aggregator) RecordInput(kind domain.InputKind) {
	a.classifier.NoteActivity(time.Now())
	a.mu.Lock()
	defer a.mu.Unlock()
	switch kind {
	case domain.InputKey:
		a.snap.Keystrokes++
	case domain.InputClick:
		a.snap.MouseClicks++
	case domain.InputMouseMove:
		a.snap.MouseMovements++
	}
}

// RecordClipboardChange counts one clipboard action.
func (a *Aggregator) RecordClipboardChange() {
	a.mu.Lock()
	a.snap.ClipboardActions++
	a.mu.Unlock()
}

// RecordAppSwitch adds an application to the used set.
func (a *Aggregator) RecordAppSwitch(name string) {
	if name == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, seen := a.apps[name]; !seen {
		if len(a.apps) < maxSetEntries {
			a.apps[name] = struct{}{}
			a.snap.ApplicationsUsed = append(a.snap.ApplicationsUsed, name)
		}
	}
	a.snap.TabsSwitched++
}

// RecordURLVisit counts a URL visit and adds it to the visited set.
func (a *Aggregator) RecordURLVisit(url string) {
	if url == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snap.URLsVisited++
	if _, seen := a.urls[url]; !seen && len(a.urls) < maxSetEntries {
		a.urls[url] = struct{}{}
		a.snap.VisitedURLs = append(a.snap.VisitedURLs, url)
	}
}

// RecordFileAccessed counts one file access.
func (a *Aggregator) RecordFileAccessed() {
	a.mu.Lock()
	a.snap.FilesAccessed++
	a.mu.Unlock()
}

// RecordDownload counts one download.
func (a *Aggregator) RecordDownload() {
	a.mu.Lock()
	a.snap.Downloads++
	a.mu.Unlock()
}

// RecordUpload counts one upload.
func (a *Aggregator) RecordUpload() {
	a.mu.Lock()
	a.snap.Uploads++
	a.mu.Unlock()
}

// AddBandwidth adds transferred bytes. Negative deltas are ignored to
// preserve monotonicity.
func (a *Aggregator) AddBandwidth(bytes int64) {
	if bytes <= 0 {
		return
	}
	a.mu.Lock()
	a.snap.BandwidthBytes += bytes
	a.mu.Unlock()
}

// AddIdleTime credits a confirmed idle span in seconds. External
// credit path: only the classifier's idle-ended event calls this.
func (a *Aggregator) AddIdleTime(seconds float64) {
	if seconds <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.paused {
		return
	}
	a.snap.IdleSeconds += seconds
	a.snap.ProductivityScore = productivityScore(a.snap)
}

// Pause suspends tick accrual. Idempotent; the loop keeps running so
// resume costs nothing.
func (a *Aggregator) Pause() {
	a.mu.Lock()
	a.paused = true
	a.mu.Unlock()
}

// Resume clears the pause flag. Idempotent.
func (a *Aggregator) Resume() {
	a.mu.Lock()
	a.paused = false
	a.mu.Unlock()
}

// Paused reports the pause flag.
func (a *Aggregator) Paused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paused
}

// Reset zeroes the snapshot and clears both sets. Used on clock-in and
// at local-midnight rollover, always paired with discarding the sync
// baseline.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.snap = domain.MetricSnapshot{}
	a.apps = make(map[string]struct{})
	a.urls = make(map[string]struct{})
	a.mu.Unlock()
	a.logger.Info("metrics reset")
}

// Snapshot returns a deep copy of the current cumulative state. The
// copy is read atomically so a delta is never computed from a
// half-updated snapshot.
func (a *Aggregator) Snapshot() domain.MetricSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap.Clone()
}

// productivityScore derives the 0-100 score from activity ratio,
// keystrokes, and clicks, each term saturating at its cap.
func productivityScore(s domain.MetricSnapshot) int {
	var activity float64
	if total := s.ActiveSeconds + s.IdleSeconds; total > 0 {
		activity = math.Min(40*s.ActiveSeconds/total, 40)
	}
	keys := math.Min(30*float64(s.Keystrokes)/5000, 30)
	clicks := math.Min(30*float64(s.MouseClicks)/1000, 30)
	return int(math.Round(activity + keys + clicks))
}
