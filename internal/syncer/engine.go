package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shoreagents/staffmon/internal/domain"
)

// SnapshotSource is the aggregator surface the engine reads.
type SnapshotSource interface {
	Snapshot() domain.MetricSnapshot
}

// Config holds the engine's cadence and retry policy.
type Config struct {
	Interval    time.Duration // sync cadence
	MaxAttempts int           // retries before abandoning until next interval
	RetryDelay  time.Duration // linear backoff base unit
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    30 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  5 * time.Second,
	}
}

// ErrSyncInFlight is returned when a sync round is skipped because one
// is already running.
var ErrSyncInFlight = errors.New("sync already in progress")

// Engine owns the last-acknowledged baseline exclusively. One round:
// read a snapshot atomically, compute the delta, transmit, and on
// success promote the snapshot to the new baseline. On failure, retry
// with linear backoff up to MaxAttempts.
type Engine struct {
	source SnapshotSource
	sink   domain.MetricsSink
	store  domain.StateStore // optional baseline persistence
	config Config
	logger *zap.Logger

	mu         sync.Mutex
	last       *domain.MetricSnapshot
	retryCount int
	syncing    bool
	gen        uint64 // bumped by Reset; stale rounds must not promote

	kick chan struct{}
}

// NewEngine creates a sync engine. A nil store disables baseline
// persistence; the engine then starts with a nil baseline after every
// process restart.
func NewEngine(source SnapshotSource, sink domain.MetricsSink, store domain.StateStore, config Config, logger *zap.Logger) *Engine {
	e := &Engine{
		source: source,
		sink:   sink,
		store:  store,
		config: config,
		logger: logger,
		kick:   make(chan struct{}, 1),
	}
	if store != nil {
		baseline, err := store.LoadBaseline()
		if err != nil {
			logger.Warn("could not load persisted baseline", zap.Error(err))
		} else if baseline != nil {
			e.last = baseline
			logger.Info("restored sync baseline from local store")
		}
	}
	return e
}

// Run syncs immediately, then on the configured interval until the
// context is canceled. Failed rounds are retried with linear backoff;
// after MaxAttempts the engine abandons until the next natural tick.
// Blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.config.Interval)
	defer ticker.Stop()

	var retryTimer *time.Timer
	var retryC <-chan time.Time // nil blocks forever in select

	attempt := func() {
		err := e.Sync(ctx)
		switch {
		case err == nil, errors.Is(err, ErrSyncInFlight):
			retryTimer = nil
			retryC = nil
		default:
			e.mu.Lock()
			count := e.retryCount
			e.mu.Unlock()
			if count >= e.config.MaxAttempts {
				e.logger.Warn("sync retries exhausted, waiting for next interval",
					zap.Int("attempts", count))
				e.mu.Lock()
				e.retryCount = 0
				e.mu.Unlock()
				retryTimer = nil
				retryC = nil
				return
			}
			delay := e.config.RetryDelay * time.Duration(count)
			e.logger.Info("scheduling sync retry",
				zap.Int("attempt", count),
				zap.Duration("delay", delay))
			retryTimer = time.NewTimer(delay)
			retryC = retryTimer.C
		}
	}

	attempt()

	for {
		select {
		case <-ctx.Done():
			if retryTimer != nil {
				retryTimer.Stop()
			}
			return
		case <-ticker.C:
			attempt()
		case <-retryC:
			attempt()
		case <-e.kick:
			attempt()
		}
	}
}

// Kick requests an immediate sync round outside the normal cadence.
func (e *Engine) Kick() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Sync performs one round. Skips with ErrSyncInFlight if a round is
// already running.
func (e *Engine) Sync(ctx context.Context) error {
	e.mu.Lock()
	if e.syncing {
		e.mu.Unlock()
		e.logger.Debug("sync tick skipped, round in flight")
		return ErrSyncInFlight
	}
	e.syncing = true
	baseline := e.last
	gen := e.gen
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	current := e.source.Snapshot()
	delta := ComputeDelta(baseline, current)

	if err := e.sink.PushMetrics(ctx, delta); err != nil {
		e.mu.Lock()
		e.retryCount++
		count := e.retryCount
		e.mu.Unlock()
		e.logger.Warn("metrics sync failed",
			zap.Error(err),
			zap.Int("retry_count", count))
		return err
	}

	promoted := current.Clone()
	e.mu.Lock()
	if e.gen != gen {
		// A reset ran while this round was in flight; promoting the
		// pre-reset snapshot would corrupt the fresh baseline.
		e.mu.Unlock()
		e.logger.Debug("discarding stale sync round after reset")
		return nil
	}
	e.last = &promoted
	e.retryCount = 0
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveBaseline(promoted); err != nil {
			e.logger.Warn("could not persist sync baseline", zap.Error(err))
		}
	}

	e.logger.Debug("metrics sync ok",
		zap.Int64("keystrokes_delta", delta.Keystrokes),
		zap.Float64("active_delta", delta.ActiveSeconds))
	return nil
}

// Reset discards the baseline so the next round transmits absolute
// values. Must run before any remote shift-started signal is acted on,
// otherwise residual deltas from the prior shift get attributed to the
// new one. The caller kicks a prompt sync after zeroing the
// aggregator, so the fresh baseline is established quickly instead of
// waiting a full interval.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.last = nil
	e.retryCount = 0
	e.gen++
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.ClearBaseline(); err != nil {
			e.logger.Warn("could not clear persisted baseline", zap.Error(err))
		}
	}
	e.logger.Info("sync baseline cleared")
}

// Baseline returns a copy of the last-acknowledged snapshot, nil if
// none. Exposed for the status surface and tests.
func (e *Engine) Baseline() *domain.MetricSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return nil
	}
	cp := e.last.Clone()
	return &cp
}
