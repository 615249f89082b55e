// Package capture implements the screenshot scheduler: a fixed-interval
// trigger and an inactivity trigger funneling into one non-overlapping
// capture-and-upload routine.
package capture

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/shoreagents/staffmon/internal/domain"
)

// BreakState tells the scheduler whether captures must be withheld.
type BreakState interface {
	OnBreak() bool
}

// Config holds capture cadence and image parameters.
type Config struct {
	Interval    time.Duration // scheduled trigger cadence
	JPEGQuality int           // lossy encode quality
	Scale       float64       // linear downsample factor
}

// DefaultConfig returns the scheduler defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    60 * time.Second,
		JPEGQuality: 60,
		Scale:       0.5,
	}
}

// Scheduler drives screenshot capture. A single in-flight flag guards
// the capture routine: a trigger arriving while a cycle runs is
// dropped, not queued.
type Scheduler struct {
	capturer domain.ScreenCapturer
	sink     domain.ScreenshotSink
	breaks   BreakState
	config   Config
	logger   *zap.Logger

	processing atomic.Bool
	enabled    atomic.Bool
}

// NewScheduler creates a scheduler. An unavailable capturer leaves the
// feature permanently degraded, logged once.
func NewScheduler(capturer domain.ScreenCapturer, sink domain.ScreenshotSink, breaks BreakState, config Config, logger *zap.Logger) *Scheduler {
	s := &Scheduler{
		capturer: capturer,
		sink:     sink,
		breaks:   breaks,
		config:   config,
		logger:   logger,
	}
	if capturer == nil || !capturer.Available() {
		s.capturer = nil
		logger.Info("screen capture unavailable on this host, screenshots disabled")
	}
	s.enabled.Store(true)
	return s
}

// Enable re-arms the scheduled trigger (context became eligible).
func (s *Scheduler) Enable() { s.enabled.Store(true) }

// Disable stops the scheduled trigger without tearing the loop down.
func (s *Scheduler) Disable() { s.enabled.Store(false) }

// Run takes an initial capture, then fires the scheduled trigger at
// the configured cadence. Blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.CaptureAllScreens(ctx, domain.CaptureInitial)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.enabled.Load() {
				s.CaptureAllScreens(ctx, domain.CaptureScheduled)
			}
		}
	}
}

// HandleInactivity is the inactivity trigger, invoked by the
// classifier's inactivity event rather than this component's clock.
func (s *Scheduler) HandleInactivity(ctx context.Context) {
	if s.enabled.Load() {
		s.CaptureAllScreens(ctx, domain.CaptureInactivity)
	}
}

// CaptureAllScreens runs one capture cycle: every attached display is
// rasterized, downsampled, encoded, and uploaded independently.
// Partial upload failure never blocks the other displays; each failed
// capture is logged and lost. Overlapping invocations are no-ops.
func (s *Scheduler) CaptureAllScreens(ctx context.Context, reason domain.CaptureReason) {
	if s.capturer == nil {
		return
	}
	if s.breaks != nil && s.breaks.OnBreak() {
		s.logger.Debug("capture withheld during break", zap.String("reason", string(reason)))
		return
	}
	if !s.processing.CompareAndSwap(false, true) {
		s.logger.Debug("capture dropped, cycle in flight", zap.String("reason", string(reason)))
		return
	}
	defer s.processing.Store(false)

	displays := s.capturer.NumDisplays()
	if displays == 0 {
		return
	}
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < displays; i++ {
		img, err := s.capturer.CaptureDisplay(i)
		if err != nil {
			s.logger.Warn("display capture failed",
				zap.Int("display", i),
				zap.Error(err))
			continue
		}
		encoded, err := s.encode(img)
		if err != nil {
			s.logger.Warn("screenshot encode failed",
				zap.Int("display", i),
				zap.Error(err))
			continue
		}
		event := domain.CaptureEvent{
			ID:         uuid.NewString(),
			Display:    i,
			Image:      encoded,
			Reason:     reason,
			CapturedAt: now,
		}
		wg.Add(1)
		go func(ev domain.CaptureEvent) {
			defer wg.Done()
			if err := s.sink.UploadScreenshot(ctx, ev); err != nil {
				s.logger.Warn("screenshot upload failed, dropping",
					zap.Int("display", ev.Display),
					zap.String("reason", string(ev.Reason)),
					zap.Error(err))
			}
		}(event)
	}
	wg.Wait()

	s.logger.Debug("capture cycle done",
		zap.Int("displays", displays),
		zap.String("reason", string(reason)))
}

// Processing reports whether a cycle is in flight.
func (s *Scheduler) Processing() bool { return s.processing.Load() }

// encode downsamples the raster and encodes it as lossy JPEG.
func (s *Scheduler) encode(src image.Image) ([]byte, error) {
	bounds := src.Bounds()
	w := int(float64(bounds.Dx()) * s.config.Scale)
	h := int(float64(bounds.Dy()) * s.config.Scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, bounds, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: s.config.JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
