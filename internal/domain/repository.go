package domain

import (
	"context"
	"image"
)

// IdleProber reads seconds since the last global input event.
// Implementation: platform syscall where available; callers must treat
// an unavailable probe as a silent degrade to timestamp fallback.
type IdleProber interface {
	// IdleSeconds returns seconds since last global input.
	IdleSeconds() (float64, error)

	// Available reports whether the platform probe works on this host.
	Available() bool
}

// ScreenCapturer enumerates and rasterizes attached displays.
// Implementation: kbinani/screenshot; null-object fallback when the
// platform offers no capture path.
type ScreenCapturer interface {
	// NumDisplays returns the number of attached displays.
	NumDisplays() int

	// CaptureDisplay rasterizes one display at full resolution.
	CaptureDisplay(index int) (image.Image, error)

	// Available reports whether capture works on this host.
	Available() bool
}

// ApplicationObserver samples the applications in use on the host.
type ApplicationObserver interface {
	// Sample returns application names newly observed since the last
	// call. First call primes the baseline and returns nothing.
	Sample() ([]string, error)

	// Available reports whether process introspection works here.
	Available() bool
}

// ClipboardWatcher polls for clipboard content changes.
type ClipboardWatcher interface {
	// Changed reports whether clipboard content changed since last poll.
	Changed() (bool, error)

	// Available reports whether clipboard access works on this host.
	Available() bool
}

// BandwidthObserver samples network bytes transferred by the host.
type BandwidthObserver interface {
	// DeltaBytes returns bytes transferred since the last call.
	// First call primes the baseline and returns zero.
	DeltaBytes() (int64, error)

	// Available reports whether network counters are readable.
	Available() bool
}

// MetricsSink transmits one sync round's delta to the remote service.
type MetricsSink interface {
	// PushMetrics posts a delta payload. Any non-2xx or transport
	// error is returned for the caller's retry policy.
	PushMetrics(ctx context.Context, delta MetricSnapshot) error
}

// ScreenshotSink uploads one display's capture to the remote service.
type ScreenshotSink interface {
	// UploadScreenshot posts a single capture event. Failures are
	// returned; the caller logs and drops (no retry queue).
	UploadScreenshot(ctx context.Context, event CaptureEvent) error
}

// ProfileSource resolves the staff identifier behind the session
// credential.
type ProfileSource interface {
	// FetchProfile resolves identity from the bound credential.
	FetchProfile(ctx context.Context) (*Profile, error)
}

// StateStore is the agent's local encrypted persistence: the
// last-acknowledged sync baseline, the open break session, the bound
// identity, and the per-install device ID.
type StateStore interface {
	// SaveBaseline persists the last-acknowledged snapshot.
	SaveBaseline(s MetricSnapshot) error

	// LoadBaseline returns the persisted baseline, nil if none.
	LoadBaseline() (*MetricSnapshot, error)

	// ClearBaseline discards the baseline (clock-in, rollover).
	ClearBaseline() error

	// SaveOpenBreak persists the currently-open break session.
	SaveOpenBreak(b BreakSession) error

	// LoadOpenBreak returns the open break session, nil if none.
	LoadOpenBreak() (*BreakSession, error)

	// ClearOpenBreak removes the open break session.
	ClearOpenBreak() error

	// SaveIdentity persists the resolved staff identifier.
	SaveIdentity(staffID string) error

	// LoadIdentity returns the persisted staff identifier, "" if none.
	LoadIdentity() (string, error)

	// DeviceID returns the stable per-install identifier, creating
	// one on first call.
	DeviceID() (string, error)

	// Close releases the database connection.
	Close() error
}
