package infra

import (
	"errors"
	"image"

	"github.com/shoreagents/staffmon/internal/domain"
)

// Null-object capability implementations. Selected at startup when the
// platform lacks the real probe; the owning component logs the degrade
// once and its counter stays at zero.

// NullClipboardWatcher reports no clipboard support. No pack-wide
// clipboard library exists; hosts without one lose only the
// clipboardActions counter.
type NullClipboardWatcher struct{}

func (NullClipboardWatcher) Changed() (bool, error) { return false, nil }
func (NullClipboardWatcher) Available() bool        { return false }

// NullCapturer reports zero displays.
type NullCapturer struct{}

func (NullCapturer) NumDisplays() int { return 0 }
func (NullCapturer) CaptureDisplay(int) (image.Image, error) {
	return nil, errors.New("screen capture unavailable")
}
func (NullCapturer) Available() bool { return false }

// NullAppObserver reports no process introspection.
type NullAppObserver struct{}

func (NullAppObserver) Sample() ([]string, error) { return nil, nil }
func (NullAppObserver) Available() bool           { return false }

var (
	_ domain.ClipboardWatcher    = NullClipboardWatcher{}
	_ domain.ScreenCapturer      = NullCapturer{}
	_ domain.ApplicationObserver = NullAppObserver{}
)
