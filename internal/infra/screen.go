package infra

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/shoreagents/staffmon/internal/domain"
)

// DisplayCapturer implements domain.ScreenCapturer on
// kbinani/screenshot, which covers Windows, macOS, and X11.
type DisplayCapturer struct{}

// NewDisplayCapturer creates the platform screen capturer.
func NewDisplayCapturer() *DisplayCapturer {
	return &DisplayCapturer{}
}

// NumDisplays returns the number of active displays.
func (c *DisplayCapturer) NumDisplays() int {
	return screenshot.NumActiveDisplays()
}

// CaptureDisplay rasterizes one display at full resolution.
func (c *DisplayCapturer) CaptureDisplay(index int) (image.Image, error) {
	if index < 0 || index >= screenshot.NumActiveDisplays() {
		return nil, fmt.Errorf("display %d out of range", index)
	}
	img, err := screenshot.CaptureRect(screenshot.GetDisplayBounds(index))
	if err != nil {
		return nil, fmt.Errorf("failed to capture display %d: %w", index, err)
	}
	return img, nil
}

// Available probes whether capture works on this host, e.g. a headless
// session reports zero displays.
func (c *DisplayCapturer) Available() bool {
	return screenshot.NumActiveDisplays() > 0
}

// Ensure DisplayCapturer implements domain.ScreenCapturer.
var _ domain.ScreenCapturer = (*DisplayCapturer)(nil)
