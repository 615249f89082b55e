//go:build !windows

package infra

import (
	"errors"

	"github.com/shoreagents/staffmon/internal/domain"
)

// unavailableIdleProber is the null-object probe for platforms without
// a global idle-time source. The classifier degrades to its
// activity-timestamp fallback.
type unavailableIdleProber struct{}

// NewIdleProber returns the null idle probe on non-Windows platforms.
func NewIdleProber() domain.IdleProber {
	return &unavailableIdleProber{}
}

func (p *unavailableIdleProber) IdleSeconds() (float64, error) {
	return 0, errors.New("no platform idle probe")
}

func (p *unavailableIdleProber) Available() bool { return false }
