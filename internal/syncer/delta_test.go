package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shoreagents/staffmon/internal/domain"
)

// TestComputeDeltaNilBaseline covers the first-sync special case:
// absolute values, unchanged
func TestComputeDeltaNilBaseline(t *testing.T) {
	current := domain.MetricSnapshot{
		Keystrokes:       42,
		MouseClicks:      7,
		ActiveSeconds:    120,
		ApplicationsUsed: []string{"editor"},
	}

	delta := ComputeDelta(nil, current)
	assert.Equal(t, current, delta)

	// The result is a copy, not an alias
	delta.ApplicationsUsed[0] = "mutated"
	assert.Equal(t, "editor", current.ApplicationsUsed[0])
}

// TestComputeDeltaAdditive verifies baseline + delta == current for
// every numeric field
func TestComputeDeltaAdditive(t *testing.T) {
	baseline := domain.MetricSnapshot{
		MouseMovements:   10,
		MouseClicks:      4,
		Keystrokes:       100,
		ClipboardActions: 1,
		FilesAccessed:    2,
		Downloads:        1,
		Uploads:          1,
		BandwidthBytes:   5000,
		TabsSwitched:     3,
		URLsVisited:      6,
		ActiveSeconds:    60,
		IdleSeconds:      10,
		ScreenSeconds:    75,
	}
	current := domain.MetricSnapshot{
		MouseMovements:   25,
		MouseClicks:      9,
		Keystrokes:       150,
		ClipboardActions: 2,
		FilesAccessed:    5,
		Downloads:        1,
		Uploads:          3,
		BandwidthBytes:   9000,
		TabsSwitched:     8,
		URLsVisited:      11,
		ActiveSeconds:    100,
		IdleSeconds:      25,
		ScreenSeconds:    130,
	}

	delta := ComputeDelta(&baseline, current)

	assert.Equal(t, current.MouseMovements, baseline.MouseMovements+delta.MouseMovements)
	assert.Equal(t, current.MouseClicks, baseline.MouseClicks+delta.MouseClicks)
	assert.Equal(t, current.Keystrokes, baseline.Keystrokes+delta.Keystrokes)
	assert.Equal(t, current.ClipboardActions, baseline.ClipboardActions+delta.ClipboardActions)
	assert.Equal(t, current.FilesAccessed, baseline.FilesAccessed+delta.FilesAccessed)
	assert.Equal(t, current.Downloads, baseline.Downloads+delta.Downloads)
	assert.Equal(t, current.Uploads, baseline.Uploads+delta.Uploads)
	assert.Equal(t, current.BandwidthBytes, baseline.BandwidthBytes+delta.BandwidthBytes)
	assert.Equal(t, current.TabsSwitched, baseline.TabsSwitched+delta.TabsSwitched)
	assert.Equal(t, current.URLsVisited, baseline.URLsVisited+delta.URLsVisited)
	assert.Equal(t, current.ActiveSeconds, baseline.ActiveSeconds+delta.ActiveSeconds)
	assert.Equal(t, current.IdleSeconds, baseline.IdleSeconds+delta.IdleSeconds)
	assert.Equal(t, current.ScreenSeconds, baseline.ScreenSeconds+delta.ScreenSeconds)
}

// TestComputeDeltaNonNegative verifies deltas are never negative for
// monotonic snapshots
func TestComputeDeltaNonNegative(t *testing.T) {
	baseline := domain.MetricSnapshot{Keystrokes: 50, ActiveSeconds: 30}
	current := domain.MetricSnapshot{Keystrokes: 50, ActiveSeconds: 30}

	delta := ComputeDelta(&baseline, current)
	assert.Zero(t, delta.Keystrokes)
	assert.Zero(t, delta.ActiveSeconds)
}

// TestComputeDeltaArraysAreFullSets verifies array fields are the
// full current sets, not diffed
func TestComputeDeltaArraysAreFullSets(t *testing.T) {
	baseline := domain.MetricSnapshot{
		ApplicationsUsed: []string{"editor"},
		VisitedURLs:      []string{"https://a.test"},
	}
	current := domain.MetricSnapshot{
		ApplicationsUsed: []string{"editor", "browser"},
		VisitedURLs:      []string{"https://a.test", "https://b.test"},
	}

	delta := ComputeDelta(&baseline, current)
	assert.Equal(t, current.ApplicationsUsed, delta.ApplicationsUsed)
	assert.Equal(t, current.VisitedURLs, delta.VisitedURLs)
}

// TestComputeDeltaScoreIsAbsolute verifies the derived score is sent
// as-is rather than diffed
func TestComputeDeltaScoreIsAbsolute(t *testing.T) {
	baseline := domain.MetricSnapshot{ProductivityScore: 80}
	current := domain.MetricSnapshot{ProductivityScore: 65}

	delta := ComputeDelta(&baseline, current)
	assert.Equal(t, 65, delta.ProductivityScore)
}
