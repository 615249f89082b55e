// Package syncer implements the delta sync engine: it periodically
// diffs the aggregator's cumulative snapshot against the last snapshot
// the remote service acknowledged and transmits only the difference.
package syncer

import "github.com/shoreagents/staffmon/internal/domain"

// ComputeDelta returns the field-wise difference between the current
// snapshot and a baseline. A nil baseline means first sync after a
// reset: the current snapshot is returned verbatim (absolute values).
//
// Array fields are always the full current sets, not diffed. The
// productivity score is derived rather than accumulated, so it is sent
// as the current absolute value.
func ComputeDelta(baseline *domain.MetricSnapshot, current domain.MetricSnapshot) domain.MetricSnapshot {
	if baseline == nil {
		return current.Clone()
	}
	d := current.Clone()
	d.MouseMovements -= baseline.MouseMovements
	d.MouseClicks -= baseline.MouseClicks
	d.Keystrokes -= baseline.Keystrokes
	d.ClipboardActions -= baseline.ClipboardActions
	d.FilesAccessed -= baseline.FilesAccessed
	d.Downloads -= baseline.Downloads
	d.Uploads -= baseline.Uploads
	d.BandwidthBytes -= baseline.BandwidthBytes
	d.TabsSwitched -= baseline.TabsSwitched
	d.URLsVisited -= baseline.URLsVisited
	d.ActiveSeconds -= baseline.ActiveSeconds
	d.IdleSeconds -= baseline.IdleSeconds
	d.ScreenSeconds -= baseline.ScreenSeconds
	return d
}
