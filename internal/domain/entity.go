// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// MetricSnapshot is the aggregator's cumulative state for the current
// shift. Counters and durations are monotonically non-decreasing between
// resets; ProductivityScore is derived and recomputed each tick.
type MetricSnapshot struct {
	MouseMovements   int64 `json:"mouseMovements"`
	MouseClicks      int64 `json:"mouseClicks"`
	Keystrokes       int64 `json:"keystrokes"`
	ClipboardActions int64 `json:"clipboardActions"`
	FilesAccessed    int64 `json:"filesAccessed"`
	Downloads        int64 `json:"downloads"`
	Uploads          int64 `json:"uploads"`
	BandwidthBytes   int64 `json:"bandwidthBytes"`
	TabsSwitched     int64 `json:"tabsSwitched"`
	URLsVisited      int64 `json:"urlsVisitedCount"`

	// Durations in seconds. ScreenSeconds accrues every tick regardless
	// of state; active/idle accrue exclusively per tick.
	ActiveSeconds float64 `json:"activeTime"`
	IdleSeconds   float64 `json:"idleTime"`
	ScreenSeconds float64 `json:"screenTime"`

	ProductivityScore int `json:"productivityScore"`

	// Deduplicated sets, insertion order irrelevant.
	ApplicationsUsed []string `json:"applicationsUsed"`
	VisitedURLs      []string `json:"visitedUrls"`
}

// Clone returns a deep copy. Snapshot readers must never share slice
// backing arrays with the live aggregator state.
func (s MetricSnapshot) Clone() MetricSnapshot {
	c := s
	c.ApplicationsUsed = append([]string(nil), s.ApplicationsUsed...)
	c.VisitedURLs = append([]string(nil), s.VisitedURLs...)
	return c
}

// InputKind discriminates discrete input events fed to the aggregator.
type InputKind string

const (
	InputKey       InputKind = "key"
	InputClick     InputKind = "click"
	InputMouseMove InputKind = "mousemove"
)

// BreakType is the fixed enumeration of rest periods.
type BreakType string

const (
	BreakMorning   BreakType = "MORNING"
	BreakLunch     BreakType = "LUNCH"
	BreakAfternoon BreakType = "AFTERNOON"
	BreakNight     BreakType = "NIGHT"
	BreakAway      BreakType = "AWAY"
)

// BreakSession is the currently-open rest period. The agent holds at
// most one at a time; the remote side owns long-term persistence.
type BreakSession struct {
	Type           BreakType  `json:"type"`
	AwayReason     string     `json:"awayReason,omitempty"`
	ScheduledStart *time.Time `json:"scheduledStart,omitempty"`
	ScheduledEnd   *time.Time `json:"scheduledEnd,omitempty"`
	ActualStart    *time.Time `json:"actualStart,omitempty"`
	ActualEnd      *time.Time `json:"actualEnd,omitempty"`
	Late           bool       `json:"late"`
	LateBy         float64    `json:"lateBySeconds"`
}

// CaptureReason records why a screenshot cycle fired.
type CaptureReason string

const (
	CaptureScheduled  CaptureReason = "scheduled"
	CaptureInactivity CaptureReason = "inactivity"
	CaptureManual     CaptureReason = "manual"
	CaptureInitial    CaptureReason = "initial"
)

// CaptureEvent is one display's screenshot, ephemeral: created,
// uploaded, discarded. Never retained on disk by the agent.
type CaptureEvent struct {
	ID         string
	Display    int
	Image      []byte
	Reason     CaptureReason
	CapturedAt time.Time
}

// IdentityContext is the staff identifier plus session credential used
// to authenticate outbound calls. Mutated only by the identity binder.
type IdentityContext struct {
	StaffID    string
	Credential string
	DeviceID   string
}

// Bound reports whether a staff identifier has been resolved.
func (ic IdentityContext) Bound() bool { return ic.StaffID != "" }

// Profile is the remote side's answer to an identity resolution call.
type Profile struct {
	StaffID string `json:"staffId"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
}

// WorkContext identifies which portal the workstation is displaying.
// Tracking is eligible only in the staff-facing context.
type WorkContext string

const (
	ContextStaff  WorkContext = "staff"
	ContextClient WorkContext = "client"
	ContextAdmin  WorkContext = "admin"
	ContextLogin  WorkContext = "login"
)

// Eligible reports whether telemetry may run in this context.
func (wc WorkContext) Eligible() bool { return wc == ContextStaff }
