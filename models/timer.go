package models

// Default countdown configuration for a freshly created room.
const (
	DefaultTimerSeconds = 25 * 60
	DefaultTimerLabel   = "Custom Timer"
)

// TimerState is the shared countdown for a room. It is a plain value;
// serialization of access is the room's job, not the timer's.
type TimerState struct {
	Running bool   `json:"running"`
	Seconds int    `json:"seconds"`
	Label   string `json:"label"`
}

// NewTimerState returns the default idle timer.
func NewTimerState() TimerState {
	return TimerState{Running: false, Seconds: DefaultTimerSeconds, Label: DefaultTimerLabel}
}

// Start moves the timer into the running state. Returns false when the
// transition is a no-op (already running, or nothing left to count).
func (t *TimerState) Start() bool {
	if t.Running || t.Seconds <= 0 {
		return false
	}
	t.Running = true
	return true
}

// Pause stops the countdown, keeping the remaining seconds. No-op when
// not running.
func (t *TimerState) Pause() bool {
	if !t.Running {
		return false
	}
	t.Running = false
	return true
}

// Tick sets the remaining seconds while running. A tick at or below zero
// forces the timer back to idle at exactly zero. Ticks are rejected when
// the timer is not running.
func (t *TimerState) Tick(seconds int) bool {
	if !t.Running {
		return false
	}
	if seconds <= 0 {
		t.Seconds = 0
		t.Running = false
		return true
	}
	t.Seconds = seconds
	return true
}

// Reset returns the timer to idle with the supplied duration and label.
// An empty label keeps the current one; a negative duration clamps to
// zero.
func (t *TimerState) Reset(seconds int, label string) bool {
	if seconds < 0 {
		seconds = 0
	}
	t.Running = false
	t.Seconds = seconds
	if label != "" {
		t.Label = label
	}
	return true
}
