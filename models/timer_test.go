package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTimerStateDefaults(t *testing.T) {
	timer := NewTimerState()
	assert.False(t, timer.Running)
	assert.Equal(t, 1500, timer.Seconds)
	assert.Equal(t, "Custom Timer", timer.Label)
}

func TestTimerStart(t *testing.T) {
	timer := NewTimerState()

	assert.True(t, timer.Start())
	assert.True(t, timer.Running)

	// Starting a running timer is a no-op.
	assert.False(t, timer.Start())

	// A drained timer cannot start.
	timer = TimerState{Seconds: 0}
	assert.False(t, timer.Start())
	assert.False(t, timer.Running)
}

func TestTimerPause(t *testing.T) {
	timer := NewTimerState()
	assert.False(t, timer.Pause())

	timer.Start()
	assert.True(t, timer.Pause())
	assert.False(t, timer.Running)
	assert.Equal(t, 1500, timer.Seconds)
}

func TestTimerTick(t *testing.T) {
	timer := NewTimerState()

	// Ticks are rejected while idle.
	assert.False(t, timer.Tick(100))
	assert.Equal(t, 1500, timer.Seconds)

	timer.Start()
	assert.True(t, timer.Tick(1499))
	assert.True(t, timer.Tick(1498))
	assert.Equal(t, 1498, timer.Seconds)
	assert.True(t, timer.Running)
}

func TestTimerTickReachingZeroForcesIdle(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
	}{
		{name: "exactly zero", seconds: 0},
		{name: "below zero", seconds: -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timer := NewTimerState()
			timer.Start()

			assert.True(t, timer.Tick(tt.seconds))
			assert.False(t, timer.Running)
			assert.Equal(t, 0, timer.Seconds)
		})
	}
}

func TestTimerReset(t *testing.T) {
	timer := NewTimerState()
	timer.Start()
	timer.Tick(900)

	assert.True(t, timer.Reset(300, "break"))
	assert.False(t, timer.Running)
	assert.Equal(t, 300, timer.Seconds)
	assert.Equal(t, "break", timer.Label)

	// Empty label keeps the current one, negative seconds clamp.
	assert.True(t, timer.Reset(-10, ""))
	assert.Equal(t, 0, timer.Seconds)
	assert.Equal(t, "break", timer.Label)
}

func TestIdentityKey(t *testing.T) {
	authed := Identity{ConnectionID: "conn-1", UserID: "user-1", IsAuthenticated: true}
	assert.Equal(t, "user-1", authed.Key())

	anon := Identity{ConnectionID: "conn-1"}
	assert.Equal(t, "conn-1", anon.Key())

	// An authenticated identity with no stable ID falls back to the
	// connection ID.
	odd := Identity{ConnectionID: "conn-1", IsAuthenticated: true}
	assert.Equal(t, "conn-1", odd.Key())
}
