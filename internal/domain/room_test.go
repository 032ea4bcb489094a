package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T, mode Mode) *Room {
	t.Helper()
	r, err := NewRoom("room-1", "alice", "Focus", "", mode, "ABC123", t0)
	require.NoError(t, err)
	return r
}

func assertRunInvariant(t *testing.T, r *Room) {
	t.Helper()
	assert.Equal(t, r.IsTimerRunning, r.LastTick != nil, "running must match lastTick presence")
	assert.GreaterOrEqual(t, r.TimerRemaining, 0)
	assert.LessOrEqual(t, r.TimerRemaining, r.FullSeconds())
}

func TestNewRoom_Modes(t *testing.T) {
	p := newTestRoom(t, ModePomodoro)
	assert.Equal(t, 25, p.Duration)
	assert.Equal(t, 1500, p.TimerRemaining)
	assert.False(t, p.IsTimerRunning)
	assert.Nil(t, p.LastTick)
	assert.Equal(t, []string{"alice"}, p.Members)

	d := newTestRoom(t, ModeDeep)
	assert.Equal(t, 50, d.Duration)
	assert.Equal(t, 3000, d.TimerRemaining)
}

func TestNewRoom_EmptyName(t *testing.T) {
	_, err := NewRoom("id", "alice", "   ", "", ModePomodoro, "ABC123", t0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeDeep, ParseMode("deep"))
	assert.Equal(t, ModeDeep, ParseMode(" DEEP "))
	assert.Equal(t, ModePomodoro, ParseMode("pomodoro"))
	assert.Equal(t, ModePomodoro, ParseMode("sprint"))
	assert.Equal(t, ModePomodoro, ParseMode(""))
}

func TestRoom_StartPauseScenario(t *testing.T) {
	r := newTestRoom(t, ModePomodoro)

	r.Start(t0)
	assertRunInvariant(t, r)
	require.True(t, r.IsTimerRunning)
	assert.Equal(t, t0, *r.LastTick)

	r.Pause(t0.Add(10 * time.Second))
	assertRunInvariant(t, r)
	assert.False(t, r.IsTimerRunning)
	assert.Nil(t, r.LastTick)
	assert.Equal(t, 1490, r.TimerRemaining)
}

func TestRoom_PauseStartPauseWithoutElapsedKeepsRemaining(t *testing.T) {
	r := newTestRoom(t, ModePomodoro)
	r.TimerRemaining = 1200

	r.Pause(t0)
	before := r.TimerRemaining
	r.Start(t0.Add(200 * time.Millisecond))
	r.Pause(t0.Add(400 * time.Millisecond))

	assert.Equal(t, before, r.TimerRemaining)
	assertRunInvariant(t, r)
}

func TestRoom_PauseWhilePausedOnlyForcesState(t *testing.T) {
	r := newTestRoom(t, ModePomodoro)
	r.TimerRemaining = 700

	r.Pause(t0.Add(time.Hour))
	assert.Equal(t, 700, r.TimerRemaining)
	assertRunInvariant(t, r)
}

func TestRoom_StartWhileRunningFoldsElapsed(t *testing.T) {
	r := newTestRoom(t, ModePomodoro)
	r.Start(t0)
	r.Start(t0.Add(30 * time.Second))

	assert.Equal(t, 1470, r.TimerRemaining)
	assert.Equal(t, t0.Add(30*time.Second), *r.LastTick)
	assert.Equal(t, 1460, r.Remaining(t0.Add(40*time.Second)))
}

func TestRoom_ResetRestoresFullDuration(t *testing.T) {
	r := newTestRoom(t, ModeDeep)
	r.Start(t0)
	r.Reset()

	assert.Equal(t, 3000, r.TimerRemaining)
	assert.False(t, r.IsTimerRunning)
	assertRunInvariant(t, r)
}

func TestRoom_VersionBumpsOnEveryTransition(t *testing.T) {
	r := newTestRoom(t, ModePomodoro)
	require.Zero(t, r.Version)

	for i, action := range []TimerAction{ActionStart, ActionPause, ActionPause, ActionReset, ActionStart} {
		require.NoError(t, r.Apply(action, t0.Add(time.Duration(i)*time.Second)))
		assert.EqualValues(t, i+1, r.Version)
	}
	require.ErrorIs(t, r.Apply("skip", t0), ErrValidation)
}

func TestRoom_NormalizesCorruptTimerFields(t *testing.T) {
	r := newTestRoom(t, ModePomodoro)
	r.TimerRemaining = 99999
	r.IsTimerRunning = true
	r.LastTick = nil

	r.Pause(t0)
	assert.Equal(t, 1500, r.TimerRemaining)
	assertRunInvariant(t, r)

	r.TimerRemaining = -20
	r.Start(t0)
	assert.Equal(t, 0, r.TimerRemaining)
	assertRunInvariant(t, r)
}

func TestParseTimerAction(t *testing.T) {
	a, err := ParseTimerAction(" Start ")
	require.NoError(t, err)
	assert.Equal(t, ActionStart, a)

	_, err = ParseTimerAction("stop")
	require.ErrorIs(t, err, ErrUnknownAction)
}
