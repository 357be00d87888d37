package player

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSong is returned by playback commands while no script is loaded.
	ErrNoActiveSong = errors.New("no song selected")

	// ErrInvalidSpeed is returned by SetSpeed for multipliers outside (0, 1).
	ErrInvalidSpeed = errors.New("invalid speed multiplier")

	// ErrStopped is returned by every command once the scheduler is stopped.
	ErrStopped = errors.New("scheduler is not running")
)

// State is the scheduler's playback state.
type State int

const (
	// Idle means no script is bound.
	Idle State = iota
	// Bound means a script is loaded and playback is paused.
	Bound
	// Playing means entries are being dispatched.
	Playing
	// Finished means the cursor reached the end of the script.
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Bound:
		return "Bound"
	case Playing:
		return "Playing"
	case Finished:
		return "Finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is a copy of the scheduler state at one instant.
type Snapshot struct {
	State State
	// Song is the name given to Load.
	Song string
	// Cursor indexes the next entry to dispatch, 0 <= Cursor <= Length.
	Cursor int
	Length int
	// Speed is the current playback speed multiplier. Delays are divided by it.
	Speed float64
}

// Playing reports whether entries are being dispatched.
func (s Snapshot) Playing() bool {
	return s.State == Playing
}

// Progress returns Cursor/Length in [0, 1].
func (s Snapshot) Progress() float64 {
	if s.Length == 0 {
		return 0
	}
	return float64(s.Cursor) / float64(s.Length)
}
