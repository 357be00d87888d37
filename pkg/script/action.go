// Package script turns decoded MIDI events into a timed playback script
// and reads/writes the plain-text script file format.
package script

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind identifies what a script line does.
type ActionKind int

const (
	Press ActionKind = iota
	Release
	Tempo
)

func (k ActionKind) String() string {
	switch k {
	case Press:
		return "Press"
	case Release:
		return "Release"
	case Tempo:
		return "Tempo"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

const (
	releasePrefix = "~"
	tempoPrefix   = "tempo="
)

// Action is the token part of a script line.
type Action struct {
	Kind ActionKind
	// Key is the piano key index for Press and Release.
	Key int
	// BPM is set for Tempo.
	BPM int
}

// PressKey returns a Press action.
func PressKey(key int) Action { return Action{Kind: Press, Key: key} }

// ReleaseKey returns a Release action.
func ReleaseKey(key int) Action { return Action{Kind: Release, Key: key} }

// SetTempo returns a Tempo action.
func SetTempo(bpm int) Action { return Action{Kind: Tempo, BPM: bpm} }

// Token formats the action as it appears in a script file:
// "39" (press), "~39" (release) or "tempo=120".
func (a Action) Token() string {
	switch a.Kind {
	case Release:
		return releasePrefix + strconv.Itoa(a.Key)
	case Tempo:
		return tempoPrefix + strconv.Itoa(a.BPM)
	default:
		return strconv.Itoa(a.Key)
	}
}

func (a Action) String() string {
	return a.Token()
}

// ParseToken is the inverse of Action.Token.
func ParseToken(token string) (Action, error) {
	switch {
	case strings.HasPrefix(token, tempoPrefix):
		bpm, err := strconv.Atoi(strings.TrimPrefix(token, tempoPrefix))
		if err != nil || bpm <= 0 {
			return Action{}, fmt.Errorf("invalid tempo token %q", token)
		}
		return SetTempo(bpm), nil
	case strings.HasPrefix(token, releasePrefix):
		key, err := strconv.Atoi(strings.TrimPrefix(token, releasePrefix))
		if err != nil {
			return Action{}, fmt.Errorf("invalid release token %q", token)
		}
		return ReleaseKey(key), nil
	default:
		key, err := strconv.Atoi(token)
		if err != nil {
			return Action{}, fmt.Errorf("invalid key token %q", token)
		}
		return PressKey(key), nil
	}
}
