package script

import (
	"errors"
	"sort"

	"github.com/zurustar/autopiano/pkg/smf"
)

// DefaultBPM seeds the tempo when a script does not start with a tempo line.
const DefaultBPM = 120

// TrailingDelay is how long the last entry is held; the file carries no
// information about it.
const TrailingDelay = 1.0

// DefaultPlaybackSpeed is written into freshly converted script files.
const DefaultPlaybackSpeed = 1.0

// ErrEmptyScript is returned when no playable entry remains after tempo
// resolution.
var ErrEmptyScript = errors.New("script has no playable entries")

// Note is one line of the raw script: an action at an absolute time
// measured in quarter notes.
type Note struct {
	Time float64
	Action
}

// Entry is one line of the resolved script: dispatch Action, then wait
// Delay seconds (scaled by playback speed) before the next entry.
type Entry struct {
	Delay float64
	Action
}

// Script is a resolved, immutable playback script.
type Script struct {
	Entries []Entry
	// PlaybackSpeed is the speed multiplier read from the script header.
	PlaybackSpeed float64
	// InitialBPM is the tempo that seeded delay conversion.
	InitialBPM int
	// TimeOffset is the time of the first raw note, kept for diagnostics.
	TimeOffset float64
}

// Len returns the number of entries.
func (s *Script) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// Duration returns the sum of all entry delays at speed 1.
func (s *Script) Duration() float64 {
	var total float64
	for _, e := range s.Entries {
		total += e.Delay
	}
	return total
}

// Notes sorts decoded events by tick (ties keep decode order) and converts
// them to raw script notes timed in quarter notes. division must be
// non-zero, which smf.Decode guarantees.
func Notes(events []smf.RawEvent, division uint16) []Note {
	sorted := make([]smf.RawEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Tick < sorted[j].Tick
	})

	notes := make([]Note, 0, len(sorted))
	for _, ev := range sorted {
		n := Note{Time: float64(ev.Tick) / float64(division)}
		switch ev.Kind {
		case smf.NoteOn:
			n.Action = PressKey(ev.Key)
		case smf.NoteOff:
			n.Action = ReleaseKey(ev.Key)
		case smf.TempoChange:
			n.Action = SetTempo(ev.BPM())
		default:
			continue
		}
		notes = append(notes, n)
	}
	return notes
}

// Build resolves raw notes into delays.
//
// A leading tempo line seeds the tempo and is consumed. Each later tempo
// line changes the tempo factor (60 / bpm seconds per quarter) and is
// dropped. Every other note gets the distance to the following line, in
// seconds at the current factor; the last playable entry is held for
// TrailingDelay. Delays that come out zero or negative are clamped to zero.
func Build(notes []Note, playbackSpeed float64) (*Script, error) {
	if len(notes) == 0 {
		return nil, ErrEmptyScript
	}

	s := &Script{
		PlaybackSpeed: playbackSpeed,
		InitialBPM:    DefaultBPM,
		TimeOffset:    notes[0].Time,
	}

	rest := notes
	if notes[0].Kind == Tempo {
		s.InitialBPM = notes[0].BPM
		rest = notes[1:]
	}
	factor := tempoFactor(s.InitialBPM)

	entries := make([]Entry, 0, len(rest))
	for i, n := range rest {
		if n.Kind == Tempo {
			factor = tempoFactor(n.BPM)
			continue
		}
		delay := TrailingDelay
		if i+1 < len(rest) {
			delay = (rest[i+1].Time - n.Time) * factor
		}
		if delay <= 0 {
			delay = 0
		}
		entries = append(entries, Entry{Delay: delay, Action: n.Action})
	}

	if len(entries) == 0 {
		return nil, ErrEmptyScript
	}
	entries[len(entries)-1].Delay = TrailingDelay
	s.Entries = entries
	return s, nil
}

// BuildScript is Notes followed by Build at the default playback speed.
func BuildScript(events []smf.RawEvent, division uint16) (*Script, error) {
	return Build(Notes(events, division), DefaultPlaybackSpeed)
}

func tempoFactor(bpm int) float64 {
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	return 60 / float64(bpm)
}
