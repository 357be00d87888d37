package smf

import (
	"fmt"
	"math"
)

// PianoKeyOffset is subtracted from a MIDI note number to get the
// 0-87 piano key index (A0 = MIDI 21 = key 0).
const PianoKeyOffset = 21

// DefaultUSecPerQuarter is the SMF default tempo (120 BPM).
const DefaultUSecPerQuarter = 500000

// EventKind identifies the kind of a RawEvent.
type EventKind int

const (
	NoteOn EventKind = iota
	NoteOff
	TempoChange
)

func (k EventKind) String() string {
	switch k {
	case NoteOn:
		return "NoteOn"
	case NoteOff:
		return "NoteOff"
	case TempoChange:
		return "TempoChange"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// RawEvent is one decoded MIDI occurrence at an absolute, track-local tick.
type RawEvent struct {
	Tick uint64
	Kind EventKind
	// Key is the piano key index for NoteOn/NoteOff. It may fall outside
	// 0-87 for notes the piano cannot play.
	Key int
	// USecPerQuarter is set for TempoChange.
	USecPerQuarter uint32
}

// BPM returns the tempo of a TempoChange event rounded to whole beats per minute.
func (e RawEvent) BPM() int {
	if e.USecPerQuarter == 0 {
		return 0
	}
	return int(math.Round(60000000 / float64(e.USecPerQuarter)))
}

func (e RawEvent) String() string {
	if e.Kind == TempoChange {
		return fmt.Sprintf("%d %s(%d bpm)", e.Tick, e.Kind, e.BPM())
	}
	return fmt.Sprintf("%d %s(%d)", e.Tick, e.Kind, e.Key)
}

// TextEvent is a text-family meta event (track name, lyric, marker, ...).
type TextEvent struct {
	Tick uint64
	Type byte
	Text string
}

// DecodedSong is the result of decoding one MIDI file.
type DecodedSong struct {
	Format     uint16
	TrackCount uint16
	// Division is ticks per quarter note. When SMPTE is set the low 15 bits
	// are still used as if they were ticks per quarter.
	Division uint16
	SMPTE    bool

	// Events holds every emitted event in decode order (track by track).
	Events []RawEvent
	// NoteCount counts true note-ons (velocity > 0).
	NoteCount int
	Texts     []TextEvent
}

// metaTypeNames maps meta event types to the names used in debug logs.
var metaTypeNames = map[byte]string{
	0x00: "Sequence Number",
	0x01: "Text Event",
	0x02: "Copyright Notice",
	0x03: "Sequence/Track Name",
	0x04: "Instrument Name",
	0x05: "Lyric",
	0x06: "Marker",
	0x07: "Cue Point",
	0x08: "Program Name",
	0x09: "Device Name",
	0x0A: "Other Text",
	0x0C: "Other Text",
	0x20: "MIDI Channel Prefix",
	0x21: "Prefix Port",
	0x2F: "End of Track",
	0x51: "Set Tempo",
	0x54: "SMPTE Offset",
	0x58: "Time Signature",
	0x59: "Key Signature",
	0x7F: "Sequencer-Specific Meta-event",
}

// MetaTypeName returns a readable name for a meta event type.
func MetaTypeName(t byte) string {
	if name, ok := metaTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Event %d", t)
}

func isTextMeta(t byte) bool {
	return (t >= 0x01 && t <= 0x0A) || t == 0x0C
}
