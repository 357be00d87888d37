package script

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/zurustar/autopiano/pkg/smf"
	"gitlab.com/gomidi/midi/v2"
	gsmf "gitlab.com/gomidi/midi/v2/smf"
)

// writeDuet builds a two-track SMF at 100 BPM: a melody in track 0 and a
// sustained bass note in track 1.
func writeDuet(t *testing.T) []byte {
	t.Helper()

	sm := gsmf.New()
	sm.TimeFormat = gsmf.MetricTicks(480)

	var melody gsmf.Track
	melody.Add(0, gsmf.MetaTempo(100))
	melody.Add(0, midi.NoteOn(0, 60, 100))
	melody.Add(240, midi.NoteOff(0, 60))
	melody.Add(0, midi.NoteOn(0, 62, 100))
	melody.Add(160, midi.NoteOff(0, 62))
	melody.Add(80, midi.NoteOn(0, 64, 100))
	melody.Add(480, midi.NoteOff(0, 64))
	melody.Close(0)

	var bass gsmf.Track
	bass.Add(0, midi.NoteOn(1, 48, 80))
	bass.Add(960, midi.NoteOff(1, 48))
	bass.Close(0)

	for _, tr := range []gsmf.Track{melody, bass} {
		if err := sm.Add(tr); err != nil {
			t.Fatalf("adding track: %v", err)
		}
	}

	var buf bytes.Buffer
	if _, err := sm.WriteTo(&buf); err != nil {
		t.Fatalf("writing SMF: %v", err)
	}
	return buf.Bytes()
}

func decodeDuet(t *testing.T) *smf.DecodedSong {
	t.Helper()
	song, err := smf.Decode(writeDuet(t))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return song
}

func TestWriteNotes(t *testing.T) {
	notes := []Note{
		{Time: 0, Action: SetTempo(120)},
		{Time: 1, Action: PressKey(39)},
		{Time: 2.5, Action: ReleaseKey(39)},
	}

	var buf bytes.Buffer
	if err := WriteNotes(&buf, 1.0, notes); err != nil {
		t.Fatalf("WriteNotes failed: %v", err)
	}

	want := "playback_speed=1.0\n0.0 tempo=120\n1.0 39\n2.5 ~39\n"
	if buf.String() != want {
		t.Errorf("WriteNotes output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestRead(t *testing.T) {
	input := strings.Join([]string{
		"",
		"playback_speed=0.8",
		"0.0 tempo=90",
		"",
		"stray",
		"0.25 17",
		"1.75 ~17 trailing fields are ignored",
	}, "\n")

	f, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if f.PlaybackSpeed != 0.8 {
		t.Errorf("PlaybackSpeed = %v, want 0.8", f.PlaybackSpeed)
	}

	want := []Line{
		{Value: 0, Action: SetTempo(90)},
		{Value: 0.25, Action: PressKey(17)},
		{Value: 1.75, Action: ReleaseKey(17)},
	}
	if len(f.Lines) != len(want) {
		t.Fatalf("got %d lines %v, want %v", len(f.Lines), f.Lines, want)
	}
	for i := range want {
		if f.Lines[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, f.Lines[i], want[i])
		}
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"missing header", "0.0 39\n"},
		{"bad speed", "playback_speed=fast\n"},
		{"zero speed", "playback_speed=0\n"},
		{"bad number", "playback_speed=1.0\nsoon 39\n"},
		{"bad key", "playback_speed=1.0\n0.0 C4\n"},
		{"bad release", "playback_speed=1.0\n0.0 ~x\n"},
		{"bad tempo", "playback_speed=1.0\n0.0 tempo=0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			if !errors.Is(err, ErrMalformedLine) {
				t.Errorf("expected ErrMalformedLine, got %v", err)
			}
		})
	}
}

func TestFileEntriesRejectsTempo(t *testing.T) {
	f, err := Read(strings.NewReader("playback_speed=1.0\n0.5 39\n0.0 tempo=100\n"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if _, err := f.Entries(); !errors.Is(err, ErrMalformedLine) {
		t.Errorf("expected ErrMalformedLine, got %v", err)
	}
}

func TestRawScriptRoundTrip(t *testing.T) {
	song := decodeDuet(t)
	notes := Notes(song.Events, song.Division)

	var buf bytes.Buffer
	if err := WriteNotes(&buf, DefaultPlaybackSpeed, notes); err != nil {
		t.Fatalf("WriteNotes failed: %v", err)
	}
	f, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	got := f.Notes()
	if len(got) != len(notes) {
		t.Fatalf("got %d notes, want %d", len(got), len(notes))
	}
	for i := range notes {
		if got[i].Action != notes[i].Action || !approx(got[i].Time, notes[i].Time) {
			t.Errorf("note %d = %+v, want %+v", i, got[i], notes[i])
		}
	}

	direct, err := BuildScript(song.Events, song.Division)
	if err != nil {
		t.Fatalf("BuildScript failed: %v", err)
	}
	viaFile, err := Build(got, f.PlaybackSpeed)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	assertEntries(t, viaFile.Entries, direct.Entries)
}

func TestResolvedScriptRoundTrip(t *testing.T) {
	song := decodeDuet(t)
	s, err := BuildScript(song.Events, song.Division)
	if err != nil {
		t.Fatalf("BuildScript failed: %v", err)
	}

	// 100 BPM: 0.6s per quarter.
	assertEntries(t, s.Entries, []Entry{
		{Delay: 0, Action: PressKey(39)},
		{Delay: 0.3, Action: PressKey(27)},
		{Delay: 0, Action: ReleaseKey(39)},
		{Delay: 0.2, Action: PressKey(41)},
		{Delay: 0.1, Action: ReleaseKey(41)},
		{Delay: 0.6, Action: PressKey(43)},
		{Delay: 0, Action: ReleaseKey(43)},
		{Delay: TrailingDelay, Action: ReleaseKey(27)},
	})

	var buf bytes.Buffer
	if err := WriteScript(&buf, s); err != nil {
		t.Fatalf("WriteScript failed: %v", err)
	}
	f, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	back, err := f.Script()
	if err != nil {
		t.Fatalf("Script failed: %v", err)
	}
	assertEntries(t, back.Entries, s.Entries)
}
