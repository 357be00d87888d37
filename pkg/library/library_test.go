package library

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zurustar/autopiano/pkg/fileutil"
	"github.com/zurustar/autopiano/pkg/logger"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// writeOneSecondSong writes a single note lasting two quarters at 120 BPM.
func writeOneSecondSong(t *testing.T, path string) {
	t.Helper()

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(480)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(960, midi.NoteOff(0, 60))
	tr.Close(0)
	if err := sm.Add(tr); err != nil {
		t.Fatalf("adding track: %v", err)
	}

	var buf bytes.Buffer
	if _, err := sm.WriteTo(&buf); err != nil {
		t.Fatalf("writing SMF: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func newSongsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeOneSecondSong(t, filepath.Join(dir, "Minuet.mid"))
	writeOneSecondSong(t, filepath.Join(dir, "canon.MID"))
	if err := os.WriteFile(filepath.Join(dir, "broken.mid"), []byte("not midi"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRegistryScan(t *testing.T) {
	r := NewRegistry(newSongsDir(t), logger.Discard())
	if err := r.Scan(); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	songs := r.Songs()
	var names []string
	for _, s := range songs {
		names = append(names, s.Name)
	}
	if strings.Join(names, ",") != "broken,canon,Minuet" {
		t.Fatalf("songs = %v, want broken,canon,Minuet", names)
	}

	if songs[0].Length != 0 {
		t.Errorf("unparsable song length = %v, want 0", songs[0].Length)
	}
	if d := songs[2].Length - time.Second; d < -100*time.Millisecond || d > 100*time.Millisecond {
		t.Errorf("Minuet length = %v, want about 1s", songs[2].Length)
	}
	if songs[2].Path != filepath.Join(r.Dir(), "Minuet.mid") {
		t.Errorf("Path = %s", songs[2].Path)
	}
}

func TestRegistryScanMissingFolder(t *testing.T) {
	r := NewRegistry(filepath.Join(t.TempDir(), "missing"), logger.Discard())
	if err := r.Scan(); err == nil {
		t.Error("expected error for a missing songs folder")
	}
}

func TestRegistryFind(t *testing.T) {
	r := NewRegistry(newSongsDir(t), logger.Discard())
	if err := r.Scan(); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	for _, name := range []string{"CANON", "canon.mid", "Minuet.MID"} {
		if _, err := r.Find(name); err != nil {
			t.Errorf("Find(%q) failed: %v", name, err)
		}
	}
	if _, err := r.Find("bolero"); !errors.Is(err, fileutil.ErrFileNotFound) {
		t.Errorf("Find(bolero) = %v, want ErrFileNotFound", err)
	}
}

func TestRegistrySelect(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir, logger.Discard())
	if err := r.Scan(); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if _, _, err := r.Select(); !errors.Is(err, ErrNoSongs) {
		t.Errorf("Select on empty folder = %v, want ErrNoSongs", err)
	}

	writeOneSecondSong(t, filepath.Join(dir, "solo.mid"))
	if err := r.Scan(); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	song, needMenu, err := r.Select()
	if err != nil || needMenu || song == nil || song.Name != "solo" {
		t.Errorf("Select with one song = %v, %v, %v", song, needMenu, err)
	}

	writeOneSecondSong(t, filepath.Join(dir, "duo.mid"))
	if err := r.Scan(); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if song, needMenu, err := r.Select(); err != nil || !needMenu || song != nil {
		t.Errorf("Select with two songs = %v, %v, %v", song, needMenu, err)
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		song Song
		want string
	}{
		{Song{Name: "canon"}, "canon"},
		{Song{Name: "canon", Length: 75 * time.Second}, "canon (1:15)"},
		{Song{Name: "etude", Length: 3*time.Minute + 4600*time.Millisecond}, "etude (3:05)"},
	}
	for _, tt := range tests {
		if got := tt.song.DisplayName(); got != tt.want {
			t.Errorf("DisplayName() = %q, want %q", got, tt.want)
		}
	}
}
