package script

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zurustar/autopiano/pkg/fileutil"
	"github.com/zurustar/autopiano/pkg/logger"
	"github.com/zurustar/autopiano/pkg/smf"
)

// Loader はスクリプトフォルダ内の変換済みスクリプトを管理する
//
// A song "songs/canon.mid" is cached as "<dir>/canon.txt" in raw form and
// converted again only when that file is missing.
type Loader struct {
	dir      string
	encoding smf.TextEncoding
	log      *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithTextEncoding sets the encoding used for MIDI text meta events.
func WithTextEncoding(enc smf.TextEncoding) LoaderOption {
	return func(l *Loader) { l.encoding = enc }
}

// WithLoaderLogger sets the logger.
func WithLoaderLogger(log *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// NewLoader Loaderを作成
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	l := &Loader{
		dir:      dir,
		encoding: smf.Latin1,
		log:      logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the scripts folder.
func (l *Loader) Dir() string {
	return l.dir
}

// PathFor returns the cache path for a song.
func (l *Loader) PathFor(songPath string) string {
	return filepath.Join(l.dir, fileutil.SongName(songPath)+".txt")
}

// Convert decodes a MIDI file and writes its raw script into the scripts
// folder, returning the written path.
func (l *Loader) Convert(songPath string) (string, error) {
	actual, err := fileutil.CheckMIDIPath(songPath)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(actual)
	if err != nil {
		return "", fmt.Errorf("failed to read MIDI file: %w", err)
	}

	l.log.Info("Processing", "file", actual)
	song, err := smf.Decode(data, smf.WithLogger(l.log), smf.WithTextEncoding(l.encoding))
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", actual, err)
	}
	l.log.Info("notes processed", "count", song.NoteCount, "events", len(song.Events))

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create scripts folder: %w", err)
	}

	out := l.PathFor(actual)
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("failed to create script file: %w", err)
	}
	defer f.Close()

	if err := WriteNotes(f, DefaultPlaybackSpeed, Notes(song.Events, song.Division)); err != nil {
		return "", fmt.Errorf("failed to write script file: %w", err)
	}
	l.log.Info("Saving notes", "file", out)
	return out, f.Close()
}

// Load returns the resolved script for a song, converting the MIDI file
// first if no cached script exists.
func (l *Loader) Load(songPath string) (*Script, error) {
	path := l.PathFor(songPath)
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat script file: %w", err)
		}
		if path, err = l.Convert(songPath); err != nil {
			return nil, err
		}
	} else {
		l.log.Debug("Using cached script", "file", path)
	}
	return l.LoadFile(path)
}

// LoadFile reads a raw script file and resolves it.
func (l *Loader) LoadFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", fileutil.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to open script file: %w", err)
	}
	defer f.Close()

	file, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	l.log.Info("Playback speed", "speed", file.PlaybackSpeed)

	s, err := Build(file.Notes(), file.PlaybackSpeed)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", path, err)
	}
	l.log.Info("Script loaded",
		"file", path,
		"entries", s.Len(),
		"initial_bpm", s.InitialBPM,
		"time_offset", s.TimeOffset)
	return s, nil
}
