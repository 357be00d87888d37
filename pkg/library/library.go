// Package library lists the songs in the songs folder and lets the user
// pick one.
package library

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sinshu/go-meltysynth/meltysynth"
	"github.com/zurustar/autopiano/pkg/fileutil"
	"github.com/zurustar/autopiano/pkg/logger"
)

// ErrNoSongs is returned when the songs folder holds no MIDI file.
var ErrNoSongs = errors.New("no songs available")

// Song is one MIDI file in the songs folder.
type Song struct {
	Name   string        // 曲名（拡張子を除いたファイル名）
	File   string        // ファイル名
	Path   string        // ファイルのパス
	Length time.Duration // 演奏時間（解析できない場合は0）
}

// DisplayName returns the name with the length when it is known.
func (s *Song) DisplayName() string {
	if s.Length <= 0 {
		return s.Name
	}
	total := int(s.Length.Round(time.Second).Seconds())
	return fmt.Sprintf("%s (%d:%02d)", s.Name, total/60, total%60)
}

// Registry は曲フォルダ内の曲を管理する
type Registry struct {
	dir   string
	songs []Song
	log   *slog.Logger
}

// NewRegistry Registryを作成
func NewRegistry(dir string, log *slog.Logger) *Registry {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Registry{dir: dir, log: log}
}

// Dir returns the songs folder.
func (r *Registry) Dir() string {
	return r.dir
}

// Scan reads the songs folder. Files that cannot be measured are still
// listed, with a zero length.
func (r *Registry) Scan() error {
	names, err := fileutil.ListMIDIFiles(r.dir)
	if err != nil {
		return fmt.Errorf("failed to scan songs folder: %w", err)
	}

	songs := make([]Song, 0, len(names))
	for _, name := range names {
		path := filepath.Join(r.dir, name)
		song := Song{
			Name: fileutil.SongName(name),
			File: name,
			Path: path,
		}
		length, err := measure(path)
		if err != nil {
			r.log.Warn("Could not measure song", "file", path, "error", err)
		} else {
			song.Length = length
		}
		songs = append(songs, song)
	}

	r.songs = songs
	r.log.Debug("Songs folder scanned", "dir", r.dir, "songs", len(songs))
	return nil
}

// measure returns the playing time of a MIDI file.
func measure(path string) (time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	midi, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	return midi.GetLength(), nil
}

// Songs returns the songs found by the last Scan.
func (r *Registry) Songs() []Song {
	return append([]Song(nil), r.songs...)
}

// Find looks a song up by file name or song name, ignoring case.
func (r *Registry) Find(name string) (*Song, error) {
	for i := range r.songs {
		s := &r.songs[i]
		if strings.EqualFold(s.File, name) || strings.EqualFold(s.Name, name) {
			song := *s
			return &song, nil
		}
	}
	return nil, fmt.Errorf("%w: %s (searched in %s)", fileutil.ErrFileNotFound, name, r.dir)
}

// Select 曲を選択（単一の場合は自動選択）
// 戻り値: (選択された曲, 選択画面が必要か, エラー)
func (r *Registry) Select() (*Song, bool, error) {
	if len(r.songs) == 0 {
		return nil, false, fmt.Errorf("%w in %s", ErrNoSongs, r.dir)
	}

	if len(r.songs) == 1 {
		song := r.songs[0]
		return &song, false, nil
	}

	return nil, true, nil
}
