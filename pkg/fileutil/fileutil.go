// Package fileutil provides file lookup helpers for songs and scripts.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrFileNotFound is returned when a song or script file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrWrongExtension is returned when a song file is not a .mid file.
var ErrWrongExtension = errors.New("incorrect file extension, expected .mid")

// FindFileCaseInsensitive searches dir for filename ignoring case and
// returns the path with the on-disk spelling.
//
// Example:
//
//	path, err := FindFileCaseInsensitive("songs", "Canon.MID")
//	// finds "songs/canon.mid", "songs/CANON.MID", ...
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: directory %s", ErrFileNotFound, dir)
		}
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), filename) {
			return filepath.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("%w: %s (searched in %s)", ErrFileNotFound, filename, dir)
}

// ResolveFile returns path if it exists, otherwise the case-insensitive
// match in the same directory.
func ResolveFile(path string) (string, error) {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path, nil
	}
	return FindFileCaseInsensitive(filepath.Dir(path), filepath.Base(path))
}

// IsMIDIFile reports whether name has a MIDI file extension.
func IsMIDIFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".mid" || ext == ".midi"
}

// CheckMIDIPath verifies that path names an existing MIDI file. The two
// failure kinds are reported as ErrFileNotFound and ErrWrongExtension.
func CheckMIDIPath(path string) (string, error) {
	actual, err := ResolveFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: '%s'", ErrFileNotFound, path)
	}
	if !IsMIDIFile(actual) {
		return "", fmt.Errorf("'%s' has an %w", path, ErrWrongExtension)
	}
	return actual, nil
}

// SongName returns the base name of a song without any extension:
// "songs/Canon.in.D.mid" → "Canon".
func SongName(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i >= 0 {
		return base[:i]
	}
	return base
}

// ListMIDIFiles returns the names of the MIDI files directly inside dir,
// sorted case-insensitively.
func ListMIDIFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !IsMIDIFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names, nil
}
