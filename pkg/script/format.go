package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const speedHeader = "playback_speed="

// ErrMalformedLine is returned when a script file line cannot be parsed.
var ErrMalformedLine = errors.New("malformed script line")

// Line is one parsed "<value> <token>" line. Value is an absolute quarter
// time in a raw script and a delay in seconds in a resolved one.
type Line struct {
	Value float64
	Action
}

// File is a parsed script file.
type File struct {
	PlaybackSpeed float64
	Lines         []Line
}

// Notes interprets the file as a raw script.
func (f *File) Notes() []Note {
	notes := make([]Note, len(f.Lines))
	for i, l := range f.Lines {
		notes[i] = Note{Time: l.Value, Action: l.Action}
	}
	return notes
}

// Entries interprets the file as a resolved script. Tempo lines are not
// allowed there.
func (f *File) Entries() ([]Entry, error) {
	entries := make([]Entry, len(f.Lines))
	for i, l := range f.Lines {
		if l.Kind == Tempo {
			return nil, fmt.Errorf("%w: tempo token in resolved script at entry %d", ErrMalformedLine, i)
		}
		entries[i] = Entry{Delay: l.Value, Action: l.Action}
	}
	return entries, nil
}

// Script interprets the file as a resolved script.
func (f *File) Script() (*Script, error) {
	entries, err := f.Entries()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEmptyScript
	}
	return &Script{Entries: entries, PlaybackSpeed: f.PlaybackSpeed, InitialBPM: DefaultBPM}, nil
}

// Read parses a script file. The first non-blank line must be the
// playback_speed header; later lines with fewer than two fields are skipped.
func Read(r io.Reader) (*File, error) {
	scanner := bufio.NewScanner(r)
	f := &File{}
	headerSeen := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())

		if !headerSeen {
			if text == "" {
				continue
			}
			if !strings.HasPrefix(text, speedHeader) {
				return nil, fmt.Errorf("%w: line %d: missing %s header", ErrMalformedLine, lineNo, strings.TrimSuffix(speedHeader, "="))
			}
			speed, err := strconv.ParseFloat(strings.TrimPrefix(text, speedHeader), 64)
			if err != nil || speed <= 0 {
				return nil, fmt.Errorf("%w: line %d: invalid playback speed %q", ErrMalformedLine, lineNo, text)
			}
			f.PlaybackSpeed = speed
			headerSeen = true
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid number %q", ErrMalformedLine, lineNo, fields[0])
		}
		action, err := ParseToken(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedLine, lineNo, err)
		}
		f.Lines = append(f.Lines, Line{Value: value, Action: action})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	if !headerSeen {
		return nil, fmt.Errorf("%w: empty script file", ErrMalformedLine)
	}
	return f, nil
}

// WriteNotes writes a raw script.
func WriteNotes(w io.Writer, playbackSpeed float64, notes []Note) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s%s\n", speedHeader, formatValue(playbackSpeed))
	for _, n := range notes {
		fmt.Fprintf(bw, "%s %s\n", formatValue(n.Time), n.Token())
	}
	return bw.Flush()
}

// WriteScript writes a resolved script.
func WriteScript(w io.Writer, s *Script) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s%s\n", speedHeader, formatValue(s.PlaybackSpeed))
	for _, e := range s.Entries {
		fmt.Fprintf(bw, "%s %s\n", formatValue(e.Delay), e.Token())
	}
	return bw.Flush()
}

// formatValue writes the shortest decimal that parses back to v, always
// with a fractional part ("1.0", "0.5", "0.3333333333333333").
func formatValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
