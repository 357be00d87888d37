package library

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrCancelled is returned when the user quits the selection.
	ErrCancelled = errors.New("user cancelled")

	// ErrInputClosed is returned when input ends before a choice is made.
	ErrInputClosed = errors.New("input closed")
)

// Prompt asks for a song on a line-based terminal. It reads from a shared
// scanner so the caller can keep reading commands from the same input.
type Prompt struct {
	scanner *bufio.Scanner
	w       io.Writer
}

// NewPrompt creates a Prompt reading r and writing w.
func NewPrompt(r io.Reader, w io.Writer) *Prompt {
	return &Prompt{scanner: bufio.NewScanner(r), w: w}
}

// ReadLine returns the next trimmed input line.
func (p *Prompt) ReadLine() (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", ErrInputClosed
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// Choose lists songs and waits for a number, or 'q' to quit. A single song
// is chosen without asking.
func (p *Prompt) Choose(songs []Song) (*Song, error) {
	if len(songs) == 0 {
		return nil, ErrNoSongs
	}

	if len(songs) == 1 {
		fmt.Fprintf(p.w, "Auto-selecting song: %s\n", songs[0].Name)
		song := songs[0]
		return &song, nil
	}

	fmt.Fprintln(p.w, "Available songs:")
	for i := range songs {
		fmt.Fprintf(p.w, "  %d: %s\n", i+1, songs[i].DisplayName())
	}
	fmt.Fprintln(p.w)

	for {
		fmt.Fprint(p.w, "Select a song (1-", len(songs), ") or 'q' to quit: ")
		input, err := p.ReadLine()
		if err != nil {
			return nil, err
		}

		if input == "q" || input == "Q" {
			return nil, ErrCancelled
		}

		num, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintln(p.w, "Invalid input. Please enter a number.")
			continue
		}

		if num < 1 || num > len(songs) {
			fmt.Fprintf(p.w, "Invalid selection. Please enter a number between 1 and %d.\n", len(songs))
			continue
		}

		song := songs[num-1]
		fmt.Fprintf(p.w, "Selected: %s\n", song.Name)
		return &song, nil
	}
}
