// Package tui is the interactive terminal front end: hotkeys for the
// scheduler and a song picker.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zurustar/autopiano/pkg/library"
	"github.com/zurustar/autopiano/pkg/player"
)

// SlowDown is the multiplier applied by the "-" key.
const SlowDown = 0.9

const refreshInterval = 100 * time.Millisecond

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	playStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
)

// Controller is the part of the scheduler the UI drives.
type Controller interface {
	Toggle() error
	Pause() error
	Rewind() error
	Skip() error
	SetSpeed(m float64) error
	ResetSpeed() error
	Snapshot() (player.Snapshot, error)
}

// ChooseFunc loads the chosen song into the scheduler.
type ChooseFunc func(song library.Song) error

type tickMsg struct{}

// RescanFunc re-reads the songs folder.
type RescanFunc func() ([]library.Song, error)

// FinishedMsg tells the model that the song ended. With Select set it opens
// the song picker.
type FinishedMsg struct {
	Select bool
}

// Model is the bubbletea model driving one scheduler.
type Model struct {
	ctrl   Controller
	songs  []library.Song
	choose ChooseFunc
	rescan RescanFunc

	snap      player.Snapshot
	selecting bool
	selected  int
	status    string
	failed    bool
	quitting  bool
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithRescan makes the "z" key re-read the songs folder before opening the
// picker.
func WithRescan(f RescanFunc) ModelOption {
	return func(m *Model) { m.rescan = f }
}

// NewModel creates the model. With no song loaded yet (Idle) it starts in
// the song picker.
func NewModel(ctrl Controller, songs []library.Song, choose ChooseFunc, opts ...ModelOption) Model {
	m := Model{ctrl: ctrl, songs: songs, choose: choose}
	for _, opt := range opts {
		opt(&m)
	}
	m.refresh()
	if m.snap.State == player.Idle && len(songs) > 0 {
		m.selecting = true
	}
	return m
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m *Model) refresh() {
	if snap, err := m.ctrl.Snapshot(); err == nil {
		m.snap = snap
	}
}

func (m *Model) report(err error, ok string) {
	if err != nil {
		m.status = err.Error()
		m.failed = true
		return
	}
	m.status = ok
	m.failed = false
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.selecting {
			return m.updatePicker(msg)
		}
		return m.updatePlayer(msg)

	case tickMsg:
		m.refresh()
		return m, tick()

	case FinishedMsg:
		m.refresh()
		m.report(nil, "Song finished")
		if msg.Select && len(m.songs) > 0 {
			m.selecting = true
		}
	}

	return m, nil
}

func (m Model) updatePlayer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "p", " ":
		err := m.ctrl.Toggle()
		m.refresh()
		if m.snap.Playing() {
			m.report(err, "Playing...")
		} else {
			m.report(err, "Stopping...")
		}

	case "r":
		err := m.ctrl.Rewind()
		m.refresh()
		m.report(err, fmt.Sprintf("Rewound to %d", m.snap.Cursor))

	case "a":
		err := m.ctrl.Skip()
		m.refresh()
		m.report(err, fmt.Sprintf("Skipped to %d", m.snap.Cursor))

	case "-", "_":
		err := m.ctrl.SetSpeed(SlowDown)
		m.refresh()
		m.report(err, fmt.Sprintf("Speed %.2fx", m.snap.Speed))

	case "=", "+":
		err := m.ctrl.ResetSpeed()
		m.refresh()
		m.report(err, fmt.Sprintf("Speed %.2fx", m.snap.Speed))

	case "z":
		if m.rescan != nil {
			songs, err := m.rescan()
			if err != nil {
				m.report(err, "")
				break
			}
			m.songs = songs
			if m.selected >= len(songs) {
				m.selected = 0
			}
		}
		if len(m.songs) == 0 {
			m.report(library.ErrNoSongs, "")
			break
		}
		if m.snap.Playing() {
			m.report(m.ctrl.Pause(), "Stopping...")
		}
		m.selecting = true
	}

	return m, nil
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		if m.snap.State != player.Idle {
			m.selecting = false
		}

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.songs)-1 {
			m.selected++
		}

	case "enter":
		song := m.songs[m.selected]
		err := m.choose(song)
		m.refresh()
		m.report(err, "Selected: "+song.Name)
		if err == nil {
			m.selecting = false
		}

	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			if n := int(key[0] - '1'); n < len(m.songs) {
				m.selected = n
			}
		}
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(m.header())
	out.WriteString("\n\n")

	if m.selecting {
		out.WriteString(m.pickerView())
		out.WriteString("\n")
		out.WriteString(dimStyle.Render("j/k:move  1-9:jump  enter:select  esc:back  q:quit"))
	} else {
		out.WriteString(m.progressView())
		out.WriteString("\n\n")
		out.WriteString(dimStyle.Render("p:play/pause  r:rewind  a:advance  z:select song  -:slower  =:reset speed  q:quit"))
	}

	if m.status != "" {
		out.WriteString("\n")
		if m.failed {
			out.WriteString(errorStyle.Render(m.status))
		} else {
			out.WriteString(dimStyle.Render(m.status))
		}
	}
	out.WriteString("\n")
	return out.String()
}

func (m Model) header() string {
	state := strings.ToUpper(m.snap.State.String())
	if m.snap.Playing() {
		state = playStyle.Render("PLAY")
	}
	song := m.snap.Song
	if song == "" {
		song = "(no song)"
	}
	return headerStyle.Render("autopiano") + "  " + state + "  " + song +
		dimStyle.Render(fmt.Sprintf("  speed %.2fx", m.snap.Speed))
}

const barWidth = 40

func (m Model) progressView() string {
	filled := int(m.snap.Progress() * barWidth)
	bar := barStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("%s  %d/%d", bar, m.snap.Cursor, m.snap.Length)
}

func (m Model) pickerView() string {
	var out strings.Builder
	out.WriteString("Select a song:\n")
	for i := range m.songs {
		line := fmt.Sprintf("%d: %s", i+1, m.songs[i].DisplayName())
		if i == m.selected {
			out.WriteString(selectedStyle.Render("> " + line))
		} else {
			out.WriteString("  " + line)
		}
		out.WriteString("\n")
	}
	return out.String()
}

// Selecting reports whether the song picker is open.
func (m Model) Selecting() bool {
	return m.selecting
}

// Status returns the last status line.
func (m Model) Status() string {
	return m.status
}
