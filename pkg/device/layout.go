// Package device turns piano key actions into screen touches on the phone
// running the piano app.
package device

import (
	"errors"
	"fmt"
)

// Keyboard constants of an 88-key piano.
const (
	NumKeys       = 88
	NumWhiteKeys  = 52
	NumOctaves    = 7
	semitones     = 12
	lowKeys       = 3 // A0, A#0, B0 below the first full octave
	keysBeforeTop = lowKeys + NumOctaves*semitones
)

var (
	whiteKeyIndex = []int{0, 2, 4, 5, 7, 9, 11}
	blackKeyIndex = []int{1, 3, 6, 8, 10}
)

// ErrKeyOutOfRange is returned for keys outside 0..87.
var ErrKeyOutOfRange = errors.New("piano key out of range")

// Point is a screen coordinate in pixels.
type Point struct {
	X, Y float64
}

// Layout describes where the piano is drawn on screen. The defaults match
// the app on a 2340x1080 landscape display.
type Layout struct {
	// Crop box of the keyboard in screen pixels.
	Left, Top, Right, Bottom float64
	// WhiteVertical and BlackVertical are the touch heights relative to the
	// keyboard height.
	WhiteVertical float64
	BlackVertical float64
	// BlackHorizontal holds the centre of each black key relative to the
	// width of its octave, left to right.
	BlackHorizontal [5]float64
}

// DefaultLayout returns the layout of the supported device.
func DefaultLayout() Layout {
	return Layout{
		Left:            244,
		Top:             805,
		Right:           2232,
		Bottom:          1128,
		WhiteVertical:   0.8006,
		BlackVertical:   0.2658,
		BlackHorizontal: [5]float64{0.1391, 0.2857, 0.5714, 0.7180, 0.8609},
	}
}

// Width returns the keyboard width in pixels.
func (l Layout) Width() float64 { return l.Right - l.Left }

// Height returns the keyboard height in pixels.
func (l Layout) Height() float64 { return l.Bottom - l.Top }

func (l Layout) whiteKeyWidth() float64 {
	return l.Width() / NumWhiteKeys
}

// octaveSpan returns the horizontal extent of a key group relative to the
// keyboard's left edge. Group 0 is the two white keys below C1, groups 1-7
// are the full octaves and group 8 is the top C.
func (l Layout) octaveSpan(group int) (start, end float64) {
	unit := l.whiteKeyWidth()
	first := 2 * unit
	full := NumOctaves * unit
	switch {
	case group == 0:
		return 0, first
	case group <= NumOctaves:
		return first + full*float64(group-1), first + full*float64(group)
	default:
		return first + full*NumOctaves, l.Width()
	}
}

// groupOf splits a key into its octave group and semitone within the group.
func groupOf(key int) (group, relative int) {
	switch {
	case key < lowKeys:
		return 0, key
	case key < keysBeforeTop:
		return (key-lowKeys)/semitones + 1, (key - lowKeys) % semitones
	default:
		return NumOctaves + 1, 0
	}
}

func indexOf(list []int, v int) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

// Position returns the screen point to touch for key.
func (l Layout) Position(key int) (Point, error) {
	if key < 0 || key >= NumKeys {
		return Point{}, fmt.Errorf("%w: %d", ErrKeyOutOfRange, key)
	}

	group, relative := groupOf(key)
	start, end := l.octaveSpan(group)

	var p Point
	if i := indexOf(whiteKeyIndex, relative); i >= 0 {
		p.X = start + l.whiteKeyWidth()*(float64(i)+0.5)
		p.Y = l.Height() * l.WhiteVertical
	} else {
		p.X = start + (end-start)*l.BlackHorizontal[indexOf(blackKeyIndex, relative)]
		p.Y = l.Height() * l.BlackVertical
	}

	p.X += l.Left
	p.Y += l.Top
	return p, nil
}
