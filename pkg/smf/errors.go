package smf

import "errors"

// ErrUnexpectedEOF is returned by Cursor reads past the end of the buffer.
var ErrUnexpectedEOF = errors.New("unexpected end of buffer")

// ErrTruncated is returned when the buffer ends in the middle of an event.
var ErrTruncated = errors.New("truncated MIDI data")

// ErrMalformedHeader is returned when the MThd chunk is missing, too short,
// or declares a division of zero.
var ErrMalformedHeader = errors.New("malformed MIDI header")
