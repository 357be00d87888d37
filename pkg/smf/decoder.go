package smf

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/zurustar/autopiano/pkg/logger"
)

// Chunk signatures searched for by the scanner. The lone 0xFF entry never
// dispatches a handler at chunk level; a match only resets the counters.
var signatures = [][]byte{
	[]byte("MThd"),
	[]byte("MTrk"),
	{0xFF},
}

const (
	sigHeader = 0
	sigTrack  = 1
)

// Option configures Decode.
type Option func(*decoder)

// WithLogger sets the logger used for debug output.
func WithLogger(log *slog.Logger) Option {
	return func(d *decoder) {
		if log != nil {
			d.log = log
		}
	}
}

// WithTextEncoding sets the character set for text meta events.
func WithTextEncoding(enc TextEncoding) Option {
	return func(d *decoder) {
		d.enc = enc
	}
}

type decoder struct {
	cur  *Cursor
	log  *slog.Logger
	enc  TextEncoding
	song DecodedSong

	headerSeen bool
	trackIndex int

	runningStatus    byte
	runningStatusSet bool
}

// Decode decodes a complete Standard MIDI File held in memory.
//
// Chunks are located by scanning for their signatures rather than by
// trusting chunk lengths, so leading garbage and unknown chunks are skipped.
// On any error no partial song is returned.
func Decode(data []byte, opts ...Option) (*DecodedSong, error) {
	d := &decoder{
		cur: NewCursor(data),
		log: logger.GetLogger(),
		enc: Latin1,
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.scan(); err != nil {
		return nil, err
	}
	if !d.headerSeen {
		return nil, fmt.Errorf("%w: no MThd chunk found", ErrMalformedHeader)
	}

	d.log.Debug("MIDI decoded",
		"format", d.song.Format,
		"tracks", d.song.TrackCount,
		"division", d.song.Division,
		"events", len(d.song.Events),
		"notes", d.song.NoteCount)

	song := d.song
	return &song, nil
}

// scan walks the buffer byte by byte keeping one match counter per
// signature. A counter that reaches its signature length dispatches the
// matching chunk handler at the current position.
func (d *decoder) scan() error {
	n := d.cur.Len()
	for d.cur.Position()+1 < n {
		counters := make([]int, len(signatures))

		for d.cur.Position()+1 < n && !complete(counters) {
			b := d.cur.data[d.cur.pos]
			for i, sig := range signatures {
				if b == sig[counters[i]] {
					counters[i]++
				} else {
					counters[i] = 0
				}
			}
			d.cur.pos++

			if counters[sigHeader] == len(signatures[sigHeader]) {
				if err := d.readHeader(); err != nil {
					return err
				}
			} else if counters[sigTrack] == len(signatures[sigTrack]) {
				if err := d.readTrack(); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func complete(counters []int) bool {
	for i, sig := range signatures {
		if counters[i] == len(sig) {
			return true
		}
	}
	return false
}

// readHeader decodes the MThd body. The chunk length is informational.
func (d *decoder) readHeader() error {
	offset := d.cur.Position()
	var fields [4]uint32
	for i, width := range []int{4, 2, 2, 2} {
		v, err := d.cur.ReadUint(width)
		if err != nil {
			return fmt.Errorf("%w: header chunk too short at offset %d", ErrMalformedHeader, offset)
		}
		fields[i] = v
	}

	div := uint16(fields[3])
	d.song.Format = uint16(fields[1])
	d.song.TrackCount = uint16(fields[2])
	d.song.SMPTE = div&0x8000 != 0
	d.song.Division = div & 0x7FFF
	d.headerSeen = true

	d.log.Debug("MThd",
		"length", fields[0],
		"format", d.song.Format,
		"tracks", d.song.TrackCount,
		"smpte", d.song.SMPTE,
		"division", d.song.Division)

	if d.song.Division == 0 {
		return fmt.Errorf("%w: division is zero", ErrMalformedHeader)
	}
	return nil
}

// readTrack decodes exactly one MTrk body. Whatever the events consumed,
// the cursor ends at the chunk boundary declared by the length field.
func (d *decoder) readTrack() error {
	index := d.trackIndex
	d.trackIndex++

	length, err := d.cur.ReadUint(4)
	if err != nil {
		return d.truncated(index, err)
	}
	start := d.cur.Position()
	// Running status carries over from the previous track.
	d.log.Debug("MTrk", "track", index, "length", length, "offset", start)

	var tick uint64
	for d.cur.Position()-start < int(length) {
		delta, err := d.cur.ReadVarLen()
		if err != nil {
			return d.truncated(index, err)
		}
		tick += uint64(delta)

		b, err := d.cur.PeekU8()
		if err != nil {
			return d.truncated(index, err)
		}

		if b == 0xFF {
			d.cur.pos++
			more, err := d.readMeta(tick)
			if err != nil {
				return d.truncated(index, err)
			}
			if !more {
				break
			}
		} else if b >= 0xF0 && b <= 0xF7 {
			if err := d.readSystem(); err != nil {
				return d.truncated(index, err)
			}
		} else if err := d.readVoice(tick); err != nil {
			return d.truncated(index, err)
		}
	}

	d.log.Debug("End of MTrk", "track", index, "from", d.cur.Position(), "to", start+int(length))
	d.cur.Seek(start + int(length))
	return nil
}

// readMeta decodes a meta event after its 0xFF marker. It reports false
// when the event is End of Track.
func (d *decoder) readMeta(tick uint64) (bool, error) {
	metaType, err := d.cur.ReadU8()
	if err != nil {
		return false, err
	}
	length, err := d.cur.ReadVarLen()
	if err != nil {
		return false, err
	}
	d.log.Debug("MIDIMETAEVENT", "type", MetaTypeName(metaType), "length", length, "tick", tick)

	switch {
	case metaType == 0x2F:
		return false, nil

	case isTextMeta(metaType):
		payload, err := d.cur.ReadBytes(int(length))
		if err != nil {
			return false, err
		}
		text := d.enc.decodeText(payload)
		d.song.Texts = append(d.song.Texts, TextEvent{Tick: tick, Type: metaType, Text: text})
		d.log.Debug("text", "type", MetaTypeName(metaType), "text", text)

	case metaType == 0x51:
		payload, err := d.cur.ReadBytes(int(length))
		if err != nil {
			return false, err
		}
		if len(payload) < 3 {
			d.log.Warn("Set Tempo payload too short, ignored", "length", length, "tick", tick)
			break
		}
		usec := uint32(payload[0])<<16 | uint32(payload[1])<<8 | uint32(payload[2])
		if usec == 0 {
			d.log.Warn("Set Tempo of zero ignored", "tick", tick)
			break
		}
		ev := RawEvent{Tick: tick, Kind: TempoChange, USecPerQuarter: usec}
		d.song.Events = append(d.song.Events, ev)
		d.log.Debug("New tempo", "bpm", ev.BPM(), "tick", tick)

	default:
		if err := d.cur.Advance(int(length)); err != nil {
			return false, err
		}
	}
	return true, nil
}

// readSystem handles 0xF0-0xF7. Running status is cancelled; SysEx
// payloads (F0, F7) are skipped by their length prefix.
func (d *decoder) readSystem() error {
	status, err := d.cur.ReadU8()
	if err != nil {
		return err
	}
	d.runningStatus = 0
	d.runningStatusSet = false
	d.log.Debug("RUNNING STATUS SET: CLEARED", "status", fmt.Sprintf("0x%02X", status))

	if status != 0xF0 && status != 0xF7 {
		return nil
	}
	length, err := d.cur.ReadVarLen()
	if err != nil {
		return err
	}
	return d.cur.Advance(int(length))
}

// readVoice decodes a channel voice event, honouring running status.
func (d *decoder) readVoice(tick uint64) error {
	b, err := d.cur.PeekU8()
	if err != nil {
		return err
	}

	var status byte
	if b < 0x80 && d.runningStatusSet {
		// b is the first data byte; leave it for the reads below.
		status = d.runningStatus
	} else {
		status = b
		d.cur.pos++
		if status >= 0x80 && status <= 0xF7 {
			d.runningStatus = status
			d.runningStatusSet = true
		}
	}

	switch status >> 4 {
	case 0x9:
		key, velocity, err := d.readPair()
		if err != nil {
			return err
		}
		if velocity == 0 {
			d.emitNote(tick, NoteOff, key)
		} else {
			d.emitNote(tick, NoteOn, key)
			d.song.NoteCount++
		}
	case 0x8:
		key, _, err := d.readPair()
		if err != nil {
			return err
		}
		d.emitNote(tick, NoteOff, key)
	case 0xA, 0xB, 0xE:
		return d.cur.Advance(2)
	case 0xC, 0xD:
		return d.cur.Advance(1)
	default:
		// Data byte with no running status, or 0xF8-0xFE. One more byte
		// belongs to it.
		d.log.Debug("stray status skipped", "value", status, "tick", tick)
		return d.cur.Advance(1)
	}
	return nil
}

func (d *decoder) readPair() (byte, byte, error) {
	first, err := d.cur.ReadU8()
	if err != nil {
		return 0, 0, err
	}
	second, err := d.cur.ReadU8()
	if err != nil {
		return 0, 0, err
	}
	return first, second, nil
}

func (d *decoder) emitNote(tick uint64, kind EventKind, note byte) {
	d.song.Events = append(d.song.Events, RawEvent{
		Tick: tick,
		Kind: kind,
		Key:  int(note) - PianoKeyOffset,
	})
}

func (d *decoder) truncated(track int, err error) error {
	if errors.Is(err, ErrUnexpectedEOF) {
		return fmt.Errorf("%w: track %d at offset %d", ErrTruncated, track, d.cur.Position())
	}
	return err
}
