// Package smf decodes Standard MIDI Files into a flat list of note and
// tempo events without relying on a MIDI library.
package smf

// Cursor is a big-endian reader over an immutable byte buffer.
// 読み込み位置だけを保持し、バッファ自体は変更しない。
type Cursor struct {
	data []byte
	pos  int
}

// NewCursor creates a Cursor positioned at the start of data.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Position returns the current read offset.
func (c *Cursor) Position() int {
	return c.pos
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	if c.pos >= len(c.data) {
		return 0
	}
	return len(c.data) - c.pos
}

// Len returns the size of the underlying buffer.
func (c *Cursor) Len() int {
	return len(c.data)
}

// PeekU8 returns the next byte without consuming it.
func (c *Cursor) PeekU8() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, ErrUnexpectedEOF
	}
	return c.data[c.pos], nil
}

// ReadU8 reads a single byte.
func (c *Cursor) ReadU8() (byte, error) {
	b, err := c.PeekU8()
	if err != nil {
		return 0, err
	}
	c.pos++
	return b, nil
}

// ReadUint reads an n-byte big-endian unsigned integer. n must be 1 to 4.
func (c *Cursor) ReadUint(n int) (uint32, error) {
	if n < 1 || n > 4 {
		panic("smf: ReadUint width out of range")
	}
	if c.Remaining() < n {
		return 0, ErrUnexpectedEOF
	}
	var v uint32
	for i := 0; i < n; i++ {
		v = v<<8 | uint32(c.data[c.pos+i])
	}
	c.pos += n
	return v, nil
}

// ReadVarLen reads a MIDI variable-length quantity: 7 bits per byte,
// most significant group first, high bit set on every byte but the last.
func (c *Cursor) ReadVarLen() (uint32, error) {
	var v uint32
	for {
		b, err := c.ReadU8()
		if err != nil {
			return 0, err
		}
		v = v<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return v, nil
		}
	}
}

// ReadBytes returns the next n bytes. The returned slice aliases the buffer.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, ErrUnexpectedEOF
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Advance skips n bytes.
func (c *Cursor) Advance(n int) error {
	if n < 0 || c.Remaining() < n {
		return ErrUnexpectedEOF
	}
	c.pos += n
	return nil
}

// Seek moves the cursor to an absolute offset, clamped to the buffer end.
func (c *Cursor) Seek(pos int) {
	switch {
	case pos < 0:
		c.pos = 0
	case pos > len(c.data):
		c.pos = len(c.data)
	default:
		c.pos = pos
	}
}

// EncodeVarLen encodes v as a MIDI variable-length quantity.
// Values above 0x0FFFFFFF do not fit in the four bytes SMF allows and are
// encoded with a fifth byte; ReadVarLen still decodes them.
func EncodeVarLen(v uint32) []byte {
	out := []byte{byte(v & 0x7F)}
	v >>= 7
	for v > 0 {
		out = append([]byte{byte(v&0x7F) | 0x80}, out...)
		v >>= 7
	}
	return out
}
