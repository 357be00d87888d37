package smf

import (
	"bytes"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestCursorReadUint(t *testing.T) {
	data := []byte{0x12, 0x34, 0x56, 0x78, 0x9A}

	tests := []struct {
		name  string
		width int
		want  uint32
	}{
		{"1 byte", 1, 0x12},
		{"2 bytes", 2, 0x1234},
		{"3 bytes", 3, 0x123456},
		{"4 bytes", 4, 0x12345678},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor(data)
			got, err := c.ReadUint(tt.width)
			if err != nil {
				t.Fatalf("ReadUint(%d) failed: %v", tt.width, err)
			}
			if got != tt.want {
				t.Errorf("ReadUint(%d) = 0x%X, want 0x%X", tt.width, got, tt.want)
			}
			if c.Position() != tt.width {
				t.Errorf("Position() = %d, want %d", c.Position(), tt.width)
			}
			if c.Remaining() != len(data)-tt.width {
				t.Errorf("Remaining() = %d, want %d", c.Remaining(), len(data)-tt.width)
			}
		})
	}
}

func TestCursorEOF(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02})

	if _, err := c.ReadUint(3); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("ReadUint past end: expected ErrUnexpectedEOF, got %v", err)
	}
	if c.Position() != 0 {
		t.Errorf("failed read moved the cursor to %d", c.Position())
	}
	if err := c.Advance(3); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("Advance past end: expected ErrUnexpectedEOF, got %v", err)
	}
	if err := c.Advance(2); err != nil {
		t.Fatalf("Advance(2) failed: %v", err)
	}
	if _, err := c.ReadU8(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("ReadU8 at end: expected ErrUnexpectedEOF, got %v", err)
	}
	if _, err := c.PeekU8(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("PeekU8 at end: expected ErrUnexpectedEOF, got %v", err)
	}

	unterminated := NewCursor([]byte{0x81, 0x80})
	if _, err := unterminated.ReadVarLen(); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("unterminated VLQ: expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestCursorDoesNotMutateBuffer(t *testing.T) {
	data := []byte{0x81, 0x00, 0xFF, 0x10}
	original := append([]byte(nil), data...)

	c := NewCursor(data)
	_, _ = c.ReadVarLen()
	_, _ = c.PeekU8()
	_, _ = c.ReadBytes(2)
	c.Seek(100)

	if !bytes.Equal(data, original) {
		t.Errorf("buffer changed: %X, want %X", data, original)
	}
	if c.Position() != len(data) {
		t.Errorf("Seek past end should clamp, got %d", c.Position())
	}
}

func TestVarLenKnownValues(t *testing.T) {
	tests := []struct {
		value   uint32
		encoded []byte
	}{
		{0x00, []byte{0x00}},
		{0x40, []byte{0x40}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x81, 0x00}},
		{0x2000, []byte{0xC0, 0x00}},
		{0x3FFF, []byte{0xFF, 0x7F}},
		{0x100000, []byte{0xC0, 0x80, 0x00}},
		{0x0FFFFFFF, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}

	for _, tt := range tests {
		if got := EncodeVarLen(tt.value); !bytes.Equal(got, tt.encoded) {
			t.Errorf("EncodeVarLen(0x%X) = %X, want %X", tt.value, got, tt.encoded)
		}
		c := NewCursor(tt.encoded)
		got, err := c.ReadVarLen()
		if err != nil {
			t.Fatalf("ReadVarLen(%X) failed: %v", tt.encoded, err)
		}
		if got != tt.value {
			t.Errorf("ReadVarLen(%X) = 0x%X, want 0x%X", tt.encoded, got, tt.value)
		}
		if c.Remaining() != 0 {
			t.Errorf("ReadVarLen(%X) left %d bytes", tt.encoded, c.Remaining())
		}
	}
}

// TestVarLenBijectionProperty checks that encode then decode returns the
// original value over the whole SMF range.
func TestVarLenBijectionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 1000

	properties := gopter.NewProperties(parameters)

	properties.Property("ReadVarLen(EncodeVarLen(v)) == v", prop.ForAll(
		func(v uint32) bool {
			encoded := EncodeVarLen(v)
			if len(encoded) > 4 {
				return false
			}
			got, err := NewCursor(encoded).ReadVarLen()
			return err == nil && got == v
		},
		gen.UInt32Range(0, 0x0FFFFFFF),
	))

	properties.TestingRun(t)
}
