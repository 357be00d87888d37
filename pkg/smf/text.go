package smf

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// TextEncoding selects how text meta event payloads are converted to UTF-8.
type TextEncoding string

const (
	// Latin1 maps each byte to the code point of the same value.
	Latin1 TextEncoding = "latin1"
	// ShiftJIS is common in files authored with Japanese sequencers.
	ShiftJIS TextEncoding = "sjis"
)

// ParseTextEncoding converts a config value into a TextEncoding.
func ParseTextEncoding(s string) (TextEncoding, error) {
	switch strings.ToLower(s) {
	case "", "latin1", "iso-8859-1":
		return Latin1, nil
	case "sjis", "shift_jis", "shift-jis":
		return ShiftJIS, nil
	default:
		return "", fmt.Errorf("unsupported text encoding: %s", s)
	}
}

func (e TextEncoding) encoding() encoding.Encoding {
	if e == ShiftJIS {
		return japanese.ShiftJIS
	}
	return charmap.ISO8859_1
}

// decodeText converts a meta payload to UTF-8.
// 変換に失敗した場合はLatin-1として扱う
func (e TextEncoding) decodeText(payload []byte) string {
	out, _, err := transform.Bytes(e.encoding().NewDecoder(), payload)
	if err != nil {
		out, _, _ = transform.Bytes(charmap.ISO8859_1.NewDecoder(), payload)
	}
	return string(out)
}
