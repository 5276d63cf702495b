// Package mutf8 implements the modified UTF-8 encoding used for name and
// descriptor strings throughout the class-file format.
//
// Modified UTF-8 differs from standard UTF-8 in two places: U+0000 is
// encoded as the two-byte sequence C0 80 rather than the single byte 00,
// and supplementary code points (> U+FFFF) are encoded as a surrogate
// pair of three-byte sequences rather than as one four-byte sequence.
// Because of this, a modified UTF-8 byte sequence is not valid UTF-8 and
// must never be treated as one without explicit transcoding — hence the
// distinct Str type rather than a Go string.
package mutf8

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// Str is a borrowed or owned modified UTF-8 byte sequence. It intentionally
// has no implicit conversion to or from string.
type Str []byte

// String renders the modified UTF-8 bytes for diagnostics (logging, error
// messages). It best-effort decodes; malformed input is not an error here,
// only in Decode.
func (s Str) String() string {
	decoded, err := Decode(s)
	if err != nil {
		return fmt.Sprintf("<invalid mutf8: %x>", []byte(s))
	}
	return decoded
}

// Decode converts a modified UTF-8 byte sequence into a Go string.
func Decode(s Str) (string, error) {
	var runes []rune
	i := 0
	for i < len(s) {
		b0 := s[i]
		switch {
		case b0 == 0xC0 && i+1 < len(s) && s[i+1] == 0x80:
			runes = append(runes, 0)
			i += 2

		case b0&0x80 == 0: // 1-byte
			runes = append(runes, rune(b0))
			i++

		case b0&0xE0 == 0xC0 && i+1 < len(s): // 2-byte
			r := rune(b0&0x1F)<<6 | rune(s[i+1]&0x3F)
			runes = append(runes, r)
			i += 2

		case b0&0xF0 == 0xE0 && i+2 < len(s): // 3-byte, possibly half of a surrogate pair
			r := rune(b0&0x0F)<<12 | rune(s[i+1]&0x3F)<<6 | rune(s[i+2]&0x3F)
			i += 3
			if utf16.IsSurrogate(r) && i+2 < len(s) && s[i] == 0xED {
				r2 := rune(s[i]&0x0F)<<12 | rune(s[i+1]&0x3F)<<6 | rune(s[i+2]&0x3F)
				combined := utf16.DecodeRune(r, r2)
				if combined != utf8.RuneError {
					runes = append(runes, combined)
					i += 3
					continue
				}
			}
			runes = append(runes, r)

		default:
			return "", fmt.Errorf("mutf8: malformed byte 0x%02x at offset %d", b0, i)
		}
	}
	return string(runes), nil
}

// Encode converts a Go string into its modified UTF-8 representation.
func Encode(s string) Str {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r < 0x80:
			out = append(out, byte(r))
		case r < 0x800:
			out = append(out,
				0xC0|byte(r>>6),
				0x80|byte(r&0x3F),
			)
		case r <= 0xFFFF:
			out = append(out,
				0xE0|byte(r>>12),
				0x80|byte((r>>6)&0x3F),
				0x80|byte(r&0x3F),
			)
		default:
			r1, r2 := utf16.EncodeRune(r)
			out = append(out, encodeSurrogate(r1)...)
			out = append(out, encodeSurrogate(r2)...)
		}
	}
	return Str(out)
}

func encodeSurrogate(r rune) []byte {
	return []byte{
		0xE0 | byte(r>>12),
		0x80 | byte((r>>6)&0x3F),
		0x80 | byte(r&0x3F),
	}
}

// Equal reports whether two modified UTF-8 strings hold the same bytes.
func Equal(a, b Str) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
