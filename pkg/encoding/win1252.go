package encoding

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ToUTF8 renders payload bytes as text for diagnostic envelopes. Valid UTF-8
// passes through untouched; anything else is decoded as Windows-1252, which
// legacy order sources still emit
func ToUTF8(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		return string(b)
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		// Fallback: better a mangled diagnostic than a dropped one
		return string(b)
	}
	return string(decoded)
}
