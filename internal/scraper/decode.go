package scraper

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"

	"github.com/pfrederiksen/typhoon/internal/status"
)

// Decode converts the page bytes to text. It tries Big5, then UTF-8, then
// code page 950, and returns the first that accepts every byte along with
// its label. ok is false when no encoding fits.
func Decode(data []byte) (text, encoding string, ok bool) {
	if s, ok := decodeBig5(data); ok {
		return s, status.EncodingBig5, true
	}
	if utf8.Valid(data) {
		return string(data), status.EncodingUTF8, true
	}
	if s, ok := decodeCP950(data); ok {
		return s, status.EncodingDOSChinese, true
	}
	return "", "", false
}

// decodeBig5 is strict. The x/text table is WHATWG Big5, which also carries
// HKSCS and maps the user-defined rows, so every pair is first checked
// against the standard Big5 ranges. The decoder substitutes U+FFFD for pairs
// it cannot map, and no Big5 pair maps to U+FFFD itself, so any replacement
// character in the output means the input was not Big5.
func decodeBig5(data []byte) (string, bool) {
	for i := 0; i < len(data); {
		if data[i] < utf8.RuneSelf {
			i++
			continue
		}
		if i+1 >= len(data) || !isBig5Pair(data[i], data[i+1]) {
			return "", false
		}
		i += 2
	}

	out, ok := big5Bytes(data)
	if !ok {
		return "", false
	}
	return string(out), true
}

func big5Bytes(data []byte) ([]byte, bool) {
	out, _, err := transform.Bytes(traditionalchinese.Big5.NewDecoder(), data)
	if err != nil || strings.ContainsRune(string(out), utf8.RuneError) {
		return nil, false
	}
	return out, true
}

// isBig5Pair reports whether c0 c1 lies in standard Big5: lead bytes A1-F9,
// excluding the reserved rows C6A1-C8FE.
func isBig5Pair(c0, c1 byte) bool {
	if c0 < 0xa1 || c0 > 0xf9 {
		return false
	}
	if _, ok := trailIndex(c1); !ok {
		return false
	}
	switch {
	case c0 == 0xc6 && c1 >= 0xa1, c0 == 0xc7, c0 == 0xc8:
		return false
	}
	return true
}

// Code page 950 single bytes outside ASCII.
const (
	cp950Byte80 = '\u0080'
	cp950ByteFF = '\uf8f8'
)

// eudcRange maps a block of user-defined pairs to the Private Use Area.
// offset shifts blocks that start mid-row.
type eudcRange struct {
	firstLead, lastLead byte
	base                rune
	offset              int
}

// CP950 user-defined character areas, in the order Windows assigns them.
var eudcRanges = []eudcRange{
	{firstLead: 0xfa, lastLead: 0xfe, base: 0xe000},
	{firstLead: 0x8e, lastLead: 0xa0, base: 0xe311},
	{firstLead: 0x81, lastLead: 0x8d, base: 0xeeb8},
	{firstLead: 0xc6, lastLead: 0xc8, base: 0xf6b1, offset: -63}, // starts at C6A1
}

// decodeCP950 walks the input pair by pair. Pairs in a user-defined area
// become Private Use Area runes; other pairs must be standard Big5.
// Anything else fails the whole decode.
func decodeCP950(data []byte) (string, bool) {
	var b strings.Builder
	b.Grow(len(data))

	for i := 0; i < len(data); {
		c0 := data[i]
		switch {
		case c0 < utf8.RuneSelf:
			b.WriteByte(c0)
			i++
			continue
		case c0 == 0x80:
			b.WriteRune(cp950Byte80)
			i++
			continue
		case c0 == 0xff:
			b.WriteRune(cp950ByteFF)
			i++
			continue
		}

		if i+1 >= len(data) {
			return "", false
		}
		c1 := data[i+1]
		idx, ok := trailIndex(c1)
		if !ok {
			return "", false
		}

		if r, ok := eudcRune(c0, idx); ok {
			b.WriteRune(r)
			i += 2
			continue
		}

		if !isBig5Pair(c0, c1) {
			return "", false
		}
		pair, ok := big5Bytes(data[i : i+2])
		if !ok {
			return "", false
		}
		b.Write(pair)
		i += 2
	}

	return b.String(), true
}

// trailIndex returns the position of a trail byte within its row of 157.
func trailIndex(c1 byte) (int, bool) {
	switch {
	case 0x40 <= c1 && c1 <= 0x7e:
		return int(c1) - 0x40, true
	case 0xa1 <= c1 && c1 <= 0xfe:
		return int(c1) - 0x62, true
	}
	return 0, false
}

func eudcRune(c0 byte, idx int) (rune, bool) {
	for _, r := range eudcRanges {
		if c0 < r.firstLead || c0 > r.lastLead {
			continue
		}
		pos := int(c0-r.firstLead)*157 + idx + r.offset
		if pos < 0 {
			return 0, false
		}
		return r.base + rune(pos), true
	}
	return 0, false
}
