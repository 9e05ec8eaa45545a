package buffer

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// escapeRune marks a byte-table entry whose decode requires the full
// Decode function rather than a table lookup (spec.md §4.5's ESCAPE
// sentinel for multi-byte lead bytes).
const escapeRune rune = -1

// MaxCharBytes is the widest encoded codepoint any built-in charset will
// ever need to inspect in one decode step.
const MaxCharBytes = 6

// Charset is the decoding capability the engine consumes (spec.md §6).
// byte_table maps a lead byte either directly to its codepoint, or to
// escapeRune when Decode must be called to consume a variable-length
// encoding.
type Charset struct {
	Name    string
	table   [256]rune
	decode  func(b []byte) (r rune, size int)
	encode  func(r rune) []byte
	maxSize int

	// continuation reports whether b can only ever appear as a
	// non-lead byte of a multi-byte encoding (nil for single-byte
	// charsets, where no byte is ever a continuation).
	continuation func(b byte) bool
}

// isContinuation reports whether b is a continuation byte under cs,
// used by PrevChar's backward scan (spec.md §4.5).
func (cs *Charset) isContinuation(b byte) bool {
	return cs.continuation != nil && cs.continuation(b)
}

// Lookup returns the table entry for a lead byte: either its codepoint
// directly, or (escapeRune, true) when the caller must fall back to
// Decode.
func (cs *Charset) Lookup(b byte) (r rune, escape bool) {
	v := cs.table[b]
	return v, v == escapeRune
}

// Decode consumes a variable-length encoding starting at buf[0],
// returning the decoded codepoint and the number of bytes consumed.
// Only meaningful for lead bytes where Lookup reports escape == true.
func (cs *Charset) Decode(buf []byte) (r rune, size int) {
	if cs.decode == nil {
		if len(buf) == 0 {
			return 0, 0
		}
		return rune(buf[0]), 1
	}
	return cs.decode(buf)
}

// MaxCharBytes returns how many bytes Decode may need to look at.
func (cs *Charset) MaxCharBytes() int {
	if cs.maxSize == 0 {
		return 1
	}
	return cs.maxSize
}

// Encode returns the byte sequence cs uses to represent r, falling back
// to a literal "?" when cs has no encoder for r — the same substitution
// the original's unicode_to_charset performs when encode_func can't
// represent the codepoint in the target charset.
func (cs *Charset) Encode(r rune) []byte {
	if cs.encode != nil {
		if b := cs.encode(r); len(b) > 0 {
			return b
		}
	}
	return []byte{'?'}
}

// buildFixedTable constructs a single-byte charset whose table entry for
// byte b is decodeByte(b). Used by Latin-1 and ASCII: neither needs an
// escape byte because every byte stands for exactly one codepoint.
func buildFixedTable(decodeByte func(b byte) rune) [256]rune {
	var t [256]rune
	for i := 0; i < 256; i++ {
		t[i] = decodeByte(byte(i))
	}
	return t
}

// Latin1Charset is the engine's default charset (spec.md §4.7 — every
// new buffer starts with it). Its table is built from the real
// golang.org/x/text ISO-8859-1 decoder rather than a hand-rolled
// identity array, so that a future swap to a non-identity single-byte
// charmap.Charmap only touches this constructor.
func Latin1Charset() *Charset {
	dec := charmap.ISO8859_1.NewDecoder()
	table := buildFixedTable(func(b byte) rune {
		out, _, err := dec.Bytes([]byte{b})
		if err != nil || len(out) == 0 {
			return rune(b)
		}
		r, _ := utf8.DecodeRune(out)
		return r
	})
	return &Charset{
		Name:  "latin1",
		table: table,
		encode: func(r rune) []byte {
			if r < 0 || r > 0xFF {
				return nil
			}
			return []byte{byte(r)}
		},
		maxSize: 1,
	}
}

// ASCIICharset is a strict 7-bit charset; like Latin-1 it needs no
// escape byte, every input byte decodes to itself.
func ASCIICharset() *Charset {
	table := buildFixedTable(func(b byte) rune { return rune(b) })
	return &Charset{
		Name:  "ascii",
		table: table,
		encode: func(r rune) []byte {
			if r < 0 || r > 0x7F {
				return nil
			}
			return []byte{byte(r)}
		},
		maxSize: 1,
	}
}

// UTF8Charset decodes/encodes variable-length UTF-8. Lead bytes below
// 0x80 decode directly from the table; 0x80-0xFF are escape bytes
// handled by Decode via the standard library's utf8 package, which is
// the canonical UTF-8 codec and not meaningfully improved on by a
// third-party alternative (see DESIGN.md).
func UTF8Charset() *Charset {
	var table [256]rune
	for i := 0; i < 0x80; i++ {
		table[i] = rune(i)
	}
	for i := 0x80; i < 256; i++ {
		table[i] = escapeRune
	}
	return &Charset{
		Name:  "utf-8",
		table: table,
		decode: func(buf []byte) (rune, int) {
			r, size := utf8.DecodeRune(buf)
			if r == utf8.RuneError && size <= 1 {
				// Invalid lead byte: surface it as a single raw byte so
				// navigation never gets stuck.
				if len(buf) == 0 {
					return 0, 0
				}
				return rune(buf[0]), 1
			}
			return r, size
		},
		encode: func(r rune) []byte {
			size := utf8.RuneLen(r)
			if size < 0 {
				return nil
			}
			buf := make([]byte, size)
			n := utf8.EncodeRune(buf, r)
			return buf[:n]
		},
		maxSize:      utf8.UTFMax,
		continuation: isUTF8Continuation,
	}
}

// isUTF8Continuation reports whether b is a UTF-8 continuation byte
// (10xxxxxx), used by prev_char's backward scan (spec.md §4.5).
func isUTF8Continuation(b byte) bool {
	return b&0xC0 == 0x80
}
