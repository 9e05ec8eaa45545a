package buffer

// C5 (charset-aware character iteration) and C6 (line/column
// navigation), spec.md §4.5-4.6. Column and character counts are in
// codepoints, not bytes — a page's nbChars/nbLines/col cache (page.go)
// holds the per-page facts this file accumulates across pages, the
// same running-total technique the teacher's pager.go uses for its own
// page-local summary stats, invalidated wholesale by UpdatePage on any
// byte-level mutation.

// decodeOne decodes the character starting at data[0] under cs: a
// direct table lookup, or a fall-through to Decode for escape lead
// bytes (spec.md §4.5's ESCAPE sentinel).
func decodeOne(cs *Charset, data []byte) (r rune, size int) {
	if len(data) == 0 {
		return 0, 0
	}
	v, escape := cs.Lookup(data[0])
	if !escape {
		return v, 1
	}
	return cs.Decode(data)
}

func scanCharCount(data []byte, cs *Charset) int {
	count := 0
	for len(data) > 0 {
		_, size := decodeOne(cs, data)
		if size <= 0 {
			size = 1
		}
		if size > len(data) {
			size = len(data)
		}
		data = data[size:]
		count++
	}
	return count
}

func scanLineCol(data []byte, cs *Charset) (lines, col int) {
	lastNL := -1
	for i, c := range data {
		if c == '\n' {
			lines++
			lastNL = i
		}
	}
	col = scanCharCount(data[lastNL+1:], cs)
	return
}

func (b *Buffer) ensurePosCache(p *Page) {
	if p.validPos {
		return
	}
	p.nbLines, p.col = scanLineCol(p.data, b.charset)
	p.validPos = true
}

func (b *Buffer) ensureCharCache(p *Page) {
	if p.validChar {
		return
	}
	p.nbChars = scanCharCount(p.data, b.charset)
	p.validChar = true
}

// InsertChar encodes r under b's charset and inserts the resulting bytes
// at offset (spec.md §6's encode_fn half of the Charset capability,
// mirrored on the original's unicode_to_charset, the sole caller of
// encode_func).
func (b *Buffer) InsertChar(offset int64, r rune) error {
	return b.Insert(offset, b.charset.Encode(r))
}

// NextChar decodes the character starting at offset and returns it
// along with the offset immediately past it (spec.md §4.5). At or past
// the end of the buffer it returns (0, offset) unchanged.
func (b *Buffer) NextChar(offset int64) (rune, int64) {
	total := b.store.TotalSize()
	if offset < 0 || offset >= total {
		return 0, offset
	}
	tmp := make([]byte, b.charset.MaxCharBytes())
	n := b.Read(offset, tmp)
	r, size := decodeOne(b.charset, tmp[:n])
	if size <= 0 {
		size = 1
	}
	if int64(size) > total-offset {
		size = int(total - offset)
	}
	return r, offset + int64(size)
}

// PrevChar decodes the character ending at offset and returns it along
// with its starting offset (spec.md §4.5), scanning backward over
// continuation bytes per the active charset.
func (b *Buffer) PrevChar(offset int64) (rune, int64) {
	if offset <= 0 {
		return 0, 0
	}
	limit := offset - int64(b.charset.MaxCharBytes())
	if limit < 0 {
		limit = 0
	}
	start := offset - 1
	for start > limit {
		bt, ok := b.ReadByte(start)
		if !ok || !b.charset.isContinuation(bt) {
			break
		}
		start--
	}
	tmp := make([]byte, offset-start)
	b.Read(start, tmp)
	r, _ := decodeOne(b.charset, tmp)
	return r, start
}

// GotoChar returns the byte offset of the charOffset-th character from
// the start of the buffer (spec.md §4.5 goto_char), clamped to the
// buffer's end.
func (b *Buffer) GotoChar(charOffset int) int64 {
	if charOffset <= 0 {
		return 0
	}
	remaining := charOffset
	pos := int64(0)
	for _, p := range b.store.pages {
		b.ensureCharCache(p)
		if p.nbChars <= remaining {
			remaining -= p.nbChars
			pos += int64(p.Size())
			continue
		}
		data := p.data
		for remaining > 0 {
			_, size := decodeOne(b.charset, data)
			if size <= 0 {
				size = 1
			}
			if size > len(data) {
				size = len(data)
			}
			data = data[size:]
			pos += int64(size)
			remaining--
		}
		return pos
	}
	return b.store.TotalSize()
}

// CharOffsetOf returns the character index of byte offset, counted from
// the start of the buffer (spec.md §4.5 char_offset_of).
func (b *Buffer) CharOffsetOf(offset int64) int {
	if offset <= 0 {
		return 0
	}
	if total := b.store.TotalSize(); offset > total {
		offset = total
	}
	count := 0
	pos := int64(0)
	for _, p := range b.store.pages {
		pageEnd := pos + int64(p.Size())
		if offset >= pageEnd {
			b.ensureCharCache(p)
			count += p.nbChars
			pos = pageEnd
			continue
		}
		count += scanCharCount(p.data[:offset-pos], b.charset)
		return count
	}
	return count
}

// countNewlinesBefore counts '\n' bytes strictly before offset. Newline
// detection is always a raw byte comparison, safe across every built-in
// charset: none of them ever produce 0x0A as a continuation byte.
func (b *Buffer) countNewlinesBefore(offset int64) int {
	pos := int64(0)
	lines := 0
	for _, p := range b.store.pages {
		pageEnd := pos + int64(p.Size())
		if offset >= pageEnd {
			b.ensurePosCache(p)
			lines += p.nbLines
			pos = pageEnd
			continue
		}
		within := int(offset - pos)
		for i := 0; i < within; i++ {
			if p.data[i] == '\n' {
				lines++
			}
		}
		return lines
	}
	return lines
}

// lineStartOffset returns the byte offset right after the line-th
// newline (line 0 is the start of the buffer), clamped to the buffer's
// end if line exceeds the line count.
func (b *Buffer) lineStartOffset(line int) int64 {
	if line <= 0 {
		return 0
	}
	remaining := line
	pos := int64(0)
	for _, p := range b.store.pages {
		b.ensurePosCache(p)
		if p.nbLines < remaining {
			remaining -= p.nbLines
			pos += int64(p.Size())
			continue
		}
		count := 0
		for i, c := range p.data {
			if c == '\n' {
				count++
				if count == remaining {
					return pos + int64(i+1)
				}
			}
		}
	}
	return b.store.TotalSize()
}

// GetPos returns the (line, col) of offset, both zero-based and col
// counted in characters, not bytes (spec.md §4.6 get_pos).
func (b *Buffer) GetPos(offset int64) (line, col int) {
	if offset < 0 {
		offset = 0
	}
	if total := b.store.TotalSize(); offset > total {
		offset = total
	}
	line = b.countNewlinesBefore(offset)
	lineStart := b.lineStartOffset(line)
	col = b.CharOffsetOf(offset) - b.CharOffsetOf(lineStart)
	return line, col
}

// GotoPos returns the byte offset of (line, col), clamping col to the
// end of the line if the line is shorter (spec.md §4.6 goto_pos).
func (b *Buffer) GotoPos(line, col int) int64 {
	pos := b.lineStartOffset(line)
	for i := 0; i < col; i++ {
		bt, ok := b.ReadByte(pos)
		if !ok || bt == '\n' {
			break
		}
		_, next := b.NextChar(pos)
		if next <= pos {
			break
		}
		pos = next
	}
	if total := b.store.TotalSize(); pos > total {
		pos = total
	}
	return pos
}
