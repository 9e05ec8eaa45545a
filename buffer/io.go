package buffer

// This file implements C2, the byte-level read/write/insert/delete API
// (spec.md §4.2), following the mandatory five-step mutation order:
// notify subscribers, append a save-log record, apply the structural
// edit, invalidate derived facts (folded into PageStore's UpdatePage),
// then mark the buffer modified.
//
// Grounded in the teacher's wal.go: a mutation is logged before it is
// applied, never after, so a DELETE or WRITE record can still copy the
// bytes the mutation is about to remove or overwrite.

// Read copies up to len(dst) bytes starting at offset into dst and
// returns how many bytes were copied. It performs no logging and fires
// no callbacks; it is the one read-only entry point every other
// operation (and the save-log itself) is built on.
func (b *Buffer) Read(offset int64, dst []byte) int {
	total := b.store.TotalSize()
	if offset < 0 || offset >= total || len(dst) == 0 {
		return 0
	}
	n := int64(len(dst))
	if offset+n > total {
		n = total - offset
	}

	pos := offset
	remaining := n
	written := int64(0)
	for remaining > 0 {
		off := pos
		p, _ := b.store.FindPage(&off)
		if p == nil {
			break
		}
		avail := int64(p.Size()) - off
		take := remaining
		if take > avail {
			take = avail
		}
		copy(dst[written:written+take], p.data[off:off+take])
		written += take
		pos += take
		remaining -= take
	}
	return int(written)
}

// Insert splices src into b at offset, shifting everything at or past
// offset forward by len(src) (spec.md §4.2). Inserting an empty slice
// is a no-op: no callback fires, nothing is logged.
func (b *Buffer) Insert(offset int64, src []byte) error {
	n := int64(len(src))
	if n == 0 {
		return nil
	}
	if offset < 0 {
		offset = 0
	}
	if total := b.store.TotalSize(); offset > total {
		offset = total
	}

	b.callbacks.notify(b, OpInsert, offset, n)
	b.appendLog(OpInsert, offset, n)
	b.store.InsertRange(offset, src)
	b.modified = true
	return nil
}

// Delete removes up to n bytes starting at offset (spec.md §4.2).
// Deleting past the end of the buffer is clamped rather than an error;
// deleting zero bytes, or starting at or past the end, is a no-op.
func (b *Buffer) Delete(offset, n int64) error {
	total := b.store.TotalSize()
	if offset < 0 {
		offset = 0
	}
	if offset >= total || n <= 0 {
		return nil
	}
	if offset+n > total {
		n = total - offset
	}

	b.callbacks.notify(b, OpDelete, offset, n)
	b.appendLog(OpDelete, offset, n)
	b.store.DeleteRange(offset, n)
	b.modified = true
	return nil
}

// Write overwrites up to len(src) bytes starting at offset (spec.md
// §4.2). The portion that falls within the buffer's current size is
// logged and applied as a WRITE; any tail that would extend past the
// current end is instead issued as a separate Insert, so the log always
// holds an exact inverse of every byte written — the original source's
// single WRITE record for an extending write silently lost the tail on
// undo, which spec.md §9 calls out as a bug this port fixes.
func (b *Buffer) Write(offset int64, src []byte) error {
	if offset < 0 {
		offset = 0
	}
	n := int64(len(src))
	if n == 0 {
		return nil
	}

	total := b.store.TotalSize()
	if offset > total {
		offset = total
	}
	k := n
	if offset+k > total {
		k = total - offset
	}

	if k > 0 {
		b.callbacks.notify(b, OpWrite, offset, k)
		b.appendLog(OpWrite, offset, k)
		b.store.OverwriteRange(offset, src[:k])
		b.modified = true
	}

	if k < n {
		return b.Insert(offset+k, src[k:])
	}
	return nil
}

// InsertFrom copies n bytes from src starting at srcOffset into dst at
// dstOffset (spec.md §4.2's insert_from). Whole source pages fully
// covered by the range are shared by reference rather than copied;
// partial boundary pages are copied byte-for-byte. dst and src are
// expected to be different buffers — if they happen to be the same,
// the fast path is skipped in favor of a plain read-then-insert so the
// source page list isn't mutated out from under itself mid-splice.
func InsertFrom(dst *Buffer, dstOffset int64, src *Buffer, srcOffset, n int64) error {
	srcTotal := src.store.TotalSize()
	if srcOffset < 0 {
		srcOffset = 0
	}
	if srcOffset > srcTotal {
		srcOffset = srcTotal
	}
	if n > srcTotal-srcOffset {
		n = srcTotal - srcOffset
	}
	if n <= 0 {
		return nil
	}

	if dstOffset < 0 {
		dstOffset = 0
	}
	if total := dst.store.TotalSize(); dstOffset > total {
		dstOffset = total
	}

	dst.callbacks.notify(dst, OpInsert, dstOffset, n)
	dst.appendLog(OpInsert, dstOffset, n)

	if dst == src {
		tmp := make([]byte, n)
		src.Read(srcOffset, tmp)
		dst.store.InsertRange(dstOffset, tmp)
	} else {
		pages := sharePages(src, srcOffset, n)
		dst.store.spliceSharedPages(dstOffset, pages)
	}

	dst.modified = true
	return nil
}

// sharePages builds the run of pages to splice into a destination
// store for an n-byte slice of src starting at srcOffset: pages wholly
// covered by the range are converted to shared storage and referenced,
// not copied; the partial pages at either boundary are copied into
// fresh owned pages.
func sharePages(src *Buffer, srcOffset, n int64) []*Page {
	var out []*Page
	rangeEnd := srcOffset + n

	var base int64
	for _, p := range src.store.pages {
		pageStart := base
		pageEnd := base + int64(p.Size())
		base = pageEnd

		if pageEnd <= srcOffset || pageStart >= rangeEnd {
			continue
		}

		overlapStart := pageStart
		if srcOffset > overlapStart {
			overlapStart = srcOffset
		}
		overlapEnd := pageEnd
		if rangeEnd < overlapEnd {
			overlapEnd = rangeEnd
		}

		if overlapStart == pageStart && overlapEnd == pageEnd {
			out = append(out, shareWholePage(p))
			continue
		}

		lo := overlapStart - pageStart
		hi := overlapEnd - pageStart
		out = append(out, newOwnedPage(p.data[lo:hi]))
	}
	return out
}

// shareWholePage returns a new page referencing p's storage rather than
// copying it, converting p itself to shared storage first if it was
// exclusively owned.
func shareWholePage(p *Page) *Page {
	switch p.kind {
	case storageOwned:
		ref := newSharedRef()
		p.kind = storageShared
		p.ref = ref
		return newSharedPage(p.data, ref)
	case storageMapped:
		return newMappedPage(p.data, p.mmRef)
	default: // storageShared
		return newSharedPage(p.data, p.ref)
	}
}
