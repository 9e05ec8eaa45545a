package buffer

// PageStore is the ordered sequence of pages backing one buffer (C1:
// spec.md §4.1). It owns the single-entry MRU page cache and the
// structural split/merge primitives Insert/Delete build on.
//
// Modeled on the teacher's PageBufferPool (internal/storage/pager/pager.go)
// — a cache guarding page lookups — but simplified to the single
// (cached_page, cached_base_offset) pair spec.md §3 calls for, since a
// text buffer is walked linearly rather than keyed by page ID.
type PageStore struct {
	pages []*Page
	size  int64

	cachedPage *Page
	cachedBase int64
	cachedIdx  int
}

func newPageStore() *PageStore {
	return &PageStore{}
}

// TotalSize returns the sum of every page's size (invariant I1).
func (ps *PageStore) TotalSize() int64 { return ps.size }

// PageCount returns the number of pages currently in the store.
func (ps *PageStore) PageCount() int { return len(ps.pages) }

// invalidateCache clears the MRU entry. Called on any structural edit.
func (ps *PageStore) invalidateCache() {
	ps.cachedPage = nil
	ps.cachedBase = 0
	ps.cachedIdx = 0
}

// FindPage locates the page containing absolute offset *offset and
// rewrites *offset to be relative to that page's start, returning the
// page and its index in the page list. For offset == TotalSize (the
// append path), it returns the last page (or nil, 0 if the store is
// empty) with the offset left equal to that page's size.
func (ps *PageStore) FindPage(offset *int64) (*Page, int) {
	off := *offset

	if ps.cachedPage != nil {
		base := ps.cachedBase
		sz := int64(ps.cachedPage.Size())
		if off >= base && off < base+sz {
			*offset = off - base
			return ps.cachedPage, ps.cachedIdx
		}
	}

	if len(ps.pages) == 0 {
		*offset = 0
		return nil, 0
	}

	var base int64
	for i, p := range ps.pages {
		sz := int64(p.Size())
		if off < base+sz || i == len(ps.pages)-1 {
			ps.cachedPage = p
			ps.cachedBase = base
			ps.cachedIdx = i
			*offset = off - base
			return p, i
		}
		base += sz
	}
	// Unreachable: the loop above always returns on its last iteration.
	*offset = 0
	return nil, 0
}

// UpdatePage must be called before any byte-level write into page. It
// performs copy-out if the page's storage is shared/mapped and clears
// the derived-fact flags (spec.md §4.1).
func (ps *PageStore) UpdatePage(p *Page) {
	p.copyOut()
	p.invalidate()
	ps.invalidateCache()
}

// insertPagesAt splices newPages into the page list at index idx,
// updating total size. It does not touch the cache beyond invalidating
// it, since indices shift.
func (ps *PageStore) insertPagesAt(idx int, newPages []*Page) {
	if len(newPages) == 0 {
		return
	}
	grown := make([]*Page, 0, len(ps.pages)+len(newPages))
	grown = append(grown, ps.pages[:idx]...)
	grown = append(grown, newPages...)
	grown = append(grown, ps.pages[idx:]...)
	ps.pages = grown
	for _, p := range newPages {
		ps.size += int64(p.Size())
	}
	ps.invalidateCache()
}

// removePagesRange deletes pages[lo:hi] from the list, releasing their
// storage references and adjusting total size.
func (ps *PageStore) removePagesRange(lo, hi int) {
	for i := lo; i < hi; i++ {
		ps.size -= int64(ps.pages[i].Size())
		ps.pages[i].release()
	}
	ps.pages = append(ps.pages[:lo], ps.pages[hi:]...)
	ps.invalidateCache()
}

// insertAtPageHead pushes bytes into the beginning of the page at idx,
// filling it up to MaxPageSize and creating a run of new owned pages
// before idx for any remainder (spec.md §4.1). If idx == len(ps.pages),
// the bytes are simply appended as new pages at the end.
//
// data is contiguous and must land in that order: the target page can
// only absorb the room bytes immediately preceding it, so it takes
// data's tail; anything that doesn't fit spills into fresh pages holding
// data's head, placed before idx.
func (ps *PageStore) insertAtPageHead(idx int, data []byte) {
	if len(data) == 0 {
		return
	}

	if idx < len(ps.pages) {
		target := ps.pages[idx]
		room := MaxPageSize - target.Size()
		if room > 0 {
			ps.UpdatePage(target)
			n := room
			if n > len(data) {
				n = len(data)
			}
			tail := data[len(data)-n:]
			head := make([]byte, 0, n+target.Size())
			head = append(head, tail...)
			head = append(head, target.data...)
			target.data = head
			ps.size += int64(n)
			data = data[:len(data)-n]
		}
	}

	if len(data) == 0 {
		return
	}

	var fresh []*Page
	for len(data) > 0 {
		n := MaxPageSize
		if n > len(data) {
			n = len(data)
		}
		fresh = append(fresh, newOwnedPage(data[:n]))
		data = data[n:]
	}
	ps.insertPagesAt(idx, fresh)
}

// splitPage divides the page at idx at in-page offset at into two
// owned pages, replacing the original entry with both halves. The
// second half lands at idx+1, the insertion point for content destined
// to land between them.
func (ps *PageStore) splitPage(idx int, at int) {
	p := ps.pages[idx]
	ps.UpdatePage(p)
	tail := append([]byte(nil), p.data[at:]...)
	p.data = p.data[:at:at]
	ps.size -= int64(len(tail)) // insertPagesAt below adds it back via the new page

	ps.insertPagesAt(idx+1, []*Page{newOwnedPage(tail)})
}

// pagesFromBytes chops data into a run of fresh owned pages no larger
// than MaxPageSize each.
func pagesFromBytes(data []byte) []*Page {
	var pages []*Page
	for len(data) > 0 {
		n := MaxPageSize
		if n > len(data) {
			n = len(data)
		}
		pages = append(pages, newOwnedPage(data[:n]))
		data = data[n:]
	}
	return pages
}

// appendBytes adds data to the end of the store: first filling any
// spare room in the current last page, then as a run of fresh pages.
func (ps *PageStore) appendBytes(data []byte) {
	if len(data) == 0 {
		return
	}
	if len(ps.pages) > 0 {
		last := ps.pages[len(ps.pages)-1]
		room := MaxPageSize - last.Size()
		if room > 0 {
			ps.UpdatePage(last)
			n := room
			if n > len(data) {
				n = len(data)
			}
			last.data = append(last.data, data[:n]...)
			ps.size += int64(n)
			data = data[n:]
		}
	}
	if len(data) == 0 {
		return
	}
	ps.insertPagesAt(len(ps.pages), pagesFromBytes(data))
}

// InsertRange is the structural half of Insert (C2): it locates offset,
// then either fills/splits the page it lands in or appends at the end,
// per spec.md §4.1's splitting rule (no split when offset lands on a
// page boundary).
func (ps *PageStore) InsertRange(offset int64, data []byte) {
	if len(data) == 0 {
		return
	}
	if len(ps.pages) == 0 {
		ps.insertPagesAt(0, pagesFromBytes(data))
		return
	}
	if offset >= ps.TotalSize() {
		ps.appendBytes(data)
		return
	}

	off := offset
	_, idx := ps.FindPage(&off)
	if int(off) == 0 {
		ps.insertAtPageHead(idx, data)
		return
	}
	ps.splitPage(idx, int(off))
	ps.insertAtPageHead(idx+1, data)
}

// spliceSharedPages is InsertRange for a run of already-built pages
// (owned copies or shared/mapped references) rather than a raw byte
// slice — used by InsertFrom's cross-buffer page-sharing fast path.
func (ps *PageStore) spliceSharedPages(offset int64, pages []*Page) {
	if len(pages) == 0 {
		return
	}
	if len(ps.pages) == 0 {
		ps.insertPagesAt(0, pages)
		return
	}
	if offset >= ps.TotalSize() {
		ps.insertPagesAt(len(ps.pages), pages)
		return
	}

	off := offset
	_, idx := ps.FindPage(&off)
	if int(off) == 0 {
		ps.insertPagesAt(idx, pages)
		return
	}
	ps.splitPage(idx, int(off))
	ps.insertPagesAt(idx+1, pages)
}

// DeleteRange is the structural half of Delete (C2): it removes n bytes
// starting at offset, releasing any pages it empties entirely and
// trimming the boundary pages in place (spec.md §4.1, invariant I2: no
// page may be left at size 0).
func (ps *PageStore) DeleteRange(offset, n int64) {
	if n <= 0 {
		return
	}
	off := offset
	p, idx := ps.FindPage(&off)
	if p == nil {
		return
	}
	startOff := int(off)
	remaining := n

	avail := int64(p.Size() - startOff)
	if remaining <= avail {
		ps.UpdatePage(p)
		end := startOff + int(remaining)
		p.data = append(p.data[:startOff], p.data[end:]...)
		ps.size -= remaining
		if p.Size() == 0 {
			ps.removePagesRange(idx, idx+1)
		} else {
			ps.invalidateCache()
		}
		return
	}

	ps.UpdatePage(p)
	consumed := int64(p.Size() - startOff)
	p.data = p.data[:startOff:startOff]
	ps.size -= consumed
	remaining -= consumed
	startEmpty := p.Size() == 0

	cursor := idx + 1
	for remaining > 0 && cursor < len(ps.pages) {
		sz := int64(ps.pages[cursor].Size())
		if remaining >= sz {
			ps.size -= sz
			ps.pages[cursor].release()
			ps.pages = append(ps.pages[:cursor], ps.pages[cursor+1:]...)
			remaining -= sz
			continue
		}
		tailPage := ps.pages[cursor]
		ps.UpdatePage(tailPage)
		tailPage.data = tailPage.data[int(remaining):]
		ps.size -= remaining
		remaining = 0
	}

	if startEmpty {
		ps.pages = append(ps.pages[:idx], ps.pages[idx+1:]...)
	}
	ps.invalidateCache()
}

// OverwriteRange is the structural half of Write's in-place portion: it
// copies data over len(data) existing bytes starting at offset, without
// changing the total size. Callers must have already clamped data to
// fit within the store's current size.
func (ps *PageStore) OverwriteRange(offset int64, data []byte) {
	pos := offset
	remaining := len(data)
	written := 0
	for remaining > 0 {
		off := pos
		p, _ := ps.FindPage(&off)
		if p == nil {
			break
		}
		ps.UpdatePage(p)
		avail := p.Size() - int(off)
		take := remaining
		if take > avail {
			take = avail
		}
		copy(p.data[int(off):int(off)+take], data[written:written+take])
		written += take
		pos += int64(take)
		remaining -= take
	}
}
