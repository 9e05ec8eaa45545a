package buffer

// MaxPageSize is the largest number of bytes a single page may hold.
// Recommended by spec.md §3; kept small enough that a linear page-table
// scan on cache miss stays cheap for typical editor-sized buffers.
const MaxPageSize = 4096

// storageKind discriminates how a page's bytes are owned. spec.md §9
// requires the three lifetime regimes the C source conflated behind one
// read-only flag — owned heap, mmap region, cross-buffer shared copy —
// be modeled as a real sum type instead.
type storageKind uint8

const (
	storageOwned storageKind = iota
	storageShared
	storageMapped
)

// mmapRegion is the backing handle for a memory-mapped byte range. It is
// reference-counted by sharedRef so the mapping is only torn down once no
// page still points into it.
type mmapRegion struct {
	data []byte
	ref  *sharedRef
}

// sharedRef is a minimal ownership counter for bytes shared across pages
// or buffers (cross-buffer insert_from, or an mmap region sliced across
// many pages). Copy-out decrements it; the last page to copy out of a
// given backing slice is responsible for nothing further, since Go's GC
// retains the backing array until every slice referencing it is gone —
// the counter exists purely so callers can tell whether a byte slice is
// still exclusively theirs before mutating it in place.
type sharedRef struct {
	n int
}

// newSharedRef starts a reference count at 1, representing the
// originating page's own hold on the data it is about to share out
// (used when an owned page is converted to shared storage so a
// cross-buffer copy can reference it by pointer — spec.md §4.2's
// insert_from optimization contract).
func newSharedRef() *sharedRef { return &sharedRef{n: 1} }

// newMmapRef starts a reference count at 0: an mmap region is not
// itself "held" by any single page, only by however many page slices
// currently reference it.
func newMmapRef() *sharedRef { return &sharedRef{n: 0} }

func (r *sharedRef) retain() { r.n++ }
func (r *sharedRef) release() int {
	r.n--
	return r.n
}

// Page is a contiguous byte slab, one element of a Buffer's ordered page
// list (spec.md §3).
type Page struct {
	data  []byte
	kind  storageKind
	ref   *sharedRef // non-nil when kind != storageOwned
	mmRef *mmapRegion

	// Derived-fact cache, meaningful only when the matching valid* flag
	// is set. Invalidated per-page by updatePage on any mutation.
	validPos    bool
	nbLines     int
	col         int
	validChar   bool
	nbChars     int
	validColors bool
}

// Size returns the page's current byte length.
func (p *Page) Size() int { return len(p.data) }

// Bytes returns the page's current byte slice. Callers that intend to
// mutate it must go through (*PageStore).UpdatePage first so that
// copy-out and invalidation happen.
func (p *Page) Bytes() []byte { return p.data }

// Shared reports whether the page's storage is not exclusively owned —
// a write must copy-out first (spec.md invariant I4).
func (p *Page) Shared() bool { return p.kind != storageOwned }

// newOwnedPage allocates a fresh owned page from b, copying it in.
func newOwnedPage(b []byte) *Page {
	data := make([]byte, len(b))
	copy(data, b)
	return &Page{data: data, kind: storageOwned}
}

// newSharedPage wraps b as a read-only page that shares storage with
// another buffer (the cross-buffer insert_from fast path, spec.md §4.2).
func newSharedPage(b []byte, ref *sharedRef) *Page {
	ref.retain()
	return &Page{data: b, kind: storageShared, ref: ref}
}

// newMappedPage wraps a slice of an mmap region as a read-only page
// (spec.md §4.8's mmap_load fast path).
func newMappedPage(b []byte, mm *mmapRegion) *Page {
	mm.ref.retain()
	return &Page{data: b, kind: storageMapped, ref: mm.ref, mmRef: mm}
}

// copyOut replaces shared/mapped storage with a freshly allocated owned
// copy, implementing spec.md's copy-out discipline (invariant I4). A
// no-op on an already-owned page.
func (p *Page) copyOut() {
	if p.kind == storageOwned {
		return
	}
	owned := make([]byte, len(p.data))
	copy(owned, p.data)
	p.ref.release()
	p.data = owned
	p.kind = storageOwned
	p.ref = nil
	p.mmRef = nil
}

// invalidate clears every derived-fact flag on the page, per spec.md
// invariant I5 (any mutation clears valid_pos/valid_char/valid_colors).
func (p *Page) invalidate() {
	p.validPos = false
	p.validChar = false
	p.validColors = false
}

// release drops a page's reference to shared/mapped storage. Called
// when a page is removed from a buffer's page list (delete, or
// structural split). Owned pages need no special handling beyond
// letting Go's GC reclaim the slice.
func (p *Page) release() {
	if p.kind != storageOwned && p.ref != nil {
		p.ref.release()
	}
}
