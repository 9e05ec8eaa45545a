package buffer

import (
	"bytes"
	"testing"
)

func newTestBuffer(t *testing.T, name string, flags Flags) *Buffer {
	t.Helper()
	reg := NewRegistry()
	return NewIn(reg, name, flags)
}

func TestInsertReadDelete(t *testing.T) {
	buf := newTestBuffer(t, "scratch", 0)

	if err := buf.Insert(0, []byte("hello world")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := buf.TotalSize(); got != 11 {
		t.Fatalf("size = %d, want 11", got)
	}

	out := make([]byte, 11)
	if n := buf.Read(0, out); n != 11 {
		t.Fatalf("read = %d, want 11", n)
	}
	if !bytes.Equal(out, []byte("hello world")) {
		t.Fatalf("read = %q", out)
	}

	if err := buf.Insert(5, []byte(",")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	out = make([]byte, buf.TotalSize())
	buf.Read(0, out)
	if !bytes.Equal(out, []byte("hello, world")) {
		t.Fatalf("after insert = %q", out)
	}

	if err := buf.Delete(5, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out = make([]byte, buf.TotalSize())
	buf.Read(0, out)
	if !bytes.Equal(out, []byte("hello world")) {
		t.Fatalf("after delete = %q", out)
	}
}

func TestReadClampsToBufferEnd(t *testing.T) {
	buf := newTestBuffer(t, "scratch", 0)
	buf.Insert(0, []byte("abc"))

	out := make([]byte, 10)
	n := buf.Read(1, out)
	if n != 2 || !bytes.Equal(out[:n], []byte("bc")) {
		t.Fatalf("read = %d %q", n, out[:n])
	}

	if n := buf.Read(buf.TotalSize(), out); n != 0 {
		t.Fatalf("read at end = %d, want 0", n)
	}
	if n := buf.Read(100, out); n != 0 {
		t.Fatalf("read past end = %d, want 0", n)
	}
}

func TestDeleteClampsAndNoOpsOnEmptyRange(t *testing.T) {
	buf := newTestBuffer(t, "scratch", 0)
	buf.Insert(0, []byte("abcdef"))

	if err := buf.Delete(4, 100); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out := make([]byte, buf.TotalSize())
	buf.Read(0, out)
	if !bytes.Equal(out, []byte("abcd")) {
		t.Fatalf("after clamp delete = %q", out)
	}

	if err := buf.Delete(100, 1); err != nil {
		t.Fatalf("delete past end: %v", err)
	}
	if got := buf.TotalSize(); got != 4 {
		t.Fatalf("size changed to %d after no-op delete", got)
	}
}

func TestWriteOverwritesInPlaceAndExtends(t *testing.T) {
	buf := newTestBuffer(t, "scratch", 0)
	buf.Insert(0, []byte("aaaaa"))

	if err := buf.Write(1, []byte("BB")); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := make([]byte, buf.TotalSize())
	buf.Read(0, out)
	if !bytes.Equal(out, []byte("aBBaa")) {
		t.Fatalf("after write = %q", out)
	}

	if err := buf.Write(4, []byte("XYZ")); err != nil {
		t.Fatalf("write extend: %v", err)
	}
	out = make([]byte, buf.TotalSize())
	buf.Read(0, out)
	if !bytes.Equal(out, []byte("aBBaXYZ")) {
		t.Fatalf("after extending write = %q", out)
	}
}

func TestSpanningMultiplePages(t *testing.T) {
	buf := newTestBuffer(t, "scratch", 0)
	big := bytes.Repeat([]byte("0123456789"), MaxPageSize/5) // several pages
	if err := buf.Insert(0, big); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if buf.store.PageCount() < 2 {
		t.Fatalf("expected multiple pages, got %d", buf.store.PageCount())
	}

	mid := int64(len(big) / 2)
	if err := buf.Delete(mid-3, 6); err != nil {
		t.Fatalf("delete across boundary: %v", err)
	}
	want := append(append([]byte{}, big[:mid-3]...), big[mid+3:]...)
	out := make([]byte, buf.TotalSize())
	buf.Read(0, out)
	if !bytes.Equal(out, want) {
		t.Fatalf("spanning delete mismatch")
	}
	for _, p := range buf.store.pages {
		if p.Size() == 0 {
			t.Fatalf("invariant I2 violated: zero-size page present")
		}
	}
}

// TestInsertAtPageHeadPreservesOrder guards against a page-splice bug
// where inserting more than a page's spare room at a page-head offset
// (off_in_page == 0) scrambled the byte order: the overflow used to be
// emitted as fresh pages ahead of a target page that kept the *head* of
// the inserted data, producing data[n:]++data[:n]++original instead of
// data++original. Unlike TestSpanningMultiplePages, this inserts into an
// already-populated buffer so the insert lands via insertAtPageHead
// rather than the empty-store pagesFromBytes path.
func TestInsertAtPageHeadPreservesOrder(t *testing.T) {
	buf := newTestBuffer(t, "scratch", 0)
	tail := []byte("TAIL")
	if err := buf.Insert(0, tail); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	big := make([]byte, MaxPageSize+900)
	for i := range big {
		big[i] = byte('A' + i%26)
	}
	if err := buf.Insert(0, big); err != nil {
		t.Fatalf("insert: %v", err)
	}

	want := append(append([]byte{}, big...), tail...)
	out := make([]byte, buf.TotalSize())
	buf.Read(0, out)
	if !bytes.Equal(out, want) {
		t.Fatalf("insert at page head scrambled order: got len %d, want len %d, equal=%v",
			len(out), len(want), bytes.Equal(out, want))
	}
}

func TestUndoInsertAndDelete(t *testing.T) {
	buf := newTestBuffer(t, "scratch", FlagSaveLog)

	buf.Insert(0, []byte("hello"))
	buf.Insert(5, []byte(" world"))

	cursor, err := Undo(buf)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	out := make([]byte, buf.TotalSize())
	n := buf.Read(0, out)
	if string(out[:n]) != "hello" {
		t.Fatalf("after undo = %q, want hello", out[:n])
	}
	if cursor != 5 {
		t.Fatalf("cursor hint = %d, want 5", cursor)
	}

	buf.Delete(1, 3) // "hello" -> "ho"
	out = make([]byte, buf.TotalSize())
	n = buf.Read(0, out)
	if string(out[:n]) != "ho" {
		t.Fatalf("after delete = %q", out[:n])
	}

	if _, err := Undo(buf); err != nil {
		t.Fatalf("undo delete: %v", err)
	}
	out = make([]byte, buf.TotalSize())
	n = buf.Read(0, out)
	if string(out[:n]) != "hello" {
		t.Fatalf("after undoing delete = %q, want hello", out[:n])
	}
}

func TestUndoWriteIsReversible(t *testing.T) {
	buf := newTestBuffer(t, "scratch", FlagSaveLog)
	buf.Insert(0, []byte("aaaaa"))
	buf.Write(1, []byte("BB"))

	if _, err := Undo(buf); err != nil {
		t.Fatalf("undo write: %v", err)
	}
	out := make([]byte, buf.TotalSize())
	n := buf.Read(0, out)
	if string(out[:n]) != "aaaaa" {
		t.Fatalf("after undoing write = %q, want aaaaa", out[:n])
	}
}

func TestUndoEmptyLogReturnsError(t *testing.T) {
	buf := newTestBuffer(t, "scratch", FlagSaveLog)
	if _, err := Undo(buf); err != ErrNoUndoInfo {
		t.Fatalf("err = %v, want ErrNoUndoInfo", err)
	}
}

func TestSaveLogDisabledSkipsLogging(t *testing.T) {
	buf := newTestBuffer(t, "scratch", 0) // FlagSaveLog not set
	buf.Insert(0, []byte("hello"))
	if buf.log != nil {
		t.Fatalf("expected no log to have been created")
	}
	if _, err := Undo(buf); err != ErrNoUndoInfo {
		t.Fatalf("err = %v, want ErrNoUndoInfo", err)
	}
}

func TestGetPosAndGotoPos(t *testing.T) {
	buf := newTestBuffer(t, "scratch", 0)
	buf.Insert(0, []byte("abc\ndefgh\nij"))

	line, col := buf.GetPos(0)
	if line != 0 || col != 0 {
		t.Fatalf("pos(0) = %d,%d want 0,0", line, col)
	}
	line, col = buf.GetPos(6) // 'f' in "defgh"
	if line != 1 || col != 2 {
		t.Fatalf("pos(6) = %d,%d want 1,2", line, col)
	}
	line, col = buf.GetPos(11) // 'j'
	if line != 2 || col != 1 {
		t.Fatalf("pos(11) = %d,%d want 2,1", line, col)
	}

	if got := buf.GotoPos(1, 2); got != 6 {
		t.Fatalf("gotoPos(1,2) = %d, want 6", got)
	}
	if got := buf.GotoPos(0, 0); got != 0 {
		t.Fatalf("gotoPos(0,0) = %d, want 0", got)
	}
	// Column beyond the line's length clamps to the newline.
	if got := buf.GotoPos(0, 100); got != 3 {
		t.Fatalf("gotoPos(0,100) = %d, want 3", got)
	}
}

func TestUTF8CharOffsetAndNextPrevChar(t *testing.T) {
	buf := newTestBuffer(t, "scratch", 0)
	buf.SetCharset(UTF8Charset())

	text := "aé中z" // a, e-acute (2 bytes), CJK char (3 bytes), z
	buf.Insert(0, []byte(text))

	if got := buf.CharOffsetOf(int64(len(text))); got != 4 {
		t.Fatalf("char offset of end = %d, want 4", got)
	}

	r, next := buf.NextChar(1)
	if r != 'é' || next != 3 {
		t.Fatalf("nextChar(1) = %q,%d want é,3", r, next)
	}
	r, next = buf.NextChar(3)
	if r != '中' || next != 6 {
		t.Fatalf("nextChar(3) = %q,%d want 中,6", r, next)
	}

	r, prev := buf.PrevChar(6)
	if r != '中' || prev != 3 {
		t.Fatalf("prevChar(6) = %q,%d want 中,3", r, prev)
	}

	if got := buf.GotoChar(2); got != 3 {
		t.Fatalf("gotoChar(2) = %d, want 3", got)
	}
}

func TestInsertFromSharesWholePages(t *testing.T) {
	src := newTestBuffer(t, "src", 0)
	dst := newTestBuffer(t, "dst", 0)

	payload := bytes.Repeat([]byte("x"), MaxPageSize)
	src.Insert(0, payload)
	if src.store.PageCount() != 1 {
		t.Fatalf("expected exactly one page, got %d", src.store.PageCount())
	}

	if err := InsertFrom(dst, 0, src, 0, int64(len(payload))); err != nil {
		t.Fatalf("insertFrom: %v", err)
	}
	if dst.TotalSize() != int64(len(payload)) {
		t.Fatalf("dst size = %d, want %d", dst.TotalSize(), len(payload))
	}
	if dst.store.pages[0].kind != storageShared {
		t.Fatalf("expected shared page, got kind %v", dst.store.pages[0].kind)
	}
	if src.store.pages[0].kind != storageShared {
		t.Fatalf("expected source page converted to shared, got kind %v", src.store.pages[0].kind)
	}

	// Mutating dst must not perturb src (copy-out on write).
	dst.Write(0, []byte("Y"))
	out := make([]byte, 1)
	src.Read(0, out)
	if out[0] != 'x' {
		t.Fatalf("source mutated via shared page: %q", out)
	}
}

func TestInsertBufferConvenience(t *testing.T) {
	src := newTestBuffer(t, "src", 0)
	dst := newTestBuffer(t, "dst", 0)
	src.Insert(0, []byte("copied"))
	dst.Insert(0, []byte("xx"))

	if err := dst.InsertBuffer(1, src); err != nil {
		t.Fatalf("insertBuffer: %v", err)
	}
	out := make([]byte, dst.TotalSize())
	n := dst.Read(0, out)
	if string(out[:n]) != "xcopiedx" {
		t.Fatalf("dst = %q, want xcopiedx", out[:n])
	}
}

func TestRegistryNameUniqueness(t *testing.T) {
	reg := NewRegistry()
	a := NewIn(reg, "scratch", 0)
	b := NewIn(reg, "scratch", 0)
	c := NewIn(reg, "scratch", 0)

	if a.Name() != "scratch" {
		t.Fatalf("first name = %q, want scratch", a.Name())
	}
	if b.Name() != "scratch<2>" {
		t.Fatalf("second name = %q, want scratch<2>", b.Name())
	}
	if c.Name() != "scratch<3>" {
		t.Fatalf("third name = %q, want scratch<3>", c.Name())
	}
	if reg.FindByName("scratch<2>") != b {
		t.Fatalf("lookup by name failed")
	}
}

func TestNewExactFailsOnCollisionAndMustFindReportsMiss(t *testing.T) {
	reg := NewRegistry()
	if _, err := NewExact(reg, "unique", 0); err != nil {
		t.Fatalf("first NewExact: %v", err)
	}
	if _, err := NewExact(reg, "unique", 0); err != ErrBufferExists {
		t.Fatalf("err = %v, want ErrBufferExists", err)
	}

	if _, err := reg.MustFindByName("unique"); err != nil {
		t.Fatalf("MustFindByName(unique): %v", err)
	}
	if _, err := reg.MustFindByName("missing"); err != ErrNoSuchBuffer {
		t.Fatalf("err = %v, want ErrNoSuchBuffer", err)
	}
	if _, err := reg.MustFindByFilename("/no/such/path"); err != ErrNoSuchBuffer {
		t.Fatalf("err = %v, want ErrNoSuchBuffer", err)
	}
}

func TestCallbackNotifiedBeforeMutation(t *testing.T) {
	buf := newTestBuffer(t, "scratch", 0)
	buf.Insert(0, []byte("abcdef"))

	var sizeAtNotify int64
	var observedOp Op
	buf.AddCallback(func(b *Buffer, _ any, op Op, offset, size int64) {
		sizeAtNotify = b.TotalSize()
		observedOp = op
	}, nil)

	buf.Delete(0, 3)
	if sizeAtNotify != 6 {
		t.Fatalf("callback observed size %d after mutation, want 6 (before)", sizeAtNotify)
	}
	if observedOp != OpDelete {
		t.Fatalf("observed op = %v, want DELETE", observedOp)
	}
}

func TestTrackerFollowsInsertAndDelete(t *testing.T) {
	buf := newTestBuffer(t, "scratch", 0)
	buf.Insert(0, []byte("0123456789"))

	tr := buf.RegisterTracker(5)
	buf.Insert(0, []byte("AB"))
	if tr.Read() != 7 {
		t.Fatalf("tracker after insert before it = %d, want 7", tr.Read())
	}

	buf.Delete(0, 3)
	if tr.Read() != 4 {
		t.Fatalf("tracker after delete before it = %d, want 4", tr.Read())
	}

	buf.Delete(0, 10)
	if tr.Read() != 0 {
		t.Fatalf("tracker clamped to %d, want 0", tr.Read())
	}
}
