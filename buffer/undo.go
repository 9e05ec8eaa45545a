package buffer

import (
	"fmt"

	"github.com/google/uuid"
)

// DefaultLogMax bounds how many records a buffer's save-log holds
// before the oldest is evicted (C4: spec.md §4.4's LOG_MAX). Overridable
// per process by config.EngineConfig.Apply; grounded in the teacher's freelist.go
// chain-trim-on-overflow discipline, applied here to a log instead of a
// free-space chain.
var DefaultLogMax = 1000

// undoLog is the reversible save-log for one owning buffer: a sibling
// system buffer holding a sequence of framed records, plus the cursor
// state Undo walks (spec.md §4.3/§4.4).
type undoLog struct {
	buf   *Buffer // the system buffer the log's bytes live in
	owner *Buffer

	newIndex int64 // next write position; monotonic except on eviction
	current  int64 // 0 = "start from the most recent record"
	count    int

	continuingRun bool // true right after a successful Undo call
}

// newUndoLog allocates the sibling log buffer for owner, named so it
// never collides with a user-visible buffer and is excluded from
// Registry.List via FlagSystem.
func newUndoLog(owner *Buffer) *undoLog {
	name := fmt.Sprintf("*undo* %s %s", owner.name, uuid.New().String())
	logBuf := NewIn(owner.registry, name, FlagSystem)
	logBuf.saveLogEnabled = false
	return &undoLog{buf: logBuf, owner: owner}
}

// appendLog records a mutation of size bytes at offset on b, if logging
// is currently enabled on b. DELETE and WRITE records carry their
// pre-image payload, copied straight out of b via InsertFrom before the
// caller applies the structural edit — whole pages are shared by
// reference rather than copied, same as any other insert_from.
func (b *Buffer) appendLog(op Op, offset, size int64) {
	if !b.saveLogEnabled {
		return
	}
	if b.log == nil {
		b.log = newUndoLog(b)
	}
	b.log.append(op, offset, size, b.modified)
	b.log.continuingRun = false
}

func (ul *undoLog) append(op Op, offset, size int64, wasModified bool) {
	max := DefaultLogMax
	if max <= 0 {
		max = 1
	}
	if ul.count >= max {
		ul.evictOldest()
	}

	headerPos := ul.newIndex
	header := marshalLogHeader(op, offset, size, wasModified)
	ul.buf.Insert(headerPos, header)
	ul.newIndex += int64(len(header))

	var payloadSize int64
	if op == OpDelete || op == OpWrite {
		if err := InsertFrom(ul.buf, ul.newIndex, ul.owner, offset, size); err == nil {
			payloadSize = size
		}
		ul.newIndex += payloadSize
	}

	trailer := marshalLogTrailer(payloadSize)
	ul.buf.Insert(ul.newIndex, trailer)
	ul.newIndex += int64(len(trailer))

	ul.count++
}

// evictOldest drops the log's oldest (first) record to keep the log
// bounded at DefaultLogMax entries.
func (ul *undoLog) evictOldest() {
	if ul.count == 0 {
		return
	}
	header := make([]byte, logHeaderSize)
	ul.buf.Read(0, header)
	op, _, size, _ := unmarshalLogHeader(header)

	payloadLen := int64(0)
	if op == OpDelete || op == OpWrite {
		payloadLen = size
	}
	totalLen := int64(logHeaderSize) + payloadLen + logTrailerSize

	ul.buf.Delete(0, totalLen)
	ul.newIndex -= totalLen
	if ul.current > 0 {
		ul.current -= totalLen
		if ul.current < 1 {
			ul.current = 0
		}
	}
	ul.count--
}

// logReset discards buf's entire save-log (called after a successful
// save, spec.md §4.8 — a saved buffer has nothing left worth undoing
// back past).
func (b *Buffer) logReset() {
	if b.log != nil {
		b.log.buf.Free()
		b.log = nil
	}
	b.modified = false
}

// LogReset is the package-level form of buf.logReset, exposed for
// callers outside the package that want to explicitly discard undo
// history without going through a save.
func LogReset(buf *Buffer) { buf.logReset() }

// Undo reverts the most recent not-yet-undone record in buf's save-log
// and returns a cursor hint — the offset the caller's editor should
// move point to — (spec.md §4.3). Calling Undo again immediately after
// a successful Undo continues further back through the log; any other
// logged mutation in between restarts the run from the most recent
// record.
//
// Each case leaves behind a record of its own, the same append-only
// design the original source uses: DELETE's replay logs an INSERT, and
// INSERT's replay logs a DELETE through the normal (non-bracketed)
// logging path, so undoing either of those redoes the original edit.
// WRITE's replay logs another WRITE whose payload is the bytes as
// restored, so undoing that record leaves the content unchanged rather
// than redoing the write.
func Undo(buf *Buffer) (int64, error) {
	ul := buf.log
	if ul == nil || ul.count == 0 {
		return 0, ErrNoUndoInfo
	}
	if !ul.continuingRun {
		ul.current = 0
	}

	var logIndex int64
	if ul.current == 0 {
		logIndex = ul.newIndex
	} else {
		logIndex = ul.current - 1
	}
	if logIndex == 0 {
		return 0, ErrNoUndoInfo
	}

	trailer := make([]byte, logTrailerSize)
	ul.buf.Read(logIndex-logTrailerSize, trailer)
	payloadSize := unmarshalLogTrailer(trailer)
	recordStart := logIndex - logTrailerSize - payloadSize - logHeaderSize

	header := make([]byte, logHeaderSize)
	ul.buf.Read(recordStart, header)
	op, offset, size, wasModified := unmarshalLogHeader(header)
	payloadStart := recordStart + logHeaderSize

	ul.current = recordStart + 1

	var cursorHint int64
	orig := buf.saveLogEnabled

	switch op {
	case OpWrite:
		buf.saveLogEnabled = false
		buf.Delete(offset, size)
		InsertFrom(buf, offset, ul.buf, payloadStart, size)
		buf.saveLogEnabled = orig
		buf.appendLog(OpWrite, offset, size)
		cursorHint = offset + size

	case OpDelete:
		buf.saveLogEnabled = false
		InsertFrom(buf, offset, ul.buf, payloadStart, size)
		buf.saveLogEnabled = orig
		buf.appendLog(OpInsert, offset, size)
		cursorHint = offset + size

	case OpInsert:
		buf.Delete(offset, size)
		cursorHint = offset
	}

	buf.modified = wasModified
	ul.continuingRun = true
	return cursorHint, nil
}
