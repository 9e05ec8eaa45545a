package buffer

import "github.com/google/uuid"

// Op identifies the kind of mutation a callback is being notified about.
type Op uint8

const (
	OpInsert Op = iota
	OpDelete
	OpWrite
)

func (op Op) String() string {
	switch op {
	case OpInsert:
		return "INSERT"
	case OpDelete:
		return "DELETE"
	case OpWrite:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// CallbackFunc is notified, in registration order, before a mutation
// takes effect (spec.md §4.3). It must not mutate the buffer it is
// being called about; it may mutate a different buffer (the save-log is
// the exemplar).
type CallbackFunc func(b *Buffer, opaque any, op Op, offset, size int64)

type callbackEntry struct {
	id     uuid.UUID
	fn     CallbackFunc
	opaque any
}

// callbackBus is the ordered list of subscribers for one buffer (C3).
type callbackBus struct {
	entries []*callbackEntry
}

func (c *callbackBus) add(fn CallbackFunc, opaque any) uuid.UUID {
	id := uuid.New()
	c.entries = append(c.entries, &callbackEntry{id: id, fn: fn, opaque: opaque})
	return id
}

func (c *callbackBus) remove(id uuid.UUID) {
	for i, e := range c.entries {
		if e.id == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

// notify fans the mutation out to every subscriber in registration
// order (spec.md invariant I7 — strictly before the log record append).
func (c *callbackBus) notify(b *Buffer, op Op, offset, size int64) {
	for _, e := range c.entries {
		e.fn(b, e.opaque, op, offset, size)
	}
}

// TrackerHandle is a typed handle onto an offset that is kept in sync
// with every mutation on its buffer via the standard offset-follower
// subscriber (spec.md §4.3, §9 — preferring a typed handle over the
// source's bare int* callback argument).
type TrackerHandle struct {
	id     uuid.UUID
	offset int64
}

// Read returns the tracker's current offset.
func (t *TrackerHandle) Read() int64 { return t.offset }

// Set repositions the tracker explicitly (e.g. after a goto_pos), not
// through the callback path.
func (t *TrackerHandle) Set(off int64) { t.offset = off }

// followerCallback is the built-in offset-follower: it shifts *p to
// track inserts and deletes before them, and clamps it forward of a
// delete so it never lands inside the removed range (spec.md §4.3).
func followerCallback(_ *Buffer, opaque any, op Op, offset, size int64) {
	t := opaque.(*TrackerHandle)
	switch op {
	case OpInsert:
		if t.offset > offset {
			t.offset += size
		}
	case OpDelete:
		if t.offset > offset {
			t.offset -= size
			if t.offset < offset {
				t.offset = offset
			}
		}
	case OpWrite:
		// no change
	}
}

// RegisterTracker creates a new tracker bound to buf, kept in sync by
// the standard offset-follower subscriber, starting at initial.
func (b *Buffer) RegisterTracker(initial int64) *TrackerHandle {
	t := &TrackerHandle{offset: initial}
	t.id = b.callbacks.add(followerCallback, t)
	return t
}

// UnregisterTracker removes a tracker so it no longer receives updates.
func (b *Buffer) UnregisterTracker(t *TrackerHandle) {
	b.callbacks.remove(t.id)
}

// AddCallback registers fn as a subscriber, returning an id usable with
// RemoveCallback (spec.md §6 add_callback/remove_callback).
func (b *Buffer) AddCallback(fn CallbackFunc, opaque any) uuid.UUID {
	return b.callbacks.add(fn, opaque)
}

// RemoveCallback deregisters a subscriber previously added with
// AddCallback or RegisterTracker.
func (b *Buffer) RemoveCallback(id uuid.UUID) {
	b.callbacks.remove(id)
}
