package buffer

import "errors"

// Error kinds surfaced by the engine. Most mutation paths (read/write/
// insert/delete) are infallible on their contract domain — out-of-range
// reads short-return, deletes past the end are no-ops — and never return
// one of these. They exist for the handful of operations spec.md §7
// calls out as genuinely fallible: filename-less saves, empty undo logs,
// and registry misses.
var (
	// ErrNoFilename is returned by SaveBuffer when the buffer has no
	// associated filename.
	ErrNoFilename = errors.New("ebuf: buffer has no filename")

	// ErrNoUndoInfo is returned by Undo when the save-log is empty.
	ErrNoUndoInfo = errors.New("ebuf: no further undo information")

	// ErrNoSuchBuffer is returned by registry lookups that miss.
	ErrNoSuchBuffer = errors.New("ebuf: no such buffer")

	// ErrReadOnly is returned by CheckWritable for a READ_ONLY buffer.
	// The mutators themselves never check the flag or return this error
	// (see spec.md §7); callers that want the check get it by calling
	// CheckWritable before mutating.
	ErrReadOnly = errors.New("ebuf: buffer is read-only")

	// ErrBufferExists is returned when registering a buffer whose exact
	// name is already taken and the caller asked for an exact name
	// rather than automatic uniquing.
	ErrBufferExists = errors.New("ebuf: buffer name already exists")
)
