//go:build !linux && !darwin

package buffer

// mmapHandle is unused on platforms without a mmap implementation; its
// fields are never populated.
type mmapHandle struct{}

// releaseMmap is a no-op here: mmapLoad stays nil, so no buffer ever
// holds a non-nil *mmapHandle to release. Streaming load/save give the
// same observable result (spec.md §6).
func releaseMmap(h *mmapHandle) {}
