package buffer

import (
	"fmt"
	"io"
	"os"
)

// IOBufSize is the chunk size used by the raw data type's streaming
// load/save path (spec.md §4.8).
const IOBufSize = 64 * 1024

// MmapMinSize is the file-size threshold above which RawDataType.Load
// prefers the mmap fast path over streaming reads (spec.md §4.8).
// A var, not a const, so config.EngineConfig.Apply can override it
// process-wide.
var MmapMinSize int64 = 1 << 20 // 1 MiB

// DataType is the trait plug used for load/save/close (C8: spec.md
// §4.8). The engine does not define file-system primitives itself; a
// DataType implementation is the sole place those are invoked.
type DataType interface {
	Load(buf *Buffer, file *os.File) error
	Save(buf *Buffer, path string) error
	Close(buf *Buffer)
}

// RawDataType is the engine's one built-in DataType: the file's bytes
// verbatim, no framing (spec.md §6 "Persisted state layout").
type RawDataType struct{}

// Load streams a file into buf at offset 0 in IOBufSize chunks, or
// takes the mmap fast path for large files when the platform supports
// it (spec.md §4.8). Loading always targets an empty buffer; the
// caller is expected to have just created buf.
func (RawDataType) Load(buf *Buffer, file *os.File) error {
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("ebuf: stat: %w", err)
	}

	if mmapLoad != nil && info.Size() >= MmapMinSize {
		if err := mmapLoad(buf, file, info.Size()); err == nil {
			return nil
		}
		// Fall through to streaming on mmap failure — same observable
		// result, just without the shared-page optimization.
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("ebuf: seek: %w", err)
		}
	}

	return streamLoad(buf, file)
}

// streamLoad is the portable fallback: read in IOBufSize chunks,
// inserting each chunk at the running end-of-buffer offset.
func streamLoad(buf *Buffer, file *os.File) error {
	chunk := make([]byte, IOBufSize)
	var offset int64
	for {
		n, err := file.Read(chunk)
		if n > 0 {
			if ierr := buf.Insert(offset, chunk[:n]); ierr != nil {
				return ierr
			}
			offset += int64(n)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("ebuf: read: %w", err)
		}
	}
}

// Save streams buf's bytes to path in IOBufSize chunks (spec.md §4.8).
func (RawDataType) Save(buf *Buffer, path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("ebuf: create: %w", err)
	}
	defer f.Close()

	chunk := make([]byte, IOBufSize)
	var offset int64
	total := buf.TotalSize()
	for offset < total {
		n := buf.Read(offset, chunk)
		if n == 0 {
			break
		}
		if _, err := f.Write(chunk[:n]); err != nil {
			return fmt.Errorf("ebuf: write: %w", err)
		}
		offset += int64(n)
	}
	return nil
}

// Close is a no-op for the raw type; mmap teardown is handled by the
// buffer's mmap handle release in Free.
func (RawDataType) Close(buf *Buffer) {}

// mmapLoad is set by a build-tag-specific file (datatype_mmap_unix.go
// on platforms with golang.org/x/sys/unix.Mmap, datatype_mmap_other.go
// — nil — elsewhere). nil means "always stream" (spec.md §6: "on
// platforms where it is absent the engine falls back to streaming reads
// with identical observable semantics").
var mmapLoad func(buf *Buffer, file *os.File, size int64) error

// SaveBuffer writes buf to its filename, taking a simple "~" backup of
// whatever was there before (spec.md §4.8 save_buffer).
func SaveBuffer(buf *Buffer) error {
	if buf.filename == "" {
		return ErrNoFilename
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(buf.filename); err == nil {
		mode = info.Mode().Perm()
		_ = os.Rename(buf.filename, buf.filename+"~")
	}

	if err := buf.dataType.Save(buf, buf.filename); err != nil {
		return err
	}
	_ = os.Chmod(buf.filename, mode)

	buf.logReset()
	buf.modified = false
	return nil
}
