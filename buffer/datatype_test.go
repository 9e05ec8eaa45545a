package buffer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileAndSaveBufferRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	want := []byte("line one\nline two\n")
	if err := os.WriteFile(path, want, 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	reg := NewRegistry()
	buf := NewIn(reg, "sample", FlagSaveLog)
	if err := buf.LoadFile(path); err != nil {
		t.Fatalf("loadFile: %v", err)
	}
	if buf.Filename() != path {
		t.Fatalf("filename = %q, want %q", buf.Filename(), path)
	}
	if buf.Modified() {
		t.Fatalf("freshly loaded buffer reports modified")
	}

	got := make([]byte, buf.TotalSize())
	buf.Read(0, got)
	if string(got) != string(want) {
		t.Fatalf("loaded content = %q, want %q", got, want)
	}

	buf.Insert(buf.TotalSize(), []byte("line three\n"))
	if !buf.Modified() {
		t.Fatalf("expected modified after insert")
	}

	if err := SaveBuffer(buf); err != nil {
		t.Fatalf("saveBuffer: %v", err)
	}
	if buf.Modified() {
		t.Fatalf("expected modified cleared after save")
	}
	if buf.log != nil {
		t.Fatalf("expected save-log reset after save")
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(onDisk) != "line one\nline two\nline three\n" {
		t.Fatalf("saved content = %q", onDisk)
	}
	if _, err := os.Stat(path + "~"); err != nil {
		t.Fatalf("expected backup file: %v", err)
	}
}

func TestSaveBufferWithoutFilename(t *testing.T) {
	buf := NewIn(NewRegistry(), "scratch", 0)
	if err := SaveBuffer(buf); err != ErrNoFilename {
		t.Fatalf("err = %v, want ErrNoFilename", err)
	}
}
