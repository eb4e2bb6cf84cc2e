package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Open(t *testing.T) {
	fsys := OSFileSystem{}

	f, err := fsys.Open("filesystem.go")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty file content")
	}
}

func TestOSFileSystem_CreateInNewDir(t *testing.T) {
	fsys := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "out", "session")

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	w, err := fsys.Create(filepath.Join(dir, "summary.json"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := io.WriteString(w, "{}"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := fsys.Open(filepath.Join(dir, "summary.json"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	got, _ := io.ReadAll(f)
	if string(got) != "{}" {
		t.Errorf("expected %q, got %q", "{}", got)
	}
}

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out.jsonl")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	io.WriteString(w, "line one\n")

	data, err := mfs.ReadFile("/out.jsonl")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty file before Close, got %q", data)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	data, _ = mfs.ReadFile("/out.jsonl")
	if string(data) != "line one\n" {
		t.Errorf("expected %q, got %q", "line one\n", data)
	}

	if _, err := w.Write([]byte("late")); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
	if err := w.Close(); !errors.Is(err, fs.ErrClosed) {
		t.Errorf("expected ErrClosed on second Close, got %v", err)
	}
}

func TestMemoryFileSystem_CreateNeedsParent(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if _, err := mfs.Create("/reports/a.html"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if err := mfs.MkdirAll("/reports/nested", 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if _, err := mfs.Create("/reports/a.html"); err != nil {
		t.Errorf("parent created by MkdirAll, got %v", err)
	}
	if _, err := mfs.Create("/reports/nested"); !errors.Is(err, fs.ErrExist) {
		t.Errorf("expected ErrExist creating over a directory, got %v", err)
	}
}

func TestMemoryFileSystem_MkdirOverFile(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.AddFile("/data/run.jsonl", []byte("{}"))

	if err := mfs.MkdirAll("/data/run.jsonl/x", 0o755); !errors.Is(err, fs.ErrExist) {
		t.Errorf("expected ErrExist, got %v", err)
	}
}

func TestMemoryFileSystem_OpenAndStat(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.AddFile("data/run.jsonl", []byte("abc"))

	if _, err := mfs.Open("data/missing.jsonl"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}

	f, err := mfs.Open("./data/run.jsonl")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	info, err := f.Stat()
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Name() != "run.jsonl" || info.Size() != 3 || info.IsDir() {
		t.Errorf("unexpected file info: name=%q size=%d dir=%v", info.Name(), info.Size(), info.IsDir())
	}
	got, _ := io.ReadAll(f)
	if string(got) != "abc" {
		t.Errorf("expected %q, got %q", "abc", got)
	}
}

func TestMemoryFileSystem_ReadFileIsCopy(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.AddFile("/a", []byte("abc"))

	data, _ := mfs.ReadFile("/a")
	data[0] = 'z'
	again, _ := mfs.ReadFile("/a")
	if string(again) != "abc" {
		t.Errorf("stored data was mutated: %q", again)
	}
}

func TestMemoryFileSystem_Files(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.AddFile("/b", nil)
	mfs.AddFile("/a", nil)

	got := mfs.Files()
	if len(got) != 2 || got[0] != "/a" || got[1] != "/b" {
		t.Errorf("expected [/a /b], got %v", got)
	}
}
