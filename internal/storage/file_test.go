package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempFile(t *testing.T) *File {
	t.Helper()
	f, err := NewFile(filepath.Join(t.TempDir(), "state", "token"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	return f
}

func TestFile_LoadMissing(t *testing.T) {
	f := tempFile(t)
	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "" {
		t.Errorf("Load = %q, want empty", got)
	}
}

func TestFile_SaveAndLoad(t *testing.T) {
	f := tempFile(t)
	if err := f.Save("abc"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "abc" {
		t.Errorf("Load = %q, want abc", got)
	}
	info, err := os.Stat(f.Path())
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestFile_Delete(t *testing.T) {
	f := tempFile(t)
	_ = f.Save("bye")
	if err := f.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ := f.Load()
	if got != "" {
		t.Errorf("token survived delete: %q", got)
	}
	if err := f.Delete(); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestFile_AtomicOverwrite(t *testing.T) {
	f := tempFile(t)
	_ = f.Save("original")
	if err := f.Save("updated"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ := f.Load()
	if got != "updated" {
		t.Errorf("expected updated token, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(f.Path()), ".foodly-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFile_Directory(t *testing.T) {
	if _, err := NewFile(t.TempDir()); err == nil {
		t.Error("expected error when path is a directory")
	}
}

func TestNewFile_Empty(t *testing.T) {
	if _, err := NewFile(""); err == nil {
		t.Error("expected error for empty path")
	}
}
