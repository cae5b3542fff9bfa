package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteJSON_ReadJSON_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	want := payload{Name: "sweep", Count: 3}
	if err := WriteJSON(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got payload
	if err := ReadJSON(path, &got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestWriteAtomic_OverwriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	if err := WriteAtomic(path, []byte("first")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteAtomic(path, []byte("second")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected overwrite, got %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "state.json" {
			t.Errorf("stray file left behind: %s", e.Name())
		}
	}
}

func TestWriteAtomic_FileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := WriteAtomic(path, []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("expected 0644, got %v", info.Mode().Perm())
	}
}

func TestReadJSON_MissingFileIsNotExist(t *testing.T) {
	err := ReadJSON(filepath.Join(t.TempDir(), "absent.json"), &payload{})
	if !os.IsNotExist(err) {
		t.Errorf("expected os.IsNotExist error, got %v", err)
	}
}

func TestReadJSON_MalformedContentNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := ReadJSON(path, &payload{})
	if err == nil {
		t.Fatal("expected decode error, got nil")
	}
	if !strings.Contains(err.Error(), "bad.json") {
		t.Errorf("expected path in error, got %v", err)
	}
}
