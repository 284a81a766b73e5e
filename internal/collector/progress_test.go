package collector

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProgress_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")

	p := NewProgress("run-1", "20250101", "20250630")
	p.MarkDone("000001.SZ", 120)
	p.MarkDone("600000.SH", 118)

	if err := p.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadProgress(path)
	if err != nil {
		t.Fatalf("LoadProgress: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadProgress returned nil for existing file")
	}
	if loaded.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", loaded.RunID)
	}
	if !loaded.Completed["000001.SZ"] || !loaded.Completed["600000.SH"] {
		t.Errorf("Completed = %v", loaded.Completed)
	}
	if loaded.Bars != 238 {
		t.Errorf("Bars = %d, want 238", loaded.Bars)
	}
	if !loaded.Matches("20250101", "20250630") {
		t.Error("Matches() = false for same range")
	}
	if loaded.Matches("20240101", "20250630") {
		t.Error("Matches() = true for different range")
	}
}

func TestLoadProgress_Absent(t *testing.T) {
	p, err := LoadProgress(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadProgress: %v", err)
	}
	if p != nil {
		t.Errorf("LoadProgress on absent file = %+v, want nil", p)
	}
}

func TestLoadProgress_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadProgress(path); err == nil {
		t.Error("LoadProgress accepted malformed file")
	}
}

func TestProgress_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "progress.json")

	p := NewProgress("run-2", "20250101", "20250102")
	if err := p.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestRemoveProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	if err := NewProgress("r", "a", "b").Save(path); err != nil {
		t.Fatal(err)
	}
	if err := RemoveProgress(path); err != nil {
		t.Fatalf("RemoveProgress: %v", err)
	}
	// Second removal of an absent file is not an error.
	if err := RemoveProgress(path); err != nil {
		t.Errorf("RemoveProgress on absent file: %v", err)
	}
}
