package ratelimit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testBoundary(window float64, max int) Boundary {
	return Boundary{
		WindowSeconds: window,
		MaxRequests:   max,
		ConfirmedAt:   time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "boundaries.json"))
	key := Key{Source: "akshare", Interface: "kline", DataType: "daily"}
	want := testBoundary(300, 120)

	if err := store.Save(key, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := store.Load(key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatal("Load: boundary not found")
	}
	if got != want {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
}

func TestFileStore_AbsentFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	_, ok, err := store.Load(Key{Source: "akshare", Interface: "kline", DataType: "daily"})
	if err != nil {
		t.Fatalf("Load on absent file: %v", err)
	}
	if ok {
		t.Error("Load on absent file reported a boundary")
	}

	all, err := store.ListAll()
	if err != nil {
		t.Fatalf("ListAll on absent file: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("ListAll = %d entries, want 0", len(all))
	}
}

func TestFileStore_MultipleKeysIndependent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "boundaries.json"))
	daily := Key{Source: "akshare", Interface: "daily", DataType: "ohlc"}
	minute := Key{Source: "akshare", Interface: "minute", DataType: "ohlc"}

	if err := store.Save(daily, testBoundary(300, 120)); err != nil {
		t.Fatalf("Save daily: %v", err)
	}
	if err := store.Save(minute, testBoundary(60, 30)); err != nil {
		t.Fatalf("Save minute: %v", err)
	}

	all, err := store.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListAll = %d entries, want 2", len(all))
	}
	if all[daily.String()].WindowSeconds != 300 {
		t.Errorf("daily window = %v, want 300", all[daily.String()].WindowSeconds)
	}
	if all[minute.String()].WindowSeconds != 60 {
		t.Errorf("minute window = %v, want 60", all[minute.String()].WindowSeconds)
	}

	// Overwriting one key leaves the other intact.
	if err := store.Save(daily, testBoundary(600, 200)); err != nil {
		t.Fatalf("overwrite daily: %v", err)
	}
	got, _, _ := store.Load(minute)
	if got.WindowSeconds != 60 || got.MaxRequests != 30 {
		t.Errorf("minute boundary after daily overwrite = %+v, want unchanged", got)
	}
}

func TestFileStore_RejectsMalformedBoundary(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "boundaries.json"))
	key := Key{Source: "akshare", Interface: "kline", DataType: "daily"}

	if err := store.Save(key, testBoundary(0, 10)); !errors.Is(err, ErrInvalidBoundary) {
		t.Errorf("Save(zero window) = %v, want ErrInvalidBoundary", err)
	}
	if err := store.Save(key, testBoundary(60, 0)); !errors.Is(err, ErrInvalidBoundary) {
		t.Errorf("Save(zero max) = %v, want ErrInvalidBoundary", err)
	}
}

func TestFileStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "boundaries.json"))

	if err := store.Save(Key{Source: "a", Interface: "b", DataType: "c"}, testBoundary(60, 10)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "boundaries.json" {
			t.Errorf("unexpected file left in store dir: %s", e.Name())
		}
	}
}
