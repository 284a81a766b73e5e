package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
)

func TestBulkRunner_Run(t *testing.T) {
	var mu sync.Mutex
	secids := make(map[string]int)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		secids[r.URL.Query().Get("secid")]++
		mu.Unlock()
		w.Write([]byte(klineJSON))
	}))
	defer server.Close()

	c, buffer := newTestCollector(server.URL)
	progressFile := filepath.Join(t.TempDir(), "progress.json")

	var lastDone int
	runner := NewBulkRunner(c, 2, progressFile, func(done, total int) {
		lastDone = done
	}, testLogger())

	symbols := []string{"000001.SZ", "000002.SZ", "600000.SH", "600519.SH"}
	report, err := runner.Run(context.Background(), symbols, "20250601", "20250630")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Succeeded != 4 || report.Failed != 0 || report.Skipped != 0 {
		t.Errorf("report = %+v", report)
	}
	if report.Bars != 8 {
		t.Errorf("Bars = %d, want 8", report.Bars)
	}
	if report.RunID == "" {
		t.Error("RunID is empty")
	}
	if lastDone != 4 {
		t.Errorf("final progress callback = %d, want 4", lastDone)
	}
	if buffer.Len() != 8 {
		t.Errorf("buffer.Len() = %d, want 8", buffer.Len())
	}
	if len(secids) != 4 {
		t.Errorf("distinct secids fetched = %d, want 4", len(secids))
	}

	// A clean run removes its progress file.
	if p, err := LoadProgress(progressFile); err != nil || p != nil {
		t.Errorf("progress file survived a clean run: %+v, %v", p, err)
	}
}

func TestBulkRunner_Resume(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Write([]byte(klineJSON))
	}))
	defer server.Close()

	progressFile := filepath.Join(t.TempDir(), "progress.json")

	// A prior run already finished one symbol.
	prev := NewProgress("prior-run", "20250601", "20250630")
	prev.MarkDone("000001.SZ", 2)
	if err := prev.Save(progressFile); err != nil {
		t.Fatal(err)
	}

	c, _ := newTestCollector(server.URL)
	runner := NewBulkRunner(c, 2, progressFile, nil, testLogger())

	symbols := []string{"000001.SZ", "000002.SZ", "600000.SH"}
	report, err := runner.Run(context.Background(), symbols, "20250601", "20250630")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.RunID != "prior-run" {
		t.Errorf("RunID = %q, want resumed prior-run", report.RunID)
	}
	if report.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", report.Skipped)
	}
	if report.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", report.Succeeded)
	}
	if calls != 2 {
		t.Errorf("upstream calls = %d, want 2", calls)
	}
}

// Workers mark completions on the shared progress while the dispatch loop is
// still skipping resumed symbols; run wide enough that the two overlap.
func TestBulkRunner_ResumeUnderConcurrency(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Write([]byte(klineJSON))
	}))
	defer server.Close()

	symbols := make([]string, 400)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("%06d.SZ", i)
	}

	progressFile := filepath.Join(t.TempDir(), "progress.json")
	prev := NewProgress("prior-run", "20250601", "20250630")
	for i := 0; i < len(symbols); i += 3 {
		prev.MarkDone(symbols[i], 2)
	}
	if err := prev.Save(progressFile); err != nil {
		t.Fatal(err)
	}
	resumed := len(prev.Completed)

	c, _ := newTestCollector(server.URL)
	runner := NewBulkRunner(c, 8, progressFile, nil, testLogger())

	report, err := runner.Run(context.Background(), symbols, "20250601", "20250630")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Skipped != resumed {
		t.Errorf("Skipped = %d, want %d", report.Skipped, resumed)
	}
	if report.Succeeded != len(symbols)-resumed {
		t.Errorf("Succeeded = %d, want %d", report.Succeeded, len(symbols)-resumed)
	}
	if calls != len(symbols)-resumed {
		t.Errorf("upstream calls = %d, want %d", calls, len(symbols)-resumed)
	}
}

func TestBulkRunner_FreshRunForDifferentRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(klineJSON))
	}))
	defer server.Close()

	progressFile := filepath.Join(t.TempDir(), "progress.json")
	prev := NewProgress("prior-run", "20240101", "20241231")
	prev.MarkDone("000001.SZ", 2)
	if err := prev.Save(progressFile); err != nil {
		t.Fatal(err)
	}

	c, _ := newTestCollector(server.URL)
	runner := NewBulkRunner(c, 1, progressFile, nil, testLogger())

	report, err := runner.Run(context.Background(), []string{"000001.SZ"}, "20250601", "20250630")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.RunID == "prior-run" {
		t.Error("resumed progress from a different date range")
	}
	if report.Skipped != 0 || report.Succeeded != 1 {
		t.Errorf("report = %+v", report)
	}
}

func TestBulkRunner_RecordsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("secid") == "0.000002" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(klineJSON))
	}))
	defer server.Close()

	c, _ := newTestCollector(server.URL)
	runner := NewBulkRunner(c, 2, "", nil, testLogger())

	report, err := runner.Run(context.Background(), []string{"000001.SZ", "000002.SZ"}, "", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Succeeded != 1 || report.Failed != 1 {
		t.Errorf("report = %+v", report)
	}
	if _, ok := report.Errors["000002.SZ"]; !ok {
		t.Errorf("Errors missing failed symbol: %v", report.Errors)
	}
}
