package collector

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Progress is the resumable state of one bulk run, written after each
// completed symbol so an interrupted run picks up where it stopped.
type Progress struct {
	RunID     string          `json:"run_id"`
	StartDate string          `json:"start_date"`
	EndDate   string          `json:"end_date"`
	StartedAt time.Time       `json:"started_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Completed map[string]bool `json:"completed"`
	Bars      int64           `json:"bars"`
}

// NewProgress starts tracking a fresh run.
func NewProgress(runID, startDate, endDate string) *Progress {
	now := time.Now().UTC()
	return &Progress{
		RunID:     runID,
		StartDate: startDate,
		EndDate:   endDate,
		StartedAt: now,
		UpdatedAt: now,
		Completed: make(map[string]bool),
	}
}

// Matches reports whether this progress belongs to a run over the same
// date range. Progress from a different range must not be resumed.
func (p *Progress) Matches(startDate, endDate string) bool {
	return p.StartDate == startDate && p.EndDate == endDate
}

// MarkDone records a completed symbol.
func (p *Progress) MarkDone(symbol string, bars int) {
	if p.Completed == nil {
		p.Completed = make(map[string]bool)
	}
	p.Completed[symbol] = true
	p.Bars += int64(bars)
	p.UpdatedAt = time.Now().UTC()
}

// LoadProgress reads a progress file. An absent file returns (nil, nil).
func LoadProgress(path string) (*Progress, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read progress file: %w", err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode progress file %s: %w", path, err)
	}
	if p.Completed == nil {
		p.Completed = make(map[string]bool)
	}
	return &p, nil
}

// Save writes the progress file atomically via a temp file and rename.
func (p *Progress) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".progress-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp progress file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp progress file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp progress file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename progress file: %w", err)
	}
	return nil
}

// Remove deletes the progress file, ignoring an already-absent file.
func RemoveProgress(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
