package storage

import (
	"context"
	"testing"
	"time"
)

func TestBarWriter_BatchAccumulatesBelowThreshold(t *testing.T) {
	cfg := WriterConfig{BatchSize: 100, FlushInterval: time.Hour}
	w := NewBarWriter(cfg, NewBarBuffer(10), nil, nil)

	for i := 0; i < 5; i++ {
		w.handleBar(testBar(i))
	}

	w.batchMu.Lock()
	pending := len(w.batch)
	w.batchMu.Unlock()
	if pending != 5 {
		t.Errorf("pending batch = %d, want 5", pending)
	}
	if got := w.Stats().Flushes; got != 0 {
		t.Errorf("Flushes = %d, want 0 below batch size", got)
	}
}

func TestBarWriter_ConfigDefaults(t *testing.T) {
	w := NewBarWriter(WriterConfig{}, NewBarBuffer(10), nil, nil)
	def := DefaultWriterConfig()
	if w.cfg.BatchSize != def.BatchSize {
		t.Errorf("BatchSize = %d, want default %d", w.cfg.BatchSize, def.BatchSize)
	}
	if w.cfg.FlushInterval != def.FlushInterval {
		t.Errorf("FlushInterval = %v, want default %v", w.cfg.FlushInterval, def.FlushInterval)
	}
}

func TestBarWriter_StartStopEmpty(t *testing.T) {
	cfg := WriterConfig{BatchSize: 100, FlushInterval: time.Hour}
	buf := NewBarBuffer(10)
	w := NewBarWriter(cfg, buf, nil, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	if got := w.Stats().Errors; got != 0 {
		t.Errorf("Errors = %d, want 0", got)
	}
}
