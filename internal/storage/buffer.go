package storage

import (
	"sync"

	"github.com/rickgao/ashare-data/internal/model"
)

// BarBuffer is a thread-safe FIFO buffer decoupling collectors from the
// database writer. It grows by doubling when full, so producers never block
// on a slow flush.
type BarBuffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []model.DailyBar
	head   int
	tail   int
	count  int
	closed bool

	totalIn  int64
	totalOut int64
	grows    int
}

// NewBarBuffer creates a buffer with the given initial capacity.
func NewBarBuffer(initialCapacity int) *BarBuffer {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	b := &BarBuffer{
		buf: make([]model.DailyBar, initialCapacity),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Send adds a bar to the buffer, growing it if necessary.
// Returns false if the buffer is closed.
func (b *BarBuffer) Send(bar model.DailyBar) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	if b.count == len(b.buf) {
		b.grow()
	}

	b.buf[b.tail] = bar
	b.tail = (b.tail + 1) % len(b.buf)
	b.count++
	b.totalIn++

	b.cond.Signal()
	return true
}

// Receive removes and returns the oldest bar. Blocks until a bar is
// available or the buffer is closed and drained.
func (b *BarBuffer) Receive() (model.DailyBar, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}
	if b.count == 0 {
		return model.DailyBar{}, false
	}
	return b.popLocked(), true
}

// TryReceive is a non-blocking Receive.
func (b *BarBuffer) TryReceive() (model.DailyBar, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return model.DailyBar{}, false
	}
	return b.popLocked(), true
}

// Drain removes up to max bars (all of them if max <= 0) without blocking.
func (b *BarBuffer) Drain(max int) []model.DailyBar {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.count
	if max > 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}
	out := make([]model.DailyBar, n)
	for i := range out {
		out[i] = b.popLocked()
	}
	return out
}

// Close marks the buffer closed. Receivers drain remaining bars, then get
// a closed signal.
func (b *BarBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

// Len returns the number of buffered bars.
func (b *BarBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Stats returns buffer counters.
func (b *BarBuffer) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:    b.count,
		Capacity: len(b.buf),
		TotalIn:  b.totalIn,
		TotalOut: b.totalOut,
		Grows:    b.grows,
	}
}

// BufferStats contains buffer counters.
type BufferStats struct {
	Count    int
	Capacity int
	TotalIn  int64
	TotalOut int64
	Grows    int
}

func (b *BarBuffer) popLocked() model.DailyBar {
	bar := b.buf[b.head]
	b.buf[b.head] = model.DailyBar{}
	b.head = (b.head + 1) % len(b.buf)
	b.count--
	b.totalOut++
	return bar
}

// grow doubles capacity. Must be called with the lock held.
func (b *BarBuffer) grow() {
	newBuf := make([]model.DailyBar, len(b.buf)*2)
	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}
	b.buf = newBuf
	b.head = 0
	b.tail = b.count
	b.grows++
}
