// Package buffer implements row batching for columnar encoders.
package buffer

import (
	"fmt"
	"sync"
	"time"

	"github.com/jmviz/lichess-pgn-tags-to-csv/internal/errors"
	"github.com/jmviz/lichess-pgn-tags-to-csv/pkg/game"
)

// Row is one output row, one string per column.
type Row []string

// RowBuffer holds rows until a batch is full. It is safe for concurrent use and
// tracks first and last write times for rotation decisions.
type RowBuffer struct {
	rows           []Row
	maxSizeBytes   int64
	maxRows        int
	currentSize    int64
	firstWriteTime time.Time
	lastWriteTime  time.Time
	mu             sync.RWMutex
}

// New creates a buffer holding at most maxRows rows and, when maxSizeBytes is
// positive, at most maxSizeBytes bytes of values.
func New(maxSizeBytes int64, maxRows int) *RowBuffer {
	return &RowBuffer{
		rows:         make([]Row, 0, maxRows),
		maxSizeBytes: maxSizeBytes,
		maxRows:      maxRows,
	}
}

// Add appends a row. It returns ErrBufferFull if either limit would be
// exceeded; the row is not added.
func (b *RowBuffer) Add(row Row) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rowSize := int64(estimateSize(row))

	if len(b.rows) >= b.maxRows {
		return fmt.Errorf("%w: max rows (%d) reached", errors.ErrBufferFull, b.maxRows)
	}

	if b.maxSizeBytes > 0 && len(b.rows) > 0 && b.currentSize+rowSize > b.maxSizeBytes {
		return fmt.Errorf("%w: max size (%d bytes) would be exceeded", errors.ErrBufferFull, b.maxSizeBytes)
	}

	b.rows = append(b.rows, row)
	b.currentSize += rowSize

	now := time.Now()
	if b.firstWriteTime.IsZero() {
		b.firstWriteTime = now
	}
	b.lastWriteTime = now

	return nil
}

// Full reports whether the buffer has reached either limit.
func (b *RowBuffer) Full() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rows) >= b.maxRows || (b.maxSizeBytes > 0 && b.currentSize >= b.maxSizeBytes)
}

// Drain removes and returns all rows. The returned slice is owned by the
// caller.
func (b *RowBuffer) Drain() []Row {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows := b.rows
	b.reset()
	return rows
}

// Stats returns the current row count, value bytes and write times.
func (b *RowBuffer) Stats() game.Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return game.Stats{
		Games:          len(b.rows),
		SizeBytes:      b.currentSize,
		FirstWriteTime: b.firstWriteTime,
		LastWriteTime:  b.lastWriteTime,
	}
}

// IsEmpty returns true if the buffer holds no rows.
func (b *RowBuffer) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rows) == 0
}

// Reset discards all rows and statistics.
func (b *RowBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

func (b *RowBuffer) reset() {
	b.rows = make([]Row, 0, b.maxRows)
	b.currentSize = 0
	b.firstWriteTime = time.Time{}
	b.lastWriteTime = time.Time{}
}

func estimateSize(row Row) int {
	size := 0
	for _, v := range row {
		size += len(v)
	}
	return size
}
