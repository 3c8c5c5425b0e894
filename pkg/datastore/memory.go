package datastore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NicolasHaas/gochat/pkg/model"
)

// Memory is an in-process BlockLog. It mirrors SQLite's validation and
// second-resolution timestamps so tests behave the same on both.
type Memory struct {
	mu     sync.Mutex
	now    func() time.Time
	nextID int64
	blocks []model.BlockRecord
}

// NewMemory creates a Memory log using the wall clock.
func NewMemory() *Memory {
	return NewMemoryWithClock(nil)
}

// NewMemoryWithClock creates a Memory log with a custom clock.
func NewMemoryWithClock(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{now: now, nextID: 1}
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

// RecordBlock appends rec.
func (m *Memory) RecordBlock(_ context.Context, rec *model.BlockRecord) error {
	if rec.Address == "" {
		return fmt.Errorf("datastore: record block: empty address")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Second)
	rec.ID = m.nextID
	m.nextID++
	m.blocks = append(m.blocks, *rec)
	return nil
}

// ListBlocks returns a copy of all records.
func (m *Memory) ListBlocks(_ context.Context) ([]model.BlockRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.BlockRecord, len(m.blocks))
	copy(out, m.blocks)
	return out, nil
}
