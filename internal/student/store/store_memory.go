// Package store persists reconciled student records keyed by email. Two
// implementations share the same semantics: an in-memory map for tests and
// single-process use, and PostgreSQL for deployments.
//
// Upsert overwrites every non-allocation field and never touches allocation
// state; allocation state changes only through SetAllocation. Both
// operations are atomic per record.
package store

import (
	"context"
	"sync"
	"time"

	"volunteerd/internal/student/models"
	"volunteerd/pkg/platform/sentinel"
)

// Memory is a thread-safe in-memory record store. Iteration order of the
// query methods is insertion order.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*models.StudentRecord
	order   []string
	clock   func() time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock sets the clock used for CreatedAt stamps.
func WithClock(clock func() time.Time) MemoryOption {
	return func(m *Memory) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewMemory constructs an empty in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		records: make(map[string]*models.StudentRecord),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Upsert inserts the record or overwrites all non-allocation fields of the
// existing record with the same email. Existing allocation state and
// CreatedAt survive the overwrite.
func (m *Memory) Upsert(_ context.Context, rec *models.StudentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := rec.Clone()
	if existing, ok := m.records[rec.Email]; ok {
		stored.Allocation = existing.Allocation
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.Allocation = models.Unallocated()
		stored.CreatedAt = m.clock()
		m.order = append(m.order, rec.Email)
	}
	m.records[rec.Email] = stored
	return nil
}

// Get returns the record for email, or sentinel.ErrNotFound.
func (m *Memory) Get(_ context.Context, email string) (*models.StudentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return rec.Clone(), nil
}

// GetAll returns every record in insertion order.
func (m *Memory) GetAll(_ context.Context) ([]*models.StudentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(*models.StudentRecord) bool { return true }), nil
}

// GetByCategory returns records whose category string contains category.
func (m *Memory) GetByCategory(_ context.Context, category string) ([]*models.StudentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(r *models.StudentRecord) bool {
		return r.HasCategory(category)
	}), nil
}

// GetUnallocated returns unallocated records, filtered by category when
// category is non-empty.
func (m *Memory) GetUnallocated(_ context.Context, category string) ([]*models.StudentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(r *models.StudentRecord) bool {
		if r.Allocation.Allocated() {
			return false
		}
		return category == "" || r.HasCategory(category)
	}), nil
}

// SetAllocation replaces the allocation state of the record for email.
// Returns sentinel.ErrNotFound when no such record exists.
func (m *Memory) SetAllocation(_ context.Context, email string, alloc models.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[email]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.Allocation = alloc
	return nil
}

// collect deep-copies matching records in insertion order. Callers hold
// the lock.
func (m *Memory) collect(match func(*models.StudentRecord) bool) []*models.StudentRecord {
	out := make([]*models.StudentRecord, 0, len(m.order))
	for _, email := range m.order {
		rec := m.records[email]
		if match(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out
}
