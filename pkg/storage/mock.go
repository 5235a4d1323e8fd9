package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// MockStorage keeps runs in memory. It backs tests and services started
// without a Redis URL; runs never expire.
type MockStorage struct {
	mu        sync.RWMutex
	runs      map[uuid.UUID]*Run
	recent    []uuid.UUID
	pingError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		runs: make(map[uuid.UUID]*Run),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeRecent(run.ID)
	m.recent = append([]uuid.UUID{run.ID}, m.recent...)
	if len(m.recent) > RecentRunsLimit {
		m.recent = m.recent[:RecentRunsLimit]
	}
	m.runs[run.ID] = run
	return nil
}

func (m *MockStorage) LoadRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, exists := m.runs[id]
	if !exists {
		return nil, nil
	}
	return run, nil
}

func (m *MockStorage) DeleteRun(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, id)
	m.removeRecent(id)
	return nil
}

func (m *MockStorage) removeRecent(id uuid.UUID) {
	for i, r := range m.recent {
		if r == id {
			m.recent = append(m.recent[:i], m.recent[i+1:]...)
			return
		}
	}
}

func (m *MockStorage) RecentRuns(ctx context.Context, limit int) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.recent) {
		limit = len(m.recent)
	}
	out := make([]uuid.UUID, limit)
	copy(out, m.recent[:limit])
	return out, nil
}
