package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phantomx-ai/phantomx/internal/classification"
)

// Memory keeps everything in process. Used for local runs and tests.
type Memory struct {
	mu       sync.RWMutex
	order    []string
	results  map[string]classification.Result
	feedback []FeedbackRecord
	stats    Stats
	now      func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		results: make(map[string]classification.Result),
		now:     time.Now,
	}
}

func (m *Memory) Save(ctx context.Context, r classification.Result) (string, error) {
	id := uuid.NewString()
	r.ID = id

	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[id] = r
	m.order = append(m.order, id)
	m.stats.add(r.Type)
	return id, nil
}

func (m *Memory) Get(ctx context.Context, id string) (classification.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[id]
	if !ok {
		return classification.Result{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) History(ctx context.Context, limit int) ([]classification.Result, error) {
	limit = normalizeLimit(limit)

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]classification.Result, 0, min(limit, len(m.order)))
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.results[m.order[i]])
	}
	return out, nil
}

func (m *Memory) SaveFeedback(ctx context.Context, id string, correct bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[id]
	if !ok {
		return ErrNotFound
	}
	now := m.now().UTC()
	r.Feedback = &classification.Feedback{IsCorrect: correct, SubmittedAt: now}
	m.results[id] = r
	m.feedback = append(m.feedback, FeedbackRecord{ResultID: id, IsCorrect: correct, Timestamp: now})
	return nil
}

func (m *Memory) Feedback(ctx context.Context) ([]FeedbackRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FeedbackRecord, len(m.feedback))
	copy(out, m.feedback)
	return out, nil
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
