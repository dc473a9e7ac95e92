package schedule

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a process-local Scheduler and Claimer with the same semantics as Redis.
type Memory struct {
	Interval time.Duration
	Now      func() time.Time

	mu  sync.Mutex
	due map[string]time.Time
}

func NewMemory(interval time.Duration) *Memory {
	return &Memory{Interval: interval, Now: time.Now, due: map[string]time.Time{}}
}

func (m *Memory) Ensure(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.due[orderID]; !ok {
		m.due[orderID] = m.Now().Add(m.Interval)
	}
	return nil
}

func (m *Memory) Cancel(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.due, orderID)
	return nil
}

func (m *Memory) Claim(_ context.Context, now time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for id, at := range m.due {
		if !at.After(now) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !m.due[out[i]].Equal(m.due[out[j]]) {
			return m.due[out[i]].Before(m.due[out[j]])
		}
		return out[i] < out[j]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for _, id := range out {
		m.due[id] = now.Add(m.Interval)
	}
	return out, nil
}

// Scheduled reports whether a check is registered for orderID.
func (m *Memory) Scheduled(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.due[orderID]
	return ok
}
