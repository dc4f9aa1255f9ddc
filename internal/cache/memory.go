package cache

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/tenantplane/internal/domain"
)

type memoryEntry struct {
	info      domain.ConnectionInfo
	expiresAt time.Time
}

// Memory is an in-process ResolutionCache with per-entry TTL. It is the
// default when no Redis URL is configured.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
}

func NewMemory() *Memory {
	return &Memory{items: map[string]memoryEntry{}}
}

func (m *Memory) Get(_ context.Context, key string) (*domain.ConnectionInfo, bool) {
	m.mu.RLock()
	entry, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	info := entry.info
	return &info, true
}

func (m *Memory) Set(_ context.Context, key string, info *domain.ConnectionInfo, ttl time.Duration) {
	if info == nil || ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.items[key] = memoryEntry{info: *info, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
}

func (m *Memory) Delete(_ context.Context, keys ...string) {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.items, key)
	}
	m.mu.Unlock()
}
