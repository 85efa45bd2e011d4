// Package mocks provides shared hand-written mocks for tests.
package mocks

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MockCache is an in-memory mock implementation of the cache.Cache interface.
// Used for testing without requiring a real Redis instance.
type MockCache struct {
	data map[string]string
	mu   sync.RWMutex
}

// NewMockCache creates a new mock cache instance.
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string]string)}
}

// Get retrieves a value from the mock cache. Missing keys yield an empty
// string, matching the Redis-backed implementation.
func (m *MockCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

// Set stores a value in the mock cache. Expiration is ignored.
func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = toString(value)
	return nil
}

// Del deletes keys from the mock cache.
func (m *MockCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// Incr increments a key's value.
func (m *MockCache) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	val, _ := strconv.ParseInt(m.data[key], 10, 64)
	val++
	m.data[key] = strconv.FormatInt(val, 10)
	return val, nil
}

// SetNX sets a key only if it doesn't exist.
func (m *MockCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; exists {
		return false, nil
	}
	m.data[key] = toString(value)
	return true, nil
}

// Health always returns nil for mock.
func (m *MockCache) Health(ctx context.Context) error {
	return nil
}

// Close is a no-op for mock.
func (m *MockCache) Close() error {
	return nil
}

// Clear resets the mock cache (useful between test cases).
func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
}

func toString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}
