package gate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gastropos/gastropos/internal/rbac"
)

// Mirror is a durable, per-identity copy of the loaded grant set. It exists
// so a restarted console can render navigation before the authoritative
// reload lands; it is never consulted for a permission verdict directly.
type Mirror interface {
	Store(ctx context.Context, key string, grants []rbac.Grant) error
	Load(ctx context.Context, key string) ([]rbac.Grant, bool, error)
	Clear(ctx context.Context, key string) error
}

// RedisMirror persists grant snapshots in Redis.
type RedisMirror struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMirror constructs a RedisMirror with the given snapshot TTL.
func NewRedisMirror(client *redis.Client, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, ttl: ttl}
}

func (m *RedisMirror) key(key string) string {
	return "gate:grants:" + key
}

// Store writes the grant snapshot.
func (m *RedisMirror) Store(ctx context.Context, key string, grants []rbac.Grant) error {
	payload, err := json.Marshal(grants)
	if err != nil {
		return err
	}
	return m.client.Set(ctx, m.key(key), payload, m.ttl).Err()
}

// Load reads the grant snapshot, reporting whether one exists.
func (m *RedisMirror) Load(ctx context.Context, key string) ([]rbac.Grant, bool, error) {
	payload, err := m.client.Get(ctx, m.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var grants []rbac.Grant
	if err := json.Unmarshal(payload, &grants); err != nil {
		return nil, false, err
	}
	return grants, true, nil
}

// Clear removes the snapshot.
func (m *RedisMirror) Clear(ctx context.Context, key string) error {
	err := m.client.Del(ctx, m.key(key)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// MemoryMirror is an in-process Mirror for tests and mirror-less setups.
type MemoryMirror struct {
	mu       sync.Mutex
	snapshot map[string][]rbac.Grant
}

// NewMemoryMirror constructs an empty MemoryMirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{snapshot: make(map[string][]rbac.Grant)}
}

// Store copies the grant snapshot.
func (m *MemoryMirror) Store(ctx context.Context, key string, grants []rbac.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]rbac.Grant, len(grants))
	copy(out, grants)
	m.snapshot[key] = out
	return nil
}

// Load returns the stored snapshot, if any.
func (m *MemoryMirror) Load(ctx context.Context, key string) ([]rbac.Grant, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	grants, ok := m.snapshot[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]rbac.Grant, len(grants))
	copy(out, grants)
	return out, true, nil
}

// Clear removes the stored snapshot.
func (m *MemoryMirror) Clear(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshot, key)
	return nil
}
