package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps cart session state between requests. Entries expire after the store's TTL.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, id string, st State) error
	Delete(ctx context.Context, id string) error
}

const defaultSessionTTL = 24 * time.Hour

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	TTL time.Duration
	Now func() time.Time

	mu        sync.Mutex
	entries   map[string]memoryEntry
	nextSweep time.Time
}

// NewMemoryStore constructs a MemoryStore with the provided TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{TTL: ttl, entries: map[string]memoryEntry{}}
}

func (m *MemoryStore) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *MemoryStore) ttl() time.Duration {
	if m.TTL <= 0 {
		return defaultSessionTTL
	}
	return m.TTL
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, id string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return State{}, ErrNotFound
	}
	if !m.now().Before(entry.expiresAt) {
		delete(m.entries, id)
		return State{}, ErrNotFound
	}
	return cloneState(entry.state), nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, id string, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]memoryEntry{}
	}
	now := m.now()
	if !now.Before(m.nextSweep) {
		m.sweep(now)
	}
	m.entries[id] = memoryEntry{state: cloneState(st), expiresAt: now.Add(m.ttl())}
	return nil
}

// sweep drops expired entries. It runs at most once per TTL, so an abandoned session
// is held for no longer than twice the TTL. Callers hold m.mu.
func (m *MemoryStore) sweep(now time.Time) {
	for id, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, id)
		}
	}
	m.nextSweep = now.Add(m.ttl())
}

// Len reports the number of entries held, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func cloneState(st State) State {
	out := st
	out.Items = append([]StateItem(nil), st.Items...)
	return out
}

// RedisStore keeps sessions as JSON documents in Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore constructs a RedisStore. Keys are namespaced with "cart:".
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{client: client, ttl: ttl, prefix: "cart:"}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, id string) (State, error) {
	if s == nil || s.client == nil {
		return State{}, errors.New("cart store not configured")
	}
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, ErrNotFound
		}
		return State{}, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, err
	}
	return st, nil
}

// Save implements Store and refreshes the session TTL.
func (s *RedisStore) Save(ctx context.Context, id string, st State) error {
	if s == nil || s.client == nil {
		return errors.New("cart store not configured")
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(id), data, s.ttl).Err()
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.client == nil {
		return errors.New("cart store not configured")
	}
	return s.client.Del(ctx, s.key(id)).Err()
}
