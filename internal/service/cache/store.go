package cache

import (
	"context"
	"time"

	"github.com/enzo-prism/density/internal/constants"
	"github.com/enzo-prism/density/pkg/errors"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Store is a TTL-bounded key/value cache. Get reports a miss with false and
// a nil error; expired entries count as misses.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore keeps entries in a bounded in-process LRU. Expiry is checked on
// read and stale entries are replaced on the next write or evicted by size;
// there is no background sweep.
type MemoryStore struct {
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreSize(constants.MemoryCacheConfig.MaxEntries)
}

// NewMemoryStoreSize bounds the store to size entries, least recently used first out.
func NewMemoryStoreSize(size int) *MemoryStore {
	if size <= 0 {
		size = constants.MemoryCacheConfig.MaxEntries
	}
	entries, err := lru.New[string, memoryEntry](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &MemoryStore{
		entries: entries,
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	entry, ok := m.entries.Get(key)
	if !ok || !m.now().Before(entry.expiresAt) {
		return false, nil
	}

	if dest != nil {
		if err := decode(entry.payload, dest); err != nil {
			return false, errors.NewCacheError("unmarshal failed", "get", key, err)
		}
	}
	return true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	payload, err := encode(value)
	if err != nil {
		return errors.NewCacheError("marshal failed", "set", key, err)
	}

	m.entries.Add(key, memoryEntry{payload: payload, expiresAt: m.now().Add(ttl)})
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.entries.Remove(key)
	return nil
}

// Len counts stored entries, expired or not.
func (m *MemoryStore) Len() int {
	return m.entries.Len()
}
