package cache

import (
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryBackend keeps encoded values in an in-process go-cache so that it
// behaves like memcached: TTLs in seconds with zero meaning forever, add
// fails on existing keys, increment works on decimal values.
type memoryBackend struct {
	// counters serialises read-modify-write of decimal counters
	counters sync.Mutex
	items    *gocache.Cache
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{items: gocache.New(gocache.NoExpiration, time.Minute)}
}

func expiration(ttl int32) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return time.Duration(ttl) * time.Second
}

func (b *memoryBackend) get(key string) ([]byte, error) {
	v, ok := b.items.Get(key)
	if !ok {
		return nil, errCacheMiss
	}

	value := v.([]byte)
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (b *memoryBackend) set(key string, value []byte, ttl int32) error {
	v := make([]byte, len(value))
	copy(v, value)
	b.items.Set(key, v, expiration(ttl))
	return nil
}

func (b *memoryBackend) add(key string, value []byte, ttl int32) error {
	v := make([]byte, len(value))
	copy(v, value)
	if b.items.Add(key, v, expiration(ttl)) != nil {
		return errNotStored
	}
	return nil
}

func (b *memoryBackend) delete(key string) error {
	if _, ok := b.items.Get(key); !ok {
		return errCacheMiss
	}
	b.items.Delete(key)
	return nil
}

func (b *memoryBackend) increment(key string, delta uint64) (uint64, error) {
	b.counters.Lock()
	defer b.counters.Unlock()

	raw, expires, ok := b.items.GetWithExpiration(key)
	if !ok {
		return 0, errCacheMiss
	}

	v, err := strconv.ParseUint(string(raw.([]byte)), 10, 64)
	if err != nil {
		return 0, err
	}
	v += delta

	d := gocache.NoExpiration
	if !expires.IsZero() {
		d = time.Until(expires)
		if d <= 0 {
			return 0, errCacheMiss
		}
	}
	b.items.Set(key, []byte(strconv.FormatUint(v, 10)), d)

	return v, nil
}
