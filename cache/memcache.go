package cache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"strconv"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/golang/glog"
)

// Maintains a list of constants that determine the type of content held in a
// key. A single ID may have multiple bits of data, i.e.
//
//	key_1 = 'detail for ID 1'
//	key_2 = 'summary for ID 1'
//
// This allows us to nuke item 1 from cache and to purge the detail and summary
// for the item at the same time
const (
	CacheDetail  int = 1
	CacheSummary int = 2
	CacheTitle   int = 3
	CacheUser    int = 4
	CacheCounts  int = 5
	CacheFields  int = 6
	CachePhotos  int = 7
	CacheToken   int = 8
)

var (
	errCacheMiss = errors.New("cache: miss")
	errNotStored = errors.New("cache: not stored")
)

// backend is the byte store that sits behind the package functions
type backend interface {
	get(key string) ([]byte, error)
	set(key string, value []byte, ttl int32) error
	add(key string, value []byte, ttl int32) error
	delete(key string) error
	increment(key string, delta uint64) (uint64, error)
}

var (
	store   backend
	enabled bool
)

// InitCache creates the memcached client and enables the cache functions
// within this package. It is the responsibility of whatever has the values for
// this function (usually main shortly after reading the config file) to call
// this.
func InitCache(host string, port int64) {
	store = &memcacheBackend{mc: memcache.New(fmt.Sprintf("%s:%d", host, port))}
	enabled = true
}

// InitMemoryCache enables the cache functions backed by an in-process store.
// Used by tests and by single-instance deployments without memcached.
func InitMemoryCache() {
	store = newMemoryBackend()
	enabled = true
}

// DisableCache turns all cache functions into no-ops
func DisableCache() {
	store = nil
	enabled = false
}

// Enabled reports whether a cache backend has been initialised
func Enabled() bool {
	return enabled
}

type memcacheBackend struct {
	mc *memcache.Client
}

func (b *memcacheBackend) get(key string) ([]byte, error) {
	item, err := b.mc.Get(key)
	if err == memcache.ErrCacheMiss {
		return nil, errCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (b *memcacheBackend) set(key string, value []byte, ttl int32) error {
	return b.mc.Set(&memcache.Item{Key: key, Value: value, Expiration: ttl})
}

func (b *memcacheBackend) add(key string, value []byte, ttl int32) error {
	err := b.mc.Add(&memcache.Item{Key: key, Value: value, Expiration: ttl})
	if err == memcache.ErrNotStored {
		return errNotStored
	}
	return err
}

func (b *memcacheBackend) delete(key string) error {
	err := b.mc.Delete(key)
	if err == memcache.ErrCacheMiss {
		return errCacheMiss
	}
	return err
}

func (b *memcacheBackend) increment(key string, delta uint64) (uint64, error) {
	v, err := b.mc.Increment(key, delta)
	if err == memcache.ErrCacheMiss {
		return 0, errCacheMiss
	}
	return v, err
}

// Set puts the given value into the cache
func Set(key string, data interface{}, timeToLive int32) {
	if !enabled {
		return
	}

	// Encode the data for serialisation in memcache
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(data)
	if err != nil {
		glog.Errorf("gob.Encode(%s) %+v", key, err)
		return
	}

	err = store.set(key, buf.Bytes(), timeToLive)
	if err != nil {
		glog.Errorf("cache set(%s) %+v", key, err)
	}
}

// Get decodes the data for the given key into dst, which must be a pointer,
// and reports whether the data was in the cache
func Get(key string, dst interface{}) bool {
	if !enabled {
		return false
	}

	value, err := store.get(key)
	if err != nil {
		// Cache misses are expected, but other errors are logged.
		if err != errCacheMiss {
			glog.Warningf("cache get(%s) %+v", key, err)
		}
		return false
	}

	err = gob.NewDecoder(bytes.NewReader(value)).Decode(dst)
	if err != nil {
		glog.Errorf("gob.Decode(%s) %+v", key, err)
		return false
	}

	return true
}

// Delete removes items matching the given key from the cache, if it is in
// the cache
func Delete(key string) {
	if !enabled {
		return
	}

	err := store.delete(key)
	if err != nil && err != errCacheMiss {
		glog.Warningf("cache delete(%s) %+v", key, err)
	}
}

// getRaw reads a counter stored without gob so that memcached can increment it
func getRaw(key string) (uint64, bool) {
	value, err := store.get(key)
	if err != nil {
		if err != errCacheMiss {
			glog.Warningf("cache get(%s) %+v", key, err)
		}
		return 0, false
	}

	v, err := strconv.ParseUint(string(value), 10, 64)
	if err != nil {
		glog.Errorf("cache counter %s is not a number: %q", key, value)
		return 0, false
	}

	return v, true
}
