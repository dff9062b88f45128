package cache

import (
	"crypto/md5"
	"encoding/hex"
	"reflect"

	gocache "github.com/patrickmn/go-cache"

	"github.com/happyplace/dashboard/metrics"
)

// Memo is a request-scoped store of values that have already been computed.
// Values are held as-is, so a second read returns the identical value.
type Memo struct {
	items *gocache.Cache
}

// NewMemo returns an empty memo store
func NewMemo() *Memo {
	// No janitor: nothing in a memo expires before the request ends
	return &Memo{items: gocache.New(gocache.NoExpiration, 0)}
}

// Get returns the memoised value for the key
func (m *Memo) Get(key string) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	return m.items.Get(key)
}

// Set memoises the value for the key
func (m *Memo) Set(key string, value interface{}) {
	if m == nil {
		return
	}
	m.items.Set(key, value, gocache.NoExpiration)
}

// Flush forgets every memoised value
func (m *Memo) Flush() {
	if m == nil {
		return
	}
	m.items.Flush()
}

// Len returns the number of memoised values
func (m *Memo) Len() int {
	if m == nil {
		return 0
	}
	return m.items.ItemCount()
}

// Remember returns the value for key in group, looking first in the memo,
// then in the shared cache under the group's current generation, and only
// then calling build. A built value is written to both levels. Errors from
// build are returned and nothing is cached.
func Remember[T any](
	memo *Memo,
	group string,
	key string,
	timeToLive int32,
	build func() (T, error),
) (T, error) {
	memoKey := group + ":" + key

	if v, ok := memo.Get(memoKey); ok {
		if t, ok := v.(T); ok {
			metrics.CacheHits.WithLabelValues("memo").Inc()
			return t, nil
		}
	}

	groupKey := GroupKey(group, key)

	var cached T
	if Get(groupKey, &cached) {
		// gob decodes an empty slice or map as nil
		fillNil(reflect.ValueOf(&cached).Elem())
		metrics.CacheHits.WithLabelValues("object").Inc()
		memo.Set(memoKey, cached)
		return cached, nil
	}

	metrics.CacheMisses.Inc()

	v, err := build()
	if err != nil {
		return v, err
	}
	fillNil(reflect.ValueOf(&v).Elem())

	Set(groupKey, v, timeToLive)
	memo.Set(memoKey, v)

	return v, nil
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// fillNil replaces nil slices and maps reachable from v with empty ones, so
// a value read back from the shared cache marshals the same as the value
// that was built
func fillNil(v reflect.Value) {
	switch v.Kind() {
	case reflect.Ptr:
		if !v.IsNil() {
			fillNil(v.Elem())
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if f := v.Field(i); f.CanSet() {
				fillNil(f)
			}
		}
	case reflect.Slice:
		if v.IsNil() {
			if v.CanSet() {
				v.Set(reflect.MakeSlice(v.Type(), 0, 0))
			}
			return
		}
		for i := 0; i < v.Len(); i++ {
			fillNil(v.Index(i))
		}
	case reflect.Map:
		if v.IsNil() && v.CanSet() {
			v.Set(reflect.MakeMap(v.Type()))
		}
	}
}
