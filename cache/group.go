package cache

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/happyplace/dashboard/metrics"
)

// memcached has no way to delete a set of keys, so every group carries a
// generation number that is part of every key built for the group. Flushing
// the group increments the generation and the old keys are never read again;
// they fall out of the cache when their TTL expires.

const groupPrefix = "grp_"

// generation keys never expire, a lost generation is re-seeded from the clock
// so that it cannot return to a value that old keys were built with
const generationTTL int32 = 0

var seedGeneration = func() uint64 {
	return uint64(time.Now().UnixNano())
}

func generationKey(group string) string {
	return groupPrefix + group
}

// Generation returns the current generation of the group
func Generation(group string) uint64 {
	if !enabled {
		return 0
	}

	key := generationKey(group)
	if v, ok := getRaw(key); ok {
		return v
	}

	seed := seedGeneration()
	err := store.add(key, []byte(strconv.FormatUint(seed, 10)), generationTTL)
	if err == nil {
		return seed
	}
	if err != errNotStored {
		glog.Warningf("cache add(%s) %+v", key, err)
		return seed
	}

	// Someone else seeded it first
	if v, ok := getRaw(key); ok {
		return v
	}
	return seed
}

// GroupKey returns the key under which the given key is stored for the
// current generation of the group
func GroupKey(group string, key string) string {
	return fmt.Sprintf("%s_%d_%s", group, Generation(group), key)
}

// FlushGroup invalidates every key in the group
func FlushGroup(group string) {
	if !enabled {
		return
	}

	metrics.CacheGroupFlushes.WithLabelValues(group).Inc()

	key := generationKey(group)
	_, err := store.increment(key, 1)
	if err == nil {
		return
	}
	if err != errCacheMiss {
		glog.Warningf("cache increment(%s) %+v", key, err)
	}

	err = store.set(key, []byte(strconv.FormatUint(seedGeneration(), 10)), generationTTL)
	if err != nil {
		glog.Errorf("cache set(%s) %+v", key, err)
	}
}

// KeyFor builds a key from an entity type, a user and the arguments that
// shaped the value. The arguments are hashed to keep the key short and free
// of whitespace.
func KeyFor(entityType string, userID int64, args ...interface{}) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, fmt.Sprintf("%T=%v", a, a))
	}

	sum := md5Hex(strings.Join(parts, "|"))

	return fmt.Sprintf("%s_%d_%s", entityType, userID, sum)
}
