package cache

// getTyped reads key into a zero T, reporting whether the key was present
func getTyped[T any](key string) (T, bool) {
	var v T
	ok := Get(key, &v)
	return v, ok
}

// SetBool caches a flag such as whether a user has been screened for spam
func SetBool(key string, data bool, timeToLive int32) { Set(key, data, timeToLive) }

// GetBool returns a cached flag
func GetBool(key string) (bool, bool) { return getTyped[bool](key) }

// SetInt64 caches a single id or count
func SetInt64(key string, data int64, timeToLive int32) { Set(key, data, timeToLive) }

// GetInt64 returns a cached id or count
func GetInt64(key string) (int64, bool) { return getTyped[int64](key) }

// SetInt64Slice caches a list of ids
func SetInt64Slice(key string, data []int64, timeToLive int32) { Set(key, data, timeToLive) }

// GetInt64Slice returns a cached list of ids, never nil
func GetInt64Slice(key string) ([]int64, bool) {
	v, ok := getTyped[[]int64](key)
	if !ok || v == nil {
		return []int64{}, ok
	}
	return v, true
}

// SetString caches a string such as a rendered widget
func SetString(key string, data string, timeToLive int32) { Set(key, data, timeToLive) }

// GetString returns a cached string
func GetString(key string) (string, bool) { return getTyped[string](key) }
