package cache

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stats struct {
	Listings int64
	Leads    int64
}

func withMemoryCache(t *testing.T) {
	t.Helper()
	InitMemoryCache()
	t.Cleanup(DisableCache)
}

func TestSetGetDelete(t *testing.T) {
	withMemoryCache(t)

	Set("ls_d1", stats{Listings: 3, Leads: 9}, 60)

	var got stats
	require.True(t, Get("ls_d1", &got))
	assert.Equal(t, stats{Listings: 3, Leads: 9}, got)

	Delete("ls_d1")
	assert.False(t, Get("ls_d1", &got))
}

func TestDisabledCacheIsNoop(t *testing.T) {
	DisableCache()

	Set("k", "v", 0)
	var s string
	assert.False(t, Get("k", &s))
	assert.Equal(t, uint64(0), Generation("dashboard"))
	FlushGroup("dashboard")
}

func TestTimeToLive(t *testing.T) {
	withMemoryCache(t)

	SetInt64("count", 7, 1)
	SetInt64("forever", 8, 0)

	v, ok := GetInt64("count")
	require.True(t, ok)
	assert.Equal(t, int64(7), v)

	time.Sleep(1100 * time.Millisecond)
	_, ok = GetInt64("count")
	assert.False(t, ok, "value should have expired")

	v, ok = GetInt64("forever")
	assert.True(t, ok)
	assert.Equal(t, int64(8), v)
}

func TestUtilities(t *testing.T) {
	withMemoryCache(t)

	SetBool("b", true, 0)
	b, ok := GetBool("b")
	assert.True(t, ok)
	assert.True(t, b)

	SetString("s", "hello", 0)
	s, ok := GetString("s")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	SetInt64Slice("ids", []int64{1, 2, 3}, 0)
	ids, ok := GetInt64Slice("ids")
	assert.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, ok = GetInt64Slice("missing")
	assert.False(t, ok)
	assert.Empty(t, ids)
}

func TestFlushGroupChangesKeys(t *testing.T) {
	withMemoryCache(t)

	before := GroupKey("dashboard", "stats")
	assert.Equal(t, before, GroupKey("dashboard", "stats"), "key should be stable")

	FlushGroup("dashboard")
	after := GroupKey("dashboard", "stats")
	assert.NotEqual(t, before, after)

	// Other groups are unaffected
	other := GroupKey("listings", "stats")
	FlushGroup("dashboard")
	assert.Equal(t, other, GroupKey("listings", "stats"))
}

func TestLostGenerationIsReseeded(t *testing.T) {
	withMemoryCache(t)

	seeds := []uint64{100, 200}
	seedGeneration = func() uint64 {
		s := seeds[0]
		seeds = seeds[1:]
		return s
	}
	t.Cleanup(func() {
		seedGeneration = func() uint64 { return uint64(time.Now().UnixNano()) }
	})

	assert.Equal(t, uint64(100), Generation("leads"))
	Delete(generationKey("leads"))
	assert.Equal(t, uint64(200), Generation("leads"))
}

func TestKeyFor(t *testing.T) {
	a := KeyFor("listings", 4, "active", 25, 0)
	b := KeyFor("listings", 4, "active", 25, 0)
	c := KeyFor("listings", 4, "sold", 25, 0)
	d := KeyFor("listings", 5, "active", 25, 0)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Regexp(t, `^listings_4_[0-9a-f]{32}$`, a)

	// Same printed value, different types
	assert.NotEqual(t, KeyFor("x", 1, "1"), KeyFor("x", 1, 1))
}

func TestRememberBuildsOnce(t *testing.T) {
	withMemoryCache(t)

	calls := 0
	build := func() (stats, error) {
		calls++
		return stats{Listings: int64(calls)}, nil
	}

	memo := NewMemo()
	first, err := Remember(memo, "dashboard", "stats_1", 60, build)
	require.NoError(t, err)
	second, err := Remember(memo, "dashboard", "stats_1", 60, build)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, memo.Len())

	// A new request has a new memo but the shared cache still answers
	third, err := Remember(NewMemo(), "dashboard", "stats_1", 60, build)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, first, third)
}

func TestRememberRebuildsAfterFlush(t *testing.T) {
	withMemoryCache(t)

	calls := 0
	build := func() (stats, error) {
		calls++
		return stats{Leads: int64(calls)}, nil
	}

	_, err := Remember(nil, "dashboard", "stats_2", 60, build)
	require.NoError(t, err)

	FlushGroup("dashboard")

	v, err := Remember(nil, "dashboard", "stats_2", 60, build)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(2), v.Leads)
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	withMemoryCache(t)

	calls := 0
	fail := errors.New("db down")
	build := func() (int64, error) {
		calls++
		if calls == 1 {
			return 0, fail
		}
		return 42, nil
	}

	memo := NewMemo()
	_, err := Remember(memo, "dashboard", "n", 60, build)
	assert.ErrorIs(t, err, fail)
	assert.Equal(t, 0, memo.Len())

	v, err := Remember(memo, "dashboard", "n", 60, build)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestMemoFlush(t *testing.T) {
	m := NewMemo()
	m.Set("a", 1)
	m.Set("b", 2)
	assert.Equal(t, 2, m.Len())

	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	m.Flush()
	assert.Equal(t, 0, m.Len())
	_, ok = m.Get("a")
	assert.False(t, ok)
}

type feed struct {
	Unread int64
	Items  []string
	Tags   map[string]int64
}

func TestRememberKeepsEmptyCollections(t *testing.T) {
	withMemoryCache(t)

	build := func() (feed, error) {
		return feed{Items: []string{}, Tags: map[string]int64{}}, nil
	}

	first, err := Remember(NewMemo(), "dashboard", "feed_1", 60, build)
	require.NoError(t, err)
	second, err := Remember(NewMemo(), "dashboard", "feed_1", 60, build)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Unread":0,"Items":[],"Tags":{}}`, string(b))
	assert.Equal(t, string(a), string(b))

	list := func() ([]int64, error) { return nil, nil }
	_, err = Remember(NewMemo(), "dashboard", "ids", 60, list)
	require.NoError(t, err)
	ids, err := Remember(NewMemo(), "dashboard", "ids", 60, list)
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestMemoryCounters(t *testing.T) {
	withMemoryCache(t)

	b := newMemoryBackend()
	require.NoError(t, b.add("n", []byte("5"), 0))
	assert.Equal(t, errNotStored, b.add("n", []byte("9"), 0))

	v, err := b.increment("n", 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)

	_, err = b.increment("missing", 1)
	assert.Equal(t, errCacheMiss, err)
	assert.Equal(t, errCacheMiss, b.delete("missing"))
}
