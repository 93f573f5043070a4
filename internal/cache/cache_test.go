package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetSet(t *testing.T) {
	c := New[bool](Options{TTL: time.Minute, MaxItems: 10})

	_, ok := c.Get("email:a@sol.com")
	assert.False(t, ok)

	c.Set("email:a@sol.com", true)
	v, ok := c.Get("email:a@sol.com")
	require.True(t, ok)
	assert.True(t, v)

	st := c.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, 1, st.Size)
}

func TestCache_EvictsBeyondMaxItems(t *testing.T) {
	c := New[int](Options{TTL: time.Minute, MaxItems: 2})
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recently used
	c.Set("c", 3)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_Expires(t *testing.T) {
	c := New[string](Options{TTL: 20 * time.Millisecond, MaxItems: 10})
	c.Set("k", "v")

	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestCache_GetOrCompute(t *testing.T) {
	c := New[int](Options{})
	calls := 0
	compute := func() int { calls++; return 42 }

	assert.Equal(t, 42, c.GetOrCompute("k", compute))
	assert.Equal(t, 42, c.GetOrCompute("k", compute))
	assert.Equal(t, 1, calls)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCache_NilIsUsable(t *testing.T) {
	var c *Cache[int]
	calls := 0
	compute := func() int { calls++; return 7 }

	assert.Equal(t, 7, c.GetOrCompute("k", compute))
	assert.Equal(t, 7, c.GetOrCompute("k", compute))
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, Stats{}, c.Stats())
	c.Purge()
}

func TestCache_Concurrent(t *testing.T) {
	c := New[int](Options{MaxItems: 100})
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				key := strconv.Itoa(i % 50)
				c.GetOrCompute(key, func() int { return i % 50 })
			}
		}()
	}
	wg.Wait()

	for i := range 50 {
		v, ok := c.Get(strconv.Itoa(i))
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}
