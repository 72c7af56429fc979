package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_CachesWithinTTL(t *testing.T) {
	c := NewValue[int](time.Hour)

	calls := 0
	loader := func() (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.Get(loader)
	require.NoError(t, err, "first Get should not error")
	assert.Equal(t, 42, v, "first Get should return loaded value")

	v, err = c.Get(loader)
	require.NoError(t, err, "second Get should not error")
	assert.Equal(t, 42, v, "second Get should return cached value")
	assert.Equal(t, 1, calls, "loader should run at most once within the TTL")
}

func TestValue_ReloadsAfterExpiry(t *testing.T) {
	c := NewValue[int](time.Minute)

	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	calls := 0
	loader := func() (int, error) {
		calls++
		return calls, nil
	}

	v, _ := c.Get(loader)
	assert.Equal(t, 1, v, "initial load")

	current = current.Add(30 * time.Second)
	v, _ = c.Get(loader)
	assert.Equal(t, 1, v, "value inside TTL window should be served from cache")

	current = current.Add(31 * time.Second)
	v, _ = c.Get(loader)
	assert.Equal(t, 2, v, "a call after expiry should invoke the loader again")
	assert.Equal(t, 2, calls, "loader should run exactly twice")
}

func TestValue_ErrorsAreNotCached(t *testing.T) {
	c := NewValue[int](time.Hour)

	calls := 0
	boom := errors.New("boom")
	_, err := c.Get(func() (int, error) {
		calls++
		return 0, boom
	})
	require.ErrorIs(t, err, boom, "load error should propagate")

	v, err := c.Get(func() (int, error) {
		calls++
		return 7, nil
	})
	require.NoError(t, err, "retry after a failed load should succeed")
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls, "failed result must not be cached")
}

func TestValue_SingleFlight(t *testing.T) {
	c := NewValue[int](time.Hour)

	var loads int32
	release := make(chan struct{})
	loader := func() (int, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return 99, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(loader)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Give the goroutines a moment to pile up behind the in-flight load.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&loads), "concurrent callers should share one load")
	for i := 0; i < callers; i++ {
		assert.Equal(t, 99, results[i], "every caller should see the shared result")
	}
}

func TestValue_Invalidate(t *testing.T) {
	c := NewValue[string](time.Hour)

	calls := 0
	loader := func() (string, error) {
		calls++
		return "x", nil
	}
	_, _ = c.Get(loader)
	c.Invalidate()
	_, _ = c.Get(loader)
	assert.Equal(t, 2, calls, "Invalidate should force a reload")
}

func TestMap_KeysAreIndependent(t *testing.T) {
	m := NewMap[string](time.Hour)

	a, err := m.Get("a", func() (string, error) { return "va", nil })
	require.NoError(t, err)
	b, err := m.Get("b", func() (string, error) { return "vb", nil })
	require.NoError(t, err)

	assert.Equal(t, "va", a)
	assert.Equal(t, "vb", b)

	calls := 0
	v, err := m.Get("a", func() (string, error) {
		calls++
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "va", v, "key a should still be cached")
	assert.Zero(t, calls, "cached key must not invoke the loader")
}

func TestMap_ExpiryPerKey(t *testing.T) {
	m := NewMap[int](10 * time.Second)

	current := time.Unix(5000, 0)
	m.now = func() time.Time { return current }

	calls := 0
	loader := func() (int, error) {
		calls++
		return calls, nil
	}

	v, _ := m.Get("k", loader)
	assert.Equal(t, 1, v)

	current = current.Add(11 * time.Second)
	v, _ = m.Get("k", loader)
	assert.Equal(t, 2, v, "expired key should reload")
}
