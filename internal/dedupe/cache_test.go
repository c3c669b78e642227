// ABOUTME: Tests for the delivered-job dedupe cache
// ABOUTME: Validates TTL expiration, size limits, eviction order, and concurrency safety

package dedupe

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_Check_NotSeen(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	assert.False(t, cache.Check("corr-never-delivered"))
}

func TestCache_Check_Seen(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	cache.Mark("corr-1")

	assert.True(t, cache.Check("corr-1"))
}

func TestCache_Check_Expired(t *testing.T) {
	cache := New(10*time.Millisecond, 100)
	defer cache.Close()

	cache.Mark("corr-expiring")

	assert.True(t, cache.Check("corr-expiring"))

	time.Sleep(20 * time.Millisecond)

	assert.False(t, cache.Check("corr-expiring"))
}

func TestCache_Mark_UpdatesTimestamp(t *testing.T) {
	cache := New(50*time.Millisecond, 100)
	defer cache.Close()

	cache.Mark("corr-refresh")

	time.Sleep(30 * time.Millisecond)

	// Re-mark to refresh
	cache.Mark("corr-refresh")

	// Past the original TTL, still within the refreshed one
	time.Sleep(30 * time.Millisecond)

	assert.True(t, cache.Check("corr-refresh"))
}

func TestCache_EvictionOrder(t *testing.T) {
	cache := New(5*time.Minute, 3)
	defer cache.Close()

	cache.Mark("first")
	time.Sleep(1 * time.Millisecond)
	cache.Mark("second")
	time.Sleep(1 * time.Millisecond)
	cache.Mark("third")

	assert.True(t, cache.Check("first"))
	assert.True(t, cache.Check("second"))
	assert.True(t, cache.Check("third"))

	// Add fourth - should evict "first" (oldest)
	cache.Mark("fourth")

	assert.False(t, cache.Check("first"), "first should be evicted")
	assert.True(t, cache.Check("second"))
	assert.True(t, cache.Check("third"))
	assert.True(t, cache.Check("fourth"))

	// Add fifth - should evict "second"
	cache.Mark("fifth")

	assert.False(t, cache.Check("second"), "second should be evicted")
	assert.True(t, cache.Check("third"))
	assert.True(t, cache.Check("fourth"))
	assert.True(t, cache.Check("fifth"))
}

func TestCache_Cleanup(t *testing.T) {
	// The cleanup goroutine ticks every minute; drive it directly here.
	cache := New(10*time.Millisecond, 100)
	defer cache.Close()

	cache.Mark("cleanup-1")
	cache.Mark("cleanup-2")
	cache.Mark("cleanup-3")

	assert.Equal(t, 3, cache.Len())

	time.Sleep(20 * time.Millisecond)

	cache.runCleanup()

	assert.Equal(t, 0, cache.Len(), "cleanup should remove expired entries")
}

func TestCache_Concurrent(t *testing.T) {
	cache := New(5*time.Minute, 1000)
	defer cache.Close()

	const numGoroutines = 100
	const opsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				key := fmt.Sprintf("corr-%d-%d", id%26, j%10)
				cache.Mark(key)
				cache.Check(key)
			}
		}(i)
	}

	wg.Wait()

	// Cache is still functional after the stampede
	cache.Mark("final-key")
	assert.True(t, cache.Check("final-key"))
}

func TestCache_Close(t *testing.T) {
	cache := New(5*time.Minute, 100)

	cache.Mark("before-close")
	assert.True(t, cache.Check("before-close"))

	cache.Close()

	// Multiple closes should not panic
	cache.Close()
}
