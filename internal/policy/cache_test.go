package policy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan:
// 1. Test basic get/put and index operations
// 2. Test overwrites are plain last-writer-wins
// 3. Test index entries survive lookups (repeat overrides rely on this)
// 4. Test concurrent readers and writers

// Test: basic operations
func TestDecisionCache_BasicOperations(t *testing.T) {
	cache := NewDecisionCache()

	key := CacheKey{SourceID: "A", TargetID: "B", Action: "invoke"}

	_, ok := cache.Get(key)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())

	decision := Decision{Permitted: true, Message: "", RequestID: "R1"}
	cache.Put(key, decision)

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, decision, got)
	assert.Equal(t, 1, cache.Len())

	// A different triple is a distinct entry
	other := CacheKey{SourceID: "A", TargetID: "B", Action: "delete"}
	_, ok = cache.Get(other)
	assert.False(t, ok)
}

// Test: overwrites replace the previous decision
func TestDecisionCache_LastWriterWins(t *testing.T) {
	cache := NewDecisionCache()
	key := CacheKey{SourceID: "A", TargetID: "B", Action: "invoke"}

	cache.Put(key, Decision{Permitted: true, RequestID: "R1"})
	cache.Put(key, Decision{Permitted: false, Message: "revoked", RequestID: "R1"})

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.False(t, got.Permitted)
	assert.Equal(t, "revoked", got.Message)
	assert.Equal(t, 1, cache.Len())
}

// Test: index resolves and persists across lookups
func TestDecisionCache_Index(t *testing.T) {
	cache := NewDecisionCache()
	key := CacheKey{SourceID: "A", TargetID: "B", Action: "invoke"}

	_, ok := cache.LookupIndex("R1")
	assert.False(t, ok)

	cache.PutIndex("R1", key)

	for i := 0; i < 3; i++ {
		got, ok := cache.LookupIndex("R1")
		require.True(t, ok)
		assert.Equal(t, key, got)
	}
}

// Test: concurrent access to the cache
func TestDecisionCache_ConcurrentAccess(t *testing.T) {
	cache := NewDecisionCache()

	done := make(chan bool)

	// Writers
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := CacheKey{SourceID: fmt.Sprintf("S%d", id), TargetID: "T", Action: "invoke"}
			cache.Put(key, Decision{Permitted: true, RequestID: fmt.Sprintf("R%d", id)})
			cache.PutIndex(fmt.Sprintf("R%d", id), key)
			done <- true
		}(i)
	}

	// Readers
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := CacheKey{SourceID: fmt.Sprintf("S%d", id), TargetID: "T", Action: "invoke"}
			cache.Get(key)
			cache.LookupIndex(fmt.Sprintf("R%d", id))
			done <- true
		}(i)
	}

	for i := 0; i < 20; i++ {
		<-done
	}

	assert.Equal(t, 10, cache.Len())
	for i := 0; i < 10; i++ {
		key, ok := cache.LookupIndex(fmt.Sprintf("R%d", i))
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("S%d", i), key.SourceID)
	}
}
