package build

import (
	"sync"
	"sync/atomic"
	"time"
)

// BuildCache maps a template fingerprint to the source generated for it,
// with LRU eviction and TTL.
type BuildCache struct {
	entries     map[string]*CacheEntry
	mutex       sync.Mutex
	maxSize     int64
	currentSize int64
	ttl         time.Duration
	// LRU list with sentinel head and tail
	head *CacheEntry
	tail *CacheEntry

	hits      int64
	misses    int64
	evictions int64
}

// CacheEntry represents a cached build result
type CacheEntry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	Size      int64

	prev *CacheEntry
	next *CacheEntry
}

// NewBuildCache creates a new build cache holding at most maxSize bytes of
// source. A ttl of zero keeps entries until they are evicted.
func NewBuildCache(maxSize int64, ttl time.Duration) *BuildCache {
	cache := &BuildCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		head:    &CacheEntry{},
		tail:    &CacheEntry{},
	}
	cache.head.next = cache.tail
	cache.tail.prev = cache.head

	return cache
}

// Get retrieves a value from the cache
func (bc *BuildCache) Get(key string) ([]byte, bool) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	entry, exists := bc.entries[key]
	if !exists {
		atomic.AddInt64(&bc.misses, 1)
		return nil, false
	}

	if bc.ttl > 0 && time.Since(entry.CreatedAt) > bc.ttl {
		bc.remove(entry)
		atomic.AddInt64(&bc.misses, 1)
		return nil, false
	}

	bc.moveToFront(entry)
	atomic.AddInt64(&bc.hits, 1)
	return entry.Value, true
}

// Set stores a value in the cache. Values larger than the whole cache are
// not stored.
func (bc *BuildCache) Set(key string, value []byte) {
	size := int64(len(value))

	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	if existing, exists := bc.entries[key]; exists {
		bc.remove(existing)
	}
	if size > bc.maxSize {
		return
	}

	bc.evictIfNeeded(size)

	entry := &CacheEntry{
		Key:       key,
		Value:     value,
		CreatedAt: time.Now(),
		Size:      size,
	}
	bc.entries[key] = entry
	bc.currentSize += size
	bc.addToFront(entry)
}

// Clear clears all cache entries and resets statistics
func (bc *BuildCache) Clear() {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	bc.entries = make(map[string]*CacheEntry)
	bc.currentSize = 0
	bc.head.next = bc.tail
	bc.tail.prev = bc.head

	atomic.StoreInt64(&bc.hits, 0)
	atomic.StoreInt64(&bc.misses, 0)
	atomic.StoreInt64(&bc.evictions, 0)
}

// GetStats returns the entry count, the current size and the size limit.
func (bc *BuildCache) GetStats() (int, int64, int64) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	return len(bc.entries), bc.currentSize, bc.maxSize
}

// GetHits returns the number of cache hits
func (bc *BuildCache) GetHits() int64 {
	return atomic.LoadInt64(&bc.hits)
}

// GetMisses returns the number of cache misses
func (bc *BuildCache) GetMisses() int64 {
	return atomic.LoadInt64(&bc.misses)
}

// GetEvictions returns the number of cache evictions
func (bc *BuildCache) GetEvictions() int64 {
	return atomic.LoadInt64(&bc.evictions)
}

// evictIfNeeded removes least recently used entries until newSize fits.
func (bc *BuildCache) evictIfNeeded(newSize int64) {
	for bc.currentSize+newSize > bc.maxSize && bc.tail.prev != bc.head {
		bc.remove(bc.tail.prev)
		atomic.AddInt64(&bc.evictions, 1)
	}
}

func (bc *BuildCache) remove(entry *CacheEntry) {
	bc.removeFromList(entry)
	delete(bc.entries, entry.Key)
	bc.currentSize -= entry.Size
}

func (bc *BuildCache) addToFront(entry *CacheEntry) {
	entry.prev = bc.head
	entry.next = bc.head.next
	bc.head.next.prev = entry
	bc.head.next = entry
}

func (bc *BuildCache) removeFromList(entry *CacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (bc *BuildCache) moveToFront(entry *CacheEntry) {
	bc.removeFromList(entry)
	bc.addToFront(entry)
}
