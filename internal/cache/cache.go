// Package cache implements the concurrent at-most-once rasterization
// cache: for any (glyph, text height) key, the underlying outline-build and
// rasterization work runs at most once in flight, and completed bitmaps
// are memoized for the cache's lifetime.
//
// Grounded on raster.rs's ImtRaster::raster_shaped_glyphs and its
// RasterCacheState enum (Incomplete(unparkers) / Completed(bitmap) /
// Errored(err)). The Rust Parker/Unparker handshake is reworked onto a
// sync.Mutex held by the cache plus one sync.Cond per in-flight entry,
// Go's idiomatic analogue of a park/unpark wait: Wait() releases the lock
// while parked and reacquires it on wake, exactly mirroring the drop-lock
// / park / reacquire-lock sequence in raster_shaped_glyphs.
package cache

import (
	"sync"

	"github.com/ilmenite-gfx/ilmenite/internal/ilmtype"
)

// stateKind distinguishes the three states an entry can be in.
type stateKind int

const (
	stateIncomplete stateKind = iota
	stateCompleted
	stateErrored
)

type entry struct {
	kind   stateKind
	bitmap *ilmtype.GlyphBitmap
	err    error
	cond   *sync.Cond // signaled whenever kind transitions away from Incomplete
}

// Builder performs the actual outline-build-and-rasterize work for a single
// glyph, on a cache miss. It is called with no lock held, matching the
// invariant that rasterization work never runs while the cache mutex is
// held.
type Builder func(key ilmtype.CacheKey) (*ilmtype.GlyphBitmap, error)

// Cache is a process-lifetime, monotonically growing rasterization cache.
// Safe for concurrent use from any number of goroutines. Eviction is not
// performed (spec §4.E): an LRU layer can sit above this without changing
// the protocol below.
type Cache struct {
	mu      sync.Mutex
	entries map[ilmtype.CacheKey]*entry
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[ilmtype.CacheKey]*entry)}
}

// Get returns the cached bitmap for key, building it via build if absent or
// if the previous build attempt errored. Concurrent callers racing on the
// same key observe the build run exactly once; all others wait for it.
func (c *Cache) Get(key ilmtype.CacheKey, build Builder) (*ilmtype.GlyphBitmap, error) {
	c.mu.Lock()

	for {
		e, ok := c.entries[key]
		if !ok || e.kind == stateErrored {
			// Absent or previously errored: this goroutine becomes the
			// builder. Install an Incomplete marker before releasing the
			// lock so concurrent callers queue behind it instead of
			// racing to build it themselves.
			e = &entry{kind: stateIncomplete, cond: sync.NewCond(&c.mu)}
			c.entries[key] = e
			c.mu.Unlock()

			bitmap, err := build(key)

			c.mu.Lock()
			if err != nil {
				e.kind = stateErrored
				e.err = err
			} else {
				e.kind = stateCompleted
				e.bitmap = bitmap
			}
			e.cond.Broadcast()
			c.mu.Unlock()

			if err != nil {
				return nil, err
			}
			return bitmap, nil
		}

		if e.kind == stateCompleted {
			c.mu.Unlock()
			return e.bitmap, nil
		}

		// Incomplete: another goroutine is building this entry. Wait for
		// its Broadcast. Wait releases the lock while parked and
		// reacquires it before returning, so the loop re-inspects state
		// under the lock exactly as the Rust protocol does after each
		// park/unpark cycle.
		e.cond.Wait()
	}
}

// Len reports the number of entries currently tracked, for diagnostics and
// tests; it includes in-flight and errored entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
