package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ilmenite-gfx/ilmenite/internal/ilmtype"
)

func TestGetBuildsOnceAndMemoizes(t *testing.T) {
	c := New()
	key := ilmtype.NewCacheKey(1, 16.0)
	var builds int32

	build := func(ilmtype.CacheKey) (*ilmtype.GlyphBitmap, error) {
		atomic.AddInt32(&builds, 1)
		return &ilmtype.GlyphBitmap{Width: 4, Height: 4}, nil
	}

	for i := 0; i < 5; i++ {
		bitmap, err := c.Get(key, build)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if bitmap.Width != 4 {
			t.Fatalf("expected memoized bitmap, got %+v", bitmap)
		}
	}

	if builds != 1 {
		t.Errorf("expected exactly one build for a repeatedly-fetched key, got %d", builds)
	}
}

func TestGetConcurrentCallersShareOneBuild(t *testing.T) {
	c := New()
	key := ilmtype.NewCacheKey(2, 16.0)
	var builds int32
	started := make(chan struct{})

	build := func(ilmtype.CacheKey) (*ilmtype.GlyphBitmap, error) {
		atomic.AddInt32(&builds, 1)
		close(started)
		time.Sleep(20 * time.Millisecond)
		return &ilmtype.GlyphBitmap{Width: 8, Height: 8}, nil
	}

	const goroutines = 20
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			bitmap, err := c.Get(key, build)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if bitmap.Width != 8 {
				t.Errorf("expected shared bitmap, got %+v", bitmap)
			}
		}()
	}
	wg.Wait()

	if builds != 1 {
		t.Errorf("expected exactly one build across %d concurrent callers, got %d", goroutines, builds)
	}
}

func TestGetRetriesAfterError(t *testing.T) {
	c := New()
	key := ilmtype.NewCacheKey(3, 16.0)
	attempt := 0

	build := func(ilmtype.CacheKey) (*ilmtype.GlyphBitmap, error) {
		attempt++
		if attempt == 1 {
			return nil, errors.New("transient failure")
		}
		return &ilmtype.GlyphBitmap{Width: 2, Height: 2}, nil
	}

	if _, err := c.Get(key, build); err == nil {
		t.Fatal("expected the first build to fail")
	}

	bitmap, err := c.Get(key, build)
	if err != nil {
		t.Fatalf("expected the retry to succeed, got error: %v", err)
	}
	if bitmap.Width != 2 {
		t.Fatalf("unexpected bitmap: %+v", bitmap)
	}
	if attempt != 2 {
		t.Errorf("expected exactly 2 build attempts, got %d", attempt)
	}
}

func TestGetWakesWaitersAfterError(t *testing.T) {
	c := New()
	key := ilmtype.NewCacheKey(4, 16.0)
	releaseBuilder := make(chan struct{})
	var attempt int32

	build := func(ilmtype.CacheKey) (*ilmtype.GlyphBitmap, error) {
		n := atomic.AddInt32(&attempt, 1)
		if n == 1 {
			<-releaseBuilder
			return nil, errors.New("first attempt fails")
		}
		return &ilmtype.GlyphBitmap{Width: 1, Height: 1}, nil
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Get(key, build)
		errCh <- err
	}()

	// Give the first goroutine a chance to install the Incomplete entry
	// before the waiter starts.
	time.Sleep(10 * time.Millisecond)

	waiterDone := make(chan struct{})
	go func() {
		defer close(waiterDone)
		bitmap, err := c.Get(key, build)
		if err != nil {
			t.Errorf("expected the waiter's retry to succeed, got: %v", err)
			return
		}
		if bitmap.Width != 1 {
			t.Errorf("unexpected bitmap: %+v", bitmap)
		}
	}()

	close(releaseBuilder)

	if err := <-errCh; err == nil {
		t.Fatal("expected the first builder's own error to propagate")
	}

	select {
	case <-waiterDone:
	case <-time.After(time.Second):
		t.Fatal("waiter was never woken after the builder errored")
	}
}
