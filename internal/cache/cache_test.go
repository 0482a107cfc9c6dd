package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTTLExpires(t *testing.T) {
	now := time.Date(2025, 3, 3, 14, 0, 0, 0, time.UTC)
	c := New[int](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("AAPL", 150)
	if v, ok := c.Get("AAPL"); !ok || v != 150 {
		t.Fatalf("Get = %v, %v", v, ok)
	}
	now = now.Add(time.Minute)
	if _, ok := c.Get("AAPL"); ok {
		t.Fatalf("entry should expire after ttl")
	}
	if left := c.Purge(); left != 0 {
		t.Fatalf("Purge left %d entries", left)
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := New[string](time.Minute)
	var calls int
	failing := func(context.Context) (string, error) {
		calls++
		return "", errors.New("upstream down")
	}
	for i := 0; i < 2; i++ {
		if _, err := c.GetOrLoad(context.Background(), "k", failing); err == nil {
			t.Fatalf("expected error")
		}
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	v, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Fatalf("GetOrLoad = %q, %v", v, err)
	}
	v, _ = c.GetOrLoad(context.Background(), "k", failing)
	if v != "ok" || calls != 2 {
		t.Fatalf("cached value not used: %q after %d calls", v, calls)
	}
}

func TestGetOrLoadSharesConcurrentLoads(t *testing.T) {
	c := New[int](time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.GetOrLoad(context.Background(), "k", load)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("load called %d times", calls.Load())
	}
	for i, v := range results {
		if v != 42 {
			t.Fatalf("result %d = %d", i, v)
		}
	}
}
