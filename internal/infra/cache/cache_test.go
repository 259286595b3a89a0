package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/cache"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/infra/observability"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestLoader_CachesAndCollapses(t *testing.T) {
	metrics := observability.NewMetrics()
	l := cache.NewLoader[[]string]("categories", time.Minute, metrics)
	defer l.Close()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"alimentation", "salaire"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.Get(context.Background(), "all", load)
			if err != nil || len(v) != 2 {
				t.Errorf("unexpected result %v, %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected a single load, got %d", calls.Load())
	}

	if _, err := l.Get(context.Background(), "all", load); err != nil {
		t.Fatalf("expected cached value, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("cached Get should not load again, got %d loads", calls.Load())
	}
}

func TestLoader_DoesNotCacheErrors(t *testing.T) {
	l := cache.NewLoader[int]("n", time.Minute, observability.NewMetrics())
	defer l.Close()

	boom := errors.New("boom")
	if _, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	v, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("expected reload after failure, got %d, %v", v, err)
	}

	l.Invalidate("k")
	v, _ = l.Get(context.Background(), "k", func(context.Context) (int, error) { return 8, nil })
	if v != 8 {
		t.Fatalf("expected reload after invalidate, got %d", v)
	}
}
