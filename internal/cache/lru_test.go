package cache

import (
	"sync"
	"testing"
	"time"
)

func TestLRU_BasicOperations(t *testing.T) {
	cache := NewLRU[string, int](Config{MaxSize: 3})

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Put("c", 3)

	for key, want := range map[string]int{"a": 1, "b": 2, "c": 3} {
		if v, ok := cache.Get(key); !ok || v != want {
			t.Errorf("Get(%s) = %d, %v; want %d, true", key, v, ok, want)
		}
	}
	if _, ok := cache.Get("d"); ok {
		t.Error("Get(d) should return false")
	}
	if n := cache.Len(); n != 3 {
		t.Errorf("Len() = %d; want 3", n)
	}
}

func TestLRU_Eviction(t *testing.T) {
	cache := NewLRU[string, int](Config{MaxSize: 2})

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Get("a")    // "b" is now least recently used
	cache.Put("c", 3) // evicts "b"

	if _, ok := cache.Get("b"); ok {
		t.Error("Get(b) should return false after eviction")
	}
	if _, ok := cache.Get("a"); !ok {
		t.Error("Get(a) should survive eviction")
	}
	if _, ok := cache.Get("c"); !ok {
		t.Error("Get(c) should be present")
	}
}

func TestLRU_UpdateAndRemove(t *testing.T) {
	cache := NewLRU[string, int](Config{MaxSize: 2})

	cache.Put("a", 1)
	cache.Put("a", 10)
	if v, _ := cache.Get("a"); v != 10 {
		t.Errorf("Get(a) = %d; want 10", v)
	}
	if n := cache.Len(); n != 1 {
		t.Errorf("Len() = %d; want 1", n)
	}

	cache.Remove("a")
	cache.Remove("missing")
	if _, ok := cache.Get("a"); ok {
		t.Error("Get(a) should return false after Remove")
	}

	cache.Put("x", 1)
	cache.Put("y", 2)
	cache.Clear()
	if n := cache.Len(); n != 0 {
		t.Errorf("Len() after Clear = %d; want 0", n)
	}
}

func TestLRU_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := newLRU[string, int](Config{MaxSize: 3, TTL: time.Minute}, func() time.Time { return now })

	cache.Put("a", 1)
	if v, ok := cache.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v; want 1, true", v, ok)
	}

	now = now.Add(59 * time.Second)
	if _, ok := cache.Get("a"); !ok {
		t.Error("Get(a) should still be present before TTL")
	}

	now = now.Add(time.Second)
	if _, ok := cache.Get("a"); ok {
		t.Error("Get(a) should return false after TTL expiration")
	}

	stats := cache.Stats()
	if stats.Expired != 1 {
		t.Errorf("Expired = %d; want 1", stats.Expired)
	}
	if stats.Size != 0 {
		t.Errorf("Size = %d; want 0", stats.Size)
	}
}

func TestLRU_Stats(t *testing.T) {
	cache := NewLRU[string, int](Config{MaxSize: 2})

	cache.Put("a", 1)
	cache.Put("b", 2)
	cache.Get("a")
	cache.Get("b")
	cache.Get("c")
	cache.Get("d")
	cache.Put("c", 3)

	stats := cache.Stats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d; want 2", stats.Hits)
	}
	if stats.Misses != 2 {
		t.Errorf("Misses = %d; want 2", stats.Misses)
	}
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d; want 1", stats.Evictions)
	}
	if stats.Size != 2 || stats.MaxSize != 2 {
		t.Errorf("Size/MaxSize = %d/%d; want 2/2", stats.Size, stats.MaxSize)
	}
	if r := stats.HitRatio(); r != 0.5 {
		t.Errorf("HitRatio() = %v; want 0.5", r)
	}
	if r := (Stats{}).HitRatio(); r != 0 {
		t.Errorf("empty HitRatio() = %v; want 0", r)
	}
}

func TestLRU_NegativeConfig(t *testing.T) {
	cache := NewLRU[int, int](Config{MaxSize: -1, TTL: -time.Second})
	for i := 0; i < 500; i++ {
		cache.Put(i, i)
	}
	if n := cache.Len(); n != 500 {
		t.Errorf("Len() = %d; want 500 for unlimited cache", n)
	}
	if _, ok := cache.Get(0); !ok {
		t.Error("negative TTL should mean no expiry")
	}
}

func TestLRU_Concurrency(t *testing.T) {
	config := Config{MaxSize: 100}
	cache := NewLRU[int, int](config)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Put(id*100+j, j)
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Get(id*100 + j)
			}
		}(i)
	}
	wg.Wait()

	if n := cache.Len(); n > config.MaxSize {
		t.Errorf("Len() = %d; want <= %d", n, config.MaxSize)
	}
}
