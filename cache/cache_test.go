package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

type dims struct{ w, h int }

func newTest[K comparable, V any](t testing.TB, opt Options[K, V]) Cache[K, V] {
	t.Helper()
	c, err := New[K, V](opt)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// recordingMetrics counts hook calls; used only from one goroutine.
type recordingMetrics struct {
	hits, misses int
	evicts       map[EvictReason]int
	size         int
}

func (m *recordingMetrics) Hit()                { m.hits++ }
func (m *recordingMetrics) Miss()               { m.misses++ }
func (m *recordingMetrics) Evict(r EvictReason) { m.evicts[r]++ }
func (m *recordingMetrics) Size(n int)          { m.size = n }

func TestNew_InvalidCapacity(t *testing.T) {
	t.Parallel()

	for _, capacity := range []int{0, -1} {
		c, err := New[string, int](Options[string, int]{Capacity: capacity})
		if !errors.Is(err, ErrInvalidCapacity) {
			t.Fatalf("capacity %d: want ErrInvalidCapacity, got %v", capacity, err)
		}
		if c != nil {
			t.Fatalf("capacity %d: cache must not be returned", capacity)
		}
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("MustNew(0) must panic")
		}
	}()
	MustNew[string, int](Options[string, int]{})
}

// Basic Add/Set/Get/Delete semantics.
func TestCache_BasicAddSetGetDelete(t *testing.T) {
	t.Parallel()

	c := newTest[string, int](t, Options[string, int]{Capacity: 8})

	if !c.Add("a", 1) {
		t.Fatal("Add a=1 must be true")
	}
	if c.Add("a", 2) {
		t.Fatal("Add duplicate must be false")
	}
	if v, _ := c.Peek("a"); v != 1 {
		t.Fatalf("failed Add must not overwrite, got %d", v)
	}

	c.Set("a", 11)
	if v, ok := c.Get("a"); !ok || v != 11 {
		t.Fatalf("Get a want 11, got %v ok=%v", v, ok)
	}

	if !c.Delete("a") {
		t.Fatal("Delete a must be true")
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("a must be absent after Delete")
	}
	if c.Len() != 0 {
		t.Fatalf("Len want 0, got %d", c.Len())
	}
	if c.Delete("a") {
		t.Fatal("Delete of absent key must be false")
	}
}

// N+1 distinct inserts with no reads evict exactly the first key.
func TestCache_EvictsOldestInsert(t *testing.T) {
	t.Parallel()

	const n = 5
	c := newTest[int, int](t, Options[int, int]{Capacity: n})
	for i := 1; i <= n+1; i++ {
		c.Set(i, i)
	}

	if c.Has(1) {
		t.Fatal("k1 must be evicted")
	}
	for i := 2; i <= n+1; i++ {
		if !c.Has(i) {
			t.Fatalf("k%d must remain", i)
		}
	}
	if got, want := c.Keys(), []int{6, 5, 4, 3, 2}; !slices.Equal(got, want) {
		t.Fatalf("Keys want %v, got %v", want, got)
	}
}

// Accessing "a" promotes it; inserting "c" evicts LRU ("b").
func TestCache_GetRefreshesRecency(t *testing.T) {
	t.Parallel()

	c := newTest[string, int](t, Options[string, int]{Capacity: 2})

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expect hit for a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b must be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a must survive (promoted)")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatal("c must be present")
	}
}

func TestCache_OverwriteKeepsSize(t *testing.T) {
	t.Parallel()

	c := newTest[string, string](t, Options[string, string]{Capacity: 3})
	c.Set("x", "old")
	c.Set("y", "y")
	c.Set("x", "v1")
	c.Set("x", "v2")

	if c.Len() != 2 {
		t.Fatalf("Len want 2, got %d", c.Len())
	}
	if v, _ := c.Get("x"); v != "v2" {
		t.Fatalf("Get x want v2, got %q", v)
	}
	// The overwrite refreshed x, so y is now the LRU.
	if got := c.Keys(); !slices.Equal(got, []string{"x", "y"}) {
		t.Fatalf("Keys want [x y], got %v", got)
	}
}

func TestCache_MissDoesNotMutate(t *testing.T) {
	t.Parallel()

	c := newTest[string, int](t, Options[string, int]{Capacity: 3})
	c.Set("a", 1)
	c.Set("b", 2)
	before := c.Keys()

	if _, ok := c.Get("zzz"); ok {
		t.Fatal("zzz must miss")
	}
	if c.Len() != 2 {
		t.Fatalf("Len changed on miss: %d", c.Len())
	}
	if after := c.Keys(); !slices.Equal(before, after) {
		t.Fatalf("recency changed on miss: %v -> %v", before, after)
	}
}

// Has and Peek are non-destructive probes.
func TestCache_HasAndPeekDoNotPromote(t *testing.T) {
	t.Parallel()

	c := newTest[string, int](t, Options[string, int]{Capacity: 2})
	c.Set("a", 1)
	c.Set("b", 2)

	if !c.Has("a") {
		t.Fatal("Has a must be true")
	}
	if v, ok := c.Peek("a"); !ok || v != 1 {
		t.Fatalf("Peek a want 1, got %d ok=%v", v, ok)
	}
	c.Set("c", 3)

	if c.Has("a") {
		t.Fatal("a must be evicted: Has/Peek must not promote")
	}
	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Fatalf("Has/Peek must not count, got %+v", s)
	}
}

func TestCache_CapacityOne(t *testing.T) {
	t.Parallel()

	c := newTest[string, int](t, Options[string, int]{Capacity: 1})
	c.Set("a", 1)
	c.Set("a", 2)
	if c.Len() != 1 {
		t.Fatalf("Len want 1, got %d", c.Len())
	}
	c.Set("b", 3)
	if c.Has("a") || !c.Has("b") || c.Len() != 1 {
		t.Fatalf("b must replace a, keys=%v", c.Keys())
	}
}

func TestCache_DeleteKeepsOrder(t *testing.T) {
	t.Parallel()

	c := newTest[string, int](t, Options[string, int]{Capacity: 4})
	for i, k := range []string{"a", "b", "c", "d"} {
		c.Set(k, i)
	}
	if !c.Delete("b") {
		t.Fatal("Delete b must be true")
	}
	if got := c.Keys(); !slices.Equal(got, []string{"d", "c", "a"}) {
		t.Fatalf("Keys want [d c a], got %v", got)
	}
	// Deleted keys are not resurrected by later traffic.
	c.Set("e", 4)
	c.Set("f", 5)
	if c.Has("b") || c.Has("a") {
		t.Fatalf("unexpected keys %v", c.Keys())
	}
}

func TestCache_ClearRetainsCapacity(t *testing.T) {
	t.Parallel()

	var cleared []string
	c := newTest[string, int](t, Options[string, int]{
		Capacity: 2,
		OnEvict: func(k string, _ int, r EvictReason) {
			if r == EvictClear {
				cleared = append(cleared, k)
			}
		},
	})
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if c.Len() != 0 || len(c.Keys()) != 0 {
		t.Fatalf("cache must be empty after Clear, keys=%v", c.Keys())
	}
	if !slices.Equal(cleared, []string{"b", "a"}) {
		t.Fatalf("OnEvict(clear) want [b a], got %v", cleared)
	}
	if c.Cap() != 2 {
		t.Fatalf("Cap want 2, got %d", c.Cap())
	}

	c.Set("x", 1)
	c.Set("y", 2)
	c.Set("z", 3)
	if c.Len() != 2 || c.Has("x") {
		t.Fatalf("capacity must still be enforced after Clear, keys=%v", c.Keys())
	}
}

func TestCache_OnEvictAndMetrics(t *testing.T) {
	t.Parallel()

	m := &recordingMetrics{evicts: map[EvictReason]int{}}
	var evictedKey string
	var evictedVal int
	c := newTest[string, int](t, Options[string, int]{
		Capacity: 2,
		Metrics:  m,
		OnEvict: func(k string, v int, r EvictReason) {
			if r == EvictCapacity {
				evictedKey, evictedVal = k, v
			}
		},
	})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Get("nope")
	c.Set("c", 3)
	c.Delete("c")

	if evictedKey != "b" || evictedVal != 2 {
		t.Fatalf("OnEvict want b=2, got %s=%d", evictedKey, evictedVal)
	}
	if m.hits != 1 || m.misses != 1 {
		t.Fatalf("hits/misses want 1/1, got %d/%d", m.hits, m.misses)
	}
	if m.evicts[EvictCapacity] != 1 {
		t.Fatalf("capacity evictions want 1, got %d", m.evicts[EvictCapacity])
	}
	if m.size != 1 {
		t.Fatalf("size gauge want 1 after Delete, got %d", m.size)
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Evictions != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if r := s.HitRatio(); r != 0.5 {
		t.Fatalf("HitRatio want 0.5, got %v", r)
	}
}

// The image-dimensions walk-through: capacity 2, one promotion, one eviction.
func TestCache_DimensionsScenario(t *testing.T) {
	t.Parallel()

	c := newTest[string, dims](t, Options[string, dims]{Capacity: 2})
	c.Set("img1", dims{10, 20})
	c.Set("img2", dims{30, 40})

	if v, ok := c.Get("img1"); !ok || v != (dims{10, 20}) {
		t.Fatalf("img1 want {10 20}, got %v ok=%v", v, ok)
	}
	c.Set("img3", dims{50, 60})

	if _, ok := c.Get("img2"); ok {
		t.Fatal("img2 must be evicted")
	}
	if v, ok := c.Get("img1"); !ok || v != (dims{10, 20}) {
		t.Fatalf("img1 must hit, got %v ok=%v", v, ok)
	}
	if v, ok := c.Get("img3"); !ok || v != (dims{50, 60}) {
		t.Fatalf("img3 must hit, got %v ok=%v", v, ok)
	}
}

// Concurrent GetOrLoad calls for the same key run the loader once;
// subsequent calls are cache hits.
func TestCache_GetOrLoad_Singleflight(t *testing.T) {
	var calls int64

	c := newTest[string, string](t, Options[string, string]{
		Capacity: 64,
		Loader: func(_ context.Context, k string) (string, error) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(5 * time.Millisecond) // simulate I/O
			return "v:" + k, nil
		},
	})

	const N = 64
	var g errgroup.Group
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < N; i++ {
		g.Go(func() error {
			v, err := c.GetOrLoad(ctx, "k", nil)
			if err != nil {
				return err
			}
			if v != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run exactly once, got %d", got)
	}
	if v, err := c.GetOrLoad(context.Background(), "k", nil); err != nil || v != "v:k" {
		t.Fatalf("second GetOrLoad failed: v=%q err=%v", v, err)
	}
}

// Failed loads are returned to the caller and never stored.
func TestCache_GetOrLoad_ErrorsNotCached(t *testing.T) {
	t.Parallel()

	c := newTest[string, int](t, Options[string, int]{Capacity: 4})
	boom := errors.New("probe failed")

	if _, err := c.GetOrLoad(context.Background(), "k", func(context.Context, string) (int, error) {
		return 0, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if c.Has("k") || c.Len() != 0 {
		t.Fatal("failed load must not be cached")
	}

	v, err := c.GetOrLoad(context.Background(), "k", func(context.Context, string) (int, error) {
		return 9, nil
	})
	if err != nil || v != 9 {
		t.Fatalf("retry want 9,nil got %d,%v", v, err)
	}
	if !c.Has("k") {
		t.Fatal("successful load must be cached")
	}
}

func TestCache_GetOrLoad_NoLoader(t *testing.T) {
	t.Parallel()

	c := newTest[string, int](t, Options[string, int]{Capacity: 1})
	if _, err := c.GetOrLoad(context.Background(), "k", nil); !errors.Is(err, ErrNoLoader) {
		t.Fatalf("want ErrNoLoader, got %v", err)
	}
}

// The caller that triggers a load can give up without failing the other
// callers waiting on it, and the loader never sees that caller's cancel.
func TestCache_GetOrLoad_FirstCallerCancel(t *testing.T) {
	t.Parallel()

	c := newTest[string, string](t, Options[string, string]{Capacity: 4})

	release := make(chan struct{})
	running := make(chan struct{})
	var calls atomic.Int64
	load := func(ctx context.Context, k string) (string, error) {
		if calls.Add(1) == 1 {
			close(running)
		}
		select {
		case <-release:
			return "v:" + k, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.GetOrLoad(ctx, "k", load)
		first <- err
	}()
	<-running

	type result struct {
		v   string
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := c.GetOrLoad(context.Background(), "k", load)
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond) // let the second caller join

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller want context.Canceled, got %v", err)
	}
	close(release)

	select {
	case r := <-second:
		if r.err != nil || r.v != "v:k" {
			t.Fatalf("second caller want v:k,nil got %q,%v", r.v, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second caller hung")
	}
	if v, ok := c.Peek("k"); !ok || v != "v:k" {
		t.Fatalf("settled load must be cached, got %q ok=%v", v, ok)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("loader want 1 call, got %d", got)
	}
}
