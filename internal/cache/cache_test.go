package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[string](2, time.Minute)
	c.Set(ctx, "a", "1")
	c.Set(ctx, "b", "2")
	c.Get(ctx, "a")
	c.Set(ctx, "c", "3")

	if _, ok := c.Get(ctx, "b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get(ctx, "a"); !ok || v != "1" {
		t.Fatalf("a = %q, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", 1)
	c.Set(ctx, "j", 2)
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("expired entry returned")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", removed)
	}
	if c.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](4, time.Minute)
	c.Set(ctx, "k", 1)
	c.Delete(ctx, "k")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatal("deleted entry returned")
	}
}

func TestMemoCachesValues(t *testing.T) {
	ctx := context.Background()
	var hits, misses, calls int
	m := NewMemo[int](NewLRUCache[int](8, time.Minute), func() { hits++ }, func() { misses++ })

	for i := 0; i < 3; i++ {
		v, err := m.Do(ctx, "hotel|lead_time", func(context.Context) (int, error) {
			calls++
			return 42, nil
		})
		if err != nil || v != 42 {
			t.Fatalf("Do() = %d, %v", v, err)
		}
	}
	if calls != 1 || hits != 2 || misses != 1 {
		t.Fatalf("calls=%d hits=%d misses=%d", calls, hits, misses)
	}
}

func TestMemoDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemo[int](NewLRUCache[int](8, time.Minute), nil, nil)
	boom := errors.New("boom")

	if _, err := m.Do(ctx, "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	v, err := m.Do(ctx, "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("Do() = %d, %v", v, err)
	}
}

func TestMemoCollapsesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	m := NewMemo[int](Nop[int]{}, nil, nil)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Do(ctx, "k", func(context.Context) (int, error) {
				calls.Add(1)
				<-release
				return 1, nil
			})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

func TestMemoSurvivesFirstCallerCancel(t *testing.T) {
	m := NewMemo[int](NewLRUCache[int](4, time.Minute), nil, nil)
	first, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := m.Do(first, "k", func(ctx context.Context) (int, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			return 7, nil
		})
		done <- err
	}()
	<-started

	waiter := make(chan int, 1)
	go func() {
		v, err := m.Do(context.Background(), "k", func(context.Context) (int, error) {
			return 0, errors.New("should share the running computation")
		})
		if err != nil {
			t.Errorf("waiter: %v", err)
		}
		waiter <- v
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("first caller: %v", err)
	}
	if v := <-waiter; v != 7 {
		t.Fatalf("waiter got %d, want 7", v)
	}
}

func TestManagerCleansRegisteredCaches(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](4, time.Millisecond)
	c.Set(ctx, "k", 1)

	cleaned := make(chan int, 4)
	mgr := NewManager(func(n int) { cleaned <- n })
	mgr.Register(c)
	mgr.StartCleanup(5 * time.Millisecond)
	defer mgr.Stop()

	select {
	case n := <-cleaned:
		if n != 1 {
			t.Fatalf("cleaned %d, want 1", n)
		}
	case <-time.After(time.Second):
		t.Fatal("cleanup did not run")
	}
}

func TestRedisClientUnreachable(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "127.0.0.1:1", "", 0); err == nil {
		t.Fatal("expected ping failure for unreachable redis")
	}
}

func TestRedisCacheLogsFailuresAsMisses(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()
	c := NewRedisCache[int](client, "hoteldash:test", time.Minute)

	if _, ok := c.Get(context.Background(), "views|hotel|lead_time"); ok {
		t.Fatal("unreachable redis should miss")
	}
	for _, want := range []string{"level=WARN", "component=cache", "cache_key=views|hotel|lead_time"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("missing %q in %s", want, buf.String())
		}
	}
}
