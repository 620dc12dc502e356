package registry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// countingStore hands out sequential ids and counts how often each host was
// created.
type countingStore struct {
	mu      sync.Mutex
	ids     map[string]int64
	next    int64
	calls   atomic.Int64
	delay   time.Duration
	failFor string
}

func newCountingStore() *countingStore {
	return &countingStore{ids: make(map[string]int64)}
}

func (s *countingStore) GetOrCreateSite(_ context.Context, host string) (int64, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if host == s.failFor {
		return 0, errors.New("connection refused")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.ids[host]; ok {
		return id, nil
	}
	s.next++
	s.ids[host] = s.next
	return s.next, nil
}

func TestRegistryGetOrCreate(t *testing.T) {
	t.Parallel()

	t.Run("same host returns same id", func(t *testing.T) {
		t.Parallel()

		store := newCountingStore()
		r := New(store)
		ctx := context.Background()

		a, err := r.GetOrCreate(ctx, "a.test")
		if err != nil {
			t.Fatalf("GetOrCreate() error = %v", err)
		}
		b, err := r.GetOrCreate(ctx, "A.TEST")
		if err != nil {
			t.Fatalf("GetOrCreate() error = %v", err)
		}
		if a != b {
			t.Errorf("ids differ: %d vs %d", a, b)
		}
		if got := store.calls.Load(); got != 1 {
			t.Errorf("store called %d times, want 1", got)
		}
		if r.Len() != 1 {
			t.Errorf("Len() = %d, want 1", r.Len())
		}
	})

	t.Run("different hosts get different ids", func(t *testing.T) {
		t.Parallel()

		r := New(newCountingStore())
		ctx := context.Background()
		a, _ := r.GetOrCreate(ctx, "a.test")
		b, _ := r.GetOrCreate(ctx, "b.test")
		if a == b {
			t.Errorf("different hosts share id %d", a)
		}
	})

	t.Run("empty host", func(t *testing.T) {
		t.Parallel()

		r := New(newCountingStore())
		if _, err := r.GetOrCreate(context.Background(), " "); !errors.Is(err, ErrNoHost) {
			t.Errorf("GetOrCreate() error = %v, want ErrNoHost", err)
		}
	})

	t.Run("store failure is not cached", func(t *testing.T) {
		t.Parallel()

		store := newCountingStore()
		store.failFor = "down.test"
		r := New(store)
		if _, err := r.GetOrCreate(context.Background(), "down.test"); err == nil {
			t.Fatal("GetOrCreate() error = nil, want error")
		}
		if r.Len() != 0 {
			t.Errorf("Len() = %d, want 0", r.Len())
		}
	})
}

func TestRegistryConcurrentFirstSight(t *testing.T) {
	t.Parallel()

	const callers = 32
	store := newCountingStore()
	store.delay = 20 * time.Millisecond
	r := New(store)

	ids := make([]int64, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			id, err := r.GetOrCreate(context.Background(), "race.test")
			if err != nil {
				t.Errorf("GetOrCreate() error = %v", err)
			}
			ids[i] = id
		}()
	}
	close(start)
	wg.Wait()

	for i, id := range ids {
		if id != ids[0] {
			t.Errorf("caller %d got id %d, want %d", i, id, ids[0])
		}
	}
	if got := store.calls.Load(); got != 1 {
		t.Errorf("store called %d times, want 1", got)
	}
}

// gatedStore blocks GetOrCreateSite until release is closed and fails when
// the context it was given is done by then.
type gatedStore struct {
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) GetOrCreateSite(ctx context.Context, _ string) (int64, error) {
	close(s.entered)
	<-s.release
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return 7, nil
}

func TestRegistryCancelledCallerDoesNotFailOthers(t *testing.T) {
	t.Parallel()

	store := &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
	r := New(store)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.GetOrCreate(first, "slow.test")
		firstErr <- err
	}()
	<-store.entered

	type result struct {
		id  int64
		err error
	}
	second := make(chan result, 1)
	go func() {
		id, err := r.GetOrCreate(context.Background(), "slow.test")
		second <- result{id, err}
	}()

	cancel()
	select {
	case err := <-firstErr:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller still waiting")
	}

	close(store.release)
	select {
	case res := <-second:
		if res.err != nil || res.id != 7 {
			t.Errorf("GetOrCreate() = %d, %v; want 7, nil", res.id, res.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("second caller did not finish")
	}

	id, err := r.GetOrCreate(context.Background(), "slow.test")
	if err != nil || id != 7 {
		t.Errorf("cached GetOrCreate() = %d, %v; want 7, nil", id, err)
	}
}

func TestRegistrySiteID(t *testing.T) {
	t.Parallel()

	r := New(newCountingStore())
	ctx := context.Background()

	a, err := r.SiteID(ctx, "http://a.test/page1")
	if err != nil {
		t.Fatalf("SiteID() error = %v", err)
	}
	b, err := r.SiteID(ctx, "http://A.test:80/other?q=1")
	if err != nil {
		t.Fatalf("SiteID() error = %v", err)
	}
	if a != b {
		t.Errorf("pages on one host got different sites: %d vs %d", a, b)
	}

	c, _ := r.SiteID(ctx, "http://a.test:8080/")
	if c == a {
		t.Error("a non-default port should be a different site")
	}

	if _, err := r.SiteID(ctx, "/relative"); !errors.Is(err, ErrNoHost) {
		t.Errorf("SiteID() error = %v, want ErrNoHost", err)
	}
}

func TestHost(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"http://Example.com/x":     "example.com",
		"https://example.com:443/": "example.com",
		"http://example.com:8080":  "example.com:8080",
		"https://example.com:80/":  "example.com:80",
		"http://[::1]:9000/":       "[::1]:9000",
	}
	for in, want := range cases {
		got, err := Host(in)
		if err != nil {
			t.Errorf("Host(%q) error = %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Host(%q) = %q, want %q", in, got, want)
		}
	}
}
