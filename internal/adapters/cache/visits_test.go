package cache

import (
    "context"
    "errors"
    "io"
    "log/slog"
    "reflect"
    "sync"
    "testing"
    "time"

    "linkpulse/internal/domain"
    "linkpulse/internal/ports"
)

type memStore struct {
    mu   sync.Mutex
    data map[string][]byte
    fail bool
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.fail {
        return nil, false, errors.New("store down")
    }
    v, ok := m.data[key]
    return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.fail {
        return errors.New("store down")
    }
    m.data[key] = value
    return nil
}

type countingVisitor struct {
    calls int
    texts []string
    err   error
}

func (c *countingVisitor) Visit(context.Context, domain.ProfileID) ([]string, error) {
    c.calls++
    return c.texts, c.err
}

func (c *countingVisitor) Surfaces() int { return 3 }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestVisitCacheHit(t *testing.T) {
    t.Parallel()

    next := &countingVisitor{texts: []string{"2h"}}
    c := NewVisitCache(next, &memStore{data: map[string][]byte{}}, time.Hour, quiet())
    p := domain.ProfileID("https://x.com/in/a")

    for i := 0; i < 3; i++ {
        texts, err := c.Visit(context.Background(), p)
        if err != nil {
            t.Fatalf("unexpected error: %v", err)
        }
        if !reflect.DeepEqual(texts, []string{"2h"}) {
            t.Fatalf("unexpected texts %v", texts)
        }
    }
    if next.calls != 1 {
        t.Fatalf("expected one real visit, got %d", next.calls)
    }
    sc, ok := c.(ports.SurfaceCounter)
    if !ok || sc.Surfaces() != 3 {
        t.Fatalf("surfaces not forwarded")
    }
    if _, ok := c.(ports.SurfaceReserver); ok {
        t.Fatalf("cache must not reserve when the wrapped visitor cannot")
    }
}

func TestVisitCacheSkipsFailures(t *testing.T) {
    t.Parallel()

    store := &memStore{data: map[string][]byte{}}
    next := &countingVisitor{err: errors.New("navigation failed")}
    c := NewVisitCache(next, store, time.Hour, quiet())
    p := domain.ProfileID("https://x.com/in/b")

    if _, err := c.Visit(context.Background(), p); err == nil {
        t.Fatalf("expected error")
    }
    if len(store.data) != 0 {
        t.Fatalf("failed visits must not be cached")
    }
}

func TestVisitCacheStoreDown(t *testing.T) {
    t.Parallel()

    next := &countingVisitor{texts: []string{}}
    c := NewVisitCache(next, &memStore{data: map[string][]byte{}, fail: true}, time.Hour, quiet())

    texts, err := c.Visit(context.Background(), "https://x.com/in/c")
    if err != nil {
        t.Fatalf("store errors should fall through, got %v", err)
    }
    if texts == nil || len(texts) != 0 || next.calls != 1 {
        t.Fatalf("unexpected result %v calls=%d", texts, next.calls)
    }
}

type visitFunc func(ctx context.Context, p domain.ProfileID) ([]string, error)

func (f visitFunc) Visit(ctx context.Context, p domain.ProfileID) ([]string, error) { return f(ctx, p) }

func TestVisitCacheKeepsSurfaceContract(t *testing.T) {
    t.Parallel()

    plain := visitFunc(func(context.Context, domain.ProfileID) ([]string, error) { return []string{"1d"}, nil })
    c := NewVisitCache(plain, &memStore{data: map[string][]byte{}}, time.Hour, quiet())
    if _, ok := c.(ports.SurfaceCounter); ok {
        t.Fatalf("a visitor without surfaces must stay uncounted so scans are not forced sequential")
    }
}

type reservingVisitor struct {
    countingVisitor
    reserved int
    released int
}

func (r *reservingVisitor) Reserve(_ context.Context, n int) (ports.Visitor, func(), error) {
    r.reserved += n
    return &r.countingVisitor, func() { r.released += n }, nil
}

func TestVisitCacheForwardsReserve(t *testing.T) {
    t.Parallel()

    next := &reservingVisitor{countingVisitor: countingVisitor{texts: []string{"5m"}}}
    store := &memStore{data: map[string][]byte{}}
    c := NewVisitCache(next, store, time.Hour, quiet())

    r, ok := c.(ports.SurfaceReserver)
    if !ok || r.Surfaces() != 3 {
        t.Fatalf("reserver not forwarded")
    }
    scoped, release, err := r.Reserve(context.Background(), 2)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    p := domain.ProfileID("https://x.com/in/d")
    for i := 0; i < 2; i++ {
        if _, err := scoped.Visit(context.Background(), p); err != nil {
            t.Fatalf("unexpected error: %v", err)
        }
    }
    release()
    if next.calls != 1 || next.reserved != 2 || next.released != 2 {
        t.Fatalf("unexpected calls=%d reserved=%d released=%d", next.calls, next.reserved, next.released)
    }
    if _, ok := store.data[keyPrefix+p.String()]; !ok {
        t.Fatalf("scoped visits not cached")
    }
}
