package cache

import (
    "context"
    "encoding/json"
    "log/slog"
    "time"

    "linkpulse/internal/domain"
    "linkpulse/internal/ports"
)

const keyPrefix = "linkpulse:visit:"

// Store is the key/value surface the visit cache needs.
type Store interface {
    Get(ctx context.Context, key string) ([]byte, bool, error)
    Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// VisitCache remembers the timestamp texts of successful visits for a TTL so
// repeated scans of the same company skip recently loaded profiles. Failed
// visits are never cached. Cache errors fall through to the real visitor.
type VisitCache struct {
    next   ports.Visitor
    store  Store
    ttl    time.Duration
    logger *slog.Logger
}

// NewVisitCache wraps next. The result also counts or reserves surfaces when
// next does, and only then.
func NewVisitCache(next ports.Visitor, store Store, ttl time.Duration, logger *slog.Logger) ports.Visitor {
    if logger == nil {
        logger = slog.Default()
    }
    c := &VisitCache{next: next, store: store, ttl: ttl, logger: logger}
    switch inner := next.(type) {
    case ports.SurfaceReserver:
        return &reservingCache{VisitCache: c, inner: inner}
    case ports.SurfaceCounter:
        return &countingCache{VisitCache: c, inner: inner}
    }
    return c
}

func (c *VisitCache) Visit(ctx context.Context, profile domain.ProfileID) ([]string, error) {
    key := keyPrefix + profile.String()
    raw, ok, err := c.store.Get(ctx, key)
    if err != nil {
        c.logger.Warn("visit cache read failed", "profile", profile, "error", err)
    }
    if ok {
        var texts []string
        if err := json.Unmarshal(raw, &texts); err == nil {
            return texts, nil
        }
    }

    texts, err := c.next.Visit(ctx, profile)
    if err != nil {
        return nil, err
    }
    if raw, err := json.Marshal(texts); err == nil {
        if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
            c.logger.Warn("visit cache write failed", "profile", profile, "error", err)
        }
    }
    return texts, nil
}

type countingCache struct {
    *VisitCache
    inner ports.SurfaceCounter
}

func (c *countingCache) Surfaces() int { return c.inner.Surfaces() }

type reservingCache struct {
    *VisitCache
    inner ports.SurfaceReserver
}

func (c *reservingCache) Surfaces() int { return c.inner.Surfaces() }

// Reserve holds surfaces of the wrapped visitor; cache hits through the
// scoped visitor still skip them.
func (c *reservingCache) Reserve(ctx context.Context, n int) (ports.Visitor, func(), error) {
    scoped, release, err := c.inner.Reserve(ctx, n)
    if err != nil {
        return nil, nil, err
    }
    return &VisitCache{next: scoped, store: c.store, ttl: c.ttl, logger: c.logger}, release, nil
}
