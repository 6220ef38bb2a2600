package browser

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "sync"
    "sync/atomic"

    "github.com/chromedp/chromedp"
    "golang.org/x/sync/semaphore"

    "linkpulse/internal/domain"
)

var ErrPoolClosed = errors.New("browser pool closed")

type Options struct {
    // Size is the number of tabs provisioned; it caps concurrent visits.
    Size      int
    Headless  bool
    NoSandbox bool
    Cookies   []Cookie
}

// Pool owns one browser and a fixed set of tabs. Each tab loads one page at a
// time, so a tab is handed to exactly one visit between Acquire and Release.
// Every tab outside the pool holds one unit of slots, whether taken by
// Acquire or by a Reservation.
type Pool struct {
    allocCancel   context.CancelFunc
    browserCancel context.CancelFunc
    tabs          []*Tab
    available     chan *Tab
    slots         *semaphore.Weighted
    closed        context.Context
    shutdown      context.CancelFunc
    closeOnce     sync.Once
    logger        *slog.Logger
}

type Tab struct {
    id     int
    ctx    context.Context
    cancel context.CancelFunc
    held   atomic.Bool
}

func newTabPool(size int, logger *slog.Logger) *Pool {
    closed, closeFn := context.WithCancel(context.Background())
    return &Pool{
        allocCancel:   func() {},
        browserCancel: func() {},
        available:     make(chan *Tab, size),
        slots:         semaphore.NewWeighted(int64(size)),
        closed:        closed,
        shutdown:      closeFn,
        logger:        logger,
    }
}

func NewPool(opts Options, logger *slog.Logger) (*Pool, error) {
    if logger == nil {
        logger = slog.Default()
    }
    size := opts.Size
    if size < 1 {
        size = 1
    }

    allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
        chromedp.Flag("headless", opts.Headless),
        chromedp.Flag("disable-gpu", true),
        chromedp.Flag("disable-dev-shm-usage", true),
        chromedp.Flag("disable-extensions", true),
        chromedp.Flag("no-first-run", true),
    )
    if opts.NoSandbox {
        allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
    }
    allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

    // The first context starts the browser and owns its first tab.
    browserCtx, browserCancel := chromedp.NewContext(allocCtx)
    if err := chromedp.Run(browserCtx, setCookies(opts.Cookies)); err != nil {
        browserCancel()
        allocCancel()
        return nil, fmt.Errorf("start browser: %w", err)
    }

    p := newTabPool(size, logger)
    p.allocCancel, p.browserCancel = allocCancel, browserCancel
    p.add(&Tab{id: 0, ctx: browserCtx, cancel: browserCancel})
    for i := 1; i < size; i++ {
        tabCtx, tabCancel := chromedp.NewContext(browserCtx)
        if err := chromedp.Run(tabCtx); err != nil {
            tabCancel()
            p.Close()
            return nil, fmt.Errorf("open tab %d: %w", i, err)
        }
        p.add(&Tab{id: i, ctx: tabCtx, cancel: tabCancel})
    }
    logger.Info("browser pool ready", "tabs", size, "headless", opts.Headless, "cookies", len(opts.Cookies))
    return p, nil
}

func (p *Pool) add(t *Tab) {
    p.tabs = append(p.tabs, t)
    p.available <- t
}

// Size returns the number of provisioned tabs.
func (p *Pool) Size() int { return len(p.tabs) }

// Acquire blocks until a tab is free, ctx is done or the pool is closed.
func (p *Pool) Acquire(ctx context.Context) (*Tab, error) {
    if err := p.acquireSlots(ctx, 1); err != nil {
        return nil, err
    }
    t := <-p.available
    t.held.Store(true)
    return t, nil
}

func (p *Pool) Release(t *Tab) {
    if t == nil || !t.held.CompareAndSwap(true, false) {
        p.logger.Warn("tab released twice")
        return
    }
    // The tab goes back before its slot so a new holder always finds one.
    p.available <- t
    p.slots.Release(1)
}

// Reserve takes n tabs out of the pool for one caller until the reservation
// is closed. It waits for all n at once, so two callers reserving part of the
// pool each never hold a share the other needs.
func (p *Pool) Reserve(ctx context.Context, n int) (*Reservation, error) {
    if n < 1 {
        n = 1
    }
    if err := p.acquireSlots(ctx, n); err != nil {
        return nil, err
    }
    r := &Reservation{pool: p, tabs: make(chan *Tab, n), size: n}
    for i := 0; i < n; i++ {
        r.tabs <- <-p.available
    }
    return r, nil
}

func (p *Pool) acquireSlots(ctx context.Context, n int) error {
    if p.closed.Err() != nil {
        return ErrPoolClosed
    }
    if n > p.Size() {
        return fmt.Errorf("%w: want %d tabs, pool has %d", domain.ErrResourceExhausted, n, p.Size())
    }
    waitCtx, cancel := context.WithCancel(ctx)
    defer cancel()
    stop := context.AfterFunc(p.closed, cancel)
    defer stop()
    if err := p.slots.Acquire(waitCtx, int64(n)); err != nil {
        if p.closed.Err() != nil {
            return ErrPoolClosed
        }
        return ctx.Err()
    }
    return nil
}

func (p *Pool) Close() {
    p.closeOnce.Do(func() {
        p.shutdown()
        for i := len(p.tabs) - 1; i >= 0; i-- {
            p.tabs[i].cancel()
        }
        p.browserCancel()
        p.allocCancel()
        p.logger.Info("browser pool shut down")
    })
}

// bind derives a context for running actions on the tab that also ends when
// ctx does. Cancelling it stops the actions but leaves the tab open.
func (t *Tab) bind(ctx context.Context) (context.Context, context.CancelFunc) {
    runCtx, cancel := context.WithCancel(t.ctx)
    stop := context.AfterFunc(ctx, cancel)
    if dl, ok := ctx.Deadline(); ok {
        var cancelDeadline context.CancelFunc
        runCtx, cancelDeadline = context.WithDeadline(runCtx, dl)
        return runCtx, func() {
            stop()
            cancelDeadline()
            cancel()
        }
    }
    return runCtx, func() {
        stop()
        cancel()
    }
}

// Reservation is a fixed set of tabs held by one caller. Its tabs are handed
// out and returned like the pool's until Close gives them all back.
type Reservation struct {
    pool      *Pool
    tabs      chan *Tab
    size      int
    closeOnce sync.Once
}

func (r *Reservation) Size() int { return r.size }

func (r *Reservation) Acquire(ctx context.Context) (*Tab, error) {
    if r.pool.closed.Err() != nil {
        return nil, ErrPoolClosed
    }
    select {
    case t := <-r.tabs:
        t.held.Store(true)
        return t, nil
    case <-ctx.Done():
        return nil, ctx.Err()
    case <-r.pool.closed.Done():
        return nil, ErrPoolClosed
    }
}

func (r *Reservation) Release(t *Tab) {
    if t == nil || !t.held.CompareAndSwap(true, false) {
        r.pool.logger.Warn("tab released twice")
        return
    }
    r.tabs <- t
}

// Close returns the reserved tabs to the pool. Tabs still acquired are lost
// to the pool along with their slots.
func (r *Reservation) Close() {
    r.closeOnce.Do(func() {
        returned := 0
        for i := 0; i < r.size; i++ {
            select {
            case t := <-r.tabs:
                r.pool.available <- t
                returned++
            default:
            }
        }
        if returned < r.size {
            r.pool.logger.Warn("reservation closed with tabs in use", "missing", r.size-returned)
        }
        r.pool.slots.Release(int64(returned))
    })
}
