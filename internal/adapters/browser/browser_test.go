package browser

import (
    "context"
    "errors"
    "io"
    "log/slog"
    "os"
    "path/filepath"
    "strings"
    "testing"
    "time"

    "linkpulse/internal/domain"
)

func TestLoadCookies(t *testing.T) {
    t.Parallel()

    path := filepath.Join(t.TempDir(), "cookie.json")
    jar := `[
        {"name": "li_at", "value": "token", "domain": ".linkedin.com", "path": "/", "secure": true, "httpOnly": true, "sameSite": "None"},
        {"name": "JSESSIONID", "value": "\"ajax:1\"", "domain": ".www.linkedin.com"},
        {"name": "", "value": "x", "domain": ".linkedin.com"}
    ]`
    if err := os.WriteFile(path, []byte(jar), 0o600); err != nil {
        t.Fatal(err)
    }

    cookies, err := LoadCookies(path)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if len(cookies) != 2 {
        t.Fatalf("expected 2 cookies, got %d", len(cookies))
    }
    if !cookies[0].Secure || !cookies[0].HTTPOnly {
        t.Fatalf("flags not parsed: %+v", cookies[0])
    }
    if cookies[1].Path != "/" {
        t.Fatalf("missing path should default to /, got %q", cookies[1].Path)
    }

    params := cookieParams(cookies)
    if len(params) != 2 || params[0].Name != "li_at" || params[0].Domain != ".linkedin.com" {
        t.Fatalf("unexpected params %+v", params)
    }
}

func TestLoadCookiesErrors(t *testing.T) {
    t.Parallel()

    if cookies, err := LoadCookies(""); err != nil || cookies != nil {
        t.Fatalf("empty path should be a no-op, got %v %v", cookies, err)
    }
    if _, err := LoadCookies(filepath.Join(t.TempDir(), "missing.json")); err == nil {
        t.Fatalf("expected error for missing file")
    }
    bad := filepath.Join(t.TempDir(), "bad.json")
    if err := os.WriteFile(bad, []byte("{"), 0o600); err != nil {
        t.Fatal(err)
    }
    if _, err := LoadCookies(bad); err == nil {
        t.Fatalf("expected parse error")
    }
}

func TestExtractScriptQuotesSelector(t *testing.T) {
    t.Parallel()

    script := extractScript(`span[aria-label="time"]`)
    if !strings.Contains(script, `"span[aria-label=\"time\"]"`) {
        t.Fatalf("selector not quoted: %s", script)
    }
}

func TestTabBindFollowsCaller(t *testing.T) {
    t.Parallel()

    tabCtx, tabCancel := context.WithCancel(context.Background())
    defer tabCancel()
    tab := &Tab{ctx: tabCtx, cancel: tabCancel}

    caller, cancelCaller := context.WithCancel(context.Background())
    runCtx, done := tab.bind(caller)
    defer done()

    cancelCaller()
    select {
    case <-runCtx.Done():
    case <-time.After(time.Second):
        t.Fatalf("run context not cancelled with the caller")
    }
    if tabCtx.Err() != nil {
        t.Fatalf("tab context must survive a cancelled visit")
    }
}

func TestTabBindCopiesDeadline(t *testing.T) {
    t.Parallel()

    tab := &Tab{ctx: context.Background(), cancel: func() {}}
    caller, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
    defer cancel()

    runCtx, done := tab.bind(caller)
    defer done()
    if _, ok := runCtx.Deadline(); !ok {
        t.Fatalf("expected deadline to be copied")
    }
    <-runCtx.Done()
    if !errors.Is(runCtx.Err(), context.DeadlineExceeded) && !errors.Is(runCtx.Err(), context.Canceled) {
        t.Fatalf("unexpected error %v", runCtx.Err())
    }
}

func TestPoolAcquireRelease(t *testing.T) {
    t.Parallel()

    p := testPool(1)
    if p.Size() != 1 {
        t.Fatalf("unexpected size %d", p.Size())
    }

    tab, err := p.Acquire(context.Background())
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
    defer cancel()
    if _, err := p.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
        t.Fatalf("expected acquire to wait for the only tab, got %v", err)
    }
    p.Release(tab)
    p.Release(tab)

    p.Close()
    if _, err := p.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
        t.Fatalf("expected ErrPoolClosed, got %v", err)
    }
}

func TestPoolReserve(t *testing.T) {
    t.Parallel()

    p := testPool(3)
    defer p.Close()

    r, err := p.Reserve(context.Background(), 2)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if r.Size() != 2 {
        t.Fatalf("unexpected reservation size %d", r.Size())
    }

    // One tab left outside the reservation.
    loose, err := p.Acquire(context.Background())
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
    defer cancel()
    if _, err := p.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
        t.Fatalf("reserved tabs must not be handed out by the pool, got %v", err)
    }

    a, err := r.Acquire(context.Background())
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    b, err := r.Acquire(context.Background())
    if err != nil || a == b {
        t.Fatalf("expected two distinct reserved tabs, got %v", err)
    }
    r.Release(a)
    r.Release(b)
    r.Close()
    p.Release(loose)

    all, err := p.Reserve(context.Background(), 3)
    if err != nil {
        t.Fatalf("tabs not returned on close: %v", err)
    }
    all.Close()

    if _, err := p.Reserve(context.Background(), 4); !errors.Is(err, domain.ErrResourceExhausted) {
        t.Fatalf("expected ErrResourceExhausted, got %v", err)
    }
}

func TestPoolReserveWaitsForWholeSet(t *testing.T) {
    t.Parallel()

    p := testPool(2)
    defer p.Close()

    first, err := p.Reserve(context.Background(), 2)
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    got := make(chan *Reservation, 1)
    go func() {
        r, err := p.Reserve(context.Background(), 2)
        if err != nil {
            close(got)
            return
        }
        got <- r
    }()
    select {
    case <-got:
        t.Fatalf("second reservation granted while the first holds every tab")
    case <-time.After(20 * time.Millisecond):
    }
    first.Close()
    select {
    case r, ok := <-got:
        if !ok {
            t.Fatalf("second reservation failed")
        }
        r.Close()
    case <-time.After(time.Second):
        t.Fatalf("second reservation not granted after release")
    }
}

func TestPoolCloseWakesReservation(t *testing.T) {
    t.Parallel()

    p := testPool(1)
    held, err := p.Acquire(context.Background())
    if err != nil {
        t.Fatal(err)
    }
    errCh := make(chan error, 1)
    go func() {
        _, err := p.Reserve(context.Background(), 1)
        errCh <- err
    }()
    time.Sleep(10 * time.Millisecond)
    p.Close()
    select {
    case err := <-errCh:
        if !errors.Is(err, ErrPoolClosed) {
            t.Fatalf("expected ErrPoolClosed, got %v", err)
        }
    case <-time.After(time.Second):
        t.Fatalf("reserve not woken by close")
    }
    p.Release(held)
}

func testPool(size int) *Pool {
    p := newTabPool(size, quiet())
    for i := 0; i < size; i++ {
        p.add(&Tab{id: i, ctx: context.Background(), cancel: func() {}})
    }
    return p
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
