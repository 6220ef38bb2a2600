package browser

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/chromedp/chromedp"

    "linkpulse/internal/domain"
    "linkpulse/internal/ports"
)

const (
    DefaultActivityPath = "/recent-activity"
    // DefaultTimestampSelector points at the hidden relative-time label of
    // each feed entry on the activity view.
    DefaultTimestampSelector = "div.feed-shared-update-v2 span.update-components-actor__sub-description span.visually-hidden"
)

// tabSource hands out tabs: the whole pool or one reservation of it.
type tabSource interface {
    Acquire(ctx context.Context) (*Tab, error)
    Release(t *Tab)
    Size() int
}

// Visitor loads activity views on pooled tabs.
type Visitor struct {
    pool         *Pool
    tabs         tabSource
    activityPath string
    script       string
    settle       time.Duration
}

// NewVisitor returns a visitor that opens profile+activityPath and collects
// the text of every node matching selector. settle is an extra wait after
// the body is ready so client-rendered entries can appear.
func NewVisitor(pool *Pool, activityPath, selector string, settle time.Duration) *Visitor {
    if activityPath == "" {
        activityPath = DefaultActivityPath
    }
    if selector == "" {
        selector = DefaultTimestampSelector
    }
    return &Visitor{pool: pool, tabs: pool, activityPath: activityPath, script: extractScript(selector), settle: settle}
}

func (v *Visitor) Surfaces() int { return v.tabs.Size() }

// Reserve holds n tabs of the pool and returns a visitor that only uses
// those. Visits through it never wait on other scans.
func (v *Visitor) Reserve(ctx context.Context, n int) (ports.Visitor, func(), error) {
    r, err := v.pool.Reserve(ctx, n)
    if err != nil {
        return nil, nil, err
    }
    scoped := *v
    scoped.tabs = r
    return &scoped, r.Close, nil
}

func (v *Visitor) Visit(ctx context.Context, profile domain.ProfileID) ([]string, error) {
    tab, err := v.tabs.Acquire(ctx)
    if err != nil {
        return nil, err
    }
    defer v.tabs.Release(tab)

    runCtx, cancel := tab.bind(ctx)
    defer cancel()

    actions := []chromedp.Action{
        chromedp.Navigate(profile.ActivityURL(v.activityPath)),
        chromedp.WaitReady("body", chromedp.ByQuery),
    }
    if v.settle > 0 {
        actions = append(actions, chromedp.Sleep(v.settle))
    }
    var texts []string
    actions = append(actions, chromedp.Evaluate(v.script, &texts))

    if err := chromedp.Run(runCtx, actions...); err != nil {
        return nil, fmt.Errorf("%w: %s: %w", domain.ErrVisitFailed, profile, err)
    }
    if texts == nil {
        texts = []string{}
    }
    return texts, nil
}

func extractScript(selector string) string {
    quoted, _ := json.Marshal(selector)
    return fmt.Sprintf(
        `Array.from(document.querySelectorAll(%s), n => (n.textContent || "").trim()).filter(t => t.length > 0)`,
        quoted,
    )
}
