// Command scan checks a file of profile links once and writes the active
// ones to a JSON file.
package main

import (
    "bufio"
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "io"
    "log/slog"
    "os"
    "os/signal"
    "path/filepath"
    "strings"
    "syscall"
    "time"

    "golang.org/x/time/rate"

    "linkpulse/internal/adapters/browser"
    "linkpulse/internal/domain"
    "linkpulse/internal/services/activity"
    "linkpulse/internal/services/scanner"
)

type options struct {
    profiles    string
    company     string
    out         string
    cookies     string
    selector    string
    units       string
    concurrency int
    timeout     time.Duration
    settle      time.Duration
    rate        float64
    headless    bool
    ordered     bool
}

type output struct {
    ActiveProfiles []string `json:"activeProfiles"`
    InactiveCount  int      `json:"inactiveCount"`
    FailedCount    int      `json:"failedCount"`
    Pending        []string `json:"pending,omitempty"`
    Complete       bool     `json:"complete"`
}

func main() {
    var opts options
    flag.StringVar(&opts.profiles, "profiles", "", "file with one profile link per line")
    flag.StringVar(&opts.company, "company", "company", "company handle used in the output file name")
    flag.StringVar(&opts.out, "out", "", "output file (default output/<company><unixms>.json)")
    flag.StringVar(&opts.cookies, "cookies", "", "session cookie jar (JSON)")
    flag.StringVar(&opts.selector, "selector", browser.DefaultTimestampSelector, "CSS selector of activity timestamps")
    flag.StringVar(&opts.units, "units", activity.DefaultUnits, "relative-time units that count as recent")
    flag.IntVar(&opts.concurrency, "concurrency", 1, "profiles visited at once (one tab each)")
    flag.DurationVar(&opts.timeout, "timeout", 0, "per-visit timeout (0 = none)")
    flag.DurationVar(&opts.settle, "settle", 2*time.Second, "wait after page load before reading timestamps")
    flag.Float64Var(&opts.rate, "rate", 0, "max visits per second (0 = unlimited)")
    flag.BoolVar(&opts.headless, "headless", true, "run the browser headless")
    flag.BoolVar(&opts.ordered, "ordered", true, "keep active profiles in input order")
    flag.Parse()

    logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
    if err := run(opts, logger); err != nil {
        logger.Error("scan failed", "error", err)
        os.Exit(1)
    }
}

func run(opts options, logger *slog.Logger) error {
    if opts.profiles == "" {
        return fmt.Errorf("-profiles is required")
    }
    f, err := os.Open(opts.profiles)
    if err != nil {
        return err
    }
    ids, err := readProfiles(f)
    f.Close()
    if err != nil {
        return err
    }

    cookies, err := browser.LoadCookies(opts.cookies)
    if err != nil {
        return err
    }
    // The scanner rejects a negative -concurrency; the pool still needs a tab.
    pool, err := browser.NewPool(browser.Options{
        Size:      max(opts.concurrency, 1),
        Headless:  opts.headless,
        NoSandbox: os.Getenv("CHROMEDP_NO_SANDBOX") == "true",
        Cookies:   cookies,
    }, logger)
    if err != nil {
        return err
    }
    defer pool.Close()

    parser := activity.NewParser(opts.units)
    logger.Info("scanning", "profiles", len(ids), "concurrency", opts.concurrency, "recency_units", parser.Units())
    s := scanner.New(browser.NewVisitor(pool, browser.DefaultActivityPath, opts.selector, opts.settle), parser, logger)

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()
    res, err := s.Scan(ctx, ids, scanOptions(opts))
    if err != nil {
        return err
    }

    path := opts.out
    if path == "" {
        path = outputPath("output", opts.company, time.Now())
    }
    if err := writeOutput(path, res); err != nil {
        return err
    }
    logger.Info("results saved", "file", path, "active", len(res.Active), "complete", res.Complete)
    return nil
}

func scanOptions(opts options) scanner.Options {
    so := scanner.Options{Concurrency: opts.concurrency, VisitTimeout: opts.timeout, PreserveOrder: opts.ordered}
    if opts.rate > 0 {
        so.Limiter = rate.NewLimiter(rate.Limit(opts.rate), 1)
    }
    return so
}

// readProfiles parses one link per line; blank lines and # comments are skipped.
func readProfiles(r io.Reader) ([]domain.ProfileID, error) {
    var raws []string
    sc := bufio.NewScanner(r)
    for sc.Scan() {
        line := strings.TrimSpace(sc.Text())
        if line == "" || strings.HasPrefix(line, "#") {
            continue
        }
        raws = append(raws, line)
    }
    if err := sc.Err(); err != nil {
        return nil, err
    }
    return domain.ParseProfileIDs(raws)
}

func outputPath(dir, company string, now time.Time) string {
    return filepath.Join(dir, fmt.Sprintf("%s%d.json", company, now.UnixMilli()))
}

func toOutput(res domain.ScanResult) output {
    out := output{
        ActiveProfiles: make([]string, 0, len(res.Active)),
        InactiveCount:  res.InactiveCount,
        FailedCount:    res.FailedCount,
        Complete:       res.Complete,
    }
    for _, p := range res.Active {
        out.ActiveProfiles = append(out.ActiveProfiles, p.String())
    }
    for _, p := range res.Pending {
        out.Pending = append(out.Pending, p.String())
    }
    return out
}

func writeOutput(path string, res domain.ScanResult) error {
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return err
    }
    raw, err := json.MarshalIndent(toOutput(res), "", "\t")
    if err != nil {
        return err
    }
    return os.WriteFile(path, raw, 0o644)
}
