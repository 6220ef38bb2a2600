// Package scanner runs profile visits under a fixed concurrency cap and turns
// them into a ScanResult.
package scanner

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "sync"
    "time"

    "golang.org/x/time/rate"

    "linkpulse/internal/domain"
    "linkpulse/internal/ports"
)

type Options struct {
    // Concurrency caps in-flight visits. Zero means 1.
    Concurrency int
    // VisitTimeout bounds one visit. Zero leaves it to the visitor.
    VisitTimeout time.Duration
    // Limiter optionally paces visit starts.
    Limiter *rate.Limiter
    // PreserveOrder sorts Active by input position.
    PreserveOrder bool
    // OnOutcome is called once per outcome from the collecting goroutine.
    OnOutcome func(domain.Outcome)
}

type Scanner struct {
    visitor    ports.Visitor
    classifier ports.Classifier
    logger     *slog.Logger
}

func New(visitor ports.Visitor, classifier ports.Classifier, logger *slog.Logger) *Scanner {
    if logger == nil {
        logger = slog.Default()
    }
    return &Scanner{visitor: visitor, classifier: classifier, logger: logger}
}

// signalReporter is implemented by classifiers that can name the texts that
// made a profile active.
type signalReporter interface {
    Hits(texts []string) []string
}

type job struct {
    index   int
    profile domain.ProfileID
}

type visitResult struct {
    outcome   domain.Outcome
    abandoned bool
}

// Scan visits every profile and classifies it. Visit failures become Failed
// outcomes and never stop the scan. When ctx is cancelled mid-scan the
// outcomes resolved so far are returned with Complete=false and the rest of
// the profiles listed in Pending; the error is nil in that case.
func (s *Scanner) Scan(ctx context.Context, profiles []domain.ProfileID, opts Options) (domain.ScanResult, error) {
    workers, err := s.workerCount(opts.Concurrency)
    if err != nil {
        return domain.ScanResult{}, err
    }
    if len(profiles) == 0 {
        return domain.ScanResult{Complete: true}, nil
    }
    if workers > len(profiles) {
        workers = len(profiles)
    }

    started := time.Now()
    s.logger.Info("scan started", "profiles", len(profiles), "concurrency", workers)

    // Shared surfaces are held for the whole scan so a visit's timeout never
    // runs while it waits for another scan's tab.
    visitor := s.visitor
    if r, ok := s.visitor.(ports.SurfaceReserver); ok {
        scoped, release, err := r.Reserve(ctx, workers)
        if err != nil {
            if ctx.Err() != nil {
                s.logger.Info("scan cancelled while waiting for surfaces", "pending", len(profiles))
                return domain.ScanResult{Pending: append([]domain.ProfileID(nil), profiles...)}, nil
            }
            return domain.ScanResult{}, err
        }
        defer release()
        visitor = scoped
    }

    jobs := make(chan job, workers)
    results := make(chan visitResult, workers)

    var wg sync.WaitGroup
    wg.Add(workers)
    for i := 0; i < workers; i++ {
        go func() {
            defer wg.Done()
            s.workerLoop(ctx, visitor, opts, jobs, results)
        }()
    }
    go func() {
        wg.Wait()
        close(results)
    }()
    go feedJobs(ctx, profiles, jobs)

    outcomes := make([]domain.Outcome, 0, len(profiles))
    resolved := make([]bool, len(profiles))
    for res := range results {
        if res.abandoned {
            continue
        }
        resolved[res.outcome.Index] = true
        outcomes = append(outcomes, res.outcome)
        if opts.OnOutcome != nil {
            opts.OnOutcome(res.outcome)
        }
    }

    result := Collect(outcomes, opts.PreserveOrder)
    result.Complete = result.Accounted() == len(profiles)
    if !result.Complete {
        for i, ok := range resolved {
            if !ok {
                result.Pending = append(result.Pending, profiles[i])
            }
        }
    }

    s.logger.Info("scan finished",
        "active", len(result.Active),
        "inactive", result.InactiveCount,
        "failed", result.FailedCount,
        "pending", len(result.Pending),
        "complete", result.Complete,
        "elapsed", time.Since(started).String(),
    )
    return result, nil
}

func (s *Scanner) workerCount(concurrency int) (int, error) {
    if concurrency < 0 {
        return 0, fmt.Errorf("%w: got %d", domain.ErrInvalidConcurrency, concurrency)
    }
    if concurrency == 0 {
        concurrency = 1
    }
    // Concurrent navigations on one surface corrupt each other.
    if sc, ok := s.visitor.(ports.SurfaceCounter); ok && sc.Surfaces() < concurrency {
        return 0, fmt.Errorf("%w: concurrency %d, surfaces %d", domain.ErrResourceExhausted, concurrency, sc.Surfaces())
    }
    return concurrency, nil
}

func feedJobs(ctx context.Context, profiles []domain.ProfileID, jobs chan<- job) {
    defer close(jobs)
    for i, p := range profiles {
        select {
        case <-ctx.Done():
            return
        case jobs <- job{index: i, profile: p}:
        }
    }
}

func (s *Scanner) workerLoop(ctx context.Context, visitor ports.Visitor, opts Options, jobs <-chan job, results chan<- visitResult) {
    for j := range jobs {
        if ctx.Err() != nil {
            return
        }
        if opts.Limiter != nil {
            if err := opts.Limiter.Wait(ctx); err != nil {
                if ctx.Err() != nil {
                    return
                }
                // The wait would overrun the caller's deadline.
                results <- visitResult{outcome: domain.Outcome{
                    Index: j.index, Profile: j.profile, Status: domain.OutcomeFailed, Err: err,
                }}
                continue
            }
        }
        // results is drained until it is closed, so this send never blocks forever.
        results <- s.visit(ctx, visitor, opts.VisitTimeout, j)
    }
}

func (s *Scanner) visit(ctx context.Context, visitor ports.Visitor, timeout time.Duration, j job) visitResult {
    visitCtx := ctx
    cancel := func() {}
    if timeout > 0 {
        visitCtx, cancel = context.WithTimeout(ctx, timeout)
    }
    texts, err := visitor.Visit(visitCtx, j.profile)
    cancel()

    out := domain.Outcome{Index: j.index, Profile: j.profile}
    switch {
    case err != nil && ctx.Err() != nil:
        // Cancelled by the caller: the visit is abandoned, not failed.
        s.logger.Debug("visit abandoned", "profile", j.profile, "error", err)
        return visitResult{outcome: out, abandoned: true}
    case err != nil:
        if errors.Is(err, context.DeadlineExceeded) && timeout > 0 {
            err = fmt.Errorf("%w after %s: %w", domain.ErrVisitTimeout, timeout, err)
        }
        out.Status = domain.OutcomeFailed
        out.Err = err
        s.logger.Warn("visit failed", "profile", j.profile, "error", err)
    case s.classifier.Classify(texts):
        out.Status = domain.OutcomeActive
        if r, ok := s.classifier.(signalReporter); ok {
            s.logger.Debug("profile active", "profile", j.profile, "signals", len(texts), "hits", r.Hits(texts))
        } else {
            s.logger.Debug("profile active", "profile", j.profile, "signals", len(texts))
        }
    default:
        out.Status = domain.OutcomeInactive
        s.logger.Debug("profile inactive", "profile", j.profile, "signals", len(texts))
    }
    return visitResult{outcome: out}
}
