package scanrunner

import (
    "context"
    "errors"
    "log/slog"
    "sync"
    "time"

    "linkpulse/internal/domain"
    "linkpulse/internal/ports"
    "linkpulse/internal/services/scanner"
)

// ErrIncomplete is returned by Process when the scan was cancelled before
// every profile had an outcome.
var ErrIncomplete = errors.New("scan incomplete")

// ScanProcessor performs the scan work for a job's scan id.
type ScanProcessor interface {
    Process(ctx context.Context, scanID string) error
}

// Processor runs the activity pipeline over a stored scan and records each
// outcome as soon as it resolves.
type Processor struct {
    Scans    ports.ScanRepository
    Outcomes ports.OutcomeRepository
    Jobs     ports.JobRepository
    Scanner  *scanner.Scanner
    // Options carries timeout, limiter and ordering; Concurrency and
    // OnOutcome are set per scan.
    Options scanner.Options
    Logger  *slog.Logger
}

func (p Processor) logger() *slog.Logger {
    if p.Logger == nil {
        return slog.Default()
    }
    return p.Logger
}

func (p Processor) Process(ctx context.Context, scanID string) error {
    scan, err := p.Scans.Get(ctx, scanID)
    if err != nil { return err }
    profiles, err := p.Scans.Profiles(ctx, scanID)
    if err != nil { return err }

    log := p.logger().With("scan", scanID, "company", scan.Company)
    // Outcomes that resolved before a cancellation are still written.
    store := context.WithoutCancel(ctx)
    total := len(profiles)
    done := 0

    opts := p.Options
    opts.Concurrency = scan.Concurrency
    opts.OnOutcome = func(o domain.Outcome) {
        done++
        if err := p.Outcomes.SaveOutcome(store, scanID, o); err != nil {
            log.Error("save outcome failed", "profile", o.Profile, "error", err)
        }
        if err := p.Jobs.UpdateScanProgress(store, scanID, float64(done)/float64(total)); err != nil {
            log.Warn("progress update failed", "error", err)
        }
    }

    res, err := p.Scanner.Scan(ctx, profiles, opts)
    if err != nil { return err }
    if err := p.Outcomes.SaveSummary(store, scanID, res); err != nil {
        return err
    }
    if !res.Complete {
        log.Warn("scan cancelled", "pending", len(res.Pending))
        return ErrIncomplete
    }
    return nil
}

// Run claims jobs and processes them on concurrency workers until ctx is
// cancelled. It returns only after every worker has stopped, so jobs cut
// short by the cancellation have been marked by then.
func Run(ctx context.Context, repo ports.JobRepository, processor ScanProcessor, concurrency int, pollInterval time.Duration, logger *slog.Logger) {
    if concurrency < 1 { return }
    if logger == nil { logger = slog.Default() }
    jobsCh := make(chan ports.ScanJob, concurrency)

    // dispatcher loop
    go func() {
        defer close(jobsCh)
        ticker := time.NewTicker(pollInterval)
        defer ticker.Stop()
        for {
            select {
            case <-ctx.Done():
                return
            case <-ticker.C:
                for {
                    job, found, err := repo.ClaimNext(ctx)
                    if err != nil {
                        if ctx.Err() == nil {
                            logger.Error("job claim failed", "error", err)
                        }
                        break
                    }
                    if !found { break }
                    select {
                    case jobsCh <- job:
                    case <-ctx.Done():
                        // Claimed but never started.
                        _ = repo.MarkCancelled(ctx, job.ID)
                        return
                    }
                }
            }
        }
    }()

    // workers; they exit once the dispatcher closes jobsCh
    var wg sync.WaitGroup
    wg.Add(concurrency)
    for i := 0; i < concurrency; i++ {
        go func(idx int) {
            defer wg.Done()
            for job := range jobsCh {
                finish(ctx, repo, processor, job, logger.With("worker", idx))
            }
        }(i)
    }
    wg.Wait()
    logger.Info("scan workers stopped")
}

func finish(ctx context.Context, repo ports.JobRepository, processor ScanProcessor, job ports.ScanJob, logger *slog.Logger) {
    err := processor.Process(ctx, job.ScanID)
    switch {
    case err == nil:
        if err := repo.MarkCompleted(ctx, job.ID); err != nil {
            logger.Error("complete failed", "job", job.ID, "error", err)
            return
        }
        logger.Info("job completed", "job", job.ID, "scan", job.ScanID)
    case errors.Is(err, ErrIncomplete) || ctx.Err() != nil:
        if err := repo.MarkCancelled(ctx, job.ID); err != nil {
            logger.Error("cancel failed", "job", job.ID, "error", err)
        }
    default:
        _ = repo.MarkFailed(ctx, job.ID, err.Error())
        logger.Error("job failed", "job", job.ID, "error", err)
    }
}

// ProcessInline starts and processes a specific scan synchronously using the same processor logic
// as the background workers. It marks the job as running, calls processor.Process, and completes or fails.
func ProcessInline(ctx context.Context, repo ports.JobRepository, processor ScanProcessor, scanID string) error {
    jobID, err := repo.StartJobForScan(ctx, scanID)
    if err != nil { return err }
    err = processor.Process(ctx, scanID)
    switch {
    case err == nil:
        return repo.MarkCompleted(ctx, jobID)
    case errors.Is(err, ErrIncomplete) || ctx.Err() != nil:
        if markErr := repo.MarkCancelled(ctx, jobID); markErr != nil {
            return markErr
        }
        return err
    default:
        _ = repo.MarkFailed(ctx, jobID, err.Error())
        return err
    }
}
