package ports

import "context"

type ScanJob struct {
    ID     string
    ScanID string
}

// JobRepository supports claiming and updating scan jobs.
type JobRepository interface {
    ClaimNext(ctx context.Context) (job ScanJob, found bool, err error)
    UpdateScanProgress(ctx context.Context, scanID string, progress float64) error
    MarkCompleted(ctx context.Context, jobID string) error
    MarkCancelled(ctx context.Context, jobID string) error
    MarkFailed(ctx context.Context, jobID string, reason string) error
    // StartJobForScan claims the scan's queued job, or opens a running one
    // for a scan stored without a job. ErrNotFound means neither applies.
    StartJobForScan(ctx context.Context, scanID string) (jobID string, err error)
}
