package ports

import (
    "context"

    "linkpulse/internal/domain"
)

// ScanRepository manages scan records and the profiles queued with them.
// Create queues a job for the workers only when queue is true.
type ScanRepository interface {
    Create(ctx context.Context, company string, profiles []domain.ProfileID, concurrency int, queue bool) (scanID string, err error)
    Get(ctx context.Context, scanID string) (domain.Scan, error)
    Profiles(ctx context.Context, scanID string) ([]domain.ProfileID, error)
    Result(ctx context.Context, scanID string) (domain.ScanResult, error)
}

// OutcomeRepository records per-profile outcomes as a scan progresses.
type OutcomeRepository interface {
    SaveOutcome(ctx context.Context, scanID string, outcome domain.Outcome) error
    SaveSummary(ctx context.Context, scanID string, result domain.ScanResult) error
}

// ActivityRepository provides the latest verdict per profile.
type ActivityRepository interface {
    LatestActivity(ctx context.Context, profile domain.ProfileID) (domain.ProfileActivity, bool, error)
}
