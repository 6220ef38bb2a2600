package ports

import (
    "context"

    "linkpulse/internal/domain"
)

// ScanRequest is a company scan as submitted by a caller.
type ScanRequest struct {
    Company     string
    Profiles    []string
    Concurrency int
    // Inline scans are run by the caller and are stored without a queued job.
    Inline bool
}

// Scans enqueues and tracks company scans.
type Scans interface {
    Enqueue(ctx context.Context, req ScanRequest) (scanID string, err error)
    Status(ctx context.Context, scanID string) (domain.Scan, error)
    Result(ctx context.Context, scanID string) (domain.ScanResult, error)
}

// Profiles provides the latest recorded verdict per profile.
type Profiles interface {
    GetLatest(ctx context.Context, profile string) (domain.ProfileActivity, error)
}
