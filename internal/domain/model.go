package domain

import "time"

// Core domain models used internally. HTTP shapes live in the http adapter;
// keep these decoupled where helpful.

type ScanStatus string

const (
    ScanQueued    ScanStatus = "queued"
    ScanRunning   ScanStatus = "running"
    ScanCompleted ScanStatus = "completed"
    ScanFailed    ScanStatus = "failed"
    ScanCancelled ScanStatus = "cancelled"
)

type Scan struct {
    ID          string
    Company     string
    Status      ScanStatus
    Progress    float64
    Concurrency int
    Total       int
    Active      int
    Inactive    int
    Failed      int
    CreatedAt   time.Time
    StartedAt   *time.Time
    FinishedAt  *time.Time
}

type OutcomeStatus string

const (
    OutcomeActive   OutcomeStatus = "active"
    OutcomeInactive OutcomeStatus = "inactive"
    OutcomeFailed   OutcomeStatus = "failed"
)

// Outcome is the verdict for one input profile. Index is the profile's
// position in the scanned sequence.
type Outcome struct {
    Index   int
    Profile ProfileID
    Status  OutcomeStatus
    Err     error
}

type VisitFailure struct {
    Profile ProfileID
    Reason  string
}

// ScanResult is what one scan invocation produces. Every input profile is
// either counted in Active/InactiveCount/FailedCount or listed in Pending.
type ScanResult struct {
    Active        []ProfileID
    InactiveCount int
    FailedCount   int
    Failures      []VisitFailure
    Pending       []ProfileID
    Complete      bool
}

// Accounted returns how many profiles have an outcome.
func (r ScanResult) Accounted() int {
    return len(r.Active) + r.InactiveCount + r.FailedCount
}

// ProfileActivity is the latest recorded verdict for a profile.
type ProfileActivity struct {
    Profile   ProfileID
    ScanID    string
    Company   string
    Status    OutcomeStatus
    Reason    string
    VisitedAt time.Time
}
