package httpadapter

import (
    "time"

    "linkpulse/internal/domain"
)

type scanRequest struct {
    Company     string   `json:"company"`
    Profiles    []string `json:"profiles"`
    Concurrency int      `json:"concurrency,omitempty"`
}

type scanAcceptedResponse struct {
    ScanID string `json:"scanId"`
}

type scanResponse struct {
    ID          string          `json:"id"`
    Company     string          `json:"company"`
    Status      string          `json:"status"`
    Progress    float64         `json:"progress"`
    Concurrency int             `json:"concurrency"`
    Total       int             `json:"total"`
    Active      int             `json:"active"`
    Inactive    int             `json:"inactive"`
    Failed      int             `json:"failed"`
    CreatedAt   time.Time       `json:"createdAt"`
    StartedAt   *time.Time      `json:"startedAt,omitempty"`
    FinishedAt  *time.Time      `json:"finishedAt,omitempty"`
    Result      *resultResponse `json:"result,omitempty"`
}

type failureResponse struct {
    Profile string `json:"profile"`
    Reason  string `json:"reason"`
}

// resultResponse keeps the activeProfiles key of the exported result files.
type resultResponse struct {
    ActiveProfiles []string          `json:"activeProfiles"`
    InactiveCount  int               `json:"inactiveCount"`
    FailedCount    int               `json:"failedCount"`
    Failures       []failureResponse `json:"failures,omitempty"`
    Pending        []string          `json:"pending,omitempty"`
    Complete       bool              `json:"complete"`
}

type profileActivityResponse struct {
    Profile   string    `json:"profile"`
    Status    string    `json:"status"`
    Reason    string    `json:"reason,omitempty"`
    ScanID    string    `json:"scanId"`
    Company   string    `json:"company"`
    VisitedAt time.Time `json:"visitedAt"`
}

type errorResponse struct {
    Code    string `json:"code"`
    Message string `json:"message"`
}

func toScanResponse(s domain.Scan) scanResponse {
    return scanResponse{
        ID:          s.ID,
        Company:     s.Company,
        Status:      string(s.Status),
        Progress:    s.Progress,
        Concurrency: s.Concurrency,
        Total:       s.Total,
        Active:      s.Active,
        Inactive:    s.Inactive,
        Failed:      s.Failed,
        CreatedAt:   s.CreatedAt,
        StartedAt:   s.StartedAt,
        FinishedAt:  s.FinishedAt,
    }
}

func toResultResponse(r domain.ScanResult) resultResponse {
    out := resultResponse{
        ActiveProfiles: make([]string, 0, len(r.Active)),
        InactiveCount:  r.InactiveCount,
        FailedCount:    r.FailedCount,
        Complete:       r.Complete,
    }
    for _, p := range r.Active {
        out.ActiveProfiles = append(out.ActiveProfiles, p.String())
    }
    for _, f := range r.Failures {
        out.Failures = append(out.Failures, failureResponse{Profile: f.Profile.String(), Reason: f.Reason})
    }
    for _, p := range r.Pending {
        out.Pending = append(out.Pending, p.String())
    }
    return out
}
