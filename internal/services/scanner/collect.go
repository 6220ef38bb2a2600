package scanner

import (
    "sort"

    "linkpulse/internal/domain"
)

// Collect aggregates outcomes into a ScanResult. Failed outcomes are data:
// they are counted and listed, never turned into an error. With
// preserveOrder the active profiles follow input order; otherwise they keep
// the order the outcomes arrived in.
func Collect(outcomes []domain.Outcome, preserveOrder bool) domain.ScanResult {
    if preserveOrder {
        sorted := make([]domain.Outcome, len(outcomes))
        copy(sorted, outcomes)
        sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
        outcomes = sorted
    }

    var res domain.ScanResult
    for _, o := range outcomes {
        switch o.Status {
        case domain.OutcomeActive:
            res.Active = append(res.Active, o.Profile)
        case domain.OutcomeInactive:
            res.InactiveCount++
        case domain.OutcomeFailed:
            res.FailedCount++
            reason := "unknown error"
            if o.Err != nil {
                reason = o.Err.Error()
            }
            res.Failures = append(res.Failures, domain.VisitFailure{Profile: o.Profile, Reason: reason})
        }
    }
    return res
}
