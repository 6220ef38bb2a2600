package postgres

import (
    "context"
    "errors"
    "time"

    "github.com/jackc/pgx/v5"

    "linkpulse/internal/domain"
)

// ScanRepository

// Create stores the scan and its ordered profile list in one transaction,
// plus a queued job when queue is set.
func (db *DB) Create(ctx context.Context, company string, profiles []domain.ProfileID, concurrency int, queue bool) (scanID string, err error) {
    scanID = domain.NewScanID()
    tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil { return "", err }
    defer func() {
        if err != nil { _ = tx.Rollback(ctx) } else { err = tx.Commit(ctx) }
    }()

    if _, err = tx.Exec(ctx, `
        INSERT INTO scans (id, company, status, progress, concurrency, total)
        VALUES ($1, $2, 'queued', 0, $3, $4)
    `, scanID, company, concurrency, len(profiles)); err != nil {
        return "", err
    }

    rows := make([][]any, len(profiles))
    for i, p := range profiles {
        rows[i] = []any{scanID, i, p.String()}
    }
    if _, err = tx.CopyFrom(ctx,
        pgx.Identifier{"scan_profiles"},
        []string{"scan_id", "position", "profile_url"},
        pgx.CopyFromRows(rows),
    ); err != nil {
        return "", err
    }

    if !queue {
        return scanID, nil
    }
    if _, err = tx.Exec(ctx, `INSERT INTO scan_jobs (scan_id) VALUES ($1)`, scanID); err != nil {
        return "", err
    }
    return scanID, nil
}

func (db *DB) Get(ctx context.Context, scanID string) (domain.Scan, error) {
    var s domain.Scan
    var status string
    err := db.Pool.QueryRow(ctx, `
        SELECT s.id::text, s.company, s.status, s.progress, s.concurrency, s.total,
               s.created_at, s.started_at, s.finished_at,
               COUNT(*) FILTER (WHERE p.status = 'active'),
               COUNT(*) FILTER (WHERE p.status = 'inactive'),
               COUNT(*) FILTER (WHERE p.status = 'failed')
        FROM scans s
        LEFT JOIN scan_profiles p ON p.scan_id = s.id
        WHERE s.id = $1
        GROUP BY s.id
    `, scanID).Scan(&s.ID, &s.Company, &status, &s.Progress, &s.Concurrency, &s.Total,
        &s.CreatedAt, &s.StartedAt, &s.FinishedAt, &s.Active, &s.Inactive, &s.Failed)
    if errors.Is(err, pgx.ErrNoRows) {
        return s, domain.ErrNotFound
    }
    s.Status = domain.ScanStatus(status)
    return s, err
}

func (db *DB) Profiles(ctx context.Context, scanID string) ([]domain.ProfileID, error) {
    rows, err := db.Pool.Query(ctx, `
        SELECT profile_url FROM scan_profiles WHERE scan_id = $1 ORDER BY position
    `, scanID)
    if err != nil {
        return nil, err
    }
    urls, err := pgx.CollectRows(rows, pgx.RowTo[string])
    if err != nil {
        return nil, err
    }
    out := make([]domain.ProfileID, len(urls))
    for i, u := range urls {
        out[i] = domain.ProfileID(u)
    }
    return out, nil
}

// Result rebuilds the scan result from the stored outcomes, in input order.
// Profiles without an outcome are reported as pending.
func (db *DB) Result(ctx context.Context, scanID string) (domain.ScanResult, error) {
    var res domain.ScanResult
    err := db.Pool.QueryRow(ctx, `SELECT complete FROM scans WHERE id = $1`, scanID).Scan(&res.Complete)
    if errors.Is(err, pgx.ErrNoRows) {
        return res, domain.ErrNotFound
    }
    if err != nil {
        return res, err
    }

    rows, err := db.Pool.Query(ctx, `
        SELECT profile_url, COALESCE(status, ''), COALESCE(reason, '')
        FROM scan_profiles WHERE scan_id = $1 ORDER BY position
    `, scanID)
    if err != nil {
        return res, err
    }
    defer rows.Close()
    for rows.Next() {
        var url, status, reason string
        if err := rows.Scan(&url, &status, &reason); err != nil {
            return res, err
        }
        p := domain.ProfileID(url)
        switch domain.OutcomeStatus(status) {
        case domain.OutcomeActive:
            res.Active = append(res.Active, p)
        case domain.OutcomeInactive:
            res.InactiveCount++
        case domain.OutcomeFailed:
            res.FailedCount++
            res.Failures = append(res.Failures, domain.VisitFailure{Profile: p, Reason: reason})
        default:
            res.Pending = append(res.Pending, p)
        }
    }
    return res, rows.Err()
}

// OutcomeRepository

func (db *DB) SaveOutcome(ctx context.Context, scanID string, o domain.Outcome) error {
    var reason *string
    if o.Err != nil {
        r := o.Err.Error()
        reason = &r
    }
    _, err := db.Pool.Exec(ctx, `
        UPDATE scan_profiles SET status = $3, reason = $4, visited_at = now()
        WHERE scan_id = $1 AND position = $2
    `, scanID, o.Index, string(o.Status), reason)
    return err
}

func (db *DB) SaveSummary(ctx context.Context, scanID string, res domain.ScanResult) error {
    _, err := db.Pool.Exec(ctx, `UPDATE scans SET complete = $2 WHERE id = $1`, scanID, res.Complete)
    return err
}

// ActivityRepository

func (db *DB) LatestActivity(ctx context.Context, profile domain.ProfileID) (domain.ProfileActivity, bool, error) {
    out := domain.ProfileActivity{Profile: profile}
    var status string
    var visitedAt time.Time
    err := db.Pool.QueryRow(ctx, `
        SELECT p.scan_id::text, s.company, p.status, COALESCE(p.reason, ''), p.visited_at
        FROM scan_profiles p
        JOIN scans s ON s.id = p.scan_id
        WHERE p.profile_url = $1 AND p.status IS NOT NULL
        ORDER BY p.visited_at DESC
        LIMIT 1
    `, profile.String()).Scan(&out.ScanID, &out.Company, &status, &out.Reason, &visitedAt)
    if errors.Is(err, pgx.ErrNoRows) {
        return out, false, nil
    }
    if err != nil {
        return out, false, err
    }
    out.Status = domain.OutcomeStatus(status)
    out.VisitedAt = visitedAt
    return out, true, nil
}
