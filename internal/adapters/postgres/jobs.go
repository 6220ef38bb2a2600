package postgres

import (
    "context"
    "errors"
    "time"

    "github.com/jackc/pgx/v5"

    "linkpulse/internal/domain"
    "linkpulse/internal/ports"
)

// ClaimNext selects the next queued job using SKIP LOCKED and marks it running.
func (db *DB) ClaimNext(ctx context.Context) (job ports.ScanJob, found bool, err error) {
    tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil { return job, false, err }
    defer func() {
        if err != nil { _ = tx.Rollback(ctx) } else { _ = tx.Commit(ctx) }
    }()

    err = tx.QueryRow(ctx, `
        SELECT id::text, scan_id::text FROM scan_jobs
        WHERE status = 'queued'
        ORDER BY queued_at
        FOR UPDATE SKIP LOCKED
        LIMIT 1
    `).Scan(&job.ID, &job.ScanID)
    if errors.Is(err, pgx.ErrNoRows) {
        return job, false, nil
    }
    if err != nil { return job, false, err }

    if err = markRunning(ctx, tx, job.ID, job.ScanID); err != nil {
        return job, false, err
    }
    return job, true, nil
}

func markRunning(ctx context.Context, tx pgx.Tx, jobID, scanID string) error {
    if _, err := tx.Exec(ctx, `
        UPDATE scan_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1
    `, jobID); err != nil {
        return err
    }
    _, err := tx.Exec(ctx, `
        UPDATE scans SET status='running', started_at=COALESCE(started_at, now()) WHERE id=$1
    `, scanID)
    return err
}

func (db *DB) UpdateScanProgress(ctx context.Context, scanID string, progress float64) error {
    if progress < 0 { progress = 0 }
    if progress > 1 { progress = 1 }
    _, err := db.Pool.Exec(ctx, `UPDATE scans SET progress=$2 WHERE id=$1`, scanID, progress)
    return err
}

func (db *DB) MarkCompleted(ctx context.Context, jobID string) error {
    return db.finish(ctx, jobID, "completed", domain.ScanCompleted, "")
}

func (db *DB) MarkCancelled(ctx context.Context, jobID string) error {
    return db.finish(ctx, jobID, "cancelled", domain.ScanCancelled, "cancelled before all profiles were visited")
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
    return db.finish(ctx, jobID, "failed", domain.ScanFailed, reason)
}

// finish closes the job and its scan atomically. It runs on a fresh context
// so a cancelled worker can still record why it stopped.
func (db *DB) finish(ctx context.Context, jobID, jobStatus string, scanStatus domain.ScanStatus, reason string) (err error) {
    ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
    defer cancel()
    tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil { return err }
    defer func() {
        if err != nil { _ = tx.Rollback(ctx) } else { err = tx.Commit(ctx) }
    }()

    var scanID string
    if err = tx.QueryRow(ctx, `SELECT scan_id::text FROM scan_jobs WHERE id=$1`, jobID).Scan(&scanID); err != nil {
        return err
    }
    if _, err = tx.Exec(ctx, `
        UPDATE scan_jobs SET status=$2, reason=NULLIF($3, ''), finished_at=now() WHERE id=$1
    `, jobID, jobStatus, reason); err != nil {
        return err
    }
    progress := "progress"
    if scanStatus == domain.ScanCompleted { progress = "1" }
    if _, err = tx.Exec(ctx, `
        UPDATE scans SET status=$2, progress=`+progress+`, finished_at=now() WHERE id=$1
    `, scanID, string(scanStatus)); err != nil {
        return err
    }
    return nil
}

// StartJobForScan marks the queued job of a scan as running and returns its
// id. A scan stored without any job gets a new running one.
func (db *DB) StartJobForScan(ctx context.Context, scanID string) (jobID string, err error) {
    tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil { return "", err }
    defer func() {
        if err != nil { _ = tx.Rollback(ctx) } else { err = tx.Commit(ctx) }
    }()

    // lock specific job row if queued
    err = tx.QueryRow(ctx, `
        SELECT id::text FROM scan_jobs
        WHERE scan_id = $1 AND status = 'queued'
        FOR UPDATE SKIP LOCKED
    `, scanID).Scan(&jobID)
    if errors.Is(err, pgx.ErrNoRows) {
        jobID, err = openJob(ctx, tx, scanID)
    }
    if err != nil { return "", err }
    if err = markRunning(ctx, tx, jobID, scanID); err != nil {
        return "", err
    }
    return jobID, nil
}

// openJob creates the job of a queued scan that was stored without one. The
// scan row stays locked until the transaction ends so only one caller wins.
func openJob(ctx context.Context, tx pgx.Tx, scanID string) (string, error) {
    var status string
    err := tx.QueryRow(ctx, `SELECT status FROM scans WHERE id=$1 FOR UPDATE`, scanID).Scan(&status)
    if errors.Is(err, pgx.ErrNoRows) {
        return "", domain.ErrNotFound
    }
    if err != nil { return "", err }

    var jobs int
    if err := tx.QueryRow(ctx, `SELECT count(*) FROM scan_jobs WHERE scan_id=$1`, scanID).Scan(&jobs); err != nil {
        return "", err
    }
    if status != string(domain.ScanQueued) || jobs > 0 {
        return "", domain.ErrNotFound
    }
    var jobID string
    err = tx.QueryRow(ctx, `INSERT INTO scan_jobs (scan_id) VALUES ($1) RETURNING id::text`, scanID).Scan(&jobID)
    return jobID, err
}
