package postgres

import (
    "context"
    "embed"
    "fmt"
    "time"

    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/jackc/pgx/v5/stdlib"
    "github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type DB struct {
    Pool *pgxpool.Pool
}

func Connect(ctx context.Context, url string) (*DB, error) {
    cfg, err := pgxpool.ParseConfig(url)
    if err != nil {
        return nil, err
    }
    cfg.MaxConns = 10
    cfg.HealthCheckPeriod = 30 * time.Second
    pool, err := pgxpool.NewWithConfig(ctx, cfg)
    if err != nil {
        return nil, err
    }
    if err := pool.Ping(ctx); err != nil {
        pool.Close()
        return nil, err
    }
    return &DB{Pool: pool}, nil
}

// Migrate applies the embedded goose migrations.
func (db *DB) Migrate(ctx context.Context) error {
    sqlDB := stdlib.OpenDBFromPool(db.Pool)
    defer sqlDB.Close()

    goose.SetBaseFS(migrations)
    if err := goose.SetDialect("postgres"); err != nil {
        return err
    }
    if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
        return fmt.Errorf("migrate: %w", err)
    }
    return nil
}

func (db *DB) Close() { db.Pool.Close() }
