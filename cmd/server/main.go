package main

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/go-chi/chi/v5"
    "golang.org/x/time/rate"

    "linkpulse/internal/adapters/browser"
    "linkpulse/internal/adapters/cache"
    httpadapter "linkpulse/internal/adapters/http"
    pg "linkpulse/internal/adapters/postgres"
    "linkpulse/internal/config"
    "linkpulse/internal/ports"
    "linkpulse/internal/services/activity"
    compsvc "linkpulse/internal/services/companies"
    profsvc "linkpulse/internal/services/profiles"
    "linkpulse/internal/services/scanner"
    scanworker "linkpulse/internal/workers/scanrunner"
)

func main() {
    logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", "linkpulse")
    slog.SetDefault(logger)

    cfg, err := config.Load()
    if err != nil {
        logger.Warn("config", "error", err)
    }
    if cfg.DatabaseURL == "" {
        logger.Error("DATABASE_URL is required for Postgres adapters")
        os.Exit(1)
    }

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    db, err := pg.Connect(ctx, cfg.DatabaseURL)
    if err != nil {
        logger.Error("db connect error", "error", err)
        os.Exit(1)
    }
    defer db.Close()
    if err := db.Migrate(ctx); err != nil {
        logger.Error("db migrate error", "error", err)
        os.Exit(1)
    }

    // Wire repositories to services (ports)
    var _ ports.ScanRepository = db
    var _ ports.OutcomeRepository = db
    var _ ports.ActivityRepository = db
    var _ ports.JobRepository = db

    cookies, err := browser.LoadCookies(cfg.CookieFile)
    if err != nil {
        logger.Error("cookie jar error", "error", err)
        os.Exit(1)
    }
    // One tab per concurrency slot.
    pool, err := browser.NewPool(browser.Options{
        Size:      cfg.ScanConcurrency,
        Headless:  cfg.Headless,
        NoSandbox: cfg.NoSandbox,
        Cookies:   cookies,
    }, logger)
    if err != nil {
        logger.Error("browser start error", "error", err)
        os.Exit(1)
    }
    defer pool.Close()

    var visitor ports.Visitor = browser.NewVisitor(pool, cfg.ActivityPath, cfg.TimestampSelector, cfg.VisitSettle)
    if cfg.RedisURL != "" {
        rdb, err := cache.Connect(ctx, cfg.RedisURL)
        if err != nil {
            logger.Error("redis connect error", "error", err)
            os.Exit(1)
        }
        defer rdb.Close()
        visitor = cache.NewVisitCache(visitor, cache.NewRedisStore(rdb), cfg.VisitCacheTTL, logger)
    }

    opts := scanner.Options{VisitTimeout: cfg.VisitTimeout, PreserveOrder: true}
    if cfg.VisitRate > 0 {
        opts.Limiter = rate.NewLimiter(rate.Limit(cfg.VisitRate), 1)
    }
    parser := activity.NewParser(cfg.RecencyUnits)
    processor := scanworker.Processor{
        Scans:    db,
        Outcomes: db,
        Jobs:     db,
        Scanner:  scanner.New(visitor, parser, logger),
        Options:  opts,
        Logger:   logger,
    }

    companies := compsvc.New(db, cfg.SiteDomain, cfg.ScanConcurrency)
    profiles := profsvc.New(db)
    srv := httpadapter.New(companies, profiles, db, processor, logger)
    r := chi.NewRouter()
    r.Mount("/", srv.Routes())

    // Optional background job workers
    workersDone := make(chan struct{})
    if cfg.ScanWorkers > 0 {
        go func() {
            defer close(workersDone)
            scanworker.Run(ctx, db, processor, cfg.ScanWorkers, 500*time.Millisecond, logger)
        }()
        logger.Info("scan workers started", "workers", cfg.ScanWorkers)
    } else {
        close(workersDone)
    }

    httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
    errCh := make(chan error, 1)
    go func() { errCh <- httpServer.ListenAndServe() }()
    logger.Info("listening", "addr", cfg.ListenAddr, "tabs", pool.Size(), "recency_units", parser.Units(), "env", cfg.Env)

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
    select {
    case sig := <-sigCh:
        logger.Info("shutting down", "signal", sig.String())
        cancel()
        shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
        defer done()
        if err := httpServer.Shutdown(shutdownCtx); err != nil {
            logger.Warn("http shutdown", "error", err)
        }
        // Workers record interrupted jobs before the pool and db close.
        select {
        case <-workersDone:
        case <-time.After(15 * time.Second):
            logger.Warn("scan workers did not stop in time")
        }
    case err := <-errCh:
        if !errors.Is(err, http.ErrServerClosed) {
            logger.Error("server error", "error", err)
            os.Exit(1)
        }
    }
}
