package config

import (
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "gopkg.in/yaml.v3"
)

type Config struct {
    Env         string        `yaml:"env"`
    ListenAddr  string        `yaml:"listen_addr"`
    DatabaseURL string        `yaml:"database_url"`
    RedisURL    string        `yaml:"redis_url"`
    ScanWorkers int           `yaml:"scan_workers"`

    // ScanConcurrency is the number of browser tabs provisioned, and so the
    // highest concurrency a scan may request.
    ScanConcurrency int           `yaml:"scan_concurrency"`
    VisitTimeout    time.Duration `yaml:"visit_timeout"`
    VisitSettle     time.Duration `yaml:"visit_settle"`
    VisitRate       float64       `yaml:"visit_rate"`
    VisitCacheTTL   time.Duration `yaml:"visit_cache_ttl"`

    SiteDomain        string `yaml:"site_domain"`
    ActivityPath      string `yaml:"activity_path"`
    TimestampSelector string `yaml:"timestamp_selector"`
    RecencyUnits      string `yaml:"recency_units"`
    CookieFile        string `yaml:"cookie_file"`
    Headless          bool   `yaml:"headless"`
    NoSandbox         bool   `yaml:"no_sandbox"`
}

func defaults() Config {
    return Config{
        Env:             "development",
        ListenAddr:      ":8080",
        ScanConcurrency: 1,
        VisitSettle:     2 * time.Second,
        VisitCacheTTL:   6 * time.Hour,
        SiteDomain:      "linkedin.com",
        ActivityPath:    "/recent-activity",
        RecencyUnits:    "mhdw",
        Headless:        true,
    }
}

func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// Load builds the config from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
    cfg := defaults()
    if path := os.Getenv("CONFIG_FILE"); path != "" {
        raw, err := os.ReadFile(path)
        if err != nil {
            return cfg, fmt.Errorf("read config file: %w", err)
        }
        if err := yaml.Unmarshal(raw, &cfg); err != nil {
            return cfg, fmt.Errorf("parse config file: %w", err)
        }
    }

    cfg.Env = getenv("APP_ENV", cfg.Env)
    cfg.ListenAddr = getenv("LISTEN_ADDR", cfg.ListenAddr)
    cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
    cfg.RedisURL = getenv("REDIS_URL", cfg.RedisURL)
    cfg.ScanWorkers = getenvInt("SCAN_WORKERS", cfg.ScanWorkers)
    cfg.ScanConcurrency = getenvInt("SCAN_CONCURRENCY", cfg.ScanConcurrency)
    cfg.VisitTimeout = getenvDuration("VISIT_TIMEOUT", cfg.VisitTimeout)
    cfg.VisitSettle = getenvDuration("VISIT_SETTLE", cfg.VisitSettle)
    cfg.VisitRate = getenvFloat("VISIT_RATE", cfg.VisitRate)
    cfg.VisitCacheTTL = getenvDuration("VISIT_CACHE_TTL", cfg.VisitCacheTTL)
    cfg.SiteDomain = getenv("SITE_DOMAIN", cfg.SiteDomain)
    cfg.ActivityPath = getenv("ACTIVITY_PATH", cfg.ActivityPath)
    cfg.TimestampSelector = getenv("TIMESTAMP_SELECTOR", cfg.TimestampSelector)
    cfg.RecencyUnits = getenv("RECENCY_UNITS", cfg.RecencyUnits)
    cfg.CookieFile = getenv("COOKIE_FILE", cfg.CookieFile)
    cfg.Headless = getenvBool("HEADLESS", cfg.Headless)
    cfg.NoSandbox = getenvBool("CHROMEDP_NO_SANDBOX", cfg.NoSandbox)

    if cfg.ScanConcurrency < 1 {
        return cfg, fmt.Errorf("SCAN_CONCURRENCY must be at least 1, got %d", cfg.ScanConcurrency)
    }
    if cfg.DatabaseURL == "" {
        // Not fatal for early local runs; warn via error value so callers can decide.
        return cfg, fmt.Errorf("DATABASE_URL not set")
    }
    return cfg, nil
}

func getenvInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        var out int
        _, err := fmt.Sscanf(v, "%d", &out)
        if err == nil { return out }
    }
    return def
}

func getenvFloat(key string, def float64) float64 {
    if v := os.Getenv(key); v != "" {
        if out, err := strconv.ParseFloat(v, 64); err == nil { return out }
    }
    return def
}

// getenvDuration accepts Go durations ("90s") or whole seconds ("90").
func getenvDuration(key string, def time.Duration) time.Duration {
    v := strings.TrimSpace(os.Getenv(key))
    if v == "" {
        return def
    }
    if d, err := time.ParseDuration(v); err == nil {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return time.Duration(n) * time.Second
    }
    return def
}

func getenvBool(key string, def bool) bool {
    if v := os.Getenv(key); v != "" {
        if b, err := strconv.ParseBool(v); err == nil { return b }
    }
    return def
}
