package companies

import (
    "context"
    "fmt"
    "net/url"
    "strings"

    "github.com/google/uuid"
    "golang.org/x/net/publicsuffix"

    "linkpulse/internal/domain"
    "linkpulse/internal/ports"
)

// Service enqueues and reports activity scans of a company's members.
type Service struct {
    scans          ports.ScanRepository
    siteDomain     string
    maxConcurrency int
}

// New returns a Service. Profile links must belong to siteDomain (compared as
// registrable domains) unless it is empty. maxConcurrency is the number of
// navigation surfaces the workers have.
func New(scans ports.ScanRepository, siteDomain string, maxConcurrency int) *Service {
    site := strings.ToLower(strings.TrimSpace(siteDomain))
    if site != "" {
        if reg, err := publicsuffix.EffectiveTLDPlusOne(site); err == nil {
            site = reg
        }
    }
    if maxConcurrency < 1 {
        maxConcurrency = 1
    }
    return &Service{scans: scans, siteDomain: site, maxConcurrency: maxConcurrency}
}

func (s *Service) Enqueue(ctx context.Context, req ports.ScanRequest) (string, error) {
    company := strings.TrimSpace(req.Company)
    if company == "" {
        return "", fmt.Errorf("%w: company is required", domain.ErrInvalidInput)
    }
    if len(req.Profiles) == 0 {
        return "", fmt.Errorf("%w: at least one profile is required", domain.ErrInvalidInput)
    }
    concurrency := req.Concurrency
    if concurrency == 0 {
        concurrency = 1
    }
    if concurrency < 0 {
        return "", fmt.Errorf("%w: got %d", domain.ErrInvalidConcurrency, concurrency)
    }
    if concurrency > s.maxConcurrency {
        return "", fmt.Errorf("%w: concurrency %d, surfaces %d", domain.ErrResourceExhausted, concurrency, s.maxConcurrency)
    }

    ids, err := domain.ParseProfileIDs(req.Profiles)
    if err != nil {
        return "", err
    }
    for _, id := range ids {
        if err := s.checkSite(id); err != nil {
            return "", err
        }
    }
    return s.scans.Create(ctx, company, ids, concurrency, !req.Inline)
}

func (s *Service) checkSite(id domain.ProfileID) error {
    if s.siteDomain == "" {
        return nil
    }
    u, err := url.Parse(id.String())
    if err != nil {
        return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
    }
    host := u.Hostname()
    registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
    if err != nil {
        registrable = host
    }
    if registrable != s.siteDomain {
        return fmt.Errorf("%w: %s is not on %s", domain.ErrInvalidInput, id, s.siteDomain)
    }
    return nil
}

func (s *Service) Status(ctx context.Context, scanID string) (domain.Scan, error) {
    if _, err := uuid.Parse(scanID); err != nil {
        return domain.Scan{}, domain.ErrNotFound
    }
    return s.scans.Get(ctx, scanID)
}

func (s *Service) Result(ctx context.Context, scanID string) (domain.ScanResult, error) {
    if _, err := uuid.Parse(scanID); err != nil {
        return domain.ScanResult{}, domain.ErrNotFound
    }
    return s.scans.Result(ctx, scanID)
}
