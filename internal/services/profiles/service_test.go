package profiles

import (
    "context"
    "errors"
    "testing"

    "linkpulse/internal/domain"
)

type fakeActivity map[domain.ProfileID]domain.ProfileActivity

func (f fakeActivity) LatestActivity(_ context.Context, p domain.ProfileID) (domain.ProfileActivity, bool, error) {
    act, ok := f[p]
    return act, ok, nil
}

func TestGetLatest(t *testing.T) {
    t.Parallel()

    p := domain.ProfileID("https://www.linkedin.com/in/jane")
    svc := New(fakeActivity{p: {Profile: p, Status: domain.OutcomeActive, Company: "acme"}})

    act, err := svc.GetLatest(context.Background(), "https://www.linkedin.com/in/jane?trk=x")
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if act.Status != domain.OutcomeActive || act.Company != "acme" {
        t.Fatalf("unexpected activity %+v", act)
    }

    if _, err := svc.GetLatest(context.Background(), "https://www.linkedin.com/in/joe"); !errors.Is(err, domain.ErrNotFound) {
        t.Fatalf("expected ErrNotFound, got %v", err)
    }
    if _, err := svc.GetLatest(context.Background(), ""); !errors.Is(err, domain.ErrInvalidInput) {
        t.Fatalf("expected ErrInvalidInput, got %v", err)
    }
}
