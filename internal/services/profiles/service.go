package profiles

import (
    "context"

    "linkpulse/internal/domain"
    "linkpulse/internal/ports"
)

type Service struct {
    activity ports.ActivityRepository
}

func New(activity ports.ActivityRepository) *Service { return &Service{activity: activity} }

// GetLatest returns the most recent verdict recorded for a profile link.
func (s *Service) GetLatest(ctx context.Context, profile string) (domain.ProfileActivity, error) {
    id, err := domain.ParseProfileID(profile)
    if err != nil {
        return domain.ProfileActivity{}, err
    }
    act, found, err := s.activity.LatestActivity(ctx, id)
    if err != nil {
        return domain.ProfileActivity{}, err
    }
    if !found {
        return domain.ProfileActivity{}, domain.ErrNotFound
    }
    return act, nil
}
