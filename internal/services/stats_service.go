package services

import (
	"context"

	"github.com/vytor/estimatic/internal/errors"
	"github.com/vytor/estimatic/internal/logger"
	"github.com/vytor/estimatic/internal/models"
	"github.com/vytor/estimatic/internal/repository"
)

// Profile is the aggregate view of a user's history. Derived rates are
// computed from the stored counters at read time, never persisted.
type Profile struct {
	User            *models.User `json:"user"`
	AverageScore    float64      `json:"average_score"`
	CalibrationRate float64      `json:"calibration_rate"`
}

// CategoryBreakdown is one category row of a user's profile.
type CategoryBreakdown struct {
	Category        string  `json:"category"`
	Answered        int     `json:"answered"`
	Captured        int     `json:"captured"`
	AverageScore    float64 `json:"average_score"`
	CalibrationRate float64 `json:"calibration_rate"`
}

// StatsService projects stored aggregates into profile views.
type StatsService interface {
	Profile(ctx context.Context, userID string) (*Profile, error)
	Categories(ctx context.Context, userID string) ([]CategoryBreakdown, error)
}

type statsService struct {
	userRepo repository.UserRepository
}

// NewStatsService creates a new StatsService
func NewStatsService(userRepo repository.UserRepository) StatsService {
	return &statsService{userRepo: userRepo}
}

func (s *statsService) Profile(ctx context.Context, userID string) (*Profile, error) {
	log := logger.FromContext(ctx)

	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		log.Error("failed to load user %s: %v", userID, err)
		return nil, errors.NewInternalError(err)
	}
	if user == nil {
		return nil, errors.NewNotFoundError("user", userID)
	}

	return &Profile{
		User:            user,
		AverageScore:    user.AverageScore(),
		CalibrationRate: user.CalibrationRate(),
	}, nil
}

func (s *statsService) Categories(ctx context.Context, userID string) ([]CategoryBreakdown, error) {
	log := logger.FromContext(ctx)

	stats, err := s.userRepo.CategoryStats(ctx, userID)
	if err != nil {
		log.Error("failed to load category stats for %s: %v", userID, err)
		return nil, errors.NewInternalError(err)
	}

	breakdown := make([]CategoryBreakdown, 0, len(stats))
	for _, st := range stats {
		breakdown = append(breakdown, CategoryBreakdown{
			Category:        st.Category,
			Answered:        st.Answered,
			Captured:        st.Captured,
			AverageScore:    st.AverageScore(),
			CalibrationRate: st.CalibrationRate(),
		})
	}
	return breakdown, nil
}
