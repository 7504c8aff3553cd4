package services

import (
	"context"
	"strings"
	"time"

	"github.com/vytor/estimatic/internal/auth"
	"github.com/vytor/estimatic/internal/errors"
	"github.com/vytor/estimatic/internal/logger"
	"github.com/vytor/estimatic/internal/models"
	"github.com/vytor/estimatic/internal/repository"
)

const maxFeedbackLength = 2000

// FeedbackService accepts free-form feedback from any visitor,
// authenticated or not.
type FeedbackService interface {
	Submit(ctx context.Context, userID *string, text, userAgent, pageURL string) (*models.Feedback, error)
	List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error)
}

type feedbackService struct {
	feedbackRepo repository.FeedbackRepository
}

// NewFeedbackService creates a new FeedbackService
func NewFeedbackService(feedbackRepo repository.FeedbackRepository) FeedbackService {
	return &feedbackService{feedbackRepo: feedbackRepo}
}

func (s *feedbackService) Submit(ctx context.Context, userID *string, text, userAgent, pageURL string) (*models.Feedback, error) {
	log := logger.FromContext(ctx)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.NewValidationError("text", "must not be empty")
	}
	if len(text) > maxFeedbackLength {
		return nil, errors.NewValidationError("text", "must be at most 2000 characters")
	}

	fb := models.Feedback{
		ID:        auth.NewID(),
		UserID:    userID,
		Text:      text,
		UserAgent: userAgent,
		PageURL:   pageURL,
		CreatedAt: time.Now(),
	}
	if err := s.feedbackRepo.Insert(ctx, fb); err != nil {
		log.Error("failed to store feedback: %v", err)
		return nil, errors.NewInternalError(err)
	}
	log.Info("feedback recorded: id=%s", fb.ID)
	return &fb, nil
}

func (s *feedbackService) List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error) {
	items, err := s.feedbackRepo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	return items, nil
}
