package services

import (
	"context"

	"github.com/vytor/estimatic/internal/errors"
	"github.com/vytor/estimatic/internal/logger"
	"github.com/vytor/estimatic/internal/models"
	"github.com/vytor/estimatic/internal/repository"
)

// QuestionService is the question pool contract. The public view never
// carries true values; those are only reachable through TrueQuestionsForDate,
// which stays server-side for judgement.
type QuestionService interface {
	QuestionsForDate(ctx context.Context, date string) ([]models.PublicQuestion, error)
	TrueQuestionsForDate(ctx context.Context, date string) ([]models.Question, error)
	TrueValueOf(ctx context.Context, questionID int64) (float64, error)
}

type questionService struct {
	questionRepo repository.QuestionRepository
}

// NewQuestionService creates a new QuestionService
func NewQuestionService(questionRepo repository.QuestionRepository) QuestionService {
	return &questionService{questionRepo: questionRepo}
}

func (s *questionService) QuestionsForDate(ctx context.Context, date string) ([]models.PublicQuestion, error) {
	questions, err := s.TrueQuestionsForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	public := make([]models.PublicQuestion, len(questions))
	for i, q := range questions {
		public[i] = q.Public(i)
	}
	return public, nil
}

func (s *questionService) TrueQuestionsForDate(ctx context.Context, date string) ([]models.Question, error) {
	log := logger.FromContext(ctx)
	log.Debug("loading question pool for date: %s", date)

	questions, err := s.questionRepo.QuestionsForDate(ctx, date)
	if err != nil {
		log.Error("failed to load questions for %s: %v", date, err)
		return nil, errors.NewInternalError(err)
	}
	if len(questions) == 0 {
		// An unpopulated date is an operational failure, never a fallback
		// to random questions: that would break per-date comparability.
		log.Error("no daily slots populated for %s", date)
		return nil, errors.NewNoQuestionsForDateError(date)
	}
	return questions, nil
}

func (s *questionService) TrueValueOf(ctx context.Context, questionID int64) (float64, error) {
	log := logger.FromContext(ctx)

	q, err := s.questionRepo.Get(ctx, questionID)
	if err != nil {
		log.Error("failed to load question %d: %v", questionID, err)
		return 0, errors.NewInternalError(err)
	}
	if q == nil {
		return 0, errors.NewNotFoundError("question", questionID)
	}
	return q.TrueValue, nil
}
