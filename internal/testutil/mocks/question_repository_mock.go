package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/estimatic/internal/models"
)

// MockQuestionRepository is a mock implementation of repository.QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) Get(ctx context.Context, id int64) (*models.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) QuestionsForDate(ctx context.Context, date string) ([]models.Question, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *MockQuestionRepository) ListUnslotted(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *MockQuestionRepository) Insert(ctx context.Context, q models.Question) (int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuestionRepository) InsertSlots(ctx context.Context, slots []models.DailySlot) error {
	args := m.Called(ctx, slots)
	return args.Error(0)
}

func (m *MockQuestionRepository) DatesPopulated(ctx context.Context, dates []string) ([]string, error) {
	args := m.Called(ctx, dates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
