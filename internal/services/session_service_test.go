package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	apperrors "github.com/vytor/estimatic/internal/errors"
	"github.com/vytor/estimatic/internal/models"
	"github.com/vytor/estimatic/internal/repository"
	"github.com/vytor/estimatic/internal/repository/sqlite"
	"github.com/vytor/estimatic/internal/scoring"
	"github.com/vytor/estimatic/internal/services"
	"github.com/vytor/estimatic/internal/testutil"
)

const playDate = "2026-08-29"

// requireCode asserts that err is an AppError carrying the given code.
func requireCode(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code)
	return appErr
}

type SessionServiceSuite struct {
	suite.Suite
	users    repository.UserRepository
	sessions services.SessionService
	userID   string
}

func (s *SessionServiceSuite) SetupTest() {
	database := testutil.NewTestDB(s.T())
	ctx := context.Background()

	questionRepo := sqlite.NewQuestionRepository(database)
	sessionRepo := sqlite.NewSessionRepository(database)
	s.users = sqlite.NewUserRepository(database)

	questionSvc := services.NewQuestionService(questionRepo)
	s.sessions = services.NewSessionService(sessionRepo, questionSvc)

	// Three questions slotted for the play date.
	for i, tv := range []float64{1440, 8849, 42} {
		id, err := questionRepo.Insert(ctx, models.Question{
			Prompt: "q", TrueValue: tv, Category: "general", Active: true,
		})
		s.Require().NoError(err)
		s.Require().NoError(questionRepo.InsertSlots(ctx, []models.DailySlot{
			{Date: playDate, QuestionID: id, DisplayOrder: i, Published: true},
		}))
	}

	user, err := s.users.CreateDeviceUser(ctx, "user-1", "device-1")
	s.Require().NoError(err)
	s.userID = user.ID
}

func (s *SessionServiceSuite) TestStartServesPublicQuestions() {
	ctx := context.Background()

	session, questions, err := s.sessions.Start(ctx, s.userID, playDate)
	s.Require().NoError(err)
	s.Equal(models.SessionStateCreated, session.State)
	s.Require().Len(questions, 3)
	for i, q := range questions {
		s.Equal(i, q.Position)
		s.Equal(session.QuestionIDs[i], q.ID)
	}
}

func (s *SessionServiceSuite) TestStartUnpopulatedDate() {
	_, _, err := s.sessions.Start(context.Background(), s.userID, "2030-01-01")
	appErr := requireCode(s.T(), err, apperrors.ErrCodeNoQuestionsForDate)
	s.Equal(503, appErr.Status)
}

func (s *SessionServiceSuite) TestSubmitAnswerValidation() {
	ctx := context.Background()
	session, _, err := s.sessions.Start(ctx, s.userID, playDate)
	s.Require().NoError(err)

	// Inverted bounds never reach storage.
	err = s.sessions.SubmitAnswer(ctx, s.userID, session.ID, session.QuestionIDs[0], 200, 100)
	requireCode(s.T(), err, apperrors.ErrCodeValidation)

	// A question outside the session's set.
	err = s.sessions.SubmitAnswer(ctx, s.userID, session.ID, 99999, 1, 2)
	requireCode(s.T(), err, apperrors.ErrCodeNotFound)

	// Degenerate single-point interval is legal.
	err = s.sessions.SubmitAnswer(ctx, s.userID, session.ID, session.QuestionIDs[0], 1440, 1440)
	s.Require().NoError(err)

	// Second submission for the same question is rejected.
	err = s.sessions.SubmitAnswer(ctx, s.userID, session.ID, session.QuestionIDs[0], 1000, 2000)
	appErr := requireCode(s.T(), err, apperrors.ErrCodeConflict)
	s.Equal(session.QuestionIDs[0], appErr.Details["question_id"])
}

func (s *SessionServiceSuite) TestSessionsAreInvisibleToOtherUsers() {
	ctx := context.Background()
	other, err := s.users.CreateDeviceUser(ctx, "user-2", "device-2")
	s.Require().NoError(err)

	session, _, err := s.sessions.Start(ctx, s.userID, playDate)
	s.Require().NoError(err)

	_, err = s.sessions.Get(ctx, other.ID, session.ID)
	requireCode(s.T(), err, apperrors.ErrCodeNotFound)

	err = s.sessions.SubmitAnswer(ctx, other.ID, session.ID, session.QuestionIDs[0], 1, 2)
	requireCode(s.T(), err, apperrors.ErrCodeNotFound)
}

func (s *SessionServiceSuite) TestFullFinalize() {
	ctx := context.Background()
	session, _, err := s.sessions.Start(ctx, s.userID, playDate)
	s.Require().NoError(err)

	// Captures for questions 1 and 2, a miss for question 3.
	s.Require().NoError(s.sessions.SubmitAnswer(ctx, s.userID, session.ID, session.QuestionIDs[0], 1400, 1600))
	s.Require().NoError(s.sessions.SubmitAnswer(ctx, s.userID, session.ID, session.QuestionIDs[1], 8000, 9000))
	s.Require().NoError(s.sessions.SubmitAnswer(ctx, s.userID, session.ID, session.QuestionIDs[2], 100, 200))

	outcome, err := s.sessions.Finalize(ctx, s.userID, session.ID)
	s.Require().NoError(err)
	s.Require().Len(outcome.Judgements, 3)

	s.True(outcome.Judgements[0].Hit)
	s.True(outcome.Judgements[1].Hit)
	s.False(outcome.Judgements[2].Hit)
	s.Equal(0.0, outcome.Judgements[2].Score)
	s.InDelta(outcome.Judgements[0].Score+outcome.Judgements[1].Score, outcome.TotalScore, 1e-9)
	s.Greater(outcome.Judgements[0].Score, 0.0)
	s.LessOrEqual(outcome.Judgements[0].Score, scoring.MaxScore)
}

func (s *SessionServiceSuite) TestPartialFinalizeScoresUnansweredAsMisses() {
	ctx := context.Background()
	session, _, err := s.sessions.Start(ctx, s.userID, playDate)
	s.Require().NoError(err)

	s.Require().NoError(s.sessions.SubmitAnswer(ctx, s.userID, session.ID, session.QuestionIDs[0], 1400, 1600))

	outcome, err := s.sessions.Finalize(ctx, s.userID, session.ID)
	s.Require().NoError(err)
	s.Require().Len(outcome.Judgements, 3)

	s.True(outcome.Judgements[0].Answered)
	s.False(outcome.Judgements[1].Answered)
	s.False(outcome.Judgements[2].Answered)
	s.Equal(0.0, outcome.Judgements[1].Score)

	// Only the answered question counts toward accuracy aggregates.
	user, err := s.users.Get(ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(1, user.QuestionsAnswered)
	s.Equal(1, user.QuestionsCaptured)
	s.Equal(1, user.GamesPlayed)
}

func (s *SessionServiceSuite) TestFinalizeIsIdempotent() {
	ctx := context.Background()
	session, _, err := s.sessions.Start(ctx, s.userID, playDate)
	s.Require().NoError(err)
	s.Require().NoError(s.sessions.SubmitAnswer(ctx, s.userID, session.ID, session.QuestionIDs[0], 1400, 1600))

	first, err := s.sessions.Finalize(ctx, s.userID, session.ID)
	s.Require().NoError(err)

	second, err := s.sessions.Finalize(ctx, s.userID, session.ID)
	s.Require().NoError(err)
	s.Equal(first.TotalScore, second.TotalScore)
	s.Require().Len(second.Judgements, 3)
	for i := range first.Judgements {
		s.Equal(first.Judgements[i].QuestionID, second.Judgements[i].QuestionID)
		s.Equal(first.Judgements[i].Score, second.Judgements[i].Score)
	}

	user, err := s.users.Get(ctx, s.userID)
	s.Require().NoError(err)
	s.Equal(1, user.GamesPlayed)
}

func (s *SessionServiceSuite) TestAnswerAfterFinalizeRejected() {
	ctx := context.Background()
	session, _, err := s.sessions.Start(ctx, s.userID, playDate)
	s.Require().NoError(err)

	_, err = s.sessions.Finalize(ctx, s.userID, session.ID)
	s.Require().NoError(err)

	err = s.sessions.SubmitAnswer(ctx, s.userID, session.ID, session.QuestionIDs[0], 1, 2)
	requireCode(s.T(), err, apperrors.ErrCodeConflict)
}

func TestSessionServiceSuite(t *testing.T) {
	suite.Run(t, new(SessionServiceSuite))
}
