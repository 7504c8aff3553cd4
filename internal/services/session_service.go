package services

import (
	"context"
	"time"

	"github.com/vytor/estimatic/internal/auth"
	"github.com/vytor/estimatic/internal/errors"
	"github.com/vytor/estimatic/internal/logger"
	"github.com/vytor/estimatic/internal/models"
	"github.com/vytor/estimatic/internal/repository"
	"github.com/vytor/estimatic/internal/scoring"
)

// SessionService drives a player's sitting through the daily question set:
// created -> answering -> finalized.
type SessionService interface {
	Start(ctx context.Context, userID, date string) (*models.Session, []models.PublicQuestion, error)
	SubmitAnswer(ctx context.Context, userID, sessionID string, questionID int64, lower, upper float64) error
	Finalize(ctx context.Context, userID, sessionID string) (*models.FinalizeOutcome, error)
	Get(ctx context.Context, userID, sessionID string) (*models.Session, error)
}

type sessionService struct {
	sessionRepo repository.SessionRepository
	questionSvc QuestionService
}

// NewSessionService creates a new SessionService
func NewSessionService(sessionRepo repository.SessionRepository, questionSvc QuestionService) SessionService {
	return &sessionService{sessionRepo: sessionRepo, questionSvc: questionSvc}
}

func (s *sessionService) Start(ctx context.Context, userID, date string) (*models.Session, []models.PublicQuestion, error) {
	log := logger.FromContext(ctx)
	log.Debug("starting session: user_id=%s, date=%s", userID, date)

	questions, err := s.questionSvc.TrueQuestionsForDate(ctx, date)
	if err != nil {
		return nil, nil, err
	}

	session := models.Session{
		ID:        auth.NewID(),
		UserID:    userID,
		ForDate:   date,
		State:     models.SessionStateCreated,
		CreatedAt: time.Now(),
	}
	public := make([]models.PublicQuestion, len(questions))
	for i, q := range questions {
		session.QuestionIDs = append(session.QuestionIDs, q.ID)
		public[i] = q.Public(i)
	}

	if err := s.sessionRepo.Insert(ctx, session); err != nil {
		log.Error("failed to create session: %v", err)
		return nil, nil, errors.NewInternalError(err)
	}
	log.Info("session started: id=%s, user_id=%s, questions=%d", session.ID, userID, len(questions))
	return &session, public, nil
}

func (s *sessionService) SubmitAnswer(ctx context.Context, userID, sessionID string, questionID int64, lower, upper float64) error {
	log := logger.FromContext(ctx)
	log.Debug("submitting answer: session_id=%s, question_id=%d", sessionID, questionID)

	// Bounds are rejected here so the scoring function stays total.
	if lower > upper {
		return errors.NewValidationError("bounds", "lower bound must not exceed upper bound")
	}

	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if session.Finalized() {
		return errors.NewConflictError("session is already finalized", nil)
	}
	if !session.HasQuestion(questionID) {
		return errors.NewNotFoundError("question in session", questionID)
	}

	answer := models.Answer{
		SessionID:  sessionID,
		QuestionID: questionID,
		Lower:      lower,
		Upper:      upper,
		CreatedAt:  time.Now(),
	}
	if err := s.sessionRepo.InsertAnswer(ctx, answer); err != nil {
		switch err {
		case repository.ErrDuplicateAnswer:
			return errors.NewConflictError("question already answered in this session", map[string]any{
				"question_id": questionID,
			})
		case repository.ErrSessionClosed:
			// A finalize won the race after the state check above.
			return errors.NewConflictError("session is already finalized", nil)
		}
		log.Error("failed to insert answer: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

// Finalize judges every question of the session. It may be called before all
// questions are answered; unanswered questions are judged as misses with
// score 0. A repeat call returns the stored judgements without touching any
// aggregate again.
func (s *sessionService) Finalize(ctx context.Context, userID, sessionID string) (*models.FinalizeOutcome, error) {
	log := logger.FromContext(ctx)
	log.Debug("finalizing session: id=%s", sessionID)

	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Finalized() {
		outcome, err := s.sessionRepo.StoredOutcome(ctx, sessionID)
		if err != nil {
			log.Error("failed to load stored outcome: %v", err)
			return nil, errors.NewInternalError(err)
		}
		return outcome, nil
	}

	answers, err := s.sessionRepo.Answers(ctx, sessionID)
	if err != nil {
		log.Error("failed to load answers: %v", err)
		return nil, errors.NewInternalError(err)
	}
	byQuestion := make(map[int64]models.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	questions, err := s.questionSvc.TrueQuestionsForDate(ctx, session.ForDate)
	if err != nil {
		return nil, err
	}
	questionByID := make(map[int64]models.Question, len(questions))
	for _, q := range questions {
		questionByID[q.ID] = q
	}

	judgements := make([]models.Judgement, 0, len(session.QuestionIDs))
	for _, questionID := range session.QuestionIDs {
		q, ok := questionByID[questionID]
		if !ok {
			log.Error("session question %d missing from pool for %s", questionID, session.ForDate)
			return nil, errors.NewInternalError(nil)
		}
		j := models.Judgement{
			QuestionID: questionID,
			Category:   q.Category,
			TrueValue:  q.TrueValue,
		}
		if a, answered := byQuestion[questionID]; answered {
			result := scoring.Judge(a.Lower, a.Upper, q.TrueValue)
			j.Answered = true
			j.Lower = a.Lower
			j.Upper = a.Upper
			j.Hit = result.Hit
			j.Precision = result.Precision
			j.Score = result.Score
		} else {
			result := scoring.Miss()
			j.Hit = result.Hit
			j.Precision = result.Precision
			j.Score = result.Score
		}
		judgements = append(judgements, j)
	}

	outcome, err := s.sessionRepo.Finalize(ctx, session, judgements)
	if err != nil {
		log.Error("failed to finalize session: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return outcome, nil
}

func (s *sessionService) Get(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ownedSession loads a session and verifies ownership. Sessions belong to
// exactly one user context and are never reassigned (merges re-point the
// whole history, not individual sessions mid-flight).
func (s *sessionService) ownedSession(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	log := logger.FromContext(ctx)

	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		log.Error("failed to load session: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if session == nil {
		return nil, errors.NewNotFoundError("session", sessionID)
	}
	if session.UserID != userID {
		// Do not leak the session's existence to other users.
		return nil, errors.NewNotFoundError("session", sessionID)
	}
	return session, nil
}
