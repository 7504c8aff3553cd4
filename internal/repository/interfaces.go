package repository

import (
	"context"
	"errors"

	"github.com/vytor/estimatic/internal/models"
)

// Sentinel errors the SQLite implementations translate unique-constraint
// violations into, so services can map them to the client-facing taxonomy.
var (
	// ErrDuplicateAnswer: an answer already exists for (session, question).
	ErrDuplicateAnswer = errors.New("answer already recorded for question")
	// ErrSessionClosed: the session left the created state before the answer
	// could be recorded.
	ErrSessionClosed = errors.New("session no longer accepts answers")
	// ErrUsernameTaken: the username unique constraint fired.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken: the email unique constraint fired.
	ErrEmailTaken = errors.New("email already registered")
	// ErrSlotConflict: a daily slot already exists for the (date, order) or
	// the question is already slotted on the date.
	ErrSlotConflict = errors.New("daily slot conflict")
	// ErrMergeConflict: the merge preconditions no longer hold (source not
	// anonymous, or already retired into a different account).
	ErrMergeConflict = errors.New("users cannot be merged")
)

// QuestionRepository handles question and daily-slot data access
type QuestionRepository interface {
	Get(ctx context.Context, id int64) (*models.Question, error)
	QuestionsForDate(ctx context.Context, date string) ([]models.Question, error)
	ListUnslotted(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error)
	Insert(ctx context.Context, q models.Question) (int64, error)
	InsertSlots(ctx context.Context, slots []models.DailySlot) error
	DatesPopulated(ctx context.Context, dates []string) ([]string, error)
}

// SessionRepository handles session, answer and judgement data access.
// Finalize owns the single transaction that judges a session and rolls its
// results into user, category and community aggregates.
type SessionRepository interface {
	Insert(ctx context.Context, s models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	InsertAnswer(ctx context.Context, a models.Answer) error
	Answers(ctx context.Context, sessionID string) ([]models.Answer, error)
	Finalize(ctx context.Context, s *models.Session, judgements []models.Judgement) (*models.FinalizeOutcome, error)
	StoredOutcome(ctx context.Context, sessionID string) (*models.FinalizeOutcome, error)
}

// UserRepository handles user identity and aggregate data access
type UserRepository interface {
	Get(ctx context.Context, id string) (*models.User, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	CreateDeviceUser(ctx context.Context, id, deviceID string) (*models.User, error)
	CreateAuthenticated(ctx context.Context, u *models.User) error
	Promote(ctx context.Context, id, email string, passwordHash []byte) error
	Merge(ctx context.Context, sourceID, targetID string) (*models.User, error)
	ClaimUsername(ctx context.Context, id, username string) error
	CategoryStats(ctx context.Context, userID string) ([]models.CategoryStat, error)
}

// FeedbackRepository handles feedback data access
type FeedbackRepository interface {
	Insert(ctx context.Context, f models.Feedback) error
	List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error)
}
