package models

import "time"

// Session states. Answers accumulate while a session is in StateCreated;
// StateFinalized is terminal.
const (
	SessionStateCreated   = "created"
	SessionStateFinalized = "finalized"
)

type Session struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	ForDate     string     `json:"for_date"` // YYYY-MM-DD
	State       string     `json:"state"`
	TotalScore  float64    `json:"total_score"`
	QuestionIDs []int64    `json:"question_ids"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (s *Session) Finalized() bool {
	return s.State == SessionStateFinalized
}

func (s *Session) HasQuestion(questionID int64) bool {
	for _, id := range s.QuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

type Answer struct {
	SessionID  string    `json:"session_id"`
	QuestionID int64     `json:"question_id"`
	Lower      float64   `json:"lower"`
	Upper      float64   `json:"upper"`
	CreatedAt  time.Time `json:"created_at"`
}

// CommunitySnapshot is the per-question community view frozen into a
// judgement at finalize time. It is never mutated after the judgement is
// returned.
type CommunitySnapshot struct {
	AnswerCount  int     `json:"answer_count"`
	AverageScore float64 `json:"average_score"`
	BestScore    float64 `json:"best_score"`
}

// Judgement is the scored outcome for one question of a finalized session.
// Unanswered questions are judged as misses with score 0.
type Judgement struct {
	QuestionID int64             `json:"question_id"`
	Category   string            `json:"category"`
	Answered   bool              `json:"answered"`
	Lower      float64           `json:"lower"`
	Upper      float64           `json:"upper"`
	TrueValue  float64           `json:"true_value"`
	Hit        bool              `json:"hit"`
	Precision  float64           `json:"precision"`
	Score      float64           `json:"score"`
	Community  CommunitySnapshot `json:"community"`
}

// FinalizeOutcome is what a finalize call returns. Applied reports whether
// this call performed the stats write; a repeat call returns the stored
// judgements with Applied=false.
type FinalizeOutcome struct {
	SessionID  string      `json:"session_id"`
	TotalScore float64     `json:"total_score"`
	Judgements []Judgement `json:"judgements"`
	User       *User       `json:"-"`
	Applied    bool        `json:"-"`
}
