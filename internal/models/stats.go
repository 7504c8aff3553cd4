package models

// QuestionStat is the running community triple for one question, updated
// once per finalized answer.
type QuestionStat struct {
	QuestionID  int64   `json:"question_id"`
	AnswerCount int     `json:"answer_count"`
	ScoreSum    float64 `json:"score_sum"`
	BestScore   float64 `json:"best_score"`
}

func (qs QuestionStat) AverageScore() float64 {
	if qs.AnswerCount == 0 {
		return 0
	}
	return qs.ScoreSum / float64(qs.AnswerCount)
}

func (qs QuestionStat) Snapshot() CommunitySnapshot {
	return CommunitySnapshot{
		AnswerCount:  qs.AnswerCount,
		AverageScore: qs.AverageScore(),
		BestScore:    qs.BestScore,
	}
}

// CategoryStat tracks one user's performance within a question category.
type CategoryStat struct {
	UserID   string  `json:"-"`
	Category string  `json:"category"`
	Answered int     `json:"answered"`
	Captured int     `json:"captured"`
	ScoreSum float64 `json:"score_sum"`
}

func (cs CategoryStat) AverageScore() float64 {
	if cs.Answered == 0 {
		return 0
	}
	return cs.ScoreSum / float64(cs.Answered)
}

func (cs CategoryStat) CalibrationRate() float64 {
	if cs.Answered == 0 {
		return 0
	}
	return float64(cs.Captured) / float64(cs.Answered)
}
