package models

import "time"

type Question struct {
	ID               int64     `json:"id"`
	Prompt           string    `json:"prompt"`
	Unit             string    `json:"unit,omitempty"`
	TrueValue        float64   `json:"-"`
	Source           string    `json:"source,omitempty"`
	Category         string    `json:"category"`
	DistributionTier string    `json:"distribution_tier,omitempty"`
	Active           bool      `json:"active"`
	CreatedAt        time.Time `json:"created_at"`
}

// PublicQuestion is the client-facing view of a question. It deliberately has
// no true-value field so the answer can never leak before judgement.
type PublicQuestion struct {
	ID       int64  `json:"id"`
	Position int    `json:"position"`
	Prompt   string `json:"prompt"`
	Unit     string `json:"unit,omitempty"`
	Source   string `json:"source,omitempty"`
	Category string `json:"category"`
}

func (q Question) Public(position int) PublicQuestion {
	return PublicQuestion{
		ID:       q.ID,
		Position: position,
		Prompt:   q.Prompt,
		Unit:     q.Unit,
		Source:   q.Source,
		Category: q.Category,
	}
}

type QuestionFilter struct {
	DistributionTier string
	Category         string
	ActiveOnly       bool
	Limit            int
}

// DailySlot assigns a question to a calendar date. For a given date the
// display orders are unique and contiguous starting at 0.
type DailySlot struct {
	Date         string `json:"date"` // YYYY-MM-DD
	QuestionID   int64  `json:"question_id"`
	DisplayOrder int    `json:"display_order"`
	Published    bool   `json:"published"`
}
