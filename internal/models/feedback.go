package models

import "time"

type Feedback struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id,omitempty"`
	Text      string    `json:"text"`
	UserAgent string    `json:"user_agent,omitempty"`
	PageURL   string    `json:"page_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type FeedbackFilter struct {
	UserID string
	Limit  int
	Offset int
}
