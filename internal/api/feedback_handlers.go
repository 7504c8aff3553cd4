package api

import (
	"net/http"
	"strconv"

	"github.com/vytor/estimatic/internal/errors"
	"github.com/vytor/estimatic/internal/models"
)

type feedbackRequest struct {
	Text    string `json:"text"`
	PageURL string `json:"page_url"`
}

// handleSubmitFeedback accepts feedback from anyone, identified or not.
func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	var userID *string
	if user := userFromContext(r.Context()); user != nil {
		userID = &user.ID
	}

	fb, err := s.Feedback.Submit(r.Context(), userID, req.Text, r.UserAgent(), req.PageURL)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"id": fb.ID})
}

// handleListFeedback returns the caller's own submissions, newest first.
func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		handleError(w, r, errors.NewAuthRequiredError())
		return
	}

	filter := models.FeedbackFilter{UserID: user.ID}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	items, err := s.Feedback.List(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Feedback{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"feedback": items})
}
