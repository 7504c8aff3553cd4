package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vytor/estimatic/internal/errors"
	"github.com/vytor/estimatic/internal/logger"
)

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	user := userFromContext(r.Context())
	if user == nil {
		handleError(w, r, errors.NewAuthRequiredError())
		return
	}

	session, questions, err := s.Sessions.Start(r.Context(), user.ID, today())
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Info("session started: id=%s, date=%s", session.ID, session.ForDate)
	respondJSON(w, http.StatusCreated, map[string]any{
		"session":   session,
		"questions": questions,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		handleError(w, r, errors.NewAuthRequiredError())
		return
	}

	session, err := s.Sessions.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session": session})
}

type answerRequest struct {
	QuestionID int64   `json:"question_id"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		handleError(w, r, errors.NewAuthRequiredError())
		return
	}

	var req answerRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	err := s.Sessions.SubmitAnswer(r.Context(), user.ID, chi.URLParam(r, "id"), req.QuestionID, req.Lower, req.Upper)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func (s *Server) handleFinalizeSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	user := userFromContext(r.Context())
	if user == nil {
		handleError(w, r, errors.NewAuthRequiredError())
		return
	}

	outcome, err := s.Sessions.Finalize(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Info("session finalized: id=%s, total=%.2f", outcome.SessionID, outcome.TotalScore)
	respondJSON(w, http.StatusOK, outcome)
}
