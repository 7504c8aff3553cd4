package api

import (
	"net/http"

	"github.com/vytor/estimatic/internal/errors"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		handleError(w, r, errors.NewAuthRequiredError())
		return
	}

	profile, err := s.Stats.Profile(r.Context(), user.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleProfileCategories(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		handleError(w, r, errors.NewAuthRequiredError())
		return
	}

	categories, err := s.Stats.Categories(r.Context(), user.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

type usernameRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleClaimUsername(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		handleError(w, r, errors.NewAuthRequiredError())
		return
	}

	var req usernameRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	updated, err := s.Identity.ClaimUsername(r.Context(), user.ID, req.Username)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": updated})
}
