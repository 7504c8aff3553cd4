package api

import (
	"net/http"

	"github.com/vytor/estimatic/internal/logger"
)

type deviceInitRequest struct {
	DeviceID string `json:"device_id"`
}

// handleDeviceInit provisions (or re-resolves) the anonymous user for a
// device. Clients call this once on first load and keep the device id.
func (s *Server) handleDeviceInit(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req deviceInitRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.DeviceID == "" {
		req.DeviceID = r.Header.Get("X-Device-ID")
	}

	user, err := s.Identity.GetOrCreateDeviceUser(r.Context(), req.DeviceID)
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Debug("device initialized: user_id=%s", user.ID)
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	result, err := s.Identity.Signup(r.Context(), req.Email, req.Password, r.Header.Get("X-Device-ID"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	result, err := s.Identity.Login(r.Context(), req.Email, req.Password, r.Header.Get("X-Device-ID"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
