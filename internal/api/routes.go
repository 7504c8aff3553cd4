package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)
	r.Use(s.identityMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/device/init", s.handleDeviceInit)
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Post("/sessions", s.handleStartSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Post("/sessions/{id}/answers", s.handleSubmitAnswer)
		r.Post("/sessions/{id}/finalize", s.handleFinalizeSession)

		r.Get("/profile", s.handleProfile)
		r.Get("/profile/categories", s.handleProfileCategories)
		r.Post("/profile/username", s.handleClaimUsername)

		r.Post("/feedback", s.handleSubmitFeedback)
		r.Get("/feedback", s.handleListFeedback)
	})

	return r
}
