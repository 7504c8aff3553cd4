package api

import (
	"net/http"
	"time"

	"github.com/vytor/estimatic/internal/services"
)

// Server holds the service dependencies for the HTTP handlers.
type Server struct {
	Identity  services.IdentityService
	Questions services.QuestionService
	Sessions  services.SessionService
	Stats     services.StatsService
	Feedback  services.FeedbackService
}

// today returns the current play date in UTC. Sessions are always started
// against the server's date, never a client-supplied one.
func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
