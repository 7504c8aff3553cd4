package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vytor/estimatic/internal/api"
	"github.com/vytor/estimatic/internal/auth"
	"github.com/vytor/estimatic/internal/models"
	"github.com/vytor/estimatic/internal/repository"
	"github.com/vytor/estimatic/internal/repository/sqlite"
	"github.com/vytor/estimatic/internal/services"
	"github.com/vytor/estimatic/internal/testutil"
)

type APISuite struct {
	suite.Suite
	server *httptest.Server
	users  repository.UserRepository
}

func (s *APISuite) SetupTest() {
	database := testutil.NewTestDB(s.T())
	ctx := context.Background()

	questionRepo := sqlite.NewQuestionRepository(database)
	sessionRepo := sqlite.NewSessionRepository(database)
	s.users = sqlite.NewUserRepository(database)
	feedbackRepo := sqlite.NewFeedbackRepository(database)

	signer := auth.NewSigner("test-secret", time.Hour)
	questionSvc := services.NewQuestionService(questionRepo)

	srv := &api.Server{
		Identity:  services.NewIdentityService(s.users, signer, signer),
		Questions: questionSvc,
		Sessions:  services.NewSessionService(sessionRepo, questionSvc),
		Stats:     services.NewStatsService(s.users),
		Feedback:  services.NewFeedbackService(feedbackRepo),
	}

	// Slot questions for today so sessions can start.
	today := time.Now().UTC().Format("2006-01-02")
	for i, tv := range []float64{1440, 8849} {
		id, err := questionRepo.Insert(ctx, models.Question{Prompt: "q", TrueValue: tv, Category: "general", Active: true})
		s.Require().NoError(err)
		s.Require().NoError(questionRepo.InsertSlots(ctx, []models.DailySlot{
			{Date: today, QuestionID: id, DisplayOrder: i, Published: true},
		}))
	}

	s.server = httptest.NewServer(srv.Routes())
	s.T().Cleanup(s.server.Close)
}

func (s *APISuite) request(method, path string, body any, headers map[string]string) (*http.Response, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func (s *APISuite) TestHealth() {
	resp, body := s.request(http.MethodGet, "/health", nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("ok", body["status"])
}

func (s *APISuite) TestDeviceInitAndSessionFlow() {
	device := map[string]string{"X-Device-ID": "device-1"}

	resp, body := s.request(http.MethodPost, "/api/device/init", map[string]string{"device_id": "device-1"}, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(body["user"].(map[string]any)["id"])

	resp, body = s.request(http.MethodPost, "/api/sessions", map[string]string{}, device)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	session := body["session"].(map[string]any)
	sessionID := session["id"].(string)
	questions := body["questions"].([]any)
	s.Require().Len(questions, 2)
	// True values never appear in the client payload.
	for _, q := range questions {
		_, leaked := q.(map[string]any)["true_value"]
		s.False(leaked)
	}

	qid := int64(questions[0].(map[string]any)["id"].(float64))
	resp, _ = s.request(http.MethodPost, fmt.Sprintf("/api/sessions/%s/answers", sessionID), map[string]any{
		"question_id": qid, "lower": 1400, "upper": 1600,
	}, device)
	s.Equal(http.StatusAccepted, resp.StatusCode)

	resp, body = s.request(http.MethodPost, fmt.Sprintf("/api/sessions/%s/finalize", sessionID), map[string]string{}, device)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	judgements := body["judgements"].([]any)
	s.Require().Len(judgements, 2)
	// Judgements do reveal true values, after the session is closed.
	s.Equal(1440.0, judgements[0].(map[string]any)["true_value"])

	resp, body = s.request(http.MethodGet, "/api/profile", nil, device)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(1.0, body["user"].(map[string]any)["games_played"])
}

func (s *APISuite) TestSessionRequiresIdentity() {
	resp, body := s.request(http.MethodPost, "/api/sessions", map[string]string{}, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	s.Equal("AUTH_REQUIRED", errObj["code"])
}

func (s *APISuite) TestInvalidTokenNotDowngradedToDevice() {
	// Provision the device so the fallback path would succeed if taken.
	_, _ = s.request(http.MethodPost, "/api/device/init", map[string]string{"device_id": "device-1"}, nil)

	resp, body := s.request(http.MethodPost, "/api/sessions", map[string]string{}, map[string]string{
		"Authorization": "Bearer not.a.token",
		"X-Device-ID":   "device-1",
	})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("AUTH_REJECTED", body["error"].(map[string]any)["code"])
}

func (s *APISuite) TestErrorBodyCarriesDetails() {
	device := map[string]string{"X-Device-ID": "device-1"}
	_, _ = s.request(http.MethodPost, "/api/device/init", map[string]string{"device_id": "device-1"}, nil)

	resp, _ := s.request(http.MethodPost, "/api/profile/username", map[string]string{"username": "taken_name"}, device)
	s.Equal(http.StatusOK, resp.StatusCode)

	_, _ = s.request(http.MethodPost, "/api/device/init", map[string]string{"device_id": "device-2"}, nil)
	resp, body := s.request(http.MethodPost, "/api/profile/username", map[string]string{"username": "taken_name"}, map[string]string{"X-Device-ID": "device-2"})
	s.Equal(http.StatusConflict, resp.StatusCode)

	errObj := body["error"].(map[string]any)
	s.Equal("CONFLICT", errObj["code"])
	details := errObj["details"].(map[string]any)
	s.NotEmpty(details["suggestions"])
}

func (s *APISuite) TestFeedbackAcceptsAnonymous() {
	resp, body := s.request(http.MethodPost, "/api/feedback", map[string]string{
		"text": "more geography questions please", "page_url": "/play",
	}, nil)
	s.Equal(http.StatusCreated, resp.StatusCode)
	s.NotEmpty(body["id"])

	resp, body = s.request(http.MethodPost, "/api/feedback", map[string]string{"text": "  "}, nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("VALIDATION_ERROR", body["error"].(map[string]any)["code"])
}

func (s *APISuite) TestFeedbackListReturnsOwnSubmissions() {
	device := map[string]string{"X-Device-ID": "device-1"}
	_, _ = s.request(http.MethodPost, "/api/device/init", map[string]string{"device_id": "device-1"}, nil)

	resp, _ := s.request(http.MethodPost, "/api/feedback", map[string]string{"text": "first note"}, device)
	s.Equal(http.StatusCreated, resp.StatusCode)
	resp, _ = s.request(http.MethodPost, "/api/feedback", map[string]string{"text": "second note"}, device)
	s.Equal(http.StatusCreated, resp.StatusCode)

	// Another identity's submission stays out of the listing.
	_, _ = s.request(http.MethodPost, "/api/device/init", map[string]string{"device_id": "device-2"}, nil)
	resp, _ = s.request(http.MethodPost, "/api/feedback", map[string]string{"text": "someone else"}, map[string]string{"X-Device-ID": "device-2"})
	s.Equal(http.StatusCreated, resp.StatusCode)

	resp, body := s.request(http.MethodGet, "/api/feedback", nil, device)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	items := body["feedback"].([]any)
	s.Require().Len(items, 2)
	s.Equal("second note", items[0].(map[string]any)["text"])
	s.Equal("first note", items[1].(map[string]any)["text"])

	resp, body = s.request(http.MethodGet, "/api/feedback?limit=1", nil, device)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Len(body["feedback"].([]any), 1)

	// Listing needs an identity.
	resp, body = s.request(http.MethodGet, "/api/feedback", nil, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("AUTH_REQUIRED", body["error"].(map[string]any)["code"])
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}
