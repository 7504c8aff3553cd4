package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vytor/estimatic/internal/api"
	"github.com/vytor/estimatic/internal/auth"
	"github.com/vytor/estimatic/internal/config"
	"github.com/vytor/estimatic/internal/db"
	"github.com/vytor/estimatic/internal/logger"
	"github.com/vytor/estimatic/internal/repository/sqlite"
	"github.com/vytor/estimatic/internal/services"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("estimatic server starting")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("questions_per_day=%d", cfg.QuestionsPerDay)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		return err
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	questionRepo := sqlite.NewQuestionRepository(database)
	sessionRepo := sqlite.NewSessionRepository(database)
	userRepo := sqlite.NewUserRepository(database)
	feedbackRepo := sqlite.NewFeedbackRepository(database)

	signer := auth.NewSigner(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)

	questionService := services.NewQuestionService(questionRepo)
	sessionService := services.NewSessionService(sessionRepo, questionService)
	identityService := services.NewIdentityService(userRepo, signer, signer)
	statsService := services.NewStatsService(userRepo)
	feedbackService := services.NewFeedbackService(feedbackRepo)

	srv := &api.Server{
		Identity:  identityService,
		Questions: questionService,
		Sessions:  sessionService,
		Stats:     statsService,
		Feedback:  feedbackService,
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
		return err
	}

	log.Info("shutdown complete")
	return nil
}
