package sqlite

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/estimatic/internal/db"
	"github.com/vytor/estimatic/internal/logger"
	"github.com/vytor/estimatic/internal/models"
	"github.com/vytor/estimatic/internal/repository"
)

type feedbackRepository struct {
	db *db.DB
}

// NewFeedbackRepository creates a new FeedbackRepository implementation
func NewFeedbackRepository(database *db.DB) repository.FeedbackRepository {
	return &feedbackRepository{db: database}
}

func (r *feedbackRepository) Insert(ctx context.Context, f models.Feedback) error {
	log := logger.FromContext(ctx).WithPrefix("feedback_repo")
	log.Debug("inserting feedback: id=%s", f.ID)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO feedback (id, user_id, text, user_agent, page_url, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`, f.ID, f.UserID, f.Text, f.UserAgent, f.PageURL, f.CreatedAt)
	if err != nil {
		log.Error("failed to insert feedback: %v", err)
	}
	return err
}

func (r *feedbackRepository) List(ctx context.Context, filter models.FeedbackFilter) ([]models.Feedback, error) {
	log := logger.FromContext(ctx).WithPrefix("feedback_repo")
	log.Debug("listing feedback: user_id=%s", filter.UserID)

	query := sqlBuilder.Select("id", "user_id", "text", "user_agent", "page_url", "created_at").
		From("feedback").
		OrderBy("created_at DESC")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query = query.Limit(uint64(limit)).Offset(uint64(offset))

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list feedback: %v", err)
		return nil, err
	}
	defer rows.Close()

	var items []models.Feedback
	for rows.Next() {
		var f models.Feedback
		if err := rows.Scan(&f.ID, &f.UserID, &f.Text, &f.UserAgent, &f.PageURL, &f.CreatedAt); err != nil {
			log.Error("failed to scan feedback: %v", err)
			return nil, err
		}
		items = append(items, f)
	}
	log.Debug("found %d feedback items", len(items))
	return items, rows.Err()
}
