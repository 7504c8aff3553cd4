package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/estimatic/internal/db"
	"github.com/vytor/estimatic/internal/logger"
	"github.com/vytor/estimatic/internal/models"
	"github.com/vytor/estimatic/internal/repository"
)

type questionRepository struct {
	db *db.DB
}

// NewQuestionRepository creates a new QuestionRepository implementation
func NewQuestionRepository(database *db.DB) repository.QuestionRepository {
	return &questionRepository{db: database}
}

const questionColumns = `id, prompt, unit, true_value, source, category, distribution_tier, active, created_at`

func scanQuestion(row interface{ Scan(...any) error }) (*models.Question, error) {
	var q models.Question
	var active int
	err := row.Scan(&q.ID, &q.Prompt, &q.Unit, &q.TrueValue, &q.Source, &q.Category, &q.DistributionTier, &active, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	q.Active = active != 0
	return &q, nil
}

func (r *questionRepository) Get(ctx context.Context, id int64) (*models.Question, error) {
	log := logger.FromContext(ctx).WithPrefix("question_repo")
	log.Debug("getting question: id=%d", id)

	q, err := scanQuestion(r.db.QueryRowContext(ctx, `
SELECT `+questionColumns+`
FROM questions
WHERE id = ?
`, id))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("question not found: id=%d", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get question: %v", err)
		return nil, err
	}
	return q, nil
}

func (r *questionRepository) QuestionsForDate(ctx context.Context, date string) ([]models.Question, error) {
	log := logger.FromContext(ctx).WithPrefix("question_repo")
	log.Debug("fetching questions for date: %s", date)

	rows, err := r.db.QueryContext(ctx, `
SELECT q.id, q.prompt, q.unit, q.true_value, q.source, q.category, q.distribution_tier, q.active, q.created_at
FROM daily_slots ds
JOIN questions q ON q.id = ds.question_id
WHERE ds.date = ? AND ds.published = 1
ORDER BY ds.display_order
`, date)
	if err != nil {
		log.Error("failed to query daily questions: %v", err)
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			log.Error("failed to scan question row: %v", err)
			return nil, err
		}
		questions = append(questions, *q)
	}
	log.Debug("found %d questions for %s", len(questions), date)
	return questions, rows.Err()
}

func (r *questionRepository) ListUnslotted(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error) {
	log := logger.FromContext(ctx).WithPrefix("question_repo")
	log.Debug("listing unslotted questions: tier=%s, category=%s", filter.DistributionTier, filter.Category)

	query := sqlBuilder.Select(
		"id", "prompt", "unit", "true_value", "source", "category", "distribution_tier", "active", "created_at",
	).From("questions").
		Where("id NOT IN (SELECT question_id FROM daily_slots)")

	if filter.ActiveOnly {
		query = query.Where(squirrel.Eq{"active": 1})
	}
	if filter.DistributionTier != "" {
		query = query.Where(squirrel.Eq{"distribution_tier": filter.DistributionTier})
	}
	if filter.Category != "" {
		query = query.Where(squirrel.Eq{"category": filter.Category})
	}
	query = query.OrderBy("id ASC")
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		log.Error("failed to list questions: %v", err)
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			log.Error("failed to scan question row: %v", err)
			return nil, err
		}
		questions = append(questions, *q)
	}
	log.Debug("found %d unslotted questions", len(questions))
	return questions, rows.Err()
}

func (r *questionRepository) Insert(ctx context.Context, q models.Question) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("question_repo")
	log.Debug("inserting question: %q", q.Prompt)

	active := 0
	if q.Active {
		active = 1
	}
	res, err := r.db.ExecContext(ctx, `
INSERT INTO questions (prompt, unit, true_value, source, category, distribution_tier, active)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, q.Prompt, q.Unit, q.TrueValue, q.Source, q.Category, q.DistributionTier, active)
	if err != nil {
		log.Error("failed to insert question: %v", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Error("failed to get question id: %v", err)
		return 0, err
	}
	log.Debug("question inserted: id=%d", id)
	return id, nil
}

func (r *questionRepository) InsertSlots(ctx context.Context, slots []models.DailySlot) error {
	log := logger.FromContext(ctx).WithPrefix("question_repo")
	log.Debug("inserting %d daily slots", len(slots))

	return db.Tx(ctx, r.db, func(tx *sql.Tx) error {
		for _, s := range slots {
			published := 0
			if s.Published {
				published = 1
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO daily_slots (date, question_id, display_order, published)
VALUES (?, ?, ?, ?)
`, s.Date, s.QuestionID, s.DisplayOrder, published); err != nil {
				if isConstraintErr(err) {
					return repository.ErrSlotConflict
				}
				log.Error("failed to insert daily slot: %v", err)
				return err
			}
		}
		return nil
	})
}

func (r *questionRepository) DatesPopulated(ctx context.Context, dates []string) ([]string, error) {
	log := logger.FromContext(ctx).WithPrefix("question_repo")
	if len(dates) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(dates)), ",")
	args := make([]any, len(dates))
	for i, d := range dates {
		args[i] = d
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT DISTINCT date FROM daily_slots WHERE date IN (`+placeholders+`) ORDER BY date
`, args...)
	if err != nil {
		log.Error("failed to query populated dates: %v", err)
		return nil, err
	}
	defer rows.Close()

	var populated []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		populated = append(populated, d)
	}
	return populated, rows.Err()
}
