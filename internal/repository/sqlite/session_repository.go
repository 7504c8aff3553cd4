package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vytor/estimatic/internal/db"
	"github.com/vytor/estimatic/internal/logger"
	"github.com/vytor/estimatic/internal/models"
	"github.com/vytor/estimatic/internal/repository"
)

type sessionRepository struct {
	db *db.DB
}

// NewSessionRepository creates a new SessionRepository implementation
func NewSessionRepository(database *db.DB) repository.SessionRepository {
	return &sessionRepository{db: database}
}

func (r *sessionRepository) Insert(ctx context.Context, s models.Session) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("inserting session: id=%s, user_id=%s, date=%s", s.ID, s.UserID, s.ForDate)

	return db.Tx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions (id, user_id, for_date, state, created_at)
VALUES (?, ?, ?, ?, ?)
`, s.ID, s.UserID, s.ForDate, s.State, s.CreatedAt); err != nil {
			log.Error("failed to insert session: %v", err)
			return err
		}
		for position, questionID := range s.QuestionIDs {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO session_questions (session_id, question_id, position)
VALUES (?, ?, ?)
`, s.ID, questionID, position); err != nil {
				log.Error("failed to insert session question: %v", err)
				return err
			}
		}
		return nil
	})
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("getting session: id=%s", id)

	var s models.Session
	var finalizedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `
SELECT id, user_id, for_date, state, total_score, finalized_at, created_at
FROM sessions
WHERE id = ?
`, id).Scan(&s.ID, &s.UserID, &s.ForDate, &s.State, &s.TotalScore, &finalizedAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("session not found: id=%s", id)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get session: %v", err)
		return nil, err
	}
	if finalizedAt.Valid {
		s.FinalizedAt = &finalizedAt.Time
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT question_id FROM session_questions WHERE session_id = ? ORDER BY position
`, id)
	if err != nil {
		log.Error("failed to query session questions: %v", err)
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var questionID int64
		if err := rows.Scan(&questionID); err != nil {
			return nil, err
		}
		s.QuestionIDs = append(s.QuestionIDs, questionID)
	}
	return &s, rows.Err()
}

func (r *sessionRepository) InsertAnswer(ctx context.Context, a models.Answer) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("inserting answer: session_id=%s, question_id=%d", a.SessionID, a.QuestionID)

	// The state guard lives in the statement itself so a finalize committing
	// between the service's check and this insert cannot orphan an answer.
	res, err := r.db.ExecContext(ctx, `
INSERT INTO answers (session_id, question_id, lower, upper, created_at)
SELECT ?, ?, ?, ?, ?
WHERE EXISTS (SELECT 1 FROM sessions WHERE id = ? AND state = ?)
`, a.SessionID, a.QuestionID, a.Lower, a.Upper, a.CreatedAt, a.SessionID, models.SessionStateCreated)
	if err != nil {
		if isConstraintErr(err) {
			log.Debug("duplicate answer rejected: session_id=%s, question_id=%d", a.SessionID, a.QuestionID)
			return repository.ErrDuplicateAnswer
		}
		log.Error("failed to insert answer: %v", err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		log.Debug("answer rejected, session closed: session_id=%s", a.SessionID)
		return repository.ErrSessionClosed
	}
	return nil
}

func (r *sessionRepository) Answers(ctx context.Context, sessionID string) ([]models.Answer, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("fetching answers: session_id=%s", sessionID)

	rows, err := r.db.QueryContext(ctx, `
SELECT session_id, question_id, lower, upper, created_at
FROM answers
WHERE session_id = ?
`, sessionID)
	if err != nil {
		log.Error("failed to query answers: %v", err)
		return nil, err
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var a models.Answer
		if err := rows.Scan(&a.SessionID, &a.QuestionID, &a.Lower, &a.Upper, &a.CreatedAt); err != nil {
			log.Error("failed to scan answer: %v", err)
			return nil, err
		}
		answers = append(answers, a)
	}
	log.Debug("found %d answers", len(answers))
	return answers, rows.Err()
}

// Finalize judges the session inside a single transaction: it flips the
// session state (the atomic idempotency guard), folds the answered
// judgements into the community triples, snapshots those triples back into
// the judgement rows, and updates the owner's aggregates and category stats.
// If another call already finalized the session, the stored outcome is
// returned unchanged and nothing is recounted.
func (r *sessionRepository) Finalize(ctx context.Context, s *models.Session, judgements []models.Judgement) (*models.FinalizeOutcome, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("finalizing session: id=%s", s.ID)

	var outcome *models.FinalizeOutcome
	err := db.Tx(ctx, r.db, func(tx *sql.Tx) error {
		now := time.Now()
		totalScore := 0.0
		for _, j := range judgements {
			totalScore += j.Score
		}

		res, err := tx.ExecContext(ctx, `
UPDATE sessions
SET state = ?, total_score = ?, finalized_at = ?
WHERE id = ? AND state = ?
`, models.SessionStateFinalized, totalScore, now, s.ID, models.SessionStateCreated)
		if err != nil {
			log.Error("failed to mark session finalized: %v", err)
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Lost the race or repeat call: hand back the stored outcome.
			log.Debug("session already finalized: id=%s", s.ID)
			outcome, err = storedOutcomeTx(ctx, tx, s.ID)
			return err
		}

		for i := range judgements {
			j := &judgements[i]
			if j.Answered {
				if _, err := tx.ExecContext(ctx, `
INSERT INTO question_stats (question_id, answer_count, score_sum, best_score)
VALUES (?, 1, ?, ?)
ON CONFLICT(question_id) DO UPDATE SET
    answer_count = answer_count + 1,
    score_sum = score_sum + excluded.score_sum,
    best_score = MAX(best_score, excluded.best_score)
`, j.QuestionID, j.Score, j.Score); err != nil {
					log.Error("failed to update question stats: %v", err)
					return err
				}
			}

			var stat models.QuestionStat
			stat.QuestionID = j.QuestionID
			err := tx.QueryRowContext(ctx, `
SELECT answer_count, score_sum, best_score FROM question_stats WHERE question_id = ?
`, j.QuestionID).Scan(&stat.AnswerCount, &stat.ScoreSum, &stat.BestScore)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				log.Error("failed to read question stats: %v", err)
				return err
			}
			j.Community = stat.Snapshot()

			if _, err := tx.ExecContext(ctx, `
INSERT INTO judgements (session_id, question_id, category, answered, lower, upper, true_value, hit, precision, score, community_count, community_avg, community_best)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, s.ID, j.QuestionID, j.Category, boolToInt(j.Answered), j.Lower, j.Upper, j.TrueValue, boolToInt(j.Hit), j.Precision, j.Score,
				j.Community.AnswerCount, j.Community.AverageScore, j.Community.BestScore); err != nil {
				log.Error("failed to insert judgement: %v", err)
				return err
			}
		}

		user, err := getUserTx(ctx, tx, s.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return errors.New("session owner missing: " + s.UserID)
		}

		answered, captured := 0, 0
		anyHit := false
		bestScore := 0.0
		for _, j := range judgements {
			if !j.Answered {
				continue
			}
			answered++
			if j.Hit {
				captured++
				anyHit = true
			}
			if j.Score > bestScore {
				bestScore = j.Score
			}
		}
		user.ApplyFinalize(s.ForDate, totalScore, answered, captured, bestScore, anyHit)
		if err := updateUserAggregatesTx(ctx, tx, user); err != nil {
			log.Error("failed to update user aggregates: %v", err)
			return err
		}

		for _, j := range judgements {
			if !j.Answered {
				continue
			}
			hit := 0
			if j.Hit {
				hit = 1
			}
			if _, err := tx.ExecContext(ctx, `
INSERT INTO category_stats (user_id, category, answered, captured, score_sum)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT(user_id, category) DO UPDATE SET
    answered = answered + 1,
    captured = captured + excluded.captured,
    score_sum = score_sum + excluded.score_sum
`, s.UserID, j.Category, hit, j.Score); err != nil {
				log.Error("failed to update category stats: %v", err)
				return err
			}
		}

		outcome = &models.FinalizeOutcome{
			SessionID:  s.ID,
			TotalScore: totalScore,
			Judgements: judgements,
			User:       user,
			Applied:    true,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome.Applied {
		log.Info("session finalized: id=%s, score=%.2f", s.ID, outcome.TotalScore)
	}
	return outcome, nil
}

func (r *sessionRepository) StoredOutcome(ctx context.Context, sessionID string) (*models.FinalizeOutcome, error) {
	var outcome *models.FinalizeOutcome
	err := db.Tx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		outcome, err = storedOutcomeTx(ctx, tx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func storedOutcomeTx(ctx context.Context, tx *sql.Tx, sessionID string) (*models.FinalizeOutcome, error) {
	outcome := &models.FinalizeOutcome{SessionID: sessionID}

	err := tx.QueryRowContext(ctx, `
SELECT total_score FROM sessions WHERE id = ? AND state = ?
`, sessionID, models.SessionStateFinalized).Scan(&outcome.TotalScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.New("session not finalized: " + sessionID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
SELECT j.question_id, j.category, j.answered, j.lower, j.upper, j.true_value, j.hit, j.precision, j.score,
       j.community_count, j.community_avg, j.community_best
FROM judgements j
JOIN session_questions sq ON sq.session_id = j.session_id AND sq.question_id = j.question_id
WHERE j.session_id = ?
ORDER BY sq.position
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var j models.Judgement
		var answered, hit int
		if err := rows.Scan(&j.QuestionID, &j.Category, &answered, &j.Lower, &j.Upper, &j.TrueValue, &hit, &j.Precision, &j.Score,
			&j.Community.AnswerCount, &j.Community.AverageScore, &j.Community.BestScore); err != nil {
			return nil, err
		}
		j.Answered = answered != 0
		j.Hit = hit != 0
		outcome.Judgements = append(outcome.Judgements, j)
	}
	return outcome, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
