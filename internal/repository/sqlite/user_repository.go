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

type userRepository struct {
	db *db.DB
}

// NewUserRepository creates a new UserRepository implementation
func NewUserRepository(database *db.DB) repository.UserRepository {
	return &userRepository{db: database}
}

const userColumns = `id, kind, device_id, email, username, password_hash, merged_into,
       total_score, games_played, questions_answered, questions_captured,
       current_streak, best_streak, best_single_score, last_hit_date, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var deviceID, email, username, mergedInto, lastHitDate sql.NullString
	var passwordHash []byte
	err := row.Scan(&u.ID, &u.Kind, &deviceID, &email, &username, &passwordHash, &mergedInto,
		&u.TotalScore, &u.GamesPlayed, &u.QuestionsAnswered, &u.QuestionsCaptured,
		&u.CurrentStreak, &u.BestStreak, &u.BestSingleScore, &lastHitDate, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if deviceID.Valid {
		u.DeviceID = &deviceID.String
	}
	if email.Valid {
		u.Email = &email.String
	}
	if username.Valid {
		u.Username = &username.String
	}
	if mergedInto.Valid {
		u.MergedInto = &mergedInto.String
	}
	if lastHitDate.Valid {
		u.LastHitDate = &lastHitDate.String
	}
	u.PasswordHash = passwordHash
	return &u, nil
}

func (r *userRepository) Get(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *userRepository) GetByDeviceID(ctx context.Context, deviceID string) (*models.User, error) {
	return r.getBy(ctx, "device_id", deviceID)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *userRepository) getBy(ctx context.Context, column, value string) (*models.User, error) {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("getting user by %s", column)

	u, err := scanUser(r.db.QueryRowContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE `+column+` = ?
`, value))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("user not found by %s", column)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get user by %s: %v", column, err)
		return nil, err
	}
	return u, nil
}

// CreateDeviceUser provisions an anonymous user keyed by deviceID. It is
// idempotent: a concurrent or repeat call returns the existing record.
func (r *userRepository) CreateDeviceUser(ctx context.Context, id, deviceID string) (*models.User, error) {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("provisioning device user: device_id=%s", deviceID)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, kind, device_id, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(device_id) DO NOTHING
`, id, models.UserKindAnonymous, deviceID, time.Now())
	if err != nil {
		log.Error("failed to provision device user: %v", err)
		return nil, err
	}
	return r.GetByDeviceID(ctx, deviceID)
}

// Promote flips an anonymous user to authenticated in place, attaching the
// email and password hash. The reverse transition does not exist.
func (r *userRepository) Promote(ctx context.Context, id, email string, passwordHash []byte) error {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("promoting user to authenticated: id=%s", id)

	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET kind = ?, email = ?, password_hash = ?
WHERE id = ? AND kind = ?
`, models.UserKindAuthenticated, email, passwordHash, id, models.UserKindAnonymous)
	if err != nil {
		if isConstraintErr(err) {
			return repository.ErrEmailTaken
		}
		log.Error("failed to promote user: %v", err)
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.New("user is not anonymous: " + id)
	}
	log.Info("user promoted to authenticated: id=%s", id)
	return nil
}

// CreateAuthenticated inserts a brand-new authenticated user (signup without
// a prior device identity).
func (r *userRepository) CreateAuthenticated(ctx context.Context, u *models.User) error {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("creating authenticated user: id=%s", u.ID)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, kind, email, password_hash, created_at)
VALUES (?, ?, ?, ?, ?)
`, u.ID, models.UserKindAuthenticated, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isConstraintErr(err) {
			return repository.ErrEmailTaken
		}
		log.Error("failed to create authenticated user: %v", err)
		return err
	}
	return nil
}

// Merge folds the anonymous source user's history into the authenticated
// target inside one transaction: sessions are reassigned, counters summed,
// bests maxed, streaks recomputed from the merged chronological hit days,
// the device id re-linked to the target, and the source retired. Re-entrant:
// if the source was already retired into the target, the call is a no-op.
func (r *userRepository) Merge(ctx context.Context, sourceID, targetID string) (*models.User, error) {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("merging users: source=%s, target=%s", sourceID, targetID)

	var merged *models.User
	err := db.Tx(ctx, r.db, func(tx *sql.Tx) error {
		source, err := getUserTx(ctx, tx, sourceID)
		if err != nil {
			return err
		}
		target, err := getUserTx(ctx, tx, targetID)
		if err != nil {
			return err
		}
		if source == nil || target == nil {
			return repository.ErrMergeConflict
		}
		if source.Retired() {
			if *source.MergedInto == targetID {
				// Retry of a completed merge.
				log.Debug("merge already applied: source=%s", sourceID)
				merged = target
				return nil
			}
			return repository.ErrMergeConflict
		}
		if source.Kind != models.UserKindAnonymous || target.Kind != models.UserKindAuthenticated {
			return repository.ErrMergeConflict
		}

		deviceID := source.DeviceID

		// Reassign history. Judgement and answer rows hang off sessions, so
		// re-pointing the sessions preserves referential integrity.
		if _, err := tx.ExecContext(ctx, `UPDATE sessions SET user_id = ? WHERE user_id = ?`, targetID, sourceID); err != nil {
			log.Error("failed to reassign sessions: %v", err)
			return err
		}

		// Fold per-category stats.
		rows, err := tx.QueryContext(ctx, `
SELECT category, answered, captured, score_sum FROM category_stats WHERE user_id = ?
`, sourceID)
		if err != nil {
			return err
		}
		var cats []models.CategoryStat
		for rows.Next() {
			var cs models.CategoryStat
			if err := rows.Scan(&cs.Category, &cs.Answered, &cs.Captured, &cs.ScoreSum); err != nil {
				rows.Close()
				return err
			}
			cats = append(cats, cs)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		for _, cs := range cats {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO category_stats (user_id, category, answered, captured, score_sum)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id, category) DO UPDATE SET
    answered = answered + excluded.answered,
    captured = captured + excluded.captured,
    score_sum = score_sum + excluded.score_sum
`, targetID, cs.Category, cs.Answered, cs.Captured, cs.ScoreSum); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM category_stats WHERE user_id = ?`, sourceID); err != nil {
			return err
		}

		target.AbsorbCounters(source)

		// The current streak is not additive: recompute it from the merged
		// chronological hit-day history.
		hitDays, err := hitDaysTx(ctx, tx, targetID)
		if err != nil {
			return err
		}
		current, longest, lastDate := models.StreakFromHitDays(hitDays)
		target.CurrentStreak = current
		if longest > target.BestStreak {
			target.BestStreak = longest
		}
		if lastDate != "" {
			target.LastHitDate = &lastDate
		}

		// Retire the source and hand its device to the target.
		if _, err := tx.ExecContext(ctx, `
UPDATE users
SET merged_into = ?, device_id = NULL,
    total_score = 0, games_played = 0, questions_answered = 0, questions_captured = 0,
    current_streak = 0, best_streak = 0, best_single_score = 0, last_hit_date = NULL
WHERE id = ?
`, targetID, sourceID); err != nil {
			log.Error("failed to retire source user: %v", err)
			return err
		}
		if deviceID != nil {
			target.DeviceID = deviceID
		}
		if err := updateUserIdentityTx(ctx, tx, target); err != nil {
			log.Error("failed to update merge target: %v", err)
			return err
		}
		if err := updateUserAggregatesTx(ctx, tx, target); err != nil {
			log.Error("failed to update merged aggregates: %v", err)
			return err
		}

		merged = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("users merged: source=%s retired into target=%s", sourceID, targetID)
	return merged, nil
}

func (r *userRepository) ClaimUsername(ctx context.Context, id, username string) error {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("claiming username: id=%s, username=%s", id, username)

	_, err := r.db.ExecContext(ctx, `UPDATE users SET username = ? WHERE id = ?`, username, id)
	if err != nil {
		if isConstraintErr(err) {
			return repository.ErrUsernameTaken
		}
		log.Error("failed to claim username: %v", err)
		return err
	}
	return nil
}

func (r *userRepository) CategoryStats(ctx context.Context, userID string) ([]models.CategoryStat, error) {
	log := logger.FromContext(ctx).WithPrefix("user_repo")
	log.Debug("fetching category stats: user_id=%s", userID)

	rows, err := r.db.QueryContext(ctx, `
SELECT user_id, category, answered, captured, score_sum
FROM category_stats
WHERE user_id = ?
ORDER BY category
`, userID)
	if err != nil {
		log.Error("failed to query category stats: %v", err)
		return nil, err
	}
	defer rows.Close()

	var stats []models.CategoryStat
	for rows.Next() {
		var cs models.CategoryStat
		if err := rows.Scan(&cs.UserID, &cs.Category, &cs.Answered, &cs.Captured, &cs.ScoreSum); err != nil {
			log.Error("failed to scan category stat: %v", err)
			return nil, err
		}
		stats = append(stats, cs)
	}
	return stats, rows.Err()
}

// Shared tx helpers, also used by the session repository's finalize.

func getUserTx(ctx context.Context, tx *sql.Tx, id string) (*models.User, error) {
	u, err := scanUser(tx.QueryRowContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = ?
`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func updateUserAggregatesTx(ctx context.Context, tx *sql.Tx, u *models.User) error {
	_, err := tx.ExecContext(ctx, `
UPDATE users
SET total_score = ?, games_played = ?, questions_answered = ?, questions_captured = ?,
    current_streak = ?, best_streak = ?, best_single_score = ?, last_hit_date = ?
WHERE id = ?
`, u.TotalScore, u.GamesPlayed, u.QuestionsAnswered, u.QuestionsCaptured,
		u.CurrentStreak, u.BestStreak, u.BestSingleScore, u.LastHitDate, u.ID)
	return err
}

func updateUserIdentityTx(ctx context.Context, tx *sql.Tx, u *models.User) error {
	_, err := tx.ExecContext(ctx, `
UPDATE users
SET device_id = ?
WHERE id = ?
`, u.DeviceID, u.ID)
	return err
}

func hitDaysTx(ctx context.Context, tx *sql.Tx, userID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
SELECT DISTINCT s.for_date
FROM judgements j
JOIN sessions s ON s.id = j.session_id
WHERE s.user_id = ? AND j.hit = 1
ORDER BY s.for_date
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
