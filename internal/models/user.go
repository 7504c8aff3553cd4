package models

import "time"

// User identity kinds. The only legal transition is anonymous to
// authenticated, never the reverse.
const (
	UserKindAnonymous     = "anonymous"
	UserKindAuthenticated = "authenticated"
)

const dateLayout = "2006-01-02"

type User struct {
	ID           string  `json:"id"`
	Kind         string  `json:"kind"`
	DeviceID     *string `json:"device_id,omitempty"`
	Email        *string `json:"email,omitempty"`
	Username     *string `json:"username,omitempty"`
	PasswordHash []byte  `json:"-"`
	MergedInto   *string `json:"-"`

	TotalScore        float64 `json:"total_score"`
	GamesPlayed       int     `json:"games_played"`
	QuestionsAnswered int     `json:"questions_answered"`
	QuestionsCaptured int     `json:"questions_captured"`
	CurrentStreak     int     `json:"current_streak"`
	BestStreak        int     `json:"best_streak"`
	BestSingleScore   float64 `json:"best_single_score"`
	LastHitDate       *string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Retired() bool {
	return u.MergedInto != nil
}

func (u *User) AverageScore() float64 {
	if u.GamesPlayed == 0 {
		return 0
	}
	return u.TotalScore / float64(u.GamesPlayed)
}

// CalibrationRate is the running fraction of answered questions that were
// hits, across the user's full history.
func (u *User) CalibrationRate() float64 {
	if u.QuestionsAnswered == 0 {
		return 0
	}
	return float64(u.QuestionsCaptured) / float64(u.QuestionsAnswered)
}

// ApplyFinalize folds one finalized session into the running aggregates.
// date is the session's play date; the streak is date-granular: a day with
// at least one hit extends or restarts it, a hitless day resets it.
func (u *User) ApplyFinalize(date string, sessionScore float64, answered, captured int, bestQuestionScore float64, anyHit bool) {
	u.GamesPlayed++
	u.TotalScore += sessionScore
	u.QuestionsAnswered += answered
	u.QuestionsCaptured += captured
	if bestQuestionScore > u.BestSingleScore {
		u.BestSingleScore = bestQuestionScore
	}

	if anyHit {
		switch {
		case u.LastHitDate != nil && *u.LastHitDate == date:
			// Second session on an already-hit day: streak unchanged.
		case u.LastHitDate != nil && *u.LastHitDate == previousDay(date):
			u.CurrentStreak++
		default:
			u.CurrentStreak = 1
		}
		d := date
		u.LastHitDate = &d
	} else if u.LastHitDate == nil || *u.LastHitDate != date {
		u.CurrentStreak = 0
	}

	if u.CurrentStreak > u.BestStreak {
		u.BestStreak = u.CurrentStreak
	}
}

// AbsorbCounters folds another user's cumulative counters into u. Counts and
// totals sum, bests take the max. Streak fields are left to the caller, which
// must recompute them from the merged chronological history.
func (u *User) AbsorbCounters(src *User) {
	u.TotalScore += src.TotalScore
	u.GamesPlayed += src.GamesPlayed
	u.QuestionsAnswered += src.QuestionsAnswered
	u.QuestionsCaptured += src.QuestionsCaptured
	if src.BestStreak > u.BestStreak {
		u.BestStreak = src.BestStreak
	}
	if src.BestSingleScore > u.BestSingleScore {
		u.BestSingleScore = src.BestSingleScore
	}
}

// StreakFromHitDays recomputes streaks from a sorted ascending list of
// distinct YYYY-MM-DD dates on which the user had at least one hit.
// current is the length of the run ending at the most recent hit day,
// longest is the longest run anywhere in the history.
func StreakFromHitDays(dates []string) (current, longest int, lastDate string) {
	if len(dates) == 0 {
		return 0, 0, ""
	}
	run := 1
	longest = 1
	for i := 1; i < len(dates); i++ {
		if previousDay(dates[i]) == dates[i-1] {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return run, longest, dates[len(dates)-1]
}

func previousDay(date string) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(dateLayout)
}
