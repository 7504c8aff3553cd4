// Package daily partitions the active question pool into per-date slot
// batches for the daily rotation. A plan is computed from explicit inputs
// (pool, start date, batch size, seed) and carries no package-level state, so
// one population run cannot leak into the next.
package daily

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/vytor/estimatic/internal/models"
)

const dateLayout = "2006-01-02"

// Plan shuffles questions and partitions them into consecutive dates of
// exactly batchSize slots each, starting at start. For N questions it fills
// floor(N/batchSize) dates; the remainder is left unassigned. No question
// appears on two dates within one plan. Display orders run 0..batchSize-1.
func Plan(questions []models.Question, start time.Time, batchSize int, seed int64) ([]models.DailySlot, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	days := len(questions) / batchSize
	if days == 0 {
		return nil, fmt.Errorf("pool of %d questions cannot fill a single batch of %d", len(questions), batchSize)
	}

	shuffled := make([]models.Question, len(questions))
	copy(shuffled, questions)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	slots := make([]models.DailySlot, 0, days*batchSize)
	for day := 0; day < days; day++ {
		date := start.AddDate(0, 0, day).Format(dateLayout)
		for order := 0; order < batchSize; order++ {
			slots = append(slots, models.DailySlot{
				Date:         date,
				QuestionID:   shuffled[day*batchSize+order].ID,
				DisplayOrder: order,
				Published:    true,
			})
		}
	}
	return slots, nil
}
