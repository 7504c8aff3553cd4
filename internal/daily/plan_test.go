package daily_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/estimatic/internal/daily"
	"github.com/vytor/estimatic/internal/models"
)

func pool(n int) []models.Question {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{ID: int64(i + 1), Active: true}
	}
	return qs
}

func TestPlan_PartitionsFloorOfPool(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// 23 questions, batches of 5: exactly 4 dates, 3 questions unused.
	slots, err := daily.Plan(pool(23), start, 5, 42)
	require.NoError(t, err)
	require.Len(t, slots, 20)

	byDate := map[string][]models.DailySlot{}
	for _, s := range slots {
		byDate[s.Date] = append(byDate[s.Date], s)
	}
	require.Len(t, byDate, 4)

	seen := map[int64]string{}
	for date, batch := range byDate {
		assert.Len(t, batch, 5, "date %s", date)

		orders := map[int]bool{}
		for _, s := range batch {
			orders[s.DisplayOrder] = true
			assert.True(t, s.Published)

			prev, dup := seen[s.QuestionID]
			assert.False(t, dup, "question %d on both %s and %s", s.QuestionID, prev, date)
			seen[s.QuestionID] = date
		}
		// Orders unique and contiguous from 0.
		for o := 0; o < 5; o++ {
			assert.True(t, orders[o], "date %s missing order %d", date, o)
		}
	}
}

func TestPlan_ConsecutiveDatesFromStart(t *testing.T) {
	start := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	slots, err := daily.Plan(pool(10), start, 5, 1)
	require.NoError(t, err)

	dates := map[string]bool{}
	for _, s := range slots {
		dates[s.Date] = true
	}
	assert.Equal(t, map[string]bool{"2026-08-30": true, "2026-08-31": true}, dates, "spans the month boundary")
}

func TestPlan_DeterministicPerSeed(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	a, err := daily.Plan(pool(25), start, 5, 7)
	require.NoError(t, err)
	b, err := daily.Plan(pool(25), start, 5, 7)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := daily.Plan(pool(25), start, 5, 8)
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "different seed shuffles differently")
}

func TestPlan_PoolSmallerThanBatch(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	_, err := daily.Plan(pool(3), start, 5, 1)
	assert.Error(t, err)
}

func TestPlan_InvalidBatchSize(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	_, err := daily.Plan(pool(10), start, 0, 1)
	assert.Error(t, err)
}
