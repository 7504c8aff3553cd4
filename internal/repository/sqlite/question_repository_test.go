package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vytor/estimatic/internal/db"
	"github.com/vytor/estimatic/internal/models"
	"github.com/vytor/estimatic/internal/repository"
	"github.com/vytor/estimatic/internal/repository/sqlite"
	"github.com/vytor/estimatic/internal/testutil"
)

type QuestionRepositorySuite struct {
	suite.Suite
	db   *db.DB
	repo repository.QuestionRepository
}

func (s *QuestionRepositorySuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.repo = sqlite.NewQuestionRepository(s.db)
}

func (s *QuestionRepositorySuite) insert(q models.Question) int64 {
	id, err := s.repo.Insert(context.Background(), q)
	s.Require().NoError(err)
	return id
}

func (s *QuestionRepositorySuite) TestInsertAndGet() {
	ctx := context.Background()
	id := s.insert(models.Question{
		Prompt: "Height of Mount Everest in metres?", Unit: "m", TrueValue: 8849,
		Category: "geography", DistributionTier: "daily", Active: true,
	})

	got, err := s.repo.Get(ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(8849.0, got.TrueValue)
	s.Equal("geography", got.Category)
	s.True(got.Active)

	missing, err := s.repo.Get(ctx, 9999)
	s.Require().NoError(err)
	s.Nil(missing)
}

func (s *QuestionRepositorySuite) TestQuestionsForDateFollowsDisplayOrder() {
	ctx := context.Background()
	a := s.insert(models.Question{Prompt: "a", TrueValue: 1, Active: true})
	b := s.insert(models.Question{Prompt: "b", TrueValue: 2, Active: true})
	c := s.insert(models.Question{Prompt: "c", TrueValue: 3, Active: true})

	s.Require().NoError(s.repo.InsertSlots(ctx, []models.DailySlot{
		{Date: "2026-08-29", QuestionID: c, DisplayOrder: 0, Published: true},
		{Date: "2026-08-29", QuestionID: a, DisplayOrder: 1, Published: true},
		{Date: "2026-08-30", QuestionID: b, DisplayOrder: 0, Published: true},
	}))

	questions, err := s.repo.QuestionsForDate(ctx, "2026-08-29")
	s.Require().NoError(err)
	s.Require().Len(questions, 2)
	s.Equal(c, questions[0].ID)
	s.Equal(a, questions[1].ID)

	empty, err := s.repo.QuestionsForDate(ctx, "2026-09-01")
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *QuestionRepositorySuite) TestUnpublishedSlotsAreHidden() {
	ctx := context.Background()
	a := s.insert(models.Question{Prompt: "a", TrueValue: 1, Active: true})

	s.Require().NoError(s.repo.InsertSlots(ctx, []models.DailySlot{
		{Date: "2026-08-29", QuestionID: a, DisplayOrder: 0, Published: false},
	}))

	questions, err := s.repo.QuestionsForDate(ctx, "2026-08-29")
	s.Require().NoError(err)
	s.Empty(questions)
}

func (s *QuestionRepositorySuite) TestInsertSlotsConflict() {
	ctx := context.Background()
	a := s.insert(models.Question{Prompt: "a", TrueValue: 1, Active: true})
	b := s.insert(models.Question{Prompt: "b", TrueValue: 2, Active: true})

	s.Require().NoError(s.repo.InsertSlots(ctx, []models.DailySlot{
		{Date: "2026-08-29", QuestionID: a, DisplayOrder: 0, Published: true},
	}))

	// Same (date, display_order) collides; the whole batch rolls back.
	err := s.repo.InsertSlots(ctx, []models.DailySlot{
		{Date: "2026-08-30", QuestionID: b, DisplayOrder: 0, Published: true},
		{Date: "2026-08-29", QuestionID: b, DisplayOrder: 0, Published: true},
	})
	s.Require().ErrorIs(err, repository.ErrSlotConflict)

	populated, err := s.repo.DatesPopulated(ctx, []string{"2026-08-29", "2026-08-30"})
	s.Require().NoError(err)
	s.Equal([]string{"2026-08-29"}, populated)
}

func (s *QuestionRepositorySuite) TestListUnslottedFilters() {
	ctx := context.Background()
	slotted := s.insert(models.Question{Prompt: "slotted", TrueValue: 1, DistributionTier: "daily", Active: true})
	free := s.insert(models.Question{Prompt: "free", TrueValue: 2, DistributionTier: "daily", Active: true})
	s.insert(models.Question{Prompt: "inactive", TrueValue: 3, DistributionTier: "daily", Active: false})
	s.insert(models.Question{Prompt: "other tier", TrueValue: 4, DistributionTier: "bonus", Active: true})

	s.Require().NoError(s.repo.InsertSlots(ctx, []models.DailySlot{
		{Date: "2026-08-29", QuestionID: slotted, DisplayOrder: 0, Published: true},
	}))

	pool, err := s.repo.ListUnslotted(ctx, models.QuestionFilter{DistributionTier: "daily", ActiveOnly: true})
	s.Require().NoError(err)
	s.Require().Len(pool, 1)
	s.Equal(free, pool[0].ID)
}

func TestQuestionRepositorySuite(t *testing.T) {
	suite.Run(t, new(QuestionRepositorySuite))
}
