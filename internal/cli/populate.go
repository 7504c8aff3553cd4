package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vytor/estimatic/internal/config"
	"github.com/vytor/estimatic/internal/daily"
	"github.com/vytor/estimatic/internal/db"
	"github.com/vytor/estimatic/internal/logger"
	"github.com/vytor/estimatic/internal/models"
	"github.com/vytor/estimatic/internal/repository/sqlite"
)

func newPopulateCmd() *cobra.Command {
	var (
		start string
		days  int
		batch int
		seed  int64
		tier  string
	)

	cmd := &cobra.Command{
		Use:   "populate",
		Short: "Assign unused questions to upcoming daily slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPopulate(start, days, batch, seed, tier)
		},
	}

	cmd.Flags().StringVar(&start, "start", time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02"), "first date to populate (YYYY-MM-DD)")
	cmd.Flags().IntVar(&days, "days", 7, "number of consecutive dates to populate")
	cmd.Flags().IntVar(&batch, "batch", 0, "questions per day (default from config)")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "shuffle seed, fixed for reproducible plans")
	cmd.Flags().StringVar(&tier, "tier", "", "restrict the question pool to a distribution tier")

	return cmd
}

func runPopulate(start string, days, batch int, seed int64, tier string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	logger.SetDefault(log)
	log = log.WithPrefix("populate")

	startDate, err := time.Parse("2006-01-02", start)
	if err != nil {
		return fmt.Errorf("invalid --start date %q: %w", start, err)
	}
	if days <= 0 {
		return fmt.Errorf("--days must be positive")
	}
	if batch <= 0 {
		batch = cfg.QuestionsPerDay
	}
	if tier == "" {
		tier = cfg.DailyTier
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := logger.NewContext(context.Background(), log)
	questionRepo := sqlite.NewQuestionRepository(database)

	// Refuse to touch dates that already carry a plan: published slots are
	// immutable once players may have seen them.
	dates := make([]string, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, startDate.AddDate(0, 0, i).Format("2006-01-02"))
	}
	taken, err := questionRepo.DatesPopulated(ctx, dates)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return fmt.Errorf("dates already populated: %v", taken)
	}

	pool, err := questionRepo.ListUnslotted(ctx, models.QuestionFilter{
		DistributionTier: tier,
		ActiveOnly:       true,
		Limit:            days * batch,
	})
	if err != nil {
		return err
	}
	log.Info("question pool: %d candidates (tier=%s)", len(pool), tier)

	slots, err := daily.Plan(pool, startDate, batch, seed)
	if err != nil {
		return err
	}
	if len(slots) > days*batch {
		slots = slots[:days*batch]
	}

	if err := questionRepo.InsertSlots(ctx, slots); err != nil {
		return err
	}

	log.Info("populated %d slots across %d dates starting %s", len(slots), len(slots)/batch, start)
	return nil
}
