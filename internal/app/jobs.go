/**
 * @description
 * Cron scheduler for the settlement-gap sweep. Approved payments that never
 * received their ledger entry (a partial failure after the review transition)
 * are periodically listed and logged so operators can repair them.
 */

package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const gapSweepTimeout = 30 * time.Second

// GapSweeper manages the periodic settlement-gap audit job.
type GapSweeper struct {
	cron     *cron.Cron
	service  *Service
	logger   *slog.Logger
	schedule string
	limit    int
}

// NewGapSweeper creates a new sweeper instance.
func NewGapSweeper(service *Service, logger *slog.Logger, schedule string, limit int) *GapSweeper {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &GapSweeper{
		cron:     c,
		service:  service,
		logger:   logger,
		schedule: schedule,
		limit:    limit,
	}
}

// Start registers the sweep job and starts the cron scheduler.
func (g *GapSweeper) Start() {
	if _, err := g.cron.AddFunc(g.schedule, g.sweep); err != nil {
		g.logger.Error("failed to schedule settlement gap sweep", "error", err)
		return
	}
	g.logger.Info("scheduled settlement gap sweep", "schedule", g.schedule)
	g.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (g *GapSweeper) Stop() context.Context {
	return g.cron.Stop()
}

func (g *GapSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), gapSweepTimeout)
	defer cancel()

	gaps, err := g.service.ListSettlementGaps(ctx, g.limit)
	if err != nil {
		g.logger.Error("settlement gap sweep failed", "error", err)
		return
	}
	if len(gaps) == 0 {
		g.logger.Info("settlement gap sweep clean")
		return
	}
	for _, gap := range gaps {
		g.logger.Warn("approved payment missing settlement ledger entry",
			"payment_id", gap.PaymentID,
			"student_id", gap.StudentID,
			"fee_category", gap.FeeCategory,
			"amount", gap.Amount,
		)
	}
	g.logger.Warn("settlement gap sweep found gaps", "count", len(gaps))
}
