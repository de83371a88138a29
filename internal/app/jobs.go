/**
 * @description
 * Scheduled job implementations. The daily cycle job resolves "today" in the
 * configured timezone and hands it to the engine, which is otherwise
 * clock-free.
 */
package app

import (
	"context"
	"log/slog"
	"time"
)

// CycleRunner defines the engine entry point the jobs invoke.
type CycleRunner interface {
	RunDailyCycle(ctx context.Context, today time.Time) (*CycleSummary, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	engine CycleRunner
	logger *slog.Logger
	loc    *time.Location
}

// NewJobs creates a new Jobs runner.
func NewJobs(engine CycleRunner, logger *slog.Logger, loc *time.Location) *Jobs {
	if loc == nil {
		loc = time.UTC
	}
	return &Jobs{
		engine: engine,
		logger: logger,
		loc:    loc,
	}
}

// RunDailyCycle executes the full rent cycle for the current date.
func (j *Jobs) RunDailyCycle() {
	j.logger.Info("starting daily rent cycle job")
	ctx := context.Background()

	today := time.Now().In(j.loc)
	summary, err := j.engine.RunDailyCycle(ctx, today)
	if err != nil {
		j.logger.Error("daily rent cycle failed", "error", err)
		return
	}

	j.logger.Info("daily rent cycle job finished",
		"date", summary.Date.Format("2006-01-02"),
		"generated", summary.Generated,
		"latened", summary.Latened,
		"escalated", summary.Escalated,
		"notifications_sent", summary.NotificationsSent,
		"notifications_failed", summary.NotificationsFailed,
		"errors", len(summary.Errors),
	)

	for _, msg := range summary.Errors {
		j.logger.Warn("daily rent cycle partial failure", "detail", msg)
	}
}
