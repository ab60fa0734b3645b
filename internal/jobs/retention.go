package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/statusdeck/statusdeck/internal/database"
)

// defaultSchedule runs the sweep nightly, off the busy hours.
const defaultSchedule = "0 3 * * *"

// cronLogger adapts zap.Logger to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err))
}

// ResultRetention prunes monitoring results past the retention window on
// a cron schedule. Results are the only table that grows unbounded;
// services, monitors and incidents are kept forever.
type ResultRetention struct {
	results  *database.ResultStore
	days     int
	schedule string
	logger   *zap.Logger
	cron     *cron.Cron
}

// NewResultRetention creates the retention job. days is the number of
// days of result history to keep; zero or negative disables pruning. An
// empty schedule falls back to a nightly sweep.
func NewResultRetention(results *database.ResultStore, days int, schedule string, logger *zap.Logger) *ResultRetention {
	if schedule == "" {
		schedule = defaultSchedule
	}
	cl := &cronLogger{logger: logger.Named("cron")}
	return &ResultRetention{
		results:  results,
		days:     days,
		schedule: schedule,
		logger:   logger,
		cron:     cron.New(cron.WithChain(cron.Recover(cl))),
	}
}

// Start schedules the sweep.
func (r *ResultRetention) Start() error {
	if r.days <= 0 {
		r.logger.Info("result retention disabled")
		return nil
	}
	if _, err := r.cron.AddFunc(r.schedule, r.Sweep); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.logger.Info("result retention scheduled",
		zap.Int("days", r.days),
		zap.String("schedule", r.schedule))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *ResultRetention) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// Sweep deletes results older than the retention window.
func (r *ResultRetention) Sweep() {
	if r.days <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -r.days)
	deleted, err := r.results.DeleteOlderThan(cutoff)
	if err != nil {
		r.logger.Error("result retention sweep failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		r.logger.Info("pruned old monitoring results",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff))
	}
}
