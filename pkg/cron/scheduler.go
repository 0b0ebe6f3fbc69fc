// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule runs the archive retention job daily at 3:00 AM.
const DefaultPruneSchedule = "0 3 * * *"

// Pruner removes archived uploads created before a cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	archive   Pruner
	retention time.Duration
	schedule  string
	now       func() time.Time
	logger    *slog.Logger
}

// NewScheduler creates a scheduler that enforces the upload retention period.
func NewScheduler(archive Pruner, retention time.Duration, schedule string, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}

	return &Scheduler{
		cron:      c,
		archive:   archive,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.pruneArchive); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("prune_schedule", s.schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the archive pruning.
func (s *Scheduler) RunNow() {
	go s.pruneArchive()
}

// pruneArchive deletes uploads older than the retention period.
func (s *Scheduler) pruneArchive() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cutoff := s.now().Add(-s.retention)
	removed, err := s.archive.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to prune upload archive",
			slog.Time("cutoff", cutoff),
			slog.Int("removed", removed),
			slog.Any("error", err),
		)
		return
	}

	s.logger.Info("upload archive pruned",
		slog.Time("cutoff", cutoff),
		slog.Int("removed", removed),
	)
}
