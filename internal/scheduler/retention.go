package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	defaultRetentionSpec = "0 3 * * *"
	defaultRetention     = 30 * 24 * time.Hour
	pruneTimeout         = time.Minute
)

// RunPruner removes sync run records created before a cutoff.
type RunPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionConfig controls how often and how far back sync runs are pruned.
type RetentionConfig struct {
	Spec      string
	Retention time.Duration
	Now       func() time.Time
}

// RetentionScheduler prunes the sync run history on a cron schedule.
type RetentionScheduler struct {
	engine    *cron.Cron
	runs      RunPruner
	spec      string
	retention time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewRetentionScheduler builds a scheduler. Call Start to register the job.
func NewRetentionScheduler(runs RunPruner, cfg RetentionConfig, logger zerolog.Logger) *RetentionScheduler {
	if cfg.Spec == "" {
		cfg.Spec = defaultRetentionSpec
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaultRetention
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &RetentionScheduler{
		engine:    cron.New(cron.WithLocation(time.UTC)),
		runs:      runs,
		spec:      cfg.Spec,
		retention: cfg.Retention,
		now:       cfg.Now,
		logger:    logger.With().Str("component", "retention_scheduler").Logger(),
	}
}

// Start registers the prune job and starts the cron engine.
func (s *RetentionScheduler) Start() error {
	if _, err := s.engine.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error().Err(err).Msg("sync run pruning failed")
		}
	}); err != nil {
		return fmt.Errorf("register retention job %q: %w", s.spec, err)
	}

	s.engine.Start()
	s.logger.Info().Str("spec", s.spec).Dur("retention", s.retention).Msg("retention scheduler started")
	return nil
}

// RunOnce prunes the runs older than the retention window.
func (s *RetentionScheduler) RunOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.retention)
	removed, err := s.runs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("pruned sync runs")
	return removed, nil
}

// Stop halts the engine and waits for a running job to finish.
func (s *RetentionScheduler) Stop() {
	<-s.engine.Stop().Done()
	s.logger.Info().Msg("retention scheduler stopped")
}
