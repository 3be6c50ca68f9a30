package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"taxtrail/internal/logging"
)

// JobFunc is invoked on every tick with the tick's wall-clock time.
type JobFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Name         string
	Interval     time.Duration
	RunOnStart   bool
	StartupDelay time.Duration
	// JobTimeout bounds each invocation; zero leaves it unbounded.
	JobTimeout time.Duration
}

// Scheduler runs one periodic background job.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	if opts.Name == "" {
		opts.Name = "job"
	}
	return &Scheduler{
		opts:   opts,
		logger: logging.Component(logger, "scheduler").With().Str("job", opts.Name).Logger(),
	}
}

// Run blocks, invoking job every interval until ctx is cancelled. Job errors are logged, never fatal.
func (s *Scheduler) Run(ctx context.Context, job JobFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if s.opts.RunOnStart {
		s.execute(ctx, job, time.Now().UTC())
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.opts.Interval).Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case at := <-ticker.C:
			s.execute(ctx, job, at.UTC())
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job JobFunc, at time.Time) {
	jobCtx := ctx
	if s.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.opts.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := job(jobCtx, at); err != nil {
		s.logger.Error().Err(err).Time("at", at).Msg("job execution failed")
		return
	}
	s.logger.Debug().Time("at", at).Dur("took", time.Since(start)).Msg("job executed")
}
