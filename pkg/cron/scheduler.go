package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on cron specs, each under a cluster-wide lock.
type Scheduler struct {
	cron    *cron.Cron
	locker  Locker
	timeout time.Duration
	logger  *slog.Logger
}

func NewScheduler(locker Locker, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if locker == nil {
		locker = noopLocker{}
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		locker:  locker,
		timeout: 30 * time.Minute,
		logger:  logger.With("component", "cron"),
	}
}

func (s *Scheduler) Add(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.runOnce(context.Background(), job)
	})
	if err != nil {
		return err
	}
	s.logger.Info("job scheduled", "job", job.Name(), "spec", spec)
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	release, ok, err := s.locker.Acquire(ctx, "cron:"+job.Name(), s.timeout)
	if err != nil {
		s.logger.Warn("lock unavailable, running unlocked", "job", job.Name(), "error", err)
		release, ok = func() {}, true
	}
	if !ok {
		s.logger.Info("job already running elsewhere", "job", job.Name())
		return
	}
	defer release()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("job failed", "job", job.Name(), "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("job finished", "job", job.Name(), "duration", time.Since(start))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
