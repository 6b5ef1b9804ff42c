package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is one cache refresh run by the warmer.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler periodically refreshes the aggregate caches so request paths
// usually hit a warm cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	jobs      []Job
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. An interval of zero or less disables it.
func New(jobs []Job, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		jobs:      jobs,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the refresh job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("scheduler: cache warming disabled")
		return nil
	}
	if len(s.jobs) == 0 {
		s.logger.Info("scheduler: no jobs configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.RunOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler: cache warming started", "interval", s.interval, "jobs", len(s.jobs))
	return nil
}

// RunOnce runs every job concurrently and waits for all of them.
func (s *Scheduler) RunOnce() {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			start := time.Now()
			if err := job.Run(ctx); err != nil {
				s.logger.Warn("scheduler: refresh failed", "job", job.Name, "error", err)
				return
			}
			s.logger.Debug("scheduler: refresh completed", "job", job.Name, "took", time.Since(start))
		}()
	}
	wg.Wait()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
