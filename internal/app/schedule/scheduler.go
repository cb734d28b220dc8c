// Package schedule runs maintenance jobs on a fixed interval.
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one periodic task. Run reports how many items it handled.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (int, error)
}

// Scheduler runs every job on its own ticker until the context is cancelled.
type Scheduler struct {
	Jobs   []Job
	Logger *slog.Logger
}

func (s *Scheduler) Add(job Job) {
	s.Jobs = append(s.Jobs, job)
}

// Run blocks until ctx is done. Job errors are logged and the job runs again on the next
// tick.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, job := range s.Jobs {
		if job.Run == nil || job.Interval <= 0 {
			continue
		}
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, job)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, job Job) {
	n, err := job.Run(ctx)
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err != nil {
		logger.WarnContext(ctx, "scheduled job failed", "job", job.Name, "error", err)
		return
	}
	if n > 0 {
		logger.DebugContext(ctx, "scheduled job done", "job", job.Name, "items", n)
	}
}
