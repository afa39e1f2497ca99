// Package scheduler runs the portal's periodic background sweeps.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"parish-portal/internal/pkg/lock"
)

// Job is a named sweep. Run returns the number of rows it touched.
type Job struct {
	Name     string
	Schedule Schedule
	Run      func(ctx context.Context) (int, error)
}

// Scheduler drives a set of jobs until stopped.
type Scheduler struct {
	jobs    []Job
	running *lock.KeyLock[string]
	now     func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler for jobs.
func New(jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:    jobs,
		running: lock.New[string](),
		now:     time.Now,
	}
}

// Start launches one loop per job. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
	log.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
}

// Stop cancels every loop and waits for in-flight runs to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	for {
		now := s.now()
		next := job.Schedule(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runOnce(ctx, job)
		}()
	}
}

// runOnce executes job unless a previous run is still in progress.
// It reports whether the job was run.
func (s *Scheduler) runOnce(ctx context.Context, job Job) (ran bool) {
	if !s.running.TryLock(job.Name) {
		log.Warn().Str("job", job.Name).Msg("Previous run still in progress, skipping")
		return false
	}
	defer s.running.Unlock(job.Name)
	ran = true

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("job", job.Name).
				Interface("panic", r).
				Msg("Recovered from panic in scheduled job")
		}
	}()

	start := time.Now()
	n, err := job.Run(ctx)
	if err != nil {
		log.Error().Err(err).Str("job", job.Name).Msg("Scheduled job failed")
		return
	}
	event := log.Debug()
	if n > 0 {
		event = log.Info()
	}
	event.
		Str("job", job.Name).
		Int("affected", n).
		Dur("took", time.Since(start)).
		Msg("Scheduled job finished")
	return
}
