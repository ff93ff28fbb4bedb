// Package scheduler runs collection jobs on wall-clock and interval
// triggers. Job outcomes are logged, never propagated; a failed run
// leaves the schedule intact.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/irfndi/kmarket-data-go/internal/logging"
)

const clockLayout = "15:04"

// JobFunc is one collection cycle. It must honor ctx cancellation.
type JobFunc func(ctx context.Context) error

type dailyJob struct {
	name   string
	hour   int
	minute int
	run    JobFunc
}

type periodicJob struct {
	name     string
	interval time.Duration
	run      JobFunc
}

// Scheduler dispatches registered jobs. Dispatch is cooperative: a
// single worker lock means no two jobs overlap and a slow run delays,
// never stacks, the next one.
type Scheduler struct {
	daily    []dailyJob
	periodic []periodicJob

	runMu  sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// AddDaily registers a job fired once a day at the given "HH:MM"
// wall-clock time.
func (s *Scheduler) AddDaily(name, at string, run JobFunc) error {
	t, err := time.Parse(clockLayout, at)
	if err != nil {
		return fmt.Errorf("failed to parse schedule time %q: %w", at, err)
	}
	s.daily = append(s.daily, dailyJob{name: name, hour: t.Hour(), minute: t.Minute(), run: run})
	return nil
}

// AddPeriodic registers a job fired on a fixed interval.
func (s *Scheduler) AddPeriodic(name string, interval time.Duration, run JobFunc) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s for job %s", interval, name)
	}
	s.periodic = append(s.periodic, periodicJob{name: name, interval: interval, run: run})
	return nil
}

// Start launches the trigger loops. Call Stop to shut down.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, job := range s.daily {
		s.wg.Add(1)
		go s.runDaily(ctx, job)
	}
	for _, job := range s.periodic {
		s.wg.Add(1)
		go s.runPeriodic(ctx, job)
	}
}

// Stop cancels all trigger loops and waits for any in-flight job to
// return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runDaily(ctx context.Context, job dailyJob) {
	defer s.wg.Done()

	next := nextDailyRun(time.Now(), job.hour, job.minute)
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.dispatch(ctx, job.name, job.run)
			next = nextDailyRun(time.Now(), job.hour, job.minute)
			timer.Reset(time.Until(next))
		}
	}
}

func (s *Scheduler) runPeriodic(ctx context.Context, job periodicJob) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatch(ctx, job.name, job.run)
		}
	}
}

// dispatch runs one job under the worker lock with a fresh run id.
func (s *Scheduler) dispatch(ctx context.Context, name string, run JobFunc) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	log := logging.WithJob(name, uuid.New().String())
	log.Info("Job started")

	started := time.Now()
	if err := run(ctx); err != nil {
		log.WithError(err).WithField("elapsed", time.Since(started).String()).Error("Job failed")
		return
	}
	log.WithField("elapsed", time.Since(started).String()).Info("Job finished")
}

// nextDailyRun returns the first hour:minute instant strictly after
// now, in now's location.
func nextDailyRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
