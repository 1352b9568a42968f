// Package scheduler runs periodic jobs (ICS feed refresh) on a cron
// schedule in the configured timezone.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "calgrid/internal/log"
)

// Job is one scheduled unit of work. The context is cancelled when the
// scheduler stops.
type Job func(ctx context.Context) error

// Scheduler wraps a cron.Cron with context-aware jobs.
type Scheduler struct {
	cron *cron.Cron

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler evaluating specs in loc (time.Local when nil).
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job under a standard five-field cron spec (or a descriptor
// such as "@every 15m").
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := job(s.jobContext()); err != nil {
			appLog.Error("scheduled job failed", err, "job", name, "took", time.Since(start))
			return
		}
		appLog.Debug("scheduled job done", "job", name, "took", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("scheduler: add %s (%q): %w", name, spec, err)
	}
	appLog.Info("job scheduled", "job", name, "spec", spec)
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

// Start runs the scheduler until ctx is done, then stops it and waits for
// running jobs to finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	appLog.Info("scheduler started", "jobs", s.Len())
	<-ctx.Done()
	s.Stop()
}

// Stop cancels running jobs' contexts and waits for them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	appLog.Info("scheduler stopped")
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// ValidateSpec reports whether spec parses as a standard cron spec.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("scheduler: invalid spec %q: %w", spec, err)
	}
	return nil
}

// cronLogger routes cron's own messages to the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
