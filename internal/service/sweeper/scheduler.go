package sweeper

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/nkiryanov/ledgerbank/internal/logger"
)

const (
	DefaultOverdueSchedule  = "0 */6 * * *" // every 6 hours
	DefaultInterestSchedule = "0 2 1 * *"   // first day of month at 02:00
)

type Schedules struct {
	FreezeOverdue  string
	AccrueInterest string
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger logger.Logger
}

func NewScheduler(jobs *Jobs, log logger.Logger) *Scheduler {
	cronLogger := cronLogger{logger: log.With("component", "cron")}

	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		jobs:   jobs,
		logger: log,
	}
}

// Register jobs, empty schedule disables the job
func (s *Scheduler) Register(schedules Schedules) error {
	jobs := []struct {
		name     string
		schedule string
		fn       func()
	}{
		{"freeze overdue", schedules.FreezeOverdue, s.jobs.FreezeOverdue},
		{"accrue interest", schedules.AccrueInterest, s.jobs.AccrueInterest},
	}

	for _, job := range jobs {
		if job.schedule == "" {
			s.logger.Warn("job disabled", "job", job.name)
			continue
		}
		if _, err := s.cron.AddFunc(job.schedule, job.fn); err != nil {
			return fmt.Errorf("schedule %s job with %q: %w", job.name, job.schedule, err)
		}
		s.logger.Info("job scheduled", "job", job.name, "schedule", job.schedule)
	}

	return nil
}

// Run scheduler until ctx is done
// Returned channel is closed once running jobs are finished
func (s *Scheduler) Run(ctx context.Context) <-chan struct{} {
	stopped := make(chan struct{})

	s.cron.Start()

	go func() {
		defer close(stopped)
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.logger.Debug("Scheduler stopped")
	}()

	return stopped
}

// Adapter to let cron log through our logger
type cronLogger struct {
	logger logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
