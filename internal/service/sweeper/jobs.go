// Package sweeper runs credit facility sweeps on a schedule.
package sweeper

import (
	"context"
	"time"

	"github.com/nkiryanov/ledgerbank/internal/logger"
	"github.com/nkiryanov/ledgerbank/internal/models"
)

//go:generate mockgen -destination=mocks/mock_sweeper.go -package=mocks -source=jobs.go CreditSweeper
type CreditSweeper interface {
	FreezeOverdue(ctx context.Context, now time.Time) (models.SweepResult, error)
	AccrueInterest(ctx context.Context, now time.Time) (models.SweepResult, error)
}

// Sweeps wrapped to be run by cron: no arguments, errors are logged
type Jobs struct {
	ctx     context.Context
	sweeper CreditSweeper
	logger  logger.Logger
	now     func() time.Time
}

// Jobs stop taking new accounts once ctx is done
func NewJobs(ctx context.Context, sweeper CreditSweeper, log logger.Logger) *Jobs {
	return &Jobs{
		ctx:     ctx,
		sweeper: sweeper,
		logger:  log,
		now:     time.Now,
	}
}

func (j *Jobs) FreezeOverdue() {
	j.run("freeze overdue", j.sweeper.FreezeOverdue)
}

func (j *Jobs) AccrueInterest() {
	j.run("accrue interest", j.sweeper.AccrueInterest)
}

func (j *Jobs) run(name string, sweep func(context.Context, time.Time) (models.SweepResult, error)) {
	log := j.logger.With("job", name)
	log.Info("job started")

	started := j.now()
	result, err := sweep(j.ctx, started)
	if err != nil {
		log.Error("job failed", "error", err)
		return
	}

	log.Info("job finished",
		"scanned", result.Scanned,
		"affected", result.Affected,
		"failed", result.Failed,
		"took", j.now().Sub(started),
	)
}
