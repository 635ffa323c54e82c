package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/ledgerbank/internal/logger"
	"github.com/nkiryanov/ledgerbank/internal/models"
	"github.com/nkiryanov/ledgerbank/internal/service/sweeper/mocks"
)

func TestJobs(t *testing.T) {
	now := time.Date(2025, 5, 1, 2, 0, 0, 0, time.UTC)

	newJobs := func(t *testing.T) (*Jobs, *mocks.MockCreditSweeper) {
		ctrl := gomock.NewController(t)
		sweeper := mocks.NewMockCreditSweeper(ctrl)
		jobs := NewJobs(t.Context(), sweeper, logger.NewNoOpLogger())
		jobs.now = func() time.Time { return now }
		return jobs, sweeper
	}

	t.Run("freeze overdue", func(t *testing.T) {
		jobs, sweeper := newJobs(t)
		sweeper.EXPECT().FreezeOverdue(gomock.Any(), now).Return(models.SweepResult{Scanned: 3, Affected: 2}, nil)

		jobs.FreezeOverdue()
	})

	t.Run("accrue interest", func(t *testing.T) {
		jobs, sweeper := newJobs(t)
		sweeper.EXPECT().AccrueInterest(gomock.Any(), now).Return(models.SweepResult{Scanned: 1, Affected: 1}, nil)

		jobs.AccrueInterest()
	})

	t.Run("failure is only logged", func(t *testing.T) {
		jobs, sweeper := newJobs(t)
		sweeper.EXPECT().AccrueInterest(gomock.Any(), now).Return(models.SweepResult{}, errors.New("db is down"))

		require.NotPanics(t, jobs.AccrueInterest)
	})
}

func TestScheduler(t *testing.T) {
	t.Run("invalid schedule", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		jobs := NewJobs(t.Context(), mocks.NewMockCreditSweeper(ctrl), logger.NewNoOpLogger())
		s := NewScheduler(jobs, logger.NewNoOpLogger())

		err := s.Register(Schedules{FreezeOverdue: "every now and then"})

		require.Error(t, err)
		require.Contains(t, err.Error(), "freeze overdue")
	})

	t.Run("default schedules are valid", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		jobs := NewJobs(t.Context(), mocks.NewMockCreditSweeper(ctrl), logger.NewNoOpLogger())
		s := NewScheduler(jobs, logger.NewNoOpLogger())

		err := s.Register(Schedules{FreezeOverdue: DefaultOverdueSchedule, AccrueInterest: DefaultInterestSchedule})

		require.NoError(t, err)
		require.Len(t, s.cron.Entries(), 2)
	})

	t.Run("empty schedule disables job", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		jobs := NewJobs(t.Context(), mocks.NewMockCreditSweeper(ctrl), logger.NewNoOpLogger())
		s := NewScheduler(jobs, logger.NewNoOpLogger())

		err := s.Register(Schedules{AccrueInterest: DefaultInterestSchedule})

		require.NoError(t, err)
		require.Len(t, s.cron.Entries(), 1)
	})

	t.Run("runs jobs till context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		ctrl := gomock.NewController(t)
		sweeper := mocks.NewMockCreditSweeper(ctrl)
		called := make(chan struct{}, 10)
		sweeper.EXPECT().FreezeOverdue(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, time.Time) (models.SweepResult, error) {
				called <- struct{}{}
				return models.SweepResult{}, nil
			}).
			MinTimes(1)

		s := NewScheduler(NewJobs(ctx, sweeper, logger.NewNoOpLogger()), logger.NewNoOpLogger())
		require.NoError(t, s.Register(Schedules{FreezeOverdue: "@every 1s"}))

		stopped := s.Run(ctx)

		select {
		case <-called:
		case <-time.After(5 * time.Second):
			t.Fatal("job was not run")
		}

		cancel()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			t.Fatal("scheduler did not stop")
		}
	})
}

func TestCronLogger(t *testing.T) {
	l := cronLogger{logger: logger.NewNoOpLogger()}

	require.NotPanics(t, func() {
		l.Info("wake", "now", time.Now())
		l.Error(errors.New("boom"), "panic", "job", "x")
	})
}
