package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/ledgerbank/internal/db"
	"github.com/nkiryanov/ledgerbank/internal/events"
	"github.com/nkiryanov/ledgerbank/internal/handlers"
	"github.com/nkiryanov/ledgerbank/internal/logger"
	"github.com/nkiryanov/ledgerbank/internal/repository/postgres"
	"github.com/nkiryanov/ledgerbank/internal/service/auth"
	"github.com/nkiryanov/ledgerbank/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/ledgerbank/internal/service/credit"
	"github.com/nkiryanov/ledgerbank/internal/service/ledger"
	"github.com/nkiryanov/ledgerbank/internal/service/loan"
	"github.com/nkiryanov/ledgerbank/internal/service/onboarding"
	"github.com/nkiryanov/ledgerbank/internal/service/sweeper"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger    logger.Logger
	scheduler *sweeper.Scheduler
	publisher events.Publisher
	pool      *pgxpool.Pool
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	storage := postgres.NewStorage(pool, postgres.WithLockTimeout(c.LockTimeout))

	var publisher events.Publisher = events.Nop{}
	if c.AMQPURL != "" {
		publisher, err = events.NewRabbitMQ(c.AMQPURL, log)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("error while connecting to rabbitmq. Err: %w", err)
		}
	} else {
		log.Warn("AMQP URL is not set, ledger events will not be published")
	}

	tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: c.SecretKey})
	if err != nil {
		publisher.Close()
		pool.Close()
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	// Initialize services
	hasher := auth.BcryptHasher{}
	ledgerService := ledger.NewService(storage, hasher, publisher, log)
	creditService := credit.NewService(credit.Config{}, storage, hasher, publisher, log)
	loanService := loan.NewService(storage, publisher, log)
	onboardingService := onboarding.NewService(storage, hasher, publisher, log)

	scheduler := sweeper.NewScheduler(sweeper.NewJobs(ctx, creditService, log), log)
	err = scheduler.Register(sweeper.Schedules{
		FreezeOverdue:  c.OverdueSchedule,
		AccrueInterest: c.InterestSchedule,
	})
	if err != nil {
		publisher.Close()
		pool.Close()
		return nil, err
	}

	router := handlers.NewRouter(
		handlers.Services{
			Ledger:     ledgerService,
			Credit:     creditService,
			Loan:       loanService,
			Onboarding: onboardingService,
		},
		tokenManager,
		log,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    router,
		logger:     log,
		scheduler:  scheduler,
		publisher:  publisher,
		pool:       pool,
	}, nil
}

// Run starts http server and sweeps scheduler, closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	schedulerStopped := s.scheduler.Run(ctx)

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	cancel()
	<-idleConnsClosed
	<-schedulerStopped

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *ServerApp) Close() {
	s.publisher.Close()
	s.pool.Close()
}
