package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/ledgerbank/internal/repository"
)

// Common interface of *pgxpool.Pool, *pgx.Conn and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const defaultLockTimeout = 5 * time.Second

type Option func(*Storage)

// Max time a transaction waits for a row lock
// Zero disables the limit
func WithLockTimeout(d time.Duration) Option {
	return func(s *Storage) {
		s.lockTimeout = d
	}
}

type Storage struct {
	db          DBTX
	lockTimeout time.Duration
}

func NewStorage(db DBTX, opts ...Option) repository.Storage {
	s := &Storage{db: db, lockTimeout: defaultLockTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) Account() repository.AccountRepo {
	return &AccountRepo{DB: s.db}
}

func (s *Storage) Transaction() repository.TransactionRepo {
	return &TransactionRepo{DB: s.db}
}

func (s *Storage) Application() repository.ApplicationRepo {
	return &ApplicationRepo{DB: s.db}
}

func (s *Storage) Loan() repository.LoanRepo {
	return &LoanRepo{DB: s.db}
}

// Run fn inside a transaction (or a savepoint if storage already works in one)
func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return dbError(fmt.Errorf("db tx error: %w", err))
	}

	defer func() {
		switch err {
		case nil:
			err = dbError(tx.Commit(ctx))
		default:
			_ = tx.Rollback(ctx)
		}
	}()

	if s.lockTimeout > 0 {
		const setLockTimeout = `SELECT set_config('lock_timeout', $1, true)`
		_, err = tx.Exec(ctx, setLockTimeout, fmt.Sprintf("%dms", s.lockTimeout.Milliseconds()))
		if err != nil {
			return dbError(err)
		}
	}

	err = fn(&Storage{db: tx, lockTimeout: s.lockTimeout})

	return err
}
