package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/ledgerbank/internal/apperrors"
	"github.com/nkiryanov/ledgerbank/internal/events"
	"github.com/nkiryanov/ledgerbank/internal/logger"
	"github.com/nkiryanov/ledgerbank/internal/models"
	"github.com/nkiryanov/ledgerbank/internal/repository"
	"github.com/nkiryanov/ledgerbank/internal/repository/postgres"
	"github.com/nkiryanov/ledgerbank/internal/testutil"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLedger(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, fn func(s *Service, storage repository.Storage, recorder *testutil.EventRecorder)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			recorder := &testutil.EventRecorder{}
			s := NewService(storage, testutil.Hasher, recorder, logger.NewNoOpLogger())
			fn(s, storage, recorder)
		})
	}

	withBalance := func(t *testing.T, storage repository.Storage, userID uuid.UUID, balance string) models.Account {
		return testutil.CreateAccount(t, storage, models.Account{UserID: userID, Balance: dec(balance)})
	}

	balanceOf := func(t *testing.T, storage repository.Storage, a models.Account) string {
		got, err := storage.Account().GetAccountByID(t.Context(), a.ID, false)
		require.NoError(t, err)
		return got.Balance.StringFixed(2)
	}

	transactionsOf := func(t *testing.T, storage repository.Storage, a models.Account) []models.Transaction {
		got, err := storage.Transaction().ListTransactions(t.Context(), repository.ListTransactionsOpts{AccountID: &a.ID})
		require.NoError(t, err)
		return got
	}

	t.Run("Deposit", func(t *testing.T) {
		t.Run("deposit ok", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				account := withBalance(t, storage, uuid.New(), "10")

				result, err := s.Deposit(t.Context(), account.CardNumber, dec("100.50"), "salary")

				require.NoError(t, err)
				require.NotEqual(t, uuid.Nil, result.TransactionID)
				require.Equal(t, "110.50", result.Balance.StringFixed(2))
				require.Equal(t, "110.50", balanceOf(t, storage, account))

				transactions := transactionsOf(t, storage, account)
				require.Len(t, transactions, 1)
				require.Equal(t, models.TransactionTypeDeposit, transactions[0].Type)
				require.Equal(t, "salary", transactions[0].Notes)
			})
		})

		t.Run("generated note", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				s.now = func() time.Time { return time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) }
				account := withBalance(t, storage, uuid.New(), "0")

				_, err := s.Deposit(t.Context(), account.CardNumber, dec("5"), "")
				require.NoError(t, err)

				transactions := transactionsOf(t, storage, account)
				require.Equal(t, "2025-03-04 10:30 Deposit 5.00", transactions[0].Notes)
			})
		})

		t.Run("zero amount accepted", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				account := withBalance(t, storage, uuid.New(), "10")

				result, err := s.Deposit(t.Context(), account.CardNumber, decimal.Zero, "")

				require.NoError(t, err)
				require.Equal(t, "10.00", result.Balance.StringFixed(2))
			})
		})

		t.Run("negative amount", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				account := withBalance(t, storage, uuid.New(), "10")

				_, err := s.Deposit(t.Context(), account.CardNumber, dec("-1"), "")

				require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
				require.Empty(t, transactionsOf(t, storage, account))
			})
		})

		t.Run("sub-cent amount", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				account := withBalance(t, storage, uuid.New(), "10")

				_, err := s.Deposit(t.Context(), account.CardNumber, dec("0.004"), "")

				require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
				require.Empty(t, transactionsOf(t, storage, account))
				require.Equal(t, "10.00", balanceOf(t, storage, account))
			})
		})

		t.Run("unknown card", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *testutil.EventRecorder) {
				_, err := s.Deposit(t.Context(), testutil.CardNumber(), dec("1"), "")

				require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
			})
		})
	})

	t.Run("Withdraw", func(t *testing.T) {
		t.Run("withdraw ok", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				account := withBalance(t, storage, uuid.New(), "100")

				result, err := s.Withdraw(t.Context(), account.CardNumber, testutil.Secret, dec("40.25"), "")

				require.NoError(t, err)
				require.Equal(t, "59.75", result.Balance.StringFixed(2))
				require.Equal(t, "59.75", balanceOf(t, storage, account))
				transactions := transactionsOf(t, storage, account)
				require.Len(t, transactions, 1)
				require.Equal(t, models.TransactionTypeWithdraw, transactions[0].Type)
			})
		})

		t.Run("deposit then withdraw round trip", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				account := withBalance(t, storage, uuid.New(), "37.10")

				_, err := s.Deposit(t.Context(), account.CardNumber, dec("100"), "")
				require.NoError(t, err)
				_, err = s.Withdraw(t.Context(), account.CardNumber, testutil.Secret, dec("100"), "")
				require.NoError(t, err)

				require.Equal(t, "37.10", balanceOf(t, storage, account))
				require.Len(t, transactionsOf(t, storage, account), 2)
			})
		})

		t.Run("wrong secret", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				account := withBalance(t, storage, uuid.New(), "100")

				_, err := s.Withdraw(t.Context(), account.CardNumber, "000000", dec("1"), "")

				require.ErrorIs(t, err, apperrors.ErrAuthFailed)
				require.Equal(t, "100.00", balanceOf(t, storage, account))
			})
		})

		t.Run("unknown card is auth failure", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *testutil.EventRecorder) {
				_, err := s.Withdraw(t.Context(), testutil.CardNumber(), testutil.Secret, dec("1"), "")

				require.ErrorIs(t, err, apperrors.ErrAuthFailed)
			})
		})

		t.Run("insufficient funds", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				account := withBalance(t, storage, uuid.New(), "10")

				_, err := s.Withdraw(t.Context(), account.CardNumber, testutil.Secret, dec("10.01"), "")

				require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
				require.Equal(t, "10.00", balanceOf(t, storage, account))
				require.Empty(t, transactionsOf(t, storage, account))
			})
		})

		t.Run("frozen", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				account := testutil.Freeze(t, storage, withBalance(t, storage, uuid.New(), "10"))

				_, err := s.Withdraw(t.Context(), account.CardNumber, testutil.Secret, dec("1"), "")

				require.ErrorIs(t, err, apperrors.ErrFrozen)
			})
		})

		t.Run("non positive amount", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				account := withBalance(t, storage, uuid.New(), "10")

				_, err := s.Withdraw(t.Context(), account.CardNumber, testutil.Secret, decimal.Zero, "")

				require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
			})
		})
	})

	t.Run("Transfer", func(t *testing.T) {
		t.Run("transfer ok", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, recorder *testutil.EventRecorder) {
				userID := uuid.New()
				from := withBalance(t, storage, userID, "1000")
				to := withBalance(t, storage, uuid.New(), "0")

				receipt, err := s.Transfer(t.Context(), userID, TransferParams{
					FromCard: from.CardNumber,
					Secret:   testutil.Secret,
					ToCard:   to.CardNumber,
					Amount:   dec("500"),
					Notes:    "rent",
				})

				require.NoError(t, err)
				require.Equal(t, "2.50", receipt.Fee.StringFixed(2))
				require.Equal(t, "500.00", receipt.Amount.StringFixed(2))
				require.Equal(t, "497.50", receipt.BalanceAfter.StringFixed(2))
				require.Equal(t, "****"+from.CardNumber[15:], receipt.FromCard)
				require.Equal(t, "****"+to.CardNumber[15:], receipt.ToCard)
				require.Equal(t, "rent", receipt.Notes)
				require.False(t, receipt.Timestamp.IsZero())

				require.Equal(t, "497.50", balanceOf(t, storage, from))
				require.Equal(t, "500.00", balanceOf(t, storage, to))

				out := transactionsOf(t, storage, from)
				require.Len(t, out, 1)
				require.Equal(t, models.TransactionTypeTransfer, out[0].Type)
				require.Equal(t, "502.50", out[0].Amount.StringFixed(2))
				require.Equal(t, receipt.TransferID, out[0].ID)
				require.Contains(t, out[0].Notes, receipt.ToCard)
				require.Contains(t, out[0].Notes, "2.50")

				in := transactionsOf(t, storage, to)
				require.Len(t, in, 1)
				require.Equal(t, models.TransactionTypeDeposit, in[0].Type)
				require.Equal(t, "500.00", in[0].Amount.StringFixed(2))
				require.Contains(t, in[0].Notes, receipt.FromCard)

				require.Equal(t, []string{events.TransferCompleted}, recorder.Types())
			})
		})

		t.Run("transfer to frozen account allowed", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				userID := uuid.New()
				from := withBalance(t, storage, userID, "100")
				to := testutil.Freeze(t, storage, withBalance(t, storage, uuid.New(), "0"))

				_, err := s.Transfer(t.Context(), userID, TransferParams{FromCard: from.CardNumber, Secret: testutil.Secret, ToCard: to.CardNumber, Amount: dec("10")})

				require.NoError(t, err)
				require.Equal(t, "10.00", balanceOf(t, storage, to))
			})
		})

		failures := []struct {
			name    string
			setup   func(t *testing.T, storage repository.Storage, userID uuid.UUID) (TransferParams, []models.Account)
			wantErr error
		}{
			{
				name: "wrong secret",
				setup: func(t *testing.T, storage repository.Storage, userID uuid.UUID) (TransferParams, []models.Account) {
					from, to := withBalance(t, storage, userID, "100"), withBalance(t, storage, uuid.New(), "0")
					return TransferParams{FromCard: from.CardNumber, Secret: "999999", ToCard: to.CardNumber, Amount: dec("10")}, []models.Account{from, to}
				},
				wantErr: apperrors.ErrAuthFailed,
			},
			{
				name: "unknown source",
				setup: func(t *testing.T, storage repository.Storage, userID uuid.UUID) (TransferParams, []models.Account) {
					to := withBalance(t, storage, uuid.New(), "0")
					return TransferParams{FromCard: testutil.CardNumber(), Secret: testutil.Secret, ToCard: to.CardNumber, Amount: dec("10")}, []models.Account{to}
				},
				wantErr: apperrors.ErrAuthFailed,
			},
			{
				name: "unknown destination",
				setup: func(t *testing.T, storage repository.Storage, userID uuid.UUID) (TransferParams, []models.Account) {
					from := withBalance(t, storage, userID, "100")
					return TransferParams{FromCard: from.CardNumber, Secret: testutil.Secret, ToCard: testutil.CardNumber(), Amount: dec("10")}, []models.Account{from}
				},
				wantErr: apperrors.ErrAccountNotFound,
			},
			{
				name: "source of another user",
				setup: func(t *testing.T, storage repository.Storage, userID uuid.UUID) (TransferParams, []models.Account) {
					from, to := withBalance(t, storage, uuid.New(), "100"), withBalance(t, storage, userID, "0")
					return TransferParams{FromCard: from.CardNumber, Secret: testutil.Secret, ToCard: to.CardNumber, Amount: dec("10")}, []models.Account{from, to}
				},
				wantErr: apperrors.ErrForbidden,
			},
			{
				name: "self transfer",
				setup: func(t *testing.T, storage repository.Storage, userID uuid.UUID) (TransferParams, []models.Account) {
					from := withBalance(t, storage, userID, "1000000")
					return TransferParams{FromCard: from.CardNumber, Secret: testutil.Secret, ToCard: from.CardNumber, Amount: dec("10")}, []models.Account{from}
				},
				wantErr: apperrors.ErrInvalidArgument,
			},
			{
				name: "non positive amount",
				setup: func(t *testing.T, storage repository.Storage, userID uuid.UUID) (TransferParams, []models.Account) {
					from, to := withBalance(t, storage, userID, "100"), withBalance(t, storage, uuid.New(), "0")
					return TransferParams{FromCard: from.CardNumber, Secret: testutil.Secret, ToCard: to.CardNumber, Amount: dec("-5")}, []models.Account{from, to}
				},
				wantErr: apperrors.ErrInvalidArgument,
			},
			{
				name: "frozen source",
				setup: func(t *testing.T, storage repository.Storage, userID uuid.UUID) (TransferParams, []models.Account) {
					from := testutil.Freeze(t, storage, withBalance(t, storage, userID, "100"))
					to := withBalance(t, storage, uuid.New(), "0")
					return TransferParams{FromCard: from.CardNumber, Secret: testutil.Secret, ToCard: to.CardNumber, Amount: dec("10")}, []models.Account{from, to}
				},
				wantErr: apperrors.ErrFrozen,
			},
			{
				name: "fee makes funds insufficient",
				setup: func(t *testing.T, storage repository.Storage, userID uuid.UUID) (TransferParams, []models.Account) {
					from, to := withBalance(t, storage, userID, "100"), withBalance(t, storage, uuid.New(), "0")
					return TransferParams{FromCard: from.CardNumber, Secret: testutil.Secret, ToCard: to.CardNumber, Amount: dec("99")}, []models.Account{from, to}
				},
				wantErr: apperrors.ErrInsufficientFunds,
			},
		}

		for _, tt := range failures {
			t.Run(tt.name, func(t *testing.T) {
				inTx(t, func(s *Service, storage repository.Storage, recorder *testutil.EventRecorder) {
					userID := uuid.New()
					params, accounts := tt.setup(t, storage, userID)
					before := make([]string, 0, len(accounts))
					for _, a := range accounts {
						before = append(before, balanceOf(t, storage, a))
					}

					_, err := s.Transfer(t.Context(), userID, params)

					require.ErrorIs(t, err, tt.wantErr)
					for i, a := range accounts {
						require.Equal(t, before[i], balanceOf(t, storage, a), "balance must not change on failure")
						require.Empty(t, transactionsOf(t, storage, a), "nothing has to be written on failure")
					}
					require.Empty(t, recorder.Types())
				})
			})
		}
	})

	t.Run("History", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
			userID := uuid.New()
			first := withBalance(t, storage, userID, "0")
			second := withBalance(t, storage, userID, "0")
			foreign := withBalance(t, storage, uuid.New(), "0")

			_, err := s.Deposit(t.Context(), first.CardNumber, dec("1"), "first")
			require.NoError(t, err)
			_, err = s.Deposit(t.Context(), second.CardNumber, dec("2"), "second")
			require.NoError(t, err)
			_, err = s.Deposit(t.Context(), foreign.CardNumber, dec("3"), "foreign")
			require.NoError(t, err)

			t.Run("user history newest first", func(t *testing.T) {
				got, err := s.History(t.Context(), userID)

				require.NoError(t, err)
				require.Len(t, got, 2)
				require.Equal(t, "second", got[0].Notes)
				require.Equal(t, "first", got[1].Notes)
			})

			t.Run("account history", func(t *testing.T) {
				got, err := s.AccountHistory(t.Context(), userID, first.ID)

				require.NoError(t, err)
				require.Len(t, got, 1)
				require.Equal(t, "first", got[0].Notes)
			})

			t.Run("account history of another user", func(t *testing.T) {
				_, err := s.AccountHistory(t.Context(), userID, foreign.ID)
				require.ErrorIs(t, err, apperrors.ErrForbidden)
			})

			t.Run("account history not found", func(t *testing.T) {
				_, err := s.AccountHistory(t.Context(), userID, uuid.New())
				require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
			})

			t.Run("list accounts", func(t *testing.T) {
				got, err := s.ListAccounts(t.Context(), userID)
				require.NoError(t, err)
				require.Len(t, got, 2)
			})
		})
	})

	t.Run("SetActive", func(t *testing.T) {
		inTx(t, func(s *Service, storage repository.Storage, recorder *testutil.EventRecorder) {
			account := withBalance(t, storage, uuid.New(), "0")

			frozen, err := s.SetActive(t.Context(), account.CardNumber, false)
			require.NoError(t, err)
			require.False(t, frozen.IsActive)

			_, err = s.SetActive(t.Context(), account.CardNumber, false)
			require.NoError(t, err, "freezing twice is ok")

			active, err := s.SetActive(t.Context(), account.CardNumber, true)
			require.NoError(t, err)
			require.True(t, active.IsActive)

			require.Equal(t, []string{events.AccountFrozen, events.AccountUnfrozen}, recorder.Types(), "only real state changes are published")

			_, err = s.SetActive(t.Context(), testutil.CardNumber(), false)
			require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
		})
	})

	// Runs on the pool: every withdraw has its own real transaction
	t.Run("concurrent withdrawals never overdraw", func(t *testing.T) {
		storage := postgres.NewStorage(pg.Pool)
		s := NewService(storage, testutil.Hasher, events.Nop{}, logger.NewNoOpLogger())
		account := withBalance(t, storage, uuid.New(), "100")

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Withdraw(t.Context(), account.CardNumber, testutil.Secret, dec("10"), "")
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
					return
				}
				if !assertOneOf(err, apperrors.ErrInsufficientFunds, apperrors.ErrRetryable) {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		got, err := storage.Account().GetAccountByID(t.Context(), account.ID, false)
		require.NoError(t, err)
		require.False(t, got.Balance.IsNegative())
		require.Equal(t, decimal.NewFromInt(int64(100-10*succeeded)).StringFixed(2), got.Balance.StringFixed(2))
		require.Len(t, transactionsOf(t, storage, account), succeeded)
	})

	// Opposite directions lock the same pair of rows, card-number order keeps them from deadlocking
	t.Run("concurrent opposite transfers keep total", func(t *testing.T) {
		storage := postgres.NewStorage(pg.Pool)
		s := NewService(storage, testutil.Hasher, events.Nop{}, logger.NewNoOpLogger())
		alice := withBalance(t, storage, uuid.New(), "1000")
		bob := withBalance(t, storage, uuid.New(), "1000")

		var wg sync.WaitGroup
		var mu sync.Mutex
		fees := decimal.Zero
		for i := range 20 {
			from, to := alice, bob
			if i%2 == 1 {
				from, to = bob, alice
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				receipt, err := s.Transfer(t.Context(), from.UserID, TransferParams{
					FromCard: from.CardNumber,
					Secret:   testutil.Secret,
					ToCard:   to.CardNumber,
					Amount:   dec("10"),
				})
				if err == nil {
					mu.Lock()
					fees = fees.Add(receipt.Fee)
					mu.Unlock()
					return
				}
				if !assertOneOf(err, apperrors.ErrRetryable) {
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		total := dec(balanceOf(t, storage, alice)).Add(dec(balanceOf(t, storage, bob)))
		require.Equal(t, dec("2000").Sub(fees).StringFixed(2), total.StringFixed(2), "only fees leave the pair")
		require.True(t, fees.IsPositive(), "some transfers have to succeed")
	})
}
