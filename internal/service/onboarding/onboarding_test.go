package onboarding

import (
	"errors"
	"strings"
	"testing"

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
	"github.com/nkiryanov/ledgerbank/internal/service/validate"
	"github.com/nkiryanov/ledgerbank/internal/testutil"
)

func TestNewCardNumber(t *testing.T) {
	for range 100 {
		number, err := NewCardNumber()

		require.NoError(t, err)
		require.Len(t, number, 19)
		require.True(t, strings.HasPrefix(number, CardPrefix))
		require.NoError(t, validate.Luhn(number))
	}
}

func TestNewCVV(t *testing.T) {
	for range 100 {
		cvv, err := newCVV()

		require.NoError(t, err)
		require.NoError(t, validate.Digits(cvv, 3))
	}
}

func TestOnboarding(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	adminID := uuid.New()

	inTx := func(t *testing.T, fn func(s *Service, storage repository.Storage, recorder *testutil.EventRecorder)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			recorder := &testutil.EventRecorder{}
			s := NewService(storage, testutil.Hasher, recorder, logger.NewNoOpLogger())
			fn(s, storage, recorder)
		})
	}

	submit := func(t *testing.T, s *Service, p CardApplicationParams) models.CardApplication {
		if p.Secret == "" {
			p.Secret = testutil.Secret
		}
		application, err := s.SubmitCardApplication(t.Context(), uuid.New(), p)
		require.NoError(t, err)
		return application
	}

	t.Run("SubmitCardApplication", func(t *testing.T) {
		t.Run("secret stored hashed", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *testutil.EventRecorder) {
				application := submit(t, s, CardApplicationParams{CardType: models.CardTypeDebit, Reason: "salary"})

				require.Equal(t, models.ApplicationStatusPending, application.Status)
				require.NotEqual(t, testutil.Secret, application.SecretHash)
				require.NoError(t, testutil.Hasher.Compare(application.SecretHash, testutil.Secret))
				require.Nil(t, application.RequestedCreditLimit)

				applications, err := s.ListCardApplications(t.Context(), application.UserID)
				require.NoError(t, err)
				require.Len(t, applications, 1)
			})
		})

		limit := decimal.RequireFromString("500")
		zero := decimal.Zero
		invalid := []struct {
			name string
			p    CardApplicationParams
		}{
			{"short secret", CardApplicationParams{CardType: models.CardTypeDebit, Secret: "12345"}},
			{"letters in secret", CardApplicationParams{CardType: models.CardTypeDebit, Secret: "12345a"}},
			{"unknown card type", CardApplicationParams{CardType: "GOLD", Secret: testutil.Secret}},
			{"limit for debit card", CardApplicationParams{CardType: models.CardTypeDebit, Secret: testutil.Secret, CreditLimit: &limit}},
			{"zero credit limit", CardApplicationParams{CardType: models.CardTypeCredit, Secret: testutil.Secret, CreditLimit: &zero}},
		}
		for _, tt := range invalid {
			t.Run(tt.name, func(t *testing.T) {
				s := NewService(nil, testutil.Hasher, events.Nop{}, logger.NewNoOpLogger())

				_, err := s.SubmitCardApplication(t.Context(), uuid.New(), tt.p)

				require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
			})
		}
	})

	t.Run("MaterializeAccount", func(t *testing.T) {
		t.Run("debit card", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, recorder *testutil.EventRecorder) {
				application := submit(t, s, CardApplicationParams{CardType: models.CardTypeDebit})

				opened, err := s.MaterializeAccount(t.Context(), adminID, application.ID, "welcome")

				require.NoError(t, err)
				require.Empty(t, opened.CVV)
				require.Equal(t, application.UserID, opened.UserID)
				require.True(t, opened.IsActive)
				require.True(t, opened.Balance.IsZero())
				require.True(t, strings.HasPrefix(opened.CardNumber, CardPrefix))
				require.NoError(t, validate.Luhn(opened.CardNumber))
				require.NoError(t, testutil.Hasher.Compare(opened.SecretHash, testutil.Secret), "application secret opens the account")
				require.Equal(t, []string{events.AccountOpened}, recorder.Types())

				application, err = storage.Application().GetCardApplication(t.Context(), application.ID, false)
				require.NoError(t, err)
				require.Equal(t, models.ApplicationStatusApproved, application.Status)
				require.Equal(t, opened.CardNumber, application.GeneratedCardNumber)
				require.Equal(t, adminID, *application.ProcessedBy)
				require.Equal(t, "welcome", application.AdminNotes)
			})
		})

		t.Run("credit card with default limit", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *testutil.EventRecorder) {
				application := submit(t, s, CardApplicationParams{CardType: models.CardTypeCredit})

				opened, err := s.MaterializeAccount(t.Context(), adminID, application.ID, "")

				require.NoError(t, err)
				require.NoError(t, validate.Digits(opened.CVV, 3))
				require.NoError(t, testutil.Hasher.Compare(opened.CVVHash, opened.CVV))
				require.Equal(t, "10000.00", opened.CreditLimit.StringFixed(2))
				require.Equal(t, "10000.00", opened.AvailableCredit.StringFixed(2))
				require.True(t, opened.OutstandingBalance.IsZero())
			})
		})

		t.Run("credit card with requested limit", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *testutil.EventRecorder) {
				limit := decimal.RequireFromString("2500.50")
				application := submit(t, s, CardApplicationParams{CardType: models.CardTypeCredit, CreditLimit: &limit})

				opened, err := s.MaterializeAccount(t.Context(), adminID, application.ID, "")

				require.NoError(t, err)
				require.Equal(t, "2500.50", opened.CreditLimit.StringFixed(2))
			})
		})

		t.Run("processed application", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, recorder *testutil.EventRecorder) {
				application := submit(t, s, CardApplicationParams{CardType: models.CardTypeDebit})
				_, err := s.MaterializeAccount(t.Context(), adminID, application.ID, "")
				require.NoError(t, err)

				_, err = s.MaterializeAccount(t.Context(), adminID, application.ID, "")
				require.ErrorIs(t, err, apperrors.ErrApplicationProcessed)

				_, err = s.RejectCardApplication(t.Context(), adminID, application.ID, "")
				require.ErrorIs(t, err, apperrors.ErrApplicationProcessed)

				require.Len(t, recorder.Types(), 1)
			})
		})

		t.Run("rejected application", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, recorder *testutil.EventRecorder) {
				application := submit(t, s, CardApplicationParams{CardType: models.CardTypeDebit})

				rejected, err := s.RejectCardApplication(t.Context(), adminID, application.ID, "no")

				require.NoError(t, err)
				require.Equal(t, models.ApplicationStatusRejected, rejected.Status)
				require.Empty(t, rejected.GeneratedCardNumber)

				_, err = s.MaterializeAccount(t.Context(), adminID, application.ID, "")
				require.ErrorIs(t, err, apperrors.ErrApplicationProcessed)
				require.Empty(t, recorder.Types())
			})
		})

		t.Run("unknown application", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *testutil.EventRecorder) {
				_, err := s.MaterializeAccount(t.Context(), adminID, uuid.New(), "")

				require.ErrorIs(t, err, apperrors.ErrApplicationNotFound)
			})
		})

		t.Run("card number collision is retried", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				taken := testutil.CreateAccount(t, storage, models.Account{})
				free := testutil.CardNumber()
				numbers := []string{taken.CardNumber, taken.CardNumber, free}
				s.cardNumber = func() (string, error) {
					n := numbers[0]
					numbers = numbers[1:]
					return n, nil
				}
				application := submit(t, s, CardApplicationParams{CardType: models.CardTypeDebit})

				opened, err := s.MaterializeAccount(t.Context(), adminID, application.ID, "")

				require.NoError(t, err)
				require.Equal(t, free, opened.CardNumber)
			})
		})

		t.Run("collisions exhausted", func(t *testing.T) {
			inTx(t, func(s *Service, storage repository.Storage, _ *testutil.EventRecorder) {
				taken := testutil.CreateAccount(t, storage, models.Account{})
				s.cardNumber = func() (string, error) { return taken.CardNumber, nil }
				application := submit(t, s, CardApplicationParams{CardType: models.CardTypeDebit})

				_, err := s.MaterializeAccount(t.Context(), adminID, application.ID, "")

				require.ErrorIs(t, err, apperrors.ErrRetryable)
				application, err = storage.Application().GetCardApplication(t.Context(), application.ID, false)
				require.NoError(t, err)
				require.True(t, application.IsPending(), "application untouched")
			})
		})

		t.Run("generator failure", func(t *testing.T) {
			inTx(t, func(s *Service, _ repository.Storage, _ *testutil.EventRecorder) {
				boom := errors.New("entropy exhausted")
				s.cvv = func() (string, error) { return "", boom }
				application := submit(t, s, CardApplicationParams{CardType: models.CardTypeCredit})

				_, err := s.MaterializeAccount(t.Context(), adminID, application.ID, "")

				require.ErrorIs(t, err, boom)
			})
		})
	})
}
