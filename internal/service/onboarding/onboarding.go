// Package onboarding turns approved card applications into accounts.
package onboarding

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/ledgerbank/internal/apperrors"
	"github.com/nkiryanov/ledgerbank/internal/events"
	"github.com/nkiryanov/ledgerbank/internal/logger"
	"github.com/nkiryanov/ledgerbank/internal/models"
	"github.com/nkiryanov/ledgerbank/internal/money"
	"github.com/nkiryanov/ledgerbank/internal/repository"
	"github.com/nkiryanov/ledgerbank/internal/service/auth"
	"github.com/nkiryanov/ledgerbank/internal/service/validate"
)

const (
	// Issuer identification number of every card the bank opens
	CardPrefix = "622202"

	cardNumberAttempts = 10
)

// Credit limit of the card when applicant did not ask for one
var DefaultCreditLimit = decimal.RequireFromString("10000.00")

type Service struct {
	storage repository.Storage
	hasher  auth.SecretHasher
	events  events.Publisher
	logger  logger.Logger
	now     func() time.Time

	cardNumber func() (string, error)
	cvv        func() (string, error)
}

func NewService(storage repository.Storage, hasher auth.SecretHasher, publisher events.Publisher, log logger.Logger) *Service {
	return &Service{
		storage:    storage,
		hasher:     hasher,
		events:     publisher,
		logger:     log,
		now:        time.Now,
		cardNumber: NewCardNumber,
		cvv:        newCVV,
	}
}

type CardApplicationParams struct {
	CardType string

	// 6 digits, required to withdraw and transfer once the card is opened
	Secret string

	// Credit cards only
	CreditLimit *decimal.Decimal
	Reason      string
}

func (p CardApplicationParams) validate() error {
	if err := validate.Digits(p.Secret, 6); err != nil {
		return fmt.Errorf("secret must be 6 digits: %w", apperrors.ErrInvalidArgument)
	}

	switch p.CardType {
	case models.CardTypeDebit:
		if p.CreditLimit != nil {
			return fmt.Errorf("credit limit for debit card: %w", apperrors.ErrInvalidArgument)
		}
	case models.CardTypeCredit:
		if p.CreditLimit != nil && !p.CreditLimit.IsPositive() {
			return fmt.Errorf("credit limit %s: %w", money.Format(*p.CreditLimit), apperrors.ErrInvalidArgument)
		}
	default:
		return fmt.Errorf("card type %q: %w", p.CardType, apperrors.ErrInvalidArgument)
	}

	return nil
}

// Store PENDING card application, the secret is kept hashed only
func (s *Service) SubmitCardApplication(ctx context.Context, userID uuid.UUID, p CardApplicationParams) (models.CardApplication, error) {
	if err := p.validate(); err != nil {
		return models.CardApplication{}, err
	}

	hash, err := s.hasher.Hash(p.Secret)
	if err != nil {
		return models.CardApplication{}, fmt.Errorf("hash secret: %w", err)
	}

	var limit *decimal.Decimal
	if p.CreditLimit != nil {
		l := money.Round(*p.CreditLimit)
		limit = &l
	}

	application, err := s.storage.Application().CreateCardApplication(ctx, models.CardApplication{
		UserID:               userID,
		CreatedAt:            s.now(),
		CardType:             p.CardType,
		SecretHash:           hash,
		RequestedCreditLimit: limit,
		Reason:               p.Reason,
		Status:               models.ApplicationStatusPending,
	})
	if err != nil {
		return application, err
	}

	s.logger.Info("card application submitted", "application_id", application.ID, "card_type", application.CardType)
	return application, nil
}

func (s *Service) ListCardApplications(ctx context.Context, userID uuid.UUID) ([]models.CardApplication, error) {
	return s.storage.Application().ListCardApplications(ctx, repository.ListApplicationsOpts{UserID: &userID})
}

// Approve pending application and open the account for it
// CVV of a credit card is returned here once and never again
func (s *Service) MaterializeAccount(ctx context.Context, adminID uuid.UUID, applicationID uuid.UUID, notes string) (models.OpenedAccount, error) {
	var opened models.OpenedAccount

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		application, err := storage.Application().GetCardApplication(ctx, applicationID, true)
		if err != nil {
			return err
		}
		if !application.IsPending() {
			return fmt.Errorf("card application %s is %s: %w", applicationID, application.Status, apperrors.ErrApplicationProcessed)
		}

		now := s.now()
		account := models.Account{
			UserID:     application.UserID,
			CreatedAt:  now,
			SecretHash: application.SecretHash,
			CardType:   application.CardType,
			IsActive:   true,
		}

		var cvv string
		if account.CardType == models.CardTypeCredit {
			cvv, err = s.cvv()
			if err != nil {
				return fmt.Errorf("generate cvv: %w", err)
			}
			if account.CVVHash, err = s.hasher.Hash(cvv); err != nil {
				return fmt.Errorf("hash cvv: %w", err)
			}

			limit := DefaultCreditLimit
			if application.RequestedCreditLimit != nil {
				limit = *application.RequestedCreditLimit
			}
			account.CreditLimit = limit
			account.AvailableCredit = limit
		}

		account, err = s.createWithFreeCardNumber(ctx, storage, account)
		if err != nil {
			return err
		}

		application.Status = models.ApplicationStatusApproved
		application.ProcessedAt = &now
		application.ProcessedBy = &adminID
		application.AdminNotes = notes
		application.GeneratedCardNumber = account.CardNumber
		if _, err := storage.Application().UpdateCardApplication(ctx, application); err != nil {
			return err
		}

		opened = models.OpenedAccount{Account: account, CVV: cvv}
		return nil
	})
	if err != nil {
		return opened, err
	}

	s.logger.Info("account opened",
		"account_id", opened.ID,
		"card", money.MaskCardNumber(opened.CardNumber),
		"application_id", applicationID,
		"admin_id", adminID,
	)
	events.Notify(ctx, s.events, s.logger, events.New(events.AccountOpened, opened.UserID, map[string]any{
		"account_id": opened.ID,
		"card":       money.MaskCardNumber(opened.CardNumber),
		"card_type":  opened.CardType,
	}))

	return opened, nil
}

func (s *Service) RejectCardApplication(ctx context.Context, adminID uuid.UUID, applicationID uuid.UUID, notes string) (models.CardApplication, error) {
	var application models.CardApplication

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		application, err = storage.Application().GetCardApplication(ctx, applicationID, true)
		if err != nil {
			return err
		}
		if !application.IsPending() {
			return fmt.Errorf("card application %s is %s: %w", applicationID, application.Status, apperrors.ErrApplicationProcessed)
		}

		now := s.now()
		application.Status = models.ApplicationStatusRejected
		application.ProcessedAt = &now
		application.ProcessedBy = &adminID
		application.AdminNotes = notes
		application, err = storage.Application().UpdateCardApplication(ctx, application)
		return err
	})

	return application, err
}

// Insert account trying fresh card numbers while they collide with existing ones
func (s *Service) createWithFreeCardNumber(ctx context.Context, storage repository.Storage, account models.Account) (models.Account, error) {
	for attempt := range cardNumberAttempts {
		number, err := s.cardNumber()
		if err != nil {
			return account, fmt.Errorf("generate card number: %w", err)
		}
		account.CardNumber = number

		created, err := storage.Account().CreateAccount(ctx, account)
		switch {
		case err == nil:
			return created, nil
		case errors.Is(err, apperrors.ErrCardNumberTaken):
			s.logger.Warn("card number collision", "attempt", attempt+1)
		default:
			return account, err
		}
	}

	return account, fmt.Errorf("no free card number after %d attempts: %w", cardNumberAttempts, apperrors.ErrRetryable)
}

// CardPrefix, 12 random digits and Luhn check digit
func NewCardNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000_000_000))
	if err != nil {
		return "", err
	}

	payload := fmt.Sprintf("%s%012d", CardPrefix, n.Int64())
	digit, err := validate.LuhnCheckDigit(payload)
	if err != nil {
		return "", err
	}
	return payload + string(digit), nil
}

func newCVV() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%03d", n.Int64()), nil
}
