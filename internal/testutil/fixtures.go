package testutil

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nkiryanov/ledgerbank/internal/models"
	"github.com/nkiryanov/ledgerbank/internal/repository"
	"github.com/nkiryanov/ledgerbank/internal/service/auth"
	"github.com/nkiryanov/ledgerbank/internal/service/validate"
)

// Fast hasher for tests
var Hasher = auth.BcryptHasher{Cost: bcrypt.MinCost}

// Secret every fixture account is created with
const Secret = "123456"

// Random Luhn valid 19 digits card number
func CardNumber() string {
	payload := fmt.Sprintf("999999%012d", rand.Int64N(1_000_000_000_000))
	digit, err := validate.LuhnCheckDigit(payload)
	if err != nil {
		panic(err)
	}
	return payload + string(digit)
}

// Create account with sensible defaults: active debit card with zero balance and Secret
// Set fields in a to override defaults
func CreateAccount(t *testing.T, storage repository.Storage, a models.Account) models.Account {
	t.Helper()

	if a.UserID == uuid.Nil {
		a.UserID = uuid.New()
	}
	if a.CardNumber == "" {
		a.CardNumber = CardNumber()
	}
	if a.CardType == "" {
		a.CardType = models.CardTypeDebit
	}
	if a.SecretHash == "" {
		hash, err := Hasher.Hash(Secret)
		require.NoError(t, err)
		a.SecretHash = hash
	}
	a.IsActive = true

	account, err := storage.Account().CreateAccount(t.Context(), a)
	require.NoError(t, err, "fixture account has to be created")
	return account
}

// Create active credit card with the limit and CVV hashed
func CreateCreditAccount(t *testing.T, storage repository.Storage, userID uuid.UUID, limit string, cvv string) models.Account {
	t.Helper()

	hash, err := Hasher.Hash(cvv)
	require.NoError(t, err)

	l := decimal.RequireFromString(limit)
	return CreateAccount(t, storage, models.Account{
		UserID:          userID,
		CardType:        models.CardTypeCredit,
		CVVHash:         hash,
		CreditLimit:     l,
		AvailableCredit: l,
	})
}

// Fixture accounts are always active, freeze them here if needed
func Freeze(t *testing.T, storage repository.Storage, a models.Account) models.Account {
	t.Helper()

	a.IsActive = false
	a, err := storage.Account().UpdateAccount(t.Context(), a)
	require.NoError(t, err)
	return a
}
