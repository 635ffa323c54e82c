package tokenmanager

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_TokenManager(t *testing.T) {
	t.Parallel()

	identity := Identity{UserID: uuid.New()}

	newManager := func(t *testing.T, ttl time.Duration) *TokenManager {
		m, err := New(Config{SecretKey: "test-secret-key", AccessTTL: ttl})
		require.NoError(t, err, "token manager should be created without errors")
		return m
	}

	t.Run("new defaults", func(t *testing.T) {
		m, err := New(Config{SecretKey: "secret"})
		require.NoError(t, err, "token manager should be created without errors")

		require.Equal(t, "secret", m.key, "secret key should be set")
		require.Equal(t, defaultAccessTokenTTL, m.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultSigningMethod, m.alg.Alg(), "default signing method should be set")
	})

	t.Run("new fail without secret", func(t *testing.T) {
		_, err := New(Config{})
		require.Error(t, err)
	})

	t.Run("new fail unknown alg", func(t *testing.T) {
		_, err := New(Config{SecretKey: "secret", Alg: "HS1024"})
		require.Error(t, err)
	})

	t.Run("Issue", func(t *testing.T) {
		t.Run("access claims", func(t *testing.T) {
			m := newManager(t, 15*time.Minute)

			access, expiresAt, err := m.Issue(Identity{UserID: identity.UserID, IsAdmin: true})
			require.NoError(t, err)

			token, err := jwt.ParseWithClaims(access, &AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
				return []byte("test-secret-key"), nil
			})
			require.NoError(t, err)
			require.True(t, token.Valid, "access token should be valid")

			claims, ok := token.Claims.(*AccessTokenClaims)
			require.True(t, ok, "claims should be of type AccessTokenClaims")
			assert.Equal(t, identity.UserID, claims.UserID, "user ID in token should match")
			assert.True(t, claims.IsAdmin)
			assert.NotEmpty(t, claims.ID, "token has to has jti")
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second, "issued at should be close to now")
			assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)
			assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, 0)
		})

		t.Run("generate different tokens", func(t *testing.T) {
			m := newManager(t, 15*time.Minute)

			first, _, err := m.Issue(identity)
			require.NoError(t, err)
			second, _, err := m.Issue(identity)
			require.NoError(t, err)

			assert.NotEqual(t, first, second, "access tokens should be different")
		})
	})

	t.Run("ParseAccess", func(t *testing.T) {
		t.Run("valid token", func(t *testing.T) {
			m := newManager(t, 15*time.Minute)
			access, _, err := m.Issue(identity)
			require.NoError(t, err)

			got, err := m.ParseAccess(access)

			require.NoError(t, err, "valid token should be parsed without errors")
			require.Equal(t, identity, got)
		})

		t.Run("not a token", func(t *testing.T) {
			m := newManager(t, 15*time.Minute)

			_, err := m.ParseAccess("invalid token")

			require.Error(t, err, "parsing even not a token should return an error")
		})

		t.Run("expired token", func(t *testing.T) {
			m := newManager(t, -time.Minute)
			access, _, err := m.Issue(identity)
			require.NoError(t, err)

			_, err = m.ParseAccess(access)

			require.Error(t, err, "token has to be expired")
		})

		t.Run("signed with other key", func(t *testing.T) {
			other, err := New(Config{SecretKey: "other-key"})
			require.NoError(t, err)
			access, _, err := other.Issue(identity)
			require.NoError(t, err)

			_, err = newManager(t, time.Minute).ParseAccess(access)

			require.Error(t, err)
		})

		t.Run("not signed token", func(t *testing.T) {
			m := newManager(t, 15*time.Minute)
			token := jwt.NewWithClaims(
				jwt.SigningMethodNone,
				AccessTokenClaims{
					RegisteredClaims: jwt.RegisteredClaims{
						ID:        uuid.NewString(),
						IssuedAt:  jwt.NewNumericDate(time.Now()),
						ExpiresAt: jwt.NewNumericDate(time.Now().Add(15 * time.Minute)),
					},
					UserID: identity.UserID,
				},
			)
			access, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)

			_, err = m.ParseAccess(access)

			require.Error(t, err, "Valid token with empty alg must fail")
		})
	})
}
