package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$"))

	assert.NoError(t, VerifyPassword(hash, "s3cret-pass"))
	assert.ErrorIs(t, VerifyPassword(hash, "wrong"), ErrPasswordMismatch)
	assert.Error(t, VerifyPassword("not-a-hash", "s3cret-pass"))
}

func TestHashPassword_Salted(t *testing.T) {
	a, err := HashPassword("same", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := HashPassword("same", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret-that-is-long-enough-123", time.Hour)
	token, err := issuer.Issue(42, "nick")
	require.NoError(t, err)

	userID, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer("secret-one-secret-one-secret-one!", time.Hour)
	token, err := issuer.Issue(7, "n")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer("secret-two-secret-two-secret-two!", time.Hour)
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenIssuer("secret-one-secret-one-secret-one!", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewTokenIssuer("secret-one-secret-one-secret-one!", time.Hour)
		other.audience = "someone-else"
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "7"})
		s, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Parse(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenIssuer_EmptySecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour).Issue(1, "n")
	assert.Error(t, err)
}
