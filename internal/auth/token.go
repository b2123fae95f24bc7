package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer   = "agora-api"
	defaultAudience = "agora-client"
)

// ErrInvalidToken is returned for any token that fails signature, claim or expiry checks.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the JWT claims carried by a session token.
type Claims struct {
	Nickname string `json:"nickname,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	now      func() time.Time
}

// NewTokenIssuer creates a new TokenIssuer.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:   []byte(secret),
		ttl:      ttl,
		issuer:   defaultIssuer,
		audience: defaultAudience,
		now:      time.Now,
	}
}

// Issue creates a signed token identifying userID.
func (i *TokenIssuer) Issue(userID uint, nickname string) (string, error) {
	if len(i.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := i.now()
	claims := Claims{
		Nickname: nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse verifies tokenString and returns the user ID it identifies.
func (i *TokenIssuer) Parse(tokenString string) (uint, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return 0, ErrInvalidToken
	}
	return uint(userID), nil
}
