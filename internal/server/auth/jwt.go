// Package auth provides JWT issuing/verification and password hashing for
// the account service.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vidtube/vidtube/internal/common"
)

// Claims is the claims structure that includes the standard registered
// claims and a single custom AccountID.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string
}

// TokenIssuer mints and verifies the two JWT kinds used by sessions.
// Access and refresh tokens are signed with distinct HS256 secrets and
// lifetimes, so a token of one kind never verifies as the other. Tokens
// carry the account id, expiry and a unique jti; nothing else is embedded.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenIssuer constructs a TokenIssuer from the two signing secrets and
// their validity windows.
func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccessToken mints a short-lived access token for accountID.
// Access tokens are stateless and never persisted.
func (i *TokenIssuer) IssueAccessToken(accountID string) (string, error) {
	return generateToken(accountID, i.accessSecret, i.accessTTL)
}

// IssueRefreshToken mints a longer-lived refresh token for accountID.
// The caller is responsible for persisting it as the account's single
// allow-listed refresh token.
func (i *TokenIssuer) IssueRefreshToken(accountID string) (string, error) {
	return generateToken(accountID, i.refreshSecret, i.refreshTTL)
}

// VerifyAccessToken checks signature and expiry of an access token and
// returns the embedded account id. Failures are common.ErrTokenExpired for
// a well-signed but stale token and common.ErrInvalidToken otherwise.
func (i *TokenIssuer) VerifyAccessToken(tokenString string) (string, error) {
	return accountIDFromToken(tokenString, i.accessSecret)
}

// VerifyRefreshToken is VerifyAccessToken for the refresh secret.
func (i *TokenIssuer) VerifyRefreshToken(tokenString string) (string, error) {
	return accountIDFromToken(tokenString, i.refreshSecret)
}

func generateToken(accountID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			// the jti keeps tokens minted within the same second distinct,
			// so rotation always produces a new refresh token
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		AccountID: accountID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func accountIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.AccountID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.AccountID, nil
}
