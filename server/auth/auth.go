// Package auth issues and verifies bearer tokens for the HTTP API.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	// Issuer identifies tokens minted by this service.
	Issuer = "ngx-agents"

	// AccessTokenDuration is the default token lifetime.
	AccessTokenDuration = 24 * time.Hour
)

// ClaimsMessage are the registered claims carried in access tokens.
type ClaimsMessage struct {
	jwt.RegisteredClaims
}

// GenerateAccessToken mints an HS256 token for the user.
func GenerateAccessToken(userID string, expirationTime time.Time, secret []byte) (string, error) {
	claims := &ClaimsMessage{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return signed, nil
}

// VerifyAccessToken validates the token signature and expiry and returns the
// subject user ID.
func VerifyAccessToken(tokenString string, secret []byte) (string, error) {
	claims := &ClaimsMessage{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithIssuer(Issuer),
	)
	if err != nil {
		return "", errors.Wrap(err, "invalid access token")
	}
	if !token.Valid {
		return "", errors.New("invalid access token")
	}
	return claims.Subject, nil
}

// HashAPIKey produces a bcrypt hash for a static service API key.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash api key")
	}
	return string(hash), nil
}

// VerifyAPIKey checks a presented key against its stored bcrypt hash.
func VerifyAPIKey(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
