// Package auth implements the shared-password admin gate: one bcrypt-hashed
// password exchanged for a short-lived HS256 session token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/betterbench/betterbench/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
}

func NewService(passwordHash, secret string, ttl time.Duration) *Service {
	return &Service{
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		ttl:          ttl,
	}
}

type claims struct {
	jwt.RegisteredClaims
}

// Login exchanges the shared admin password for a session token.
func (s *Service) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", common.ErrUnauthorized
		}
		return "", fmt.Errorf("password check failed: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks a session token's signature and expiry.
func (s *Service) Verify(tokenString string) error {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}

// HashPassword produces a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
