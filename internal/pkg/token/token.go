// Package token issues and verifies the purpose-scoped JWTs used across the
// service: short-lived access tokens, rotating refresh tokens, and single-use
// action tokens for email confirmation and password reset. The purpose claim
// keeps the scopes disjoint, so a reset token can never pass as an access
// token.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposeEmailConfirm  Purpose = "email_confirm"
	PurposePasswordReset Purpose = "password_reset"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrPurposeMismatch = errors.New("token purpose mismatch")
)

type Claims struct {
	jwt.RegisteredClaims
	UserID  uint    `json:"uid"`
	Email   string  `json:"email"`
	Role    string  `json:"role"`
	Purpose Purpose `json:"purpose"`
}

type Service struct {
	secret []byte
}

func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// Issue signs an HS256 token for the subject with the given purpose and TTL.
// Every token carries a fresh jti so individual tokens can be revoked.
func (s *Service) Issue(userID uint, email, role string, purpose Purpose, ttl time.Duration) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:  userID,
		Email:   email,
		Role:    role,
		Purpose: purpose,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Verify checks signature and expiry, then the purpose claim. Purpose is
// checked last so a mismatched-but-expired token still reports expiry.
func (s *Service) Verify(raw string, expected Purpose) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if claims.Purpose != expected {
		return nil, ErrPurposeMismatch
	}
	return claims, nil
}
