// Package auth verifies HS256 bearer tokens into identity principals and
// keeps per-subject revocations in Redis.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"loanflow/internal/domain/identity"
)

// Claims carried by a loanflow token. The subject is the principal id.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Revocations reports whether a subject's tokens issued at or before a point
// in time have been revoked.
type Revocations interface {
	IsRevoked(ctx context.Context, subject string, issuedAt time.Time) (bool, error)
}

type Service struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	revoked Revocations
	now     func() time.Time
}

var _ identity.Verifier = (*Service)(nil)

type Option func(*Service)

func WithRevocations(r Revocations) Option { return func(s *Service) { s.revoked = r } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(secret, issuer string, ttl time.Duration, opts ...Option) *Service {
	s := &Service{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Sign issues a token for p that expires after the service ttl.
func (s *Service) Sign(p identity.Principal) (string, error) {
	now := s.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Role: string(p.Role),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyCredential checks signature, expiry, issuer and revocation.
// Every failure is an *identity.AuthError.
func (s *Service) VerifyCredential(ctx context.Context, token string) (identity.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return identity.Principal{}, identity.NewAuthError(identity.ReasonMissing, "No token provided", nil)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, parserOpts...)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return identity.Principal{}, identity.NewAuthError(identity.ReasonExpired, "Token expired", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return identity.Principal{}, identity.NewAuthError(identity.ReasonMalformed, "Malformed token", err)
	default:
		return identity.Principal{}, identity.NewAuthError(identity.ReasonInvalid, "Invalid token", err)
	}

	if claims.Subject == "" {
		return identity.Principal{}, identity.NewAuthError(identity.ReasonInvalid, "Invalid token", errors.New("missing subject"))
	}

	if s.revoked != nil {
		var issuedAt time.Time
		if claims.IssuedAt != nil {
			issuedAt = claims.IssuedAt.Time
		}
		revoked, err := s.revoked.IsRevoked(ctx, claims.Subject, issuedAt)
		if err != nil {
			return identity.Principal{}, identity.NewAuthError(identity.ReasonInvalid, "Unable to verify token", err)
		}
		if revoked {
			return identity.Principal{}, identity.NewAuthError(identity.ReasonRevoked, "Token revoked", nil)
		}
	}

	return identity.Principal{Subject: claims.Subject, Role: identity.Role(claims.Role)}, nil
}
