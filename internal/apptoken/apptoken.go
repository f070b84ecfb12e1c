// Package apptoken issues and verifies short-lived HS256 tokens that let
// portal-adjacent applications trust a portal login without sharing the
// session itself.
package apptoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/terralink/portal/internal/auth/domain"
	"github.com/terralink/portal/internal/clock"
	"github.com/terralink/portal/internal/config"
)

var (
	ErrInvalidToken = errors.New("invalid app token")
	ErrNoSecret     = errors.New("app token secret not configured")
)

// Claims carried by a delegated app token. Subject is the user's external
// identity id.
type Claims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	AppID   string `json:"app_id"`
	AppName string `json:"app_name"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewIssuer(cfg config.Config, clk clock.Clock) *Issuer {
	return &Issuer{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.AppTokenTTL,
		clock:  clk,
	}
}

// Issue signs a token for the user scoped to one target application.
// Token lifetime is independent of the session that requested it.
func (i *Issuer) Issue(user *domain.User, appID, appName string) (string, time.Time, error) {
	if len(i.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}

	now := i.clock.Now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Email:   user.Email,
		Name:    user.DisplayName,
		Role:    string(user.Role),
		AppID:   appID,
		AppName: appName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ExternalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a delegated token. Every failure mode,
// bad signature, wrong algorithm, expiry, collapses to ErrInvalidToken.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	if len(i.secret) == 0 {
		return nil, ErrNoSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
