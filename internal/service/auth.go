package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/salon-booking/internal/metrics"
	"github.com/iliyamo/salon-booking/internal/utils"
)

// AuthService issues admin tokens for the single configured admin.
type AuthService struct {
	email    string
	passHash string
	secret   string
	ttl      time.Duration
	log      *zap.Logger
}

// NewAuthService hashes the configured admin password with bcrypt so the
// plain value is not kept in memory past startup.
func NewAuthService(email, password string, bcryptCost int, secret string, ttl time.Duration, log *zap.Logger) (*AuthService, error) {
	hash, err := utils.HashPassword(password, bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		email:    strings.ToLower(strings.TrimSpace(email)),
		passHash: hash,
		secret:   secret,
		ttl:      ttl,
		log:      log,
	}, nil
}

// Login checks the credentials and returns a signed admin token.
func (a *AuthService) Login(_ context.Context, email, password string) (utils.AccessToken, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		metrics.IncLogin("missing")
		return utils.AccessToken{}, ErrMissingCredentials
	}

	// bcrypt runs on every attempt, whatever the email.
	passOK := utils.VerifyPassword(a.passHash, password)
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(a.email)) == 1
	if !passOK || !emailOK {
		metrics.IncLogin("rejected")
		a.log.Info("admin login rejected", zap.String("email", email))
		return utils.AccessToken{}, ErrInvalidCredentials
	}

	tok, err := utils.NewAccessToken(a.secret, a.email, utils.RoleAdmin, a.ttl)
	if err != nil {
		metrics.IncLogin("error")
		return utils.AccessToken{}, fmt.Errorf("sign token: %w", err)
	}
	metrics.IncLogin("ok")
	return tok, nil
}
