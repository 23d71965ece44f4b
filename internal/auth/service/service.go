// Package service implements authentication for portal users.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"surveillance_portal_backend/internal/auth/repository"
	"surveillance_portal_backend/internal/auth/token"
	"surveillance_portal_backend/platform/apperr"
	"surveillance_portal_backend/platform/config"
	"surveillance_portal_backend/platform/logger"
)

const invalidCredentialsMessage = "invalid credentials"

// Service handles sign-in and identity lookups.
type Service struct {
	repo repository.Repository
	cfg  config.AuthServiceConfig
	log  *logger.Logger
}

// New creates the auth service.
func New(repo repository.Repository, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log}
}

// SignIn verifies credentials and returns a signed access token. Failures are
// reported uniformly so the endpoint does not leak which accounts exist.
func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (string, repository.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.log.AuthEvent("sign_in", email, false, "unknown user")
		return "", repository.User{}, apperr.Unauthorized(invalidCredentialsMessage)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plainPassword)); err != nil {
		s.log.AuthEvent("sign_in", email, false, "password mismatch")
		return "", repository.User{}, apperr.Unauthorized(invalidCredentialsMessage)
	}

	if !user.Active {
		s.log.AuthEvent("sign_in", email, false, "account disabled")
		return "", repository.User{}, apperr.Unauthorized(invalidCredentialsMessage)
	}

	accessToken, err := token.IssueAccessToken(s.cfg, user.ID, user.DisplayName, user.Role, time.Now())
	if err != nil {
		return "", repository.User{}, apperr.Internal("failed to issue token")
	}

	s.log.AuthEvent("sign_in", email, true, "")
	return accessToken, user, nil
}

// GetUser returns the account for an authenticated id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (repository.User, error) {
	return s.repo.GetByID(ctx, id)
}
