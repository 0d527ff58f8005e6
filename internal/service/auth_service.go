package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/auth"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository"
)

var (
	// ErrInvalidCredentials is the only failure callers may expose.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnknownUser indicates no account matched the username.
	ErrUnknownUser = fmt.Errorf("%w: unknown user", ErrInvalidCredentials)
	// ErrBadPassword indicates the password did not verify.
	ErrBadPassword = fmt.Errorf("%w: bad password", ErrInvalidCredentials)
	// ErrDirectoryUnavailable indicates the directory could not answer; it is a BadPassword to callers.
	ErrDirectoryUnavailable = fmt.Errorf("%w: directory unavailable", ErrBadPassword)
)

// AuthService verifies a username/password pair against the account's trust source.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (domain.Identity, error)
}

type authService struct {
	users     repository.UserRepository
	passwords auth.PasswordVerifier
	directory auth.DirectoryAuthenticator
	logger    *logrus.Entry
	// decoy is compared for unknown users so both failures cost one hash check
	decoy string
}

// NewAuthService wires the credential store and both verifiers. directory may
// be nil, in which case directory accounts can never authenticate.
func NewAuthService(users repository.UserRepository, passwords auth.PasswordVerifier, directory auth.DirectoryAuthenticator, logger *logrus.Logger) AuthService {
	if logger == nil {
		logger = logrus.New()
	}
	if passwords == nil {
		passwords = auth.BcryptVerifier{}
	}
	decoy, err := auth.HashPassword(ErrInvalidCredentials.Error(), auth.DefaultPasswordCost)
	if err != nil {
		logger.WithError(err).Warn("decoy password hash unavailable")
	}
	return &authService{
		users:     users,
		passwords: passwords,
		directory: directory,
		logger:    logger.WithField("component", "auth"),
		decoy:     decoy,
	}
}

func (s *authService) Authenticate(ctx context.Context, username, password string) (domain.Identity, error) {
	normalized := domain.NormalizeUsername(username)
	logger := s.logger.WithField("username", normalized)
	if normalized == "" || password == "" {
		return domain.Identity{}, ErrBadPassword
	}

	user, err := s.users.GetByUsername(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.passwords.Verify(password, s.decoy)
			logger.Warn("login failed: unknown user")
			return domain.Identity{}, ErrUnknownUser
		}
		logger.WithError(err).Error("login failed: user lookup error")
		return domain.Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	switch user.AuthMode {
	case domain.AuthModeLocal:
		if !s.passwords.Verify(password, user.PasswordHash) {
			logger.Warn("login failed: password mismatch")
			return domain.Identity{}, ErrBadPassword
		}
	case domain.AuthModeDirectory:
		if err := s.verifyDirectory(ctx, logger, normalized, password); err != nil {
			return domain.Identity{}, err
		}
	default:
		logger.Errorf("login failed: account has unknown auth mode %d", user.AuthMode)
		return domain.Identity{}, ErrBadPassword
	}

	logger.WithField("auth_mode", user.AuthMode.String()).Info("login succeeded")
	return user.Identity(), nil
}

func (s *authService) verifyDirectory(ctx context.Context, logger *logrus.Entry, username, password string) error {
	if s.directory == nil {
		logger.Error("login failed: directory account but no directory configured")
		return ErrDirectoryUnavailable
	}

	err := s.directory.Authenticate(ctx, username, password)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrDirectoryRejected):
		logger.WithError(err).Warn("login failed: directory rejected bind")
		return ErrBadPassword
	default:
		logger.WithError(err).Error("login failed: directory unavailable")
		return ErrDirectoryUnavailable
	}
}
