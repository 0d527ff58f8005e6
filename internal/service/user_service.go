package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/auth"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository"
)

var (
	// ErrUserAlreadyExists is returned when attempting to register with an existing username.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrRegistrationInvalid is returned when required registration fields are missing.
	ErrRegistrationInvalid = errors.New("username, password, and role are required")
)

// Registration carries the fields of a new account.
type Registration struct {
	Username    string
	Password    string
	Role        string
	Email       string
	DisplayName string
	AvatarURL   string
	UITheme     string
	Team        string
	Bio         string
	Local       bool
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, reg Registration) (*domain.User, error)
}

type userService struct {
	users repository.UserRepository
	cost  int
}

func NewUserService(users repository.UserRepository, passwordCost int) UserService {
	return &userService{
		users: users,
		cost:  passwordCost,
	}
}

func (s *userService) Register(ctx context.Context, reg Registration) (*domain.User, error) {
	username := domain.NormalizeUsername(reg.Username)
	role := strings.TrimSpace(reg.Role)
	if username == "" || role == "" || (reg.Local && reg.Password == "") {
		return nil, ErrRegistrationInvalid
	}
	if reg.Local && len(reg.Password) > auth.MaxPasswordBytes {
		return nil, fmt.Errorf("%w: %w", ErrRegistrationInvalid, auth.ErrPasswordTooLong)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	user := &domain.User{
		ID:          uuid.NewString(),
		Username:    username,
		Role:        role,
		AuthMode:    domain.AuthModeDirectory,
		Email:       reg.Email,
		DisplayName: reg.DisplayName,
		AvatarURL:   reg.AvatarURL,
		UITheme:     reg.UITheme,
		Team:        reg.Team,
		Bio:         reg.Bio,
	}

	password := reg.Password
	if reg.Local {
		user.AuthMode = domain.AuthModeLocal
	} else {
		// directory accounts never verify locally; store a hash nobody knows
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		password = secret
	}

	hash, err := auth.HashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clone := *user
	clone.PasswordHash = ""
	return &clone
}
