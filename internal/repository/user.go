package repository

import (
	"context"
	"fmt"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
)

// UserRepository is the credential store: user records keyed by username.
type UserRepository interface {
	// GetByUsername returns ErrNotFound when no record matches.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

type userRepository struct {
	exec Executor
}

func NewUserRepository(exec Executor) UserRepository {
	return &userRepository{exec: exec}
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	rows, err := r.exec.ExecuteQuery(ctx, TableUsers, OpRead, Params{"Username": username})
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return UserFromRow(rows[0]), nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if _, err := r.exec.ExecuteQuery(ctx, TableUsers, OpCreate, UserParams(user)); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UserFromRow maps a Users row. SQL_USER marks locally authenticated accounts.
func UserFromRow(row Row) *domain.User {
	mode := domain.AuthModeDirectory
	if row.Bool("SQL_USER") {
		mode = domain.AuthModeLocal
	}
	return &domain.User{
		ID:           row.String("ID"),
		Username:     row.String("Username"),
		PasswordHash: row.String("PasswordHash"),
		Role:         row.String("Role"),
		AuthMode:     mode,
		Email:        row.String("Email"),
		DisplayName:  row.String("DisplayName"),
		AvatarURL:    row.String("AvatarURL"),
		UITheme:      row.String("UITheme"),
		Team:         row.String("Team"),
		Bio:          row.String("Bio"),
	}
}

// UserParams is the inverse of UserFromRow.
func UserParams(user *domain.User) Params {
	return Params{
		"ID":           user.ID,
		"Username":     user.Username,
		"PasswordHash": user.PasswordHash,
		"Role":         user.Role,
		"Email":        user.Email,
		"DisplayName":  user.DisplayName,
		"AvatarURL":    user.AvatarURL,
		"UITheme":      user.UITheme,
		"Team":         user.Team,
		"Bio":          user.Bio,
		"SQL_USER":     user.AuthMode == domain.AuthModeLocal,
	}
}
