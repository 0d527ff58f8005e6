package domain

import "strings"

// RoleAdmin may manage accounts.
const RoleAdmin = "admin"

// AuthMode tells which trust source verifies a user's password.
type AuthMode int

const (
	// AuthModeLocal accounts are verified against the stored password hash.
	AuthModeLocal AuthMode = iota + 1
	// AuthModeDirectory accounts are verified by a directory bind.
	AuthModeDirectory
)

func (m AuthMode) String() string {
	switch m {
	case AuthModeLocal:
		return "local"
	case AuthModeDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// User represents an account record as held by the user store.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	AuthMode     AuthMode
	Email        string
	DisplayName  string
	AvatarURL    string
	UITheme      string
	Team         string
	Bio          string
}

// Identity is the verified username/role pair carried by a session.
type Identity struct {
	Username string
	Role     string
}

// Identity returns the snapshot of the user that sessions carry.
func (u *User) Identity() Identity {
	return Identity{Username: u.Username, Role: u.Role}
}

// NormalizeUsername folds a username for case-insensitive comparison.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
