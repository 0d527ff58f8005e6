package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
)

type call struct {
	table  Table
	op     Operation
	params Params
}

type fakeExecutor struct {
	rows  []Row
	err   error
	calls []call
}

func (f *fakeExecutor) ExecuteQuery(_ context.Context, table Table, op Operation, params Params) ([]Row, error) {
	f.calls = append(f.calls, call{table: table, op: op, params: params})
	return f.rows, f.err
}

func TestUserRepository_GetByUsername(t *testing.T) {
	exec := &fakeExecutor{rows: []Row{{
		"ID":           "u1",
		"Username":     "alice",
		"PasswordHash": "$2a$10$hash",
		"Role":         "admin",
		"SQL_USER":     int64(1),
		"Email":        []byte("alice@example.com"),
		"Bio":          nil,
	}}}
	repo := NewUserRepository(exec)

	user, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, TableUsers, exec.calls[0].table)
	assert.Equal(t, OpRead, exec.calls[0].op)
	assert.Equal(t, Params{"Username": "alice"}, exec.calls[0].params)

	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, domain.AuthModeLocal, user.AuthMode)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "", user.Bio)
}

func TestUserRepository_GetByUsernameMissing(t *testing.T) {
	repo := NewUserRepository(&fakeExecutor{})

	_, err := repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_GetByUsernameStoreError(t *testing.T) {
	boom := errors.New("connection reset")
	repo := NewUserRepository(&fakeExecutor{err: boom})

	_, err := repo.GetByUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_Create(t *testing.T) {
	exec := &fakeExecutor{}
	repo := NewUserRepository(exec)

	err := repo.Create(context.Background(), &domain.User{
		ID:       "u2",
		Username: "bob",
		Role:     "viewer",
		AuthMode: domain.AuthModeDirectory,
	})
	require.NoError(t, err)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, OpCreate, exec.calls[0].op)
	assert.Equal(t, false, exec.calls[0].params["SQL_USER"])
	assert.Equal(t, "bob", exec.calls[0].params["Username"])

	exec.err = ErrConflict
	assert.ErrorIs(t, repo.Create(context.Background(), &domain.User{ID: "u3"}), ErrConflict)
}

func TestUserFromRow_AuthMode(t *testing.T) {
	tests := []struct {
		value any
		want  domain.AuthMode
	}{
		{value: true, want: domain.AuthModeLocal},
		{value: int64(1), want: domain.AuthModeLocal},
		{value: "1", want: domain.AuthModeLocal},
		{value: "TRUE", want: domain.AuthModeLocal},
		{value: false, want: domain.AuthModeDirectory},
		{value: int64(0), want: domain.AuthModeDirectory},
		{value: nil, want: domain.AuthModeDirectory},
	}
	for _, tt := range tests {
		user := UserFromRow(Row{"SQL_USER": tt.value})
		assert.Equal(t, tt.want, user.AuthMode, "%v", tt.value)
	}
}

func TestAuditRepository_Insert(t *testing.T) {
	exec := &fakeExecutor{}
	repo := NewAuditRepository(exec)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err := repo.Insert(context.Background(), domain.AuditEntry{
		ID:             "a1",
		Route:          "DELETE /api/inventory/7",
		RequestPayload: `{"ID":"7"}`,
		Actor:          "alice",
		CreatedAt:      at,
	})
	require.NoError(t, err)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, TableTransactions, exec.calls[0].table)
	assert.Equal(t, Params{
		"ID":                    "a1",
		"Route":                 "DELETE /api/inventory/7",
		"RequestPayload":        `{"ID":"7"}`,
		"AuthenticatedUsername": "alice",
		"CreatedAt":             at,
	}, exec.calls[0].params)

	exec.err = errors.New("disk I/O error")
	assert.Error(t, repo.Insert(context.Background(), domain.AuditEntry{ID: "a2"}))
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("Update")
	require.NoError(t, err)
	assert.Equal(t, OpUpdate, op)

	_, err = ParseOperation("MERGE")
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}
