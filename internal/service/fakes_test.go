package service

import (
	"context"
	"errors"
	"sync"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository"
)

type fakeUsers struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	readErr error
}

func newFakeUsers(users ...*domain.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]*domain.User)}
	for _, u := range users {
		f.users[domain.NormalizeUsername(u.Username)] = u
	}
	return f
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	u, ok := f.users[domain.NormalizeUsername(username)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := domain.NormalizeUsername(user.Username)
	if _, ok := f.users[key]; ok {
		return repository.ErrConflict
	}
	clone := *user
	f.users[key] = &clone
	return nil
}

type fakeDirectory struct {
	err   error
	calls int
	user  string
	pass  string
}

func (d *fakeDirectory) Authenticate(_ context.Context, username, password string) error {
	d.calls++
	d.user, d.pass = username, password
	return d.err
}

var errBoom = errors.New("boom")
