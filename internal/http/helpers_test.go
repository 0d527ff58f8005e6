package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/auth"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/metrics"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/repository/sqlite"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/service"
	"github.com/maddiethegm/Home-Inventory-Controller/internal/throttle"
)

const testSecret = "test-signing-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type auditCall struct {
	Route   string
	Payload any
	Actor   string
	Read    bool
}

type fakeAuditor struct {
	mu    sync.Mutex
	calls []auditCall
}

func (f *fakeAuditor) Record(route string, payload any, actor string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, auditCall{Route: route, Payload: payload, Actor: actor})
}

func (f *fakeAuditor) RecordRead(route string, payload any, actor string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, auditCall{Route: route, Payload: payload, Actor: actor, Read: true})
}

func (f *fakeAuditor) all() []auditCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]auditCall(nil), f.calls...)
}

type testServer struct {
	router  *gin.Engine
	store   *sqlite.Executor
	users   repository.UserRepository
	tokens  *auth.TokenService
	audit   *fakeAuditor
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, customize ...func(*Deps)) *testServer {
	t.Helper()

	db, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := sqlite.NewExecutor(db)
	require.NoError(t, store.Init(context.Background()))
	users := repository.NewUserRepository(store)

	logger, _ := logtest.NewNullLogger()
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	srv := &testServer{
		store:   store,
		users:   users,
		tokens:  tokens,
		audit:   &fakeAuditor{},
		metrics: metrics.NewNop(),
	}
	deps := Deps{
		Auth:    service.NewAuthService(users, auth.BcryptVerifier{}, nil, logger),
		Users:   service.NewUserService(users, bcrypt.MinCost),
		Tokens:  tokens,
		Store:   store,
		Limiter: throttle.NewMemoryLimiter(throttle.Config{Limit: 10, Window: time.Minute}),
		Audit:   srv.audit,
		Metrics: srv.metrics,
		Logger:  logger,
	}
	for _, fn := range customize {
		fn(&deps)
	}

	router := gin.New()
	NewHandler(deps).RegisterRoutes(router)
	srv.router = router
	return srv
}

func (s *testServer) seedUser(t *testing.T, username, password, role string) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{
		ID:           username + "-id",
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		AuthMode:     domain.AuthModeLocal,
	}
	require.NoError(t, s.users.Create(context.Background(), user))
	return user
}

func (s *testServer) tokenFor(t *testing.T, username, role string) string {
	t.Helper()
	token, err := s.tokens.Issue(domain.Identity{Username: username, Role: role})
	require.NoError(t, err)
	return token
}

type request struct {
	method   string
	path     string
	body     any
	token    string
	clientIP string
}

func (s *testServer) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.clientIP != "" {
		req.RemoteAddr = r.clientIP + ":40000"
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func loginBody(username, password string) map[string]string {
	return map[string]string{"username": username, "password": password}
}
