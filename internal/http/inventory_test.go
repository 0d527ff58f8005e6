package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventory_CRUD(t *testing.T) {
	srv := newTestServer(t)
	token := srv.tokenFor(t, "alice", "editor")

	created := srv.do(t, request{
		method: http.MethodPost,
		path:   "/api/inventory",
		token:  token,
		body:   map[string]any{"Name": "Cordless Drill", "Location": "Garage", "Quantity": 2, "Secret": "ignored"},
	})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	id, _ := decode[map[string]any](t, created)["ID"].(string)
	require.NotEmpty(t, id)

	srv.do(t, request{
		method: http.MethodPost,
		path:   "/api/inventory",
		token:  token,
		body:   map[string]any{"Name": "Hammer", "Location": "Shed", "Quantity": 1},
	})

	search := srv.do(t, request{method: http.MethodGet, path: "/api/inventory?filterColumn=Name&searchValue=drill", token: token})
	require.Equal(t, http.StatusOK, search.Code, search.Body.String())
	rows := decode[[]map[string]any](t, search)
	require.Len(t, rows, 1)
	assert.Equal(t, "Cordless Drill", rows[0]["Name"])
	assert.EqualValues(t, 2, rows[0]["Quantity"])

	updated := srv.do(t, request{method: http.MethodPut, path: "/api/inventory/" + id, token: token, body: map[string]any{"Quantity": 5}})
	require.Equal(t, http.StatusOK, updated.Code, updated.Body.String())

	exact := srv.do(t, request{method: http.MethodGet, path: "/api/inventory?filterColumn=Name&searchValue=Cordless%20Drill&exactMatch=true", token: token})
	rows = decode[[]map[string]any](t, exact)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 5, rows[0]["Quantity"])

	deleted := srv.do(t, request{method: http.MethodDelete, path: "/api/inventory/" + id, token: token})
	require.Equal(t, http.StatusOK, deleted.Code)

	all := srv.do(t, request{method: http.MethodGet, path: "/api/inventory", token: token})
	assert.Len(t, decode[[]map[string]any](t, all), 1)

	var mutations []string
	for _, call := range srv.audit.all() {
		if !call.Read {
			mutations = append(mutations, call.Route)
			assert.Equal(t, "alice", call.Actor)
		}
	}
	require.Len(t, mutations, 4)
	assert.Equal(t, "POST /api/inventory/"+id, mutations[0])
	assert.Equal(t, "PUT /api/inventory/"+id, mutations[2])
	assert.Equal(t, "DELETE /api/inventory/"+id, mutations[3])
}

func TestInventory_Errors(t *testing.T) {
	srv := newTestServer(t)
	token := srv.tokenFor(t, "alice", "editor")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{name: "create without name", method: http.MethodPost, path: "/api/inventory", body: map[string]any{"Bin": "A1"}, status: http.StatusBadRequest},
		{name: "update unknown", method: http.MethodPut, path: "/api/inventory/missing", body: map[string]any{"Bin": "A1"}, status: http.StatusNotFound},
		{name: "update nothing", method: http.MethodPut, path: "/api/inventory/missing", body: map[string]any{"Nope": 1}, status: http.StatusBadRequest},
		{name: "delete unknown", method: http.MethodDelete, path: "/api/inventory/missing", status: http.StatusNotFound},
		{name: "unknown filter column", method: http.MethodGet, path: "/api/inventory?filterColumn=Nope&searchValue=x", status: http.StatusBadRequest},
		{name: "body not an object", method: http.MethodPost, path: "/api/locations", body: []string{"x"}, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(t, request{method: tt.method, path: tt.path, token: token, body: tt.body})
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestInventory_RequiresToken(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/inventory", "/api/locations", "/api/users"} {
		w := srv.do(t, request{method: http.MethodGet, path: path})
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestLocations_CreateAndList(t *testing.T) {
	srv := newTestServer(t)
	token := srv.tokenFor(t, "alice", "viewer")

	w := srv.do(t, request{
		method: http.MethodPost,
		path:   "/api/locations",
		token:  token,
		body:   map[string]any{"Name": "Garage", "Building": "House"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	list := srv.do(t, request{method: http.MethodGet, path: "/api/locations?Building=House", token: token})
	require.Equal(t, http.StatusOK, list.Code)
	rows := decode[[]map[string]any](t, list)
	require.Len(t, rows, 1)
	assert.Equal(t, "Garage", rows[0]["Name"])

	empty := srv.do(t, request{method: http.MethodGet, path: "/api/locations?Building=Office", token: token})
	assert.JSONEq(t, `[]`, empty.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	health := srv.do(t, request{method: http.MethodGet, path: "/api/health"})
	assert.Equal(t, http.StatusOK, health.Code)

	srv.do(t, request{method: http.MethodGet, path: "/api/inventory"})
	m := srv.do(t, request{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, m.Code)
	assert.Contains(t, m.Body.String(), "homeinv_authz_denied_total")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, request{method: http.MethodOptions, path: "/api/auth/login"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
