package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/CreativeUnicorns/carprefs"
	"github.com/CreativeUnicorns/carprefs/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) (*Server, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	logger := carprefs.NewLogger(io.Discard, carprefs.LogLevelDebug)

	mgr, err := carprefs.New(carprefs.WithStorage(store), carprefs.WithLogger(logger))
	require.NoError(t, err)

	srv, err := NewServer(Config{Manager: mgr, Logger: logger})
	require.NoError(t, err)
	return srv, store
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodePreferences(t *testing.T, rec *httptest.ResponseRecorder) preferencesResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp preferencesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	srv, _ := setupTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestPatchPreferences(t *testing.T) {
	srv, _ := setupTestServer(t)
	path := "/api/v1/users/user1/preferences"

	rec := doRequest(t, srv, http.MethodPatch, path,
		`{"action":"add","updates":[{"attributeKey":"make","attributeValueType":"scalar","attributeValue":"Toyota"}]}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = doRequest(t, srv, http.MethodPatch, path,
		`{"action":"add","updates":[
			{"attributeKey":"color","attributeValueType":"array","attributeValue":"red"},
			{"attributeKey":"color","attributeValueType":"array","attributeValue":"blue"}
		]}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	resp := decodePreferences(t, doRequest(t, srv, http.MethodGet, path, ""))
	assert.Equal(t, "user1", resp.UserID)
	assert.Equal(t, map[string]any{"make": "Toyota", "color": []any{"red", "blue"}}, resp.Preferences)
	assert.JSONEq(t,
		`{"basePreferences":{"make":{"kind":"scalar","value":"Toyota"},"color":{"kind":"array","value":["red","blue"]}}}`,
		string(resp.Document))

	rec = doRequest(t, srv, http.MethodPatch, path,
		`{"action":"clear","updates":[{"attributeKey":"color","attributeValueType":"array","attributeValue":"red"}]}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	resp = decodePreferences(t, doRequest(t, srv, http.MethodGet, path, ""))
	assert.Equal(t, []any{"blue"}, resp.Preferences["color"])
}

func TestPatchPreferences_Errors(t *testing.T) {
	srv, _ := setupTestServer(t)
	path := "/api/v1/users/user1/preferences"

	rec := doRequest(t, srv, http.MethodPatch, path,
		`{"action":"add","updates":[{"attributeKey":"make","attributeValueType":"scalar","attributeValue":"Toyota"}]}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"action":`, http.StatusBadRequest},
		{"unknown field", `{"action":"add","updates":[],"extra":1}`, http.StatusBadRequest},
		{"unknown action", `{"action":"remove","updates":[{"attributeKey":"make","attributeValueType":"scalar"}]}`, http.StatusBadRequest},
		{"unknown kind", `{"action":"add","updates":[{"attributeKey":"make","attributeValueType":"map"}]}`, http.StatusBadRequest},
		{"empty key", `{"action":"add","updates":[{"attributeKey":" ","attributeValueType":"scalar","attributeValue":"x"}]}`, http.StatusBadRequest},
		{"shape mismatch", `{"action":"clear","updates":[{"attributeKey":"make","attributeValueType":"array","attributeValue":"Toyota"}]}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPatch, path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body map[string]map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"]["message"])
		})
	}

	resp := decodePreferences(t, doRequest(t, srv, http.MethodGet, path, ""))
	assert.Equal(t, map[string]any{"make": "Toyota"}, resp.Preferences)
}

func TestPatchPreferences_EmptyBatch(t *testing.T) {
	srv, _ := setupTestServer(t)
	path := "/api/v1/users/user1/preferences"

	rec := doRequest(t, srv, http.MethodPatch, path,
		`{"action":"add","updates":[{"attributeKey":"make","attributeValueType":"scalar","attributeValue":"Toyota"}]}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv, http.MethodPatch, path, `{"action":"add","updates":[]}`)
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	resp := decodePreferences(t, doRequest(t, srv, http.MethodGet, path, ""))
	assert.Equal(t, map[string]any{"make": "Toyota"}, resp.Preferences)
}

func TestPatchPreferences_NonFiniteIsBadRequest(t *testing.T) {
	// 1e999 overflows float64.
	srv, _ := setupTestServer(t)
	rec := doRequest(t, srv, http.MethodPatch, "/api/v1/users/user1/preferences",
		`{"action":"add","updates":[{"attributeKey":"price","attributeValueType":"scalar","attributeValue":1e999}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestResetPreferences(t *testing.T) {
	srv, _ := setupTestServer(t)
	path := "/api/v1/users/user1/preferences"

	doRequest(t, srv, http.MethodPatch, path,
		`{"action":"add","updates":[{"attributeKey":"make","attributeValueType":"scalar","attributeValue":"Toyota"}]}`)

	rec := doRequest(t, srv, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	resp := decodePreferences(t, doRequest(t, srv, http.MethodGet, path, ""))
	assert.Empty(t, resp.Preferences)
	assert.JSONEq(t, `{}`, string(resp.Document))
}

func TestRecordHistory(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/users/user1/history/liked", `{"make":"Toyota","model":"Camry"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/users/user1/history/liked", `{"make":"Kia"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	resp := decodePreferences(t, doRequest(t, srv, http.MethodGet, "/api/v1/users/user1/preferences", ""))
	assert.JSONEq(t, `{"liked":[{"make":"Toyota","model":"Camry"},{"make":"Kia"}]}`, string(resp.Document))

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/users/user1/history/basePreferences", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/users/user1/history/liked", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLastShownCar(t *testing.T) {
	srv, _ := setupTestServer(t)
	path := "/api/v1/users/user1/last-shown-car"

	rec := doRequest(t, srv, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, srv, http.MethodPut, path, `{"make":"Toyota","model":"Camry","year":2021}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = doRequest(t, srv, http.MethodGet, path, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"make":"Toyota","model":"Camry","year":2021}`, rec.Body.String())

	rec = doRequest(t, srv, http.MethodPut, path, `null`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Other users are unaffected.
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/users/user2/last-shown-car", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStorageUnavailable(t *testing.T) {
	srv, store := setupTestServer(t)
	require.NoError(t, store.Close())

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/users/user1/preferences", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/users/user1/preferences", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUserContext(t *testing.T) {
	var got string
	h := UserContext(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = carprefs.UserIDFromContext(r.Context())
	}))

	srv, _ := setupTestServer(t)
	srv.router.Get("/probe/{userID}", h.ServeHTTP)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/probe/alice", nil))
	assert.Equal(t, "alice", got)
}

func TestStop(t *testing.T) {
	srv, _ := setupTestServer(t)
	assert.NoError(t, srv.Stop(context.Background()))
}
