package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile-api/internal/domain"
	"profile-api/internal/health"
	"profile-api/internal/repository/sqlite"
	"profile-api/internal/service"
)

type readyFunc func(ctx context.Context) error

func (f readyFunc) Ready(ctx context.Context) error { return f(ctx) }

func newTestRouter(t *testing.T, users service.UserDirectory, ready health.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router := gin.New()
	NewHandler(users, ready, logger).RegisterRoutes(router)
	return router
}

func newSQLiteRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := sqlite.NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return newTestRouter(t, service.NewUserDirectory(repo), health.NewService(health.NewSQLChecker("sqlite", db)))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeUser(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestUserLifecycle(t *testing.T) {
	router := newSQLiteRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/register", gin.H{
		"username":  "alice",
		"password":  "p1",
		"email":     "a@x.com",
		"firstName": "A",
		"lastName":  "L",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decodeUser(t, rec)
	assert.EqualValues(t, 1, created["id"])
	assert.Equal(t, "alice", created["username"])
	assert.Equal(t, "a@x.com", created["email"])
	assert.NotContains(t, created, "password")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = doJSON(t, router, http.MethodPost, "/register", gin.H{"username": "alice", "password": "other"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "username already exists")

	rec = doJSON(t, router, http.MethodPost, "/login", gin.H{"username": "alice", "password": "p1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeUser(t, rec)["id"])

	rec = doJSON(t, router, http.MethodPost, "/login", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/profile/1", gin.H{"email": "new@x.com", "firstName": "Alice", "lastName": "Z"})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeUser(t, rec)
	assert.Equal(t, "alice", updated["username"])
	assert.Equal(t, "new@x.com", updated["email"])
	assert.Equal(t, "Alice", updated["firstName"])
	assert.Equal(t, "Z", updated["lastName"])

	rec = doJSON(t, router, http.MethodGet, "/profile/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new@x.com", decodeUser(t, rec)["email"])

	rec = doJSON(t, router, http.MethodGet, "/profile/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/profile/999", gin.H{"email": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginWithQueryParams(t *testing.T) {
	router := newSQLiteRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/register", gin.H{"username": "bob", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/login?username=bob&password=pw", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("username=bob&password=nope"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBadRequests(t *testing.T) {
	router := newSQLiteRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/register", gin.H{"username": "carol"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/profile/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/profile/0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPut, "/profile/1", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type failingDirectory struct{ err error }

func (f failingDirectory) Authenticate(context.Context, string, string) (*domain.User, error) {
	return nil, f.err
}

func (f failingDirectory) Register(context.Context, *domain.User) (*domain.User, error) {
	return nil, f.err
}

func (f failingDirectory) GetProfile(context.Context, int64) (*domain.User, error) {
	return nil, f.err
}

func (f failingDirectory) UpdateProfile(context.Context, int64, domain.ProfilePatch) (*domain.User, error) {
	return nil, f.err
}

func TestInternalErrorsAreHidden(t *testing.T) {
	router := newTestRouter(t, failingDirectory{err: errors.New("database is locked")}, nil)

	rec := doJSON(t, router, http.MethodGet, "/profile/1", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "locked")
}

func TestHealthAndReady(t *testing.T) {
	router := newSQLiteRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")

	down := newTestRouter(t, failingDirectory{}, readyFunc(func(context.Context) error {
		return errors.New("sqlite: ping failed")
	}))
	rec = doJSON(t, down, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready")
}

func TestCORSPreflight(t *testing.T) {
	router := newSQLiteRouter(t)

	rec := doJSON(t, router, http.MethodOptions, "/profile/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	router := newSQLiteRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}
