package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moim/moim-api/internal/middleware"
	"github.com/moim/moim-api/internal/pkg/jwt"
)

func newAuthedServer(t *testing.T) (*jwt.Service, http.Handler, *uuid.UUID) {
	t.Helper()

	jwtService := jwt.NewService("test-secret", 15*time.Minute)

	var gotUserID uuid.UUID
	handler := middleware.Auth(jwtService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = middleware.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	return jwtService, handler, &gotUserID
}

func TestAuthMiddleware(t *testing.T) {
	jwtService, handler, gotUserID := newAuthedServer(t)

	userID := uuid.New()
	token, err := jwtService.GenerateAccessToken(userID, "member", false)
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, *gotUserID)
	})

	t.Run("token query param for websocket clients", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID, *gotUserID)
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("banned user", func(t *testing.T) {
		bannedToken, err := jwtService.GenerateAccessToken(uuid.New(), "member", true)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+bannedToken)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	jwtService := jwt.NewService("test-secret", 15*time.Minute)

	handler := middleware.Auth(jwtService)(middleware.RequireAdmin()(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	))

	memberToken, err := jwtService.GenerateAccessToken(uuid.New(), "member", false)
	require.NoError(t, err)
	adminToken, err := jwtService.GenerateAccessToken(uuid.New(), "admin", false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+memberToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExpiredToken(t *testing.T) {
	expiredService := jwt.NewService("test-secret", -time.Minute)
	token, err := expiredService.GenerateAccessToken(uuid.New(), "member", false)
	require.NoError(t, err)

	_, handler, _ := newAuthedServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
