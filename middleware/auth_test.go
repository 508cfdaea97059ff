package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillSnapAPI/utils"
)

func authProbe(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var gotUserID string
	handler := DeviceAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		require.True(t, ok)
		gotUserID = userID
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &gotUserID
}

func TestDeviceAuthAcceptsIssuedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")

	token, err := utils.GenerateDeviceToken("b5e7d2f0-8a4c-4c9f-9a39-68d6f3b1e1aa")
	require.NoError(t, err)

	handler, gotUserID := authProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "b5e7d2f0-8a4c-4c9f-9a39-68d6f3b1e1aa", *gotUserID)
}

func TestDeviceAuthRejectsMissingHeader(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")

	handler, _ := authProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestDeviceAuthRejectsNonBearerHeader(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")

	handler, _ := authProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestDeviceAuthRejectsTokenSignedWithOtherSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "first-secret")
	token, err := utils.GenerateDeviceToken("b5e7d2f0-8a4c-4c9f-9a39-68d6f3b1e1aa")
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "second-secret")
	handler, _ := authProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestDeviceAuthRejectsGarbageToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")

	handler, _ := authProbe(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
