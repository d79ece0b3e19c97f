package handlers_test

import (
	"net/http"
	"testing"

	"tarely-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "not-an-email", "password": "password123",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", e.errorCode(rec))

	rec = e.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "short@example.com", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", e.errorCode(rec))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	e := newEnv(t)
	e.register("dup@example.com")

	rec := e.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "dup@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", e.errorCode(rec))
}

func TestLoginAndRefresh(t *testing.T) {
	e := newEnv(t)
	e.register("login@example.com")

	rec := e.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "login@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.UserLoginResponse
	e.decode(rec, &resp)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "login@example.com", resp.User.Email)

	rec = e.do(http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": resp.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var refreshed struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int64  `json:"expiresIn"`
	}
	e.decode(rec, &refreshed)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Greater(t, refreshed.ExpiresIn, int64(0))
}

func TestLoginWrongPassword(t *testing.T) {
	e := newEnv(t)
	e.register("wrong@example.com")

	rec := e.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "wrong@example.com", "password": "not-the-password",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/api/user/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodGet, "/api/user/profile", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileUpdateAndOnboarding(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("profile@example.com")

	rec := e.do(http.MethodPut, "/api/user/profile", token, map[string]string{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var user models.User
	e.decode(rec, &user)
	assert.Equal(t, "Renamed", user.Name)
	assert.False(t, user.HasSeenOnboarding)

	rec = e.do(http.MethodPost, "/api/user/onboarding", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	e.decode(rec, &user)
	assert.True(t, user.HasSeenOnboarding)
}

func TestDeleteAccountCascadesOwnedWorkspaces(t *testing.T) {
	e := newEnv(t)
	token, user := e.register("gone@example.com")
	ws := e.createWorkspace(token, "Personal")

	rec := e.do(http.MethodDelete, "/api/user/account", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err := e.db.GetUserByID(user.ID)
	assert.Error(t, err)
	_, err = e.db.GetWorkspace(ws.ID)
	assert.Error(t, err)
}
