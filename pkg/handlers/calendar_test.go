package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"tarely-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarConnect(t *testing.T) {
	e := newEnv(t)
	token, user := e.register("cal@example.com")

	rec := e.do(http.MethodPost, "/api/calendar/connect", token, map[string]string{"code": "oauth-code"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	creds, err := e.db.GetCalendarCredentials(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "access-oauth-code", creds.AccessToken)
	assert.Equal(t, "refresh-oauth-code", creds.RefreshToken)
	assert.False(t, creds.Expired())
}

func TestCalendarSyncRequiresConnection(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("cal@example.com")
	ws := e.createWorkspace(token, "Agenda")

	rec := e.do(http.MethodPost, "/api/calendar/sync", token, map[string]string{"workspaceId": ws.ID})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_OPERATION", e.errorCode(rec))
}

func TestCalendarSyncPushesDueTasks(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("cal@example.com")
	ws := e.createWorkspace(token, "Agenda")

	rec := e.do(http.MethodPost, "/api/calendar/connect", token, map[string]string{"code": "c"})
	require.Equal(t, http.StatusOK, rec.Code)

	due := time.Now().Add(48 * time.Hour)
	rec = e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/tasks", token, map[string]interface{}{
		"title": "dentist", "dueDate": due.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	e.createTask(token, ws.ID, "no due date")

	rec = e.do(http.MethodPost, "/api/calendar/sync", token, map[string]string{"workspaceId": ws.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var counts map[string]int
	e.decode(rec, &counts)
	assert.Equal(t, 1, counts["synced"])
	assert.Equal(t, 0, counts["failed"])

	require.Len(t, e.google.inserted, 1)
	assert.Equal(t, "dentist", e.google.inserted[0].Title)
	assert.Equal(t, 0, e.google.refreshed)
}

func TestCalendarSyncRefreshesExpiredToken(t *testing.T) {
	e := newEnv(t)
	token, user := e.register("cal@example.com")
	ws := e.createWorkspace(token, "Agenda")

	expired := &models.CalendarCredentials{
		UserID:       user.ID,
		AccessToken:  "stale",
		RefreshToken: "still-good",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	require.NoError(t, e.db.SaveCalendarCredentials(expired))

	rec := e.do(http.MethodPost, "/api/calendar/sync", token, map[string]string{"workspaceId": ws.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, e.google.refreshed)

	creds, err := e.db.GetCalendarCredentials(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "refreshed-access", creds.AccessToken)
	assert.Equal(t, "still-good", creds.RefreshToken)
	assert.False(t, creds.Expired())
}
