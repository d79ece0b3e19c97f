package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	handler "tarely-backend/api"
	"tarely-backend/pkg/calendar"
	"tarely-backend/pkg/config"
	"tarely-backend/pkg/database"
	"tarely-backend/pkg/mailer"
	"tarely-backend/pkg/models"
	"tarely-backend/pkg/storage"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// stubCompleter returns a canned reply and records the prompts it saw.
type stubCompleter struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.lastSystem = systemPrompt
	s.lastUser = userPrompt
	return s.reply, s.err
}

// stubGoogle fakes the Google OAuth and Calendar APIs.
type stubGoogle struct {
	exchangeErr error
	refreshErr  error
	insertErr   error
	refreshed   int
	inserted    []calendar.Event
}

func (s *stubGoogle) ExchangeCode(ctx context.Context, code string) (*models.CalendarCredentials, error) {
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	return &models.CalendarCredentials{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (s *stubGoogle) RefreshAccessToken(ctx context.Context, creds *models.CalendarCredentials) (*models.CalendarCredentials, error) {
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	s.refreshed++
	return &models.CalendarCredentials{
		UserID:       creds.UserID,
		AccessToken:  "refreshed-access",
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (s *stubGoogle) InsertEvent(ctx context.Context, accessToken string, event calendar.Event) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, event)
	return nil
}

// env is a full router backed by the in-memory store.
type env struct {
	t         *testing.T
	router    *chi.Mux
	db        database.Store
	completer *stubCompleter
	google    *stubGoogle
}

func newEnv(t *testing.T) *env {
	cfg := &config.Config{
		Environment:    "test",
		JWTSecret:      "unit-test-secret-key",
		AllowedOrigins: []string{"*"},
	}
	db := database.NewMemoryStore()
	completer := &stubCompleter{}
	google := &stubGoogle{}
	svc := &handler.Services{
		DB:        db,
		Completer: completer,
		Objects:   storage.NewMemoryStore(),
		Mail:      mailer.NoopMailer{},
		Google:    google,
	}
	return &env{
		t:         t,
		router:    handler.NewRouter(cfg, svc),
		db:        db,
		completer: completer,
		google:    google,
	}
}

func (e *env) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// upload posts a multipart file to path.
func (e *env) upload(path, token, fileName, contentType string, data []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName)}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	require.NoError(e.t, err)
	_, err = part.Write(data)
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decode unmarshals the data payload of a successful response into v.
func (e *env) decode(rec *httptest.ResponseRecorder, v interface{}) {
	var envl apiEnvelope
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &envl), rec.Body.String())
	require.True(e.t, envl.Success, rec.Body.String())
	if v != nil {
		require.NoError(e.t, json.Unmarshal(envl.Data, v))
	}
}

// errorCode returns the machine code of an error response.
func (e *env) errorCode(rec *httptest.ResponseRecorder) string {
	var envl apiEnvelope
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &envl), rec.Body.String())
	require.False(e.t, envl.Success, rec.Body.String())
	require.NotNil(e.t, envl.Error, rec.Body.String())
	return envl.Error.Code
}

// register creates an account and returns its access token and user.
func (e *env) register(email string) (string, models.User) {
	rec := e.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "password123", "name": "Test User",
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp models.UserLoginResponse
	e.decode(rec, &resp)
	return resp.AccessToken, resp.User
}

// createWorkspace returns the new workspace.
func (e *env) createWorkspace(token, name string) models.Workspace {
	rec := e.do(http.MethodPost, "/api/workspaces", token, map[string]string{"name": name})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var ws models.Workspace
	e.decode(rec, &ws)
	return ws
}

// createTask returns a task created with the given title.
func (e *env) createTask(token, workspaceID, title string) models.Task {
	rec := e.do(http.MethodPost, "/api/workspaces/"+workspaceID+"/tasks", token, map[string]interface{}{"title": title})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var task models.Task
	e.decode(rec, &task)
	return task
}

// createNote returns a note created with the given title.
func (e *env) createNote(token, workspaceID, title string) models.Note {
	rec := e.do(http.MethodPost, "/api/workspaces/"+workspaceID+"/notes", token, map[string]interface{}{
		"title":   title,
		"content": models.PlainDocument("hello world from " + title),
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var note models.Note
	e.decode(rec, &note)
	return note
}

// createTag returns a tag created with the given name.
func (e *env) createTag(token, workspaceID, name string) models.Tag {
	rec := e.do(http.MethodPost, "/api/workspaces/"+workspaceID+"/tags", token, map[string]string{"name": name})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var tag models.Tag
	e.decode(rec, &tag)
	return tag
}

// sections returns the workspace's sections in order.
func (e *env) sections(token, workspaceID string) []models.Section {
	rec := e.do(http.MethodGet, "/api/workspaces/"+workspaceID+"/sections", token, nil)
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	var sections []models.Section
	e.decode(rec, &sections)
	return sections
}
