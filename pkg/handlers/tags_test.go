package handlers_test

import (
	"net/http"
	"testing"

	"tarely-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagNameUniquePerWorkspace(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "One")
	other := e.createWorkspace(token, "Two")

	e.createTag(token, ws.ID, "urgent")

	rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/tags", token, map[string]string{"name": "urgent"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", e.errorCode(rec))

	// same name in another workspace is fine
	rec = e.do(http.MethodPost, "/api/workspaces/"+other.ID+"/tags", token, map[string]string{"name": "urgent"})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestTagRenameConflict(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "One")
	e.createTag(token, ws.ID, "first")
	second := e.createTag(token, ws.ID, "second")

	rec := e.do(http.MethodPut, "/api/tags/"+second.ID, token, map[string]string{"name": "first"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(http.MethodPut, "/api/tags/"+second.ID, token, map[string]string{"name": "renamed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tag models.Tag
	e.decode(rec, &tag)
	assert.Equal(t, "renamed", tag.Name)
}

func TestTagDeleteCascadesJoins(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "One")
	tag := e.createTag(token, ws.ID, "everywhere")
	task := e.createTask(token, ws.ID, "tagged task")
	note := e.createNote(token, ws.ID, "tagged note")

	rec := e.do(http.MethodPost, "/api/tasks/"+task.ID+"/tags/"+tag.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodPost, "/api/notes/"+note.ID+"/tags/"+tag.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodDelete, "/api/tags/"+tag.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	taskTags, err := e.db.ListTaskTags(task.ID)
	require.NoError(t, err)
	assert.Empty(t, taskTags)
	noteTags, err := e.db.ListNoteTags(note.ID)
	require.NoError(t, err)
	assert.Empty(t, noteTags)
}
