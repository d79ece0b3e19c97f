package handlers_test

import (
	"net/http"
	"testing"

	"tarely-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSectionAppendsAtEnd(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")

	rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/sections", token, map[string]string{"name": "Backlog"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var section models.Section
	e.decode(rec, &section)
	assert.Equal(t, 2, section.Order)
	assert.False(t, section.IsSystem)

	rec = e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/sections", token, map[string]string{"name": "Later"})
	require.Equal(t, http.StatusCreated, rec.Code)
	e.decode(rec, &section)
	assert.Equal(t, 3, section.Order)
}

func TestSystemSectionProtected(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")
	sections := e.sections(token, ws.ID)
	pending := sections[0]

	rec := e.do(http.MethodPut, "/api/sections/"+pending.ID, token, map[string]string{"name": "Renamed"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_OPERATION", e.errorCode(rec))

	rec = e.do(http.MethodDelete, "/api/sections/"+pending.ID, token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_OPERATION", e.errorCode(rec))
}

func TestSystemSectionColorUpdateAllowed(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")
	pending := e.sections(token, ws.ID)[0]

	rec := e.do(http.MethodPut, "/api/sections/"+pending.ID, token, map[string]string{"color": "#ff0000"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var section models.Section
	e.decode(rec, &section)
	assert.Equal(t, "#ff0000", section.Color)
	assert.Equal(t, models.SectionPending, section.Name)
}

func TestDeleteSectionRehomesTasks(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")
	pending := e.sections(token, ws.ID)[0]

	rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/sections", token, map[string]string{"name": "Sprint"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var sprint models.Section
	e.decode(rec, &sprint)

	rec = e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/tasks", token, map[string]interface{}{
		"title": "in sprint", "sectionId": sprint.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task models.Task
	e.decode(rec, &task)

	rec = e.do(http.MethodDelete, "/api/sections/"+sprint.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	moved, err := e.db.GetTask(task.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.SectionID)
	assert.Equal(t, pending.ID, *moved.SectionID)
}
