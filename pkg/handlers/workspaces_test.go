package handlers_test

import (
	"net/http"
	"testing"

	"tarely-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWorkspaceSeedsSystemSections(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")

	sections := e.sections(token, ws.ID)
	require.Len(t, sections, 2)
	assert.Equal(t, models.SectionPending, sections[0].Name)
	assert.Equal(t, 0, sections[0].Order)
	assert.True(t, sections[0].IsSystem)
	assert.Equal(t, models.SectionCompleted, sections[1].Name)
	assert.Equal(t, 1, sections[1].Order)
	assert.True(t, sections[1].IsSystem)
}

func TestCreateWorkspaceRequiresName(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")

	rec := e.do(http.MethodPost, "/api/workspaces", token, map[string]string{"name": "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", e.errorCode(rec))
}

func TestWorkspaceAccessControl(t *testing.T) {
	e := newEnv(t)
	ownerToken, _ := e.register("owner@example.com")
	strangerToken, _ := e.register("stranger@example.com")
	ws := e.createWorkspace(ownerToken, "Private")

	rec := e.do(http.MethodGet, "/api/workspaces/"+ws.ID, strangerToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodDelete, "/api/workspaces/"+ws.ID, strangerToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWorkspaceUpdateOwnerOnly(t *testing.T) {
	e := newEnv(t)
	ownerToken, _ := e.register("owner@example.com")
	memberToken, _ := e.register("member@example.com")
	ws := e.createWorkspace(ownerToken, "Shared")

	rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/invites", ownerToken, map[string]string{"email": "member@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var invite models.WorkspaceMember
	e.decode(rec, &invite)
	rec = e.do(http.MethodPost, "/api/invites/"+invite.ID+"/respond", memberToken, map[string]bool{"accept": true})
	require.Equal(t, http.StatusOK, rec.Code)

	// an accepted member can read but not rename
	rec = e.do(http.MethodGet, "/api/workspaces/"+ws.ID, memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodPut, "/api/workspaces/"+ws.ID, memberToken, map[string]string{"name": "Hijacked"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	stored, err := e.db.GetWorkspace(ws.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shared", stored.Name)

	rec = e.do(http.MethodPut, "/api/workspaces/"+ws.ID, ownerToken, map[string]string{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestInviteFlow(t *testing.T) {
	e := newEnv(t)
	ownerToken, _ := e.register("owner@example.com")
	inviteeToken, _ := e.register("invitee@example.com")
	ws := e.createWorkspace(ownerToken, "Shared")

	// invite
	rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/invites", ownerToken, map[string]string{"email": "invitee@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var invite models.WorkspaceMember
	e.decode(rec, &invite)
	assert.Equal(t, models.MemberPending, invite.Status)

	// duplicate invite conflicts
	rec = e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/invites", ownerToken, map[string]string{"email": "invitee@example.com"})
	require.Equal(t, http.StatusConflict, rec.Code)

	// pending invitee is not a member yet
	rec = e.do(http.MethodGet, "/api/workspaces/"+ws.ID, inviteeToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// invitee sees the invite
	rec = e.do(http.MethodGet, "/api/invites", inviteeToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var invites []models.WorkspaceMember
	e.decode(rec, &invites)
	require.Len(t, invites, 1)

	// only the invitee can respond
	rec = e.do(http.MethodPost, "/api/invites/"+invite.ID+"/respond", ownerToken, map[string]bool{"accept": true})
	require.Equal(t, http.StatusForbidden, rec.Code)

	// accept
	rec = e.do(http.MethodPost, "/api/invites/"+invite.ID+"/respond", inviteeToken, map[string]bool{"accept": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// now a member
	rec = e.do(http.MethodGet, "/api/workspaces/"+ws.ID, inviteeToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// accepted workspace shows up in the invitee's list
	rec = e.do(http.MethodGet, "/api/workspaces", inviteeToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var workspaces []models.Workspace
	e.decode(rec, &workspaces)
	require.Len(t, workspaces, 1)
	assert.Equal(t, ws.ID, workspaces[0].ID)
}

func TestReinviteAfterRejection(t *testing.T) {
	e := newEnv(t)
	ownerToken, _ := e.register("owner@example.com")
	inviteeToken, _ := e.register("invitee@example.com")
	ws := e.createWorkspace(ownerToken, "Shared")

	rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/invites", ownerToken, map[string]string{"email": "invitee@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var invite models.WorkspaceMember
	e.decode(rec, &invite)

	rec = e.do(http.MethodPost, "/api/invites/"+invite.ID+"/respond", inviteeToken, map[string]bool{"accept": false})
	require.Equal(t, http.StatusOK, rec.Code)

	// a rejected invite does not block trying again
	rec = e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/invites", ownerToken, map[string]string{"email": "invitee@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reopened models.WorkspaceMember
	e.decode(rec, &reopened)
	assert.Equal(t, invite.ID, reopened.ID)
	assert.Equal(t, models.MemberPending, reopened.Status)

	// the invitee sees it as pending again and can accept this time
	rec = e.do(http.MethodGet, "/api/invites", inviteeToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var invites []models.WorkspaceMember
	e.decode(rec, &invites)
	require.Len(t, invites, 1)

	rec = e.do(http.MethodPost, "/api/invites/"+reopened.ID+"/respond", inviteeToken, map[string]bool{"accept": true})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodGet, "/api/workspaces/"+ws.ID, inviteeToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestInviteUnknownEmail(t *testing.T) {
	e := newEnv(t)
	ownerToken, _ := e.register("owner@example.com")
	ws := e.createWorkspace(ownerToken, "Shared")

	rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/invites", ownerToken, map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveMember(t *testing.T) {
	e := newEnv(t)
	ownerToken, _ := e.register("owner@example.com")
	memberToken, _ := e.register("member@example.com")
	otherToken, _ := e.register("other@example.com")
	ws := e.createWorkspace(ownerToken, "Shared")

	for _, email := range []string{"member@example.com", "other@example.com"} {
		rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/invites", ownerToken, map[string]string{"email": email})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := e.do(http.MethodGet, "/api/invites", memberToken, nil)
	var invites []models.WorkspaceMember
	e.decode(rec, &invites)
	rec = e.do(http.MethodPost, "/api/invites/"+invites[0].ID+"/respond", memberToken, map[string]bool{"accept": true})
	require.Equal(t, http.StatusOK, rec.Code)
	memberRow := invites[0]

	rec = e.do(http.MethodGet, "/api/invites", otherToken, nil)
	e.decode(rec, &invites)
	rec = e.do(http.MethodPost, "/api/invites/"+invites[0].ID+"/respond", otherToken, map[string]bool{"accept": true})
	require.Equal(t, http.StatusOK, rec.Code)
	otherRow := invites[0]

	// a member cannot remove someone else
	rec = e.do(http.MethodDelete, "/api/workspaces/"+ws.ID+"/members/"+otherRow.ID, memberToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// a member can leave
	rec = e.do(http.MethodDelete, "/api/workspaces/"+ws.ID+"/members/"+memberRow.ID, memberToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// the owner can remove anyone
	rec = e.do(http.MethodDelete, "/api/workspaces/"+ws.ID+"/members/"+otherRow.ID, ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/api/workspaces/"+ws.ID+"/members", ownerToken, nil)
	var members []models.WorkspaceMember
	e.decode(rec, &members)
	assert.Empty(t, members)
}

func TestDeleteWorkspaceFansOut(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Doomed")
	task := e.createTask(token, ws.ID, "task")
	note := e.createNote(token, ws.ID, "note")
	tag := e.createTag(token, ws.ID, "urgent")

	rec := e.do(http.MethodDelete, "/api/workspaces/"+ws.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	_, err := e.db.GetTask(task.ID)
	assert.Error(t, err)
	_, err = e.db.GetNote(note.ID)
	assert.Error(t, err)
	_, err = e.db.GetTag(tag.ID)
	assert.Error(t, err)
}
