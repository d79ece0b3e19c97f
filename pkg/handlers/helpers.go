package handlers

import (
	"net/http"
	"unicode/utf8"

	"tarely-backend/pkg/database"
	"tarely-backend/pkg/logging"
	"tarely-backend/pkg/models"
	"tarely-backend/pkg/utils"
)

// ==== helpers: membership/role checks shared by workspace-scoped handlers ====

// memberRole resolves the caller's role in a workspace. The owner never has a
// member row; accepted members do, pending invitees do not count yet.
func memberRole(db database.Store, userID, workspaceID string) (models.MemberRole, bool) {
	ws, err := db.GetWorkspace(workspaceID)
	if err != nil {
		return "", false
	}
	if ws.OwnerID == userID {
		return models.RoleOwner, true
	}
	m, err := db.GetMemberByWorkspaceAndUser(workspaceID, userID)
	if err != nil || m.Status != models.MemberAccepted {
		return "", false
	}
	return m.Role, true
}

func requireWorkspaceMember(w http.ResponseWriter, db database.Store, userID, workspaceID string) (models.MemberRole, bool) {
	role, ok := memberRole(db, userID, workspaceID)
	if !ok {
		utils.WriteForbiddenResponse(w, "Not a member of workspace")
		return "", false
	}
	return role, true
}

func requireWorkspaceOwner(w http.ResponseWriter, db database.Store, userID, workspaceID string) bool {
	role, ok := memberRole(db, userID, workspaceID)
	if !ok || role != models.RoleOwner {
		utils.WriteForbiddenResponse(w, "Owner privileges required")
		return false
	}
	return true
}

// recordActivity appends an audit record. Best-effort: a failed write is
// logged, the mutation that triggered it already succeeded.
func recordActivity(db database.Store, taskID, userID, kind, detail string) {
	a := &models.Activity{TaskID: taskID, UserID: userID, Kind: kind, Detail: detail}
	if err := db.CreateActivity(a); err != nil {
		logging.Get().WithError(err).WithField("task", taskID).Warn("Failed to record activity")
	}
}

// withTags loads the tag list onto a task for API reads.
func withTags(db database.Store, t *models.Task) {
	tags, err := db.ListTaskTags(t.ID)
	if err == nil {
		t.Tags = tags
	}
}

// withNoteTags loads the tag list onto a note for API reads.
func withNoteTags(db database.Store, n *models.Note) {
	tags, err := db.ListNoteTags(n.ID)
	if err == nil {
		n.Tags = tags
	}
}

// truncate returns at most n bytes of s, cut on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
