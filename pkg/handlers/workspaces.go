package handlers

import (
	"net/http"
	"strings"

	"tarely-backend/pkg/config"
	"tarely-backend/pkg/database"
	"tarely-backend/pkg/logging"
	"tarely-backend/pkg/mailer"
	"tarely-backend/pkg/middleware"
	"tarely-backend/pkg/models"
	"tarely-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// WorkspacesHandler handles workspace CRUD and membership.
type WorkspacesHandler struct {
	config *config.Config
	db     database.Store
	mail   mailer.Mailer
}

func NewWorkspacesHandler(cfg *config.Config, db database.Store, mail mailer.Mailer) *WorkspacesHandler {
	return &WorkspacesHandler{config: cfg, db: db, mail: mail}
}

// POST /api/workspaces
// Every workspace starts with the two system sections.
func (h *WorkspacesHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		Instructions string `json:"instructions"`
		Icon         string `json:"icon"`
		Color        string `json:"color"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if strings.TrimSpace(req.Name) == "" { utils.WriteValidationErrorResponse(w, "Name required"); return }

	ws := &models.Workspace{
		OwnerID:      user.ID,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		Instructions: req.Instructions,
		Icon:         req.Icon,
		Color:        req.Color,
	}
	if err := h.db.CreateWorkspace(ws); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create workspace"); return }

	for i, name := range []string{models.SectionPending, models.SectionCompleted} {
		s := &models.Section{WorkspaceID: ws.ID, Name: name, Order: i, IsSystem: true}
		if err := h.db.CreateSection(s); err != nil {
			logging.Get().WithError(err).WithField("workspace", ws.ID).Error("Failed to create system section")
			utils.WriteInternalServerErrorResponse(w, "Failed to create workspace")
			return
		}
	}

	utils.WriteCreatedResponse(w, ws)
}

// GET /api/workspaces
func (h *WorkspacesHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	workspaces, err := h.db.ListWorkspacesForUser(user.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list workspaces"); return }
	utils.WriteSuccessResponse(w, workspaces)
}

// GET /api/workspaces/{id}
func (h *WorkspacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, id); !ok { return }
	ws, err := h.db.GetWorkspace(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Workspace not found"); return }
	utils.WriteSuccessResponse(w, ws)
}

// PUT /api/workspaces/{id}
func (h *WorkspacesHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	if !requireWorkspaceOwner(w, h.db, user.ID, id) { return }
	ws, err := h.db.GetWorkspace(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Workspace not found"); return }

	var req struct {
		Name         *string `json:"name"`
		Description  *string `json:"description"`
		Instructions *string `json:"instructions"`
		Icon         *string `json:"icon"`
		Color        *string `json:"color"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" { utils.WriteValidationErrorResponse(w, "Name cannot be empty"); return }
		ws.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil { ws.Description = *req.Description }
	if req.Instructions != nil { ws.Instructions = *req.Instructions }
	if req.Icon != nil { ws.Icon = *req.Icon }
	if req.Color != nil { ws.Color = *req.Color }

	if err := h.db.UpdateWorkspace(ws); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update workspace"); return }
	utils.WriteSuccessResponse(w, ws)
}

// DELETE /api/workspaces/{id}
func (h *WorkspacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	if !requireWorkspaceOwner(w, h.db, user.ID, id) { return }
	if err := h.db.DeleteWorkspace(id); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete workspace"); return }
	utils.WriteSuccessResponse(w, map[string]string{"message": "Workspace deleted"})
}

// POST /api/workspaces/{id}/invites
func (h *WorkspacesHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, id); !ok { return }
	ws, err := h.db.GetWorkspace(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Workspace not found"); return }

	var req struct {
		Email string `json:"email"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" { utils.WriteValidationErrorResponse(w, "Email required"); return }

	invitee, err := h.db.GetUserByEmail(email)
	if err != nil { utils.WriteNotFoundResponse(w, "No account with that email"); return }
	if invitee.ID == ws.OwnerID { utils.WriteConflictResponse(w, "User is already a member"); return }

	m := &models.WorkspaceMember{
		WorkspaceID: id,
		UserID:      invitee.ID,
		Role:        models.RoleMember,
		Status:      models.MemberPending,
		InviterID:   user.ID,
	}
	if err := h.db.CreateMember(m); err != nil {
		if err == database.ErrConflict { utils.WriteConflictResponse(w, "User already invited or a member"); return }
		utils.WriteInternalServerErrorResponse(w, "Failed to create invite")
		return
	}

	if err := h.mail.SendInvite(r.Context(), email, user.Name, ws.Name); err != nil {
		logging.Get().WithError(err).WithField("email", email).Warn("Failed to send invite email")
	}
	utils.WriteCreatedResponse(w, m)
}

// POST /api/invites/{id}/respond
func (h *WorkspacesHandler) RespondToInvite(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	m, err := h.db.GetMember(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Invite not found"); return }
	if m.UserID != user.ID { utils.WriteForbiddenResponse(w, "Only the invitee can respond"); return }
	if m.Status != models.MemberPending { utils.WriteInvalidOperationResponse(w, "Invite already resolved"); return }

	var req struct {
		Accept bool `json:"accept"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	if req.Accept {
		m.Status = models.MemberAccepted
	} else {
		m.Status = models.MemberRejected
	}
	if err := h.db.UpdateMember(m); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update invite"); return }
	utils.WriteSuccessResponse(w, m)
}

// GET /api/invites
func (h *WorkspacesHandler) ListMyInvites(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	invites, err := h.db.ListInvitesForUser(user.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list invites"); return }
	utils.WriteSuccessResponse(w, invites)
}

// GET /api/workspaces/{id}/members
func (h *WorkspacesHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, id); !ok { return }
	members, err := h.db.ListMembers(id)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list members"); return }
	utils.WriteSuccessResponse(w, members)
}

// DELETE /api/workspaces/{id}/members/{memberId}
// The owner can remove anyone; a member can remove themselves (leave).
func (h *WorkspacesHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")
	memberID := chiRoute.URLParam(r, "memberId")

	m, err := h.db.GetMember(memberID)
	if err != nil || m.WorkspaceID != id { utils.WriteNotFoundResponse(w, "Member not found"); return }

	role, ok := memberRole(h.db, user.ID, id)
	if !ok { utils.WriteForbiddenResponse(w, "Not a member of workspace"); return }
	if role != models.RoleOwner && m.UserID != user.ID { utils.WriteForbiddenResponse(w, "Only the owner can remove other members"); return }

	if err := h.db.DeleteMember(memberID); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to remove member"); return }
	utils.WriteSuccessResponse(w, map[string]string{"message": "Member removed"})
}
