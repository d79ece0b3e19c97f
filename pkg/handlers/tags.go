package handlers

import (
	"net/http"
	"strings"

	"tarely-backend/pkg/config"
	"tarely-backend/pkg/database"
	"tarely-backend/pkg/middleware"
	"tarely-backend/pkg/models"
	"tarely-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// TagsHandler handles workspace-scoped tags.
type TagsHandler struct {
	config *config.Config
	db     database.Store
}

func NewTagsHandler(cfg *config.Config, db database.Store) *TagsHandler {
	return &TagsHandler{config: cfg, db: db}
}

// GET /api/workspaces/{id}/tags
func (h *TagsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	workspaceID := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, workspaceID); !ok { return }
	tags, err := h.db.ListTags(workspaceID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list tags"); return }
	utils.WriteSuccessResponse(w, tags)
}

// POST /api/workspaces/{id}/tags
// Names are unique within a workspace.
func (h *TagsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	workspaceID := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, workspaceID); !ok { return }

	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if strings.TrimSpace(req.Name) == "" { utils.WriteValidationErrorResponse(w, "Name required"); return }

	tag := &models.Tag{WorkspaceID: workspaceID, Name: strings.TrimSpace(req.Name), Color: req.Color}
	if err := h.db.CreateTag(tag); err != nil {
		if err == database.ErrConflict { utils.WriteConflictResponse(w, "A tag with that name already exists"); return }
		utils.WriteInternalServerErrorResponse(w, "Failed to create tag")
		return
	}
	utils.WriteCreatedResponse(w, tag)
}

// PUT /api/tags/{id}
func (h *TagsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	tag, err := h.db.GetTag(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Tag not found"); return }
	if _, ok := requireWorkspaceMember(w, h.db, user.ID, tag.WorkspaceID); !ok { return }

	var req struct {
		Name  *string `json:"name"`
		Color *string `json:"color"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" { utils.WriteValidationErrorResponse(w, "Name cannot be empty"); return }
		tag.Name = strings.TrimSpace(*req.Name)
	}
	if req.Color != nil { tag.Color = *req.Color }

	if err := h.db.UpdateTag(tag); err != nil {
		if err == database.ErrConflict { utils.WriteConflictResponse(w, "A tag with that name already exists"); return }
		utils.WriteInternalServerErrorResponse(w, "Failed to update tag")
		return
	}
	utils.WriteSuccessResponse(w, tag)
}

// DELETE /api/tags/{id}
// Removes the tag from every task and note that carries it.
func (h *TagsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	tag, err := h.db.GetTag(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Tag not found"); return }
	if _, ok := requireWorkspaceMember(w, h.db, user.ID, tag.WorkspaceID); !ok { return }

	if err := h.db.DeleteTag(id); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete tag"); return }
	utils.WriteSuccessResponse(w, map[string]string{"message": "Tag deleted"})
}
