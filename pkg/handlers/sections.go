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

// SectionsHandler handles the ordered task buckets of a workspace.
type SectionsHandler struct {
	config *config.Config
	db     database.Store
}

func NewSectionsHandler(cfg *config.Config, db database.Store) *SectionsHandler {
	return &SectionsHandler{config: cfg, db: db}
}

// GET /api/workspaces/{id}/sections
func (h *SectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	workspaceID := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, workspaceID); !ok { return }
	sections, err := h.db.ListSections(workspaceID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list sections"); return }
	utils.WriteSuccessResponse(w, sections)
}

// POST /api/workspaces/{id}/sections
// New sections always append after the current last one. is_system can never
// be set through the API.
func (h *SectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	workspaceID := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, workspaceID); !ok { return }

	var req struct {
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if strings.TrimSpace(req.Name) == "" { utils.WriteValidationErrorResponse(w, "Name required"); return }

	sections, err := h.db.ListSections(workspaceID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create section"); return }
	next := 0
	for _, s := range sections {
		if s.Order >= next { next = s.Order + 1 }
	}

	section := &models.Section{
		WorkspaceID: workspaceID,
		Name:        strings.TrimSpace(req.Name),
		Icon:        req.Icon,
		Color:       req.Color,
		Order:       next,
	}
	if err := h.db.CreateSection(section); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create section"); return }
	utils.WriteCreatedResponse(w, section)
}

// PUT /api/sections/{id}
func (h *SectionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	section, err := h.db.GetSection(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Section not found"); return }
	if _, ok := requireWorkspaceMember(w, h.db, user.ID, section.WorkspaceID); !ok { return }

	var req struct {
		Name  *string `json:"name"`
		Icon  *string `json:"icon"`
		Color *string `json:"color"`
		Order *int    `json:"order"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	if req.Name != nil {
		if section.IsSystem { utils.WriteInvalidOperationResponse(w, "System sections cannot be renamed"); return }
		if strings.TrimSpace(*req.Name) == "" { utils.WriteValidationErrorResponse(w, "Name cannot be empty"); return }
		section.Name = strings.TrimSpace(*req.Name)
	}
	if req.Icon != nil { section.Icon = *req.Icon }
	if req.Color != nil { section.Color = *req.Color }
	if req.Order != nil { section.Order = *req.Order }

	if err := h.db.UpdateSection(section); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update section"); return }
	utils.WriteSuccessResponse(w, section)
}

// DELETE /api/sections/{id}
// Tasks in the deleted section move to the lowest-order system section before
// the row goes away.
func (h *SectionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	section, err := h.db.GetSection(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Section not found"); return }
	if _, ok := requireWorkspaceMember(w, h.db, user.ID, section.WorkspaceID); !ok { return }
	if section.IsSystem { utils.WriteInvalidOperationResponse(w, "System sections cannot be deleted"); return }

	target, err := lowestSystemSection(h.db, section.WorkspaceID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete section"); return }
	if err := h.db.ReassignSectionTasks(section.ID, target.ID); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete section"); return }
	if err := h.db.DeleteSection(id); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete section"); return }
	utils.WriteSuccessResponse(w, map[string]string{"message": "Section deleted"})
}

// lowestSystemSection returns the system section with the lowest order.
func lowestSystemSection(db database.Store, workspaceID string) (*models.Section, error) {
	sections, err := db.ListSections(workspaceID)
	if err != nil {
		return nil, err
	}
	var target *models.Section
	for i := range sections {
		s := &sections[i]
		if !s.IsSystem { continue }
		if target == nil || s.Order < target.Order { target = s }
	}
	if target == nil {
		return nil, database.ErrNotFound
	}
	return target, nil
}

// sectionByName finds a workspace section by exact name.
func sectionByName(db database.Store, workspaceID, name string) (*models.Section, error) {
	sections, err := db.ListSections(workspaceID)
	if err != nil {
		return nil, err
	}
	for i := range sections {
		if sections[i].Name == name {
			return &sections[i], nil
		}
	}
	return nil, database.ErrNotFound
}
