package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"tarely-backend/pkg/ai"
	"tarely-backend/pkg/config"
	"tarely-backend/pkg/database"
	"tarely-backend/pkg/logging"
	"tarely-backend/pkg/middleware"
	"tarely-backend/pkg/models"
	"tarely-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

// NotesHandler handles notes, folders, templates and the note AI agent.
type NotesHandler struct {
	config    *config.Config
	db        database.Store
	completer ai.Completer
}

func NewNotesHandler(cfg *config.Config, db database.Store, completer ai.Completer) *NotesHandler {
	return &NotesHandler{config: cfg, db: db, completer: completer}
}

// requireNote loads the note and checks workspace membership.
func (h *NotesHandler) requireNote(w http.ResponseWriter, userID, noteID string) (*models.Note, bool) {
	note, err := h.db.GetNote(noteID)
	if err != nil { utils.WriteNotFoundResponse(w, "Note not found"); return nil, false }
	if _, ok := requireWorkspaceMember(w, h.db, userID, note.WorkspaceID); !ok { return nil, false }
	return note, true
}

// project recomputes the derived plain-text fields from the document.
func project(note *models.Note) {
	note.PlainText = note.Content.PlainText()
	note.WordCount = note.Content.WordCount()
}

// GET /api/workspaces/{id}/notes
func (h *NotesHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	workspaceID := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, workspaceID); !ok { return }
	notes, err := h.db.ListNotes(workspaceID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list notes"); return }
	for i := range notes { withNoteTags(h.db, &notes[i]) }
	utils.WriteSuccessResponse(w, notes)
}

// POST /api/workspaces/{id}/notes
// Title may be empty; clients render a display fallback.
func (h *NotesHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	workspaceID := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, workspaceID); !ok { return }

	var req struct {
		Title    string           `json:"title"`
		Icon     string           `json:"icon"`
		FolderID *string          `json:"folderId"`
		Content  *models.Document `json:"content"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	note := &models.Note{
		WorkspaceID: workspaceID,
		FolderID:    req.FolderID,
		Title:       strings.TrimSpace(req.Title),
		Icon:        req.Icon,
	}
	if req.Content != nil { note.Content = *req.Content } else { note.Content = models.PlainDocument("") }
	project(note)

	if err := h.db.CreateNote(note); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create note"); return }
	utils.WriteCreatedResponse(w, note)
}

// GET /api/notes/{id}
func (h *NotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	note, ok := h.requireNote(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }
	withNoteTags(h.db, note)
	utils.WriteSuccessResponse(w, note)
}

// PUT /api/notes/{id}
// A content change recomputes the plain-text projection and word count.
func (h *NotesHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	note, ok := h.requireNote(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	var req struct {
		Title   *string          `json:"title"`
		Icon    *string          `json:"icon"`
		Content *models.Document `json:"content"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	if req.Title != nil { note.Title = strings.TrimSpace(*req.Title) }
	if req.Icon != nil { note.Icon = *req.Icon }
	if req.Content != nil {
		note.Content = *req.Content
		project(note)
	}

	if err := h.db.UpdateNote(note); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update note"); return }
	withNoteTags(h.db, note)
	utils.WriteSuccessResponse(w, note)
}

// POST /api/notes/{id}/duplicate
// The copy carries content and icon only: no tags, no pin/favorite state, no
// task link.
func (h *NotesHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	note, ok := h.requireNote(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	dup := &models.Note{
		WorkspaceID: note.WorkspaceID,
		FolderID:    note.FolderID,
		Title:       note.Title + " (copia)",
		Icon:        note.Icon,
		Content:     note.Content,
	}
	project(dup)

	if err := h.db.CreateNote(dup); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to duplicate note"); return }
	utils.WriteCreatedResponse(w, dup)
}

// POST /api/notes/{id}/move
func (h *NotesHandler) Move(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	note, ok := h.requireNote(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	var req struct {
		FolderID *string `json:"folderId"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	note.FolderID = req.FolderID
	if err := h.db.UpdateNote(note); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to move note"); return }
	utils.WriteSuccessResponse(w, note)
}

// DELETE /api/notes/{id}
func (h *NotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	note, ok := h.requireNote(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	if err := h.db.DeleteNote(note.ID); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete note"); return }
	utils.WriteSuccessResponse(w, map[string]string{"message": "Note deleted"})
}

// POST /api/notes/{id}/pin
func (h *NotesHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	h.toggleFlag(w, r, func(n *models.Note) { n.IsPinned = !n.IsPinned })
}

// POST /api/notes/{id}/favorite
func (h *NotesHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	h.toggleFlag(w, r, func(n *models.Note) { n.IsFavorite = !n.IsFavorite })
}

func (h *NotesHandler) toggleFlag(w http.ResponseWriter, r *http.Request, flip func(*models.Note)) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	note, ok := h.requireNote(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	flip(note)
	if err := h.db.UpdateNote(note); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update note"); return }
	utils.WriteSuccessResponse(w, note)
}

// ==== task link ====

// POST /api/notes/{id}/link-task
// Creates a task from the note and sets both references in one store
// operation. The note's existing tags are copied onto the new task.
func (h *NotesHandler) LinkTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	note, ok := h.requireNote(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }
	if note.TaskID != nil { utils.WriteConflictResponse(w, "Note already linked to a task"); return }

	title := note.Title
	if title == "" { title = "Nota sin título" }
	task := &models.Task{
		WorkspaceID: note.WorkspaceID,
		Title:       title,
		Description: truncate(note.PlainText, 500),
		Importance:  5,
		Source:      models.SourceManual,
	}

	if err := h.db.LinkNoteTask(note, task); err != nil {
		if err == database.ErrConflict { utils.WriteConflictResponse(w, "Note already linked to a task"); return }
		utils.WriteInternalServerErrorResponse(w, "Failed to link task")
		return
	}

	if tags, err := h.db.ListNoteTags(note.ID); err == nil {
		for _, tag := range tags {
			if err := h.db.AssignTaskTag(task.ID, tag.ID); err != nil && err != database.ErrConflict {
				logging.Get().WithError(err).WithField("task", task.ID).Warn("Failed to mirror tag onto linked task")
			}
		}
	}

	withTags(h.db, task)
	utils.WriteCreatedResponse(w, map[string]interface{}{"note": note, "task": task})
}

// POST /api/notes/{id}/unlink-task
// The task survives; only the references are cleared.
func (h *NotesHandler) UnlinkTask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	note, ok := h.requireNote(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	if err := h.db.UnlinkNoteTask(note.ID); err != nil {
		if err == database.ErrConflict { utils.WriteInvalidOperationResponse(w, "Note is not linked to a task"); return }
		utils.WriteInternalServerErrorResponse(w, "Failed to unlink task")
		return
	}

	note, err = h.db.GetNote(note.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to unlink task"); return }
	utils.WriteSuccessResponse(w, note)
}

// POST /api/notes/{id}/toggle-complete
// Requires a linked task; flips its completed flag and mirrors the state onto
// the note. Completing also moves the task to "Completadas".
func (h *NotesHandler) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	note, ok := h.requireNote(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }
	if note.TaskID == nil { utils.WriteInvalidOperationResponse(w, "Note is not linked to a task"); return }

	task, err := h.db.GetTask(*note.TaskID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Linked task missing"); return }

	task.Completed = !task.Completed
	if task.Completed {
		if done, err := sectionByName(h.db, task.WorkspaceID, models.SectionCompleted); err == nil {
			task.SectionID = &done.ID
		}
	}
	if err := h.db.UpdateTask(task); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update task"); return }
	recordActivity(h.db, task.ID, user.ID, models.ActivityCompletionToggled, fmt.Sprintf("completed=%t", task.Completed))

	note.Completed = task.Completed
	if task.Completed {
		now := time.Now()
		note.CompletedAt = &now
	} else {
		note.CompletedAt = nil
	}
	if err := h.db.UpdateNote(note); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update note"); return }

	utils.WriteSuccessResponse(w, map[string]interface{}{"note": note, "task": task})
}

// ==== note tags (mirrored onto the linked task) ====

// POST /api/notes/{id}/tags/{tagId}
func (h *NotesHandler) AssignTag(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	note, ok := h.requireNote(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }
	tagID := chiRoute.URLParam(r, "tagId")

	tag, err := h.db.GetTag(tagID)
	if err != nil || tag.WorkspaceID != note.WorkspaceID { utils.WriteNotFoundResponse(w, "Tag not found"); return }

	if err := h.db.AssignNoteTag(note.ID, tagID); err != nil {
		if err == database.ErrConflict { utils.WriteConflictResponse(w, "Tag already assigned"); return }
		utils.WriteInternalServerErrorResponse(w, "Failed to assign tag")
		return
	}

	// Mirror onto the linked task; the note side is the success path.
	if note.TaskID != nil {
		if err := h.db.AssignTaskTag(*note.TaskID, tagID); err != nil && err != database.ErrConflict {
			logging.Get().WithError(err).WithField("note", note.ID).Warn("Failed to mirror tag assign onto task")
		}
	}

	withNoteTags(h.db, note)
	utils.WriteSuccessResponse(w, note)
}

// DELETE /api/notes/{id}/tags/{tagId}
func (h *NotesHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	note, ok := h.requireNote(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }
	tagID := chiRoute.URLParam(r, "tagId")

	if err := h.db.RemoveNoteTag(note.ID, tagID); err != nil { utils.WriteNotFoundResponse(w, "Tag not assigned"); return }

	if note.TaskID != nil {
		if err := h.db.RemoveTaskTag(*note.TaskID, tagID); err != nil {
			logging.Get().WithError(err).WithField("note", note.ID).Warn("Failed to mirror tag removal onto task")
		}
	}

	withNoteTags(h.db, note)
	utils.WriteSuccessResponse(w, note)
}

// ==== folders ====

// GET /api/workspaces/{id}/folders
func (h *NotesHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	workspaceID := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, workspaceID); !ok { return }
	folders, err := h.db.ListFolders(workspaceID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list folders"); return }
	utils.WriteSuccessResponse(w, folders)
}

// POST /api/workspaces/{id}/folders
func (h *NotesHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	workspaceID := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, workspaceID); !ok { return }

	var req struct {
		Name     string  `json:"name"`
		Icon     string  `json:"icon"`
		Color    string  `json:"color"`
		ParentID *string `json:"parentId"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if strings.TrimSpace(req.Name) == "" { utils.WriteValidationErrorResponse(w, "Name required"); return }
	if req.ParentID != nil {
		parent, err := h.db.GetFolder(*req.ParentID)
		if err != nil || parent.WorkspaceID != workspaceID { utils.WriteValidationErrorResponse(w, "Unknown parent folder"); return }
	}

	folder := &models.NoteFolder{
		WorkspaceID: workspaceID,
		Name:        strings.TrimSpace(req.Name),
		Icon:        req.Icon,
		Color:       req.Color,
		ParentID:    req.ParentID,
	}
	if err := h.db.CreateFolder(folder); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create folder"); return }
	utils.WriteCreatedResponse(w, folder)
}

// PUT /api/folders/{id}
func (h *NotesHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	folder, err := h.db.GetFolder(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Folder not found"); return }
	if _, ok := requireWorkspaceMember(w, h.db, user.ID, folder.WorkspaceID); !ok { return }

	var req struct {
		Name     *string `json:"name"`
		Icon     *string `json:"icon"`
		Color    *string `json:"color"`
		ParentID *string `json:"parentId"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" { utils.WriteValidationErrorResponse(w, "Name cannot be empty"); return }
		folder.Name = strings.TrimSpace(*req.Name)
	}
	if req.Icon != nil { folder.Icon = *req.Icon }
	if req.Color != nil { folder.Color = *req.Color }
	if req.ParentID != nil {
		if *req.ParentID == folder.ID { utils.WriteValidationErrorResponse(w, "Folder cannot be its own parent"); return }
		folder.ParentID = req.ParentID
	}

	if err := h.db.UpdateFolder(folder); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update folder"); return }
	utils.WriteSuccessResponse(w, folder)
}

// DELETE /api/folders/{id}
// Notes inside the folder are reparented, never deleted.
func (h *NotesHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	folder, err := h.db.GetFolder(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Folder not found"); return }
	if _, ok := requireWorkspaceMember(w, h.db, user.ID, folder.WorkspaceID); !ok { return }

	if err := h.db.DeleteFolder(id); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete folder"); return }
	utils.WriteSuccessResponse(w, map[string]string{"message": "Folder deleted"})
}

// ==== templates ====

// GET /api/templates
func (h *NotesHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireUser(r.Context()); err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	templates, err := h.db.ListTemplates()
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list templates"); return }
	utils.WriteSuccessResponse(w, templates)
}

// POST /api/templates
func (h *NotesHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireUser(r.Context()); err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req struct {
		Name        string           `json:"name"`
		Description string           `json:"description"`
		Category    string           `json:"category"`
		Icon        string           `json:"icon"`
		Content     *models.Document `json:"content"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if strings.TrimSpace(req.Name) == "" { utils.WriteValidationErrorResponse(w, "Name required"); return }

	template := &models.NoteTemplate{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    req.Category,
		Icon:        req.Icon,
	}
	if req.Content != nil { template.Content = *req.Content } else { template.Content = models.PlainDocument("") }

	if err := h.db.CreateTemplate(template); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create template"); return }
	utils.WriteCreatedResponse(w, template)
}

// POST /api/templates/{id}/apply
// Spawns a new note from the template. The note is independent afterwards.
func (h *NotesHandler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	template, err := h.db.GetTemplate(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Template not found"); return }

	var req struct {
		WorkspaceID string  `json:"workspaceId"`
		FolderID    *string `json:"folderId"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if req.WorkspaceID == "" { utils.WriteValidationErrorResponse(w, "workspaceId required"); return }
	if _, ok := requireWorkspaceMember(w, h.db, user.ID, req.WorkspaceID); !ok { return }

	note := &models.Note{
		WorkspaceID: req.WorkspaceID,
		FolderID:    req.FolderID,
		Title:       template.Name,
		Icon:        template.Icon,
		Content:     template.Content,
	}
	project(note)

	if err := h.db.CreateNote(note); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create note"); return }
	utils.WriteCreatedResponse(w, note)
}

// POST /api/notes/{id}/save-template
// Snapshots the note as a template; later note edits do not touch it.
func (h *NotesHandler) SaveAsTemplate(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	note, ok := h.requireNote(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	name := strings.TrimSpace(req.Name)
	if name == "" { name = note.Title }
	if name == "" { utils.WriteValidationErrorResponse(w, "Name required"); return }

	template := &models.NoteTemplate{
		Name:        name,
		Description: req.Description,
		Category:    req.Category,
		Icon:        note.Icon,
		Content:     note.Content,
	}
	if err := h.db.CreateTemplate(template); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to save template"); return }
	utils.WriteCreatedResponse(w, template)
}

// DELETE /api/templates/{id}
func (h *NotesHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireUser(r.Context()); err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	if err := h.db.DeleteTemplate(id); err != nil { utils.WriteNotFoundResponse(w, "Template not found"); return }
	utils.WriteSuccessResponse(w, map[string]string{"message": "Template deleted"})
}

// ==== AI agent ====

// POST /api/notes/{id}/ai {action, instruction}
// Mutating actions rewrite the note document; "ask" answers in plain text;
// "extract_tasks" returns drafts without inserting anything.
func (h *NotesHandler) RunAgent(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	note, ok := h.requireNote(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	var req struct {
		Action      string `json:"action"`
		Instruction string `json:"instruction"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if !ai.KnownAction(req.Action) { utils.WriteValidationErrorResponse(w, "Unknown action"); return }

	raw, err := h.completer.Complete(r.Context(), ai.NoteActionPrompt(req.Action, req.Instruction), note.PlainText)
	if err != nil {
		logging.Get().WithError(err).WithField("note", note.ID).WithField("action", req.Action).Error("Note agent call failed")
		utils.WriteUpstreamErrorResponse(w, "Error al procesar respuesta de IA")
		return
	}

	switch req.Action {
	case ai.ActionAsk:
		utils.WriteSuccessResponse(w, map[string]string{"answer": raw})
	case ai.ActionExtractTasks:
		drafts, err := ai.ParseTaskDrafts(raw, nil)
		if err != nil {
			logging.Get().WithField("note", note.ID).WithField("output", truncate(raw, 500)).Error("Task extraction returned unparseable output")
			utils.WriteUpstreamErrorResponse(w, "Error al procesar respuesta de IA")
			return
		}
		utils.WriteSuccessResponse(w, map[string]interface{}{"tasks": drafts})
	default:
		note.Content = ai.ParseDocument(raw)
		project(note)
		if err := h.db.UpdateNote(note); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update note"); return }
		utils.WriteSuccessResponse(w, note)
	}
}
