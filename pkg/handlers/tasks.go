package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tarely-backend/pkg/ai"
	"tarely-backend/pkg/config"
	"tarely-backend/pkg/database"
	"tarely-backend/pkg/logging"
	"tarely-backend/pkg/middleware"
	"tarely-backend/pkg/models"
	"tarely-backend/pkg/storage"
	"tarely-backend/pkg/utils"

	chiRoute "github.com/go-chi/chi/v5"
)

const (
	maxAttachmentBytes = 10 << 20
	signedURLTTL       = 1 * time.Hour
)

// TasksHandler handles tasks and their children: subtasks, tags, assignees,
// comments, attachments and the activity feed.
type TasksHandler struct {
	config    *config.Config
	db        database.Store
	completer ai.Completer
	objects   storage.ObjectStore
}

func NewTasksHandler(cfg *config.Config, db database.Store, completer ai.Completer, objects storage.ObjectStore) *TasksHandler {
	return &TasksHandler{config: cfg, db: db, completer: completer, objects: objects}
}

// requireTask loads the task and checks workspace membership.
func (h *TasksHandler) requireTask(w http.ResponseWriter, userID, taskID string) (*models.Task, bool) {
	task, err := h.db.GetTask(taskID)
	if err != nil { utils.WriteNotFoundResponse(w, "Task not found"); return nil, false }
	if _, ok := requireWorkspaceMember(w, h.db, userID, task.WorkspaceID); !ok { return nil, false }
	return task, true
}

type taskCreateRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Importance  *int               `json:"importance"`
	DueDate     *time.Time         `json:"dueDate"`
	SectionID   *string            `json:"sectionId"`
	Source      string             `json:"source"`
	Recurrence  *models.Recurrence `json:"recurrence"`
}

// buildTask validates a create request into a task. workspaceID scopes the
// optional section check.
func (h *TasksHandler) buildTask(workspaceID string, req *taskCreateRequest) (*models.Task, string) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, "Title required"
	}
	importance := 5
	if req.Importance != nil {
		if *req.Importance < 1 || *req.Importance > 10 {
			return nil, "Importance must be an integer between 1 and 10"
		}
		importance = *req.Importance
	}
	if req.SectionID != nil {
		section, err := h.db.GetSection(*req.SectionID)
		if err != nil || section.WorkspaceID != workspaceID {
			return nil, "Unknown section"
		}
	}
	source := models.SourceManual
	if req.Source == string(models.SourceAI) {
		source = models.SourceAI
	}
	task := &models.Task{
		WorkspaceID: workspaceID,
		SectionID:   req.SectionID,
		Title:       title,
		Description: req.Description,
		Importance:  importance,
		DueDate:     req.DueDate,
		Source:      source,
		Recurrence:  req.Recurrence,
	}
	if req.Recurrence != nil {
		if req.Recurrence.Interval < 1 {
			return nil, "Recurrence interval must be at least 1"
		}
		now := time.Now()
		task.NextDueAt = &now
	}
	return task, ""
}

// GET /api/workspaces/{id}/tasks
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	workspaceID := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, workspaceID); !ok { return }
	tasks, err := h.db.ListTasks(workspaceID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list tasks"); return }
	for i := range tasks { withTags(h.db, &tasks[i]) }
	utils.WriteSuccessResponse(w, tasks)
}

// POST /api/workspaces/{id}/tasks
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	workspaceID := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, workspaceID); !ok { return }

	var req taskCreateRequest
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	task, msg := h.buildTask(workspaceID, &req)
	if msg != "" { utils.WriteValidationErrorResponse(w, msg); return }

	if err := h.db.CreateTask(task); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create task"); return }
	utils.WriteCreatedResponse(w, task)
}

// POST /api/workspaces/{id}/tasks/bulk
// Creates the whole batch in input order. Per-item tagIds are applied after
// insert; unknown or foreign tag ids are skipped without failing the batch.
func (h *TasksHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	workspaceID := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, workspaceID); !ok { return }

	var req struct {
		Tasks []models.TaskDraft `json:"tasks"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if len(req.Tasks) == 0 { utils.WriteValidationErrorResponse(w, "At least one task required"); return }

	tasks := make([]*models.Task, 0, len(req.Tasks))
	for _, draft := range req.Tasks {
		cr := taskCreateRequest{
			Title:       draft.Title,
			Description: draft.Description,
			DueDate:     draft.DueDate,
			SectionID:   draft.SectionID,
			Source:      string(models.SourceAI),
			Recurrence:  draft.Recurrence,
		}
		if draft.Importance != 0 { cr.Importance = &draft.Importance }
		task, msg := h.buildTask(workspaceID, &cr)
		if msg != "" { utils.WriteValidationErrorResponse(w, msg); return }
		tasks = append(tasks, task)
	}

	if err := h.db.CreateTasks(tasks); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create tasks"); return }

	for i, task := range tasks {
		for _, tagID := range req.Tasks[i].TagIDs {
			tag, err := h.db.GetTag(tagID)
			if err != nil || tag.WorkspaceID != workspaceID { continue }
			if err := h.db.AssignTaskTag(task.ID, tagID); err != nil && err != database.ErrConflict {
				logging.Get().WithError(err).WithField("task", task.ID).Warn("Failed to assign tag on bulk create")
			}
		}
		withTags(h.db, task)
	}
	utils.WriteCreatedResponse(w, tasks)
}

// GET /api/tasks/{id}
func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }
	withTags(h.db, task)
	utils.WriteSuccessResponse(w, task)
}

// PUT /api/tasks/{id}
// Completing a task without naming a section moves it to "Completadas".
func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	var req struct {
		Title       *string            `json:"title"`
		Description *string            `json:"description"`
		Importance  *int               `json:"importance"`
		DueDate     *time.Time         `json:"dueDate"`
		SectionID   *string            `json:"sectionId"`
		Completed   *bool              `json:"completed"`
		Recurrence  *models.Recurrence `json:"recurrence"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	prevSection := task.SectionID
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" { utils.WriteValidationErrorResponse(w, "Title cannot be empty"); return }
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil { task.Description = *req.Description }
	if req.Importance != nil {
		if *req.Importance < 1 || *req.Importance > 10 { utils.WriteValidationErrorResponse(w, "Importance must be an integer between 1 and 10"); return }
		task.Importance = *req.Importance
	}
	if req.DueDate != nil { task.DueDate = req.DueDate }
	if req.SectionID != nil {
		section, err := h.db.GetSection(*req.SectionID)
		if err != nil || section.WorkspaceID != task.WorkspaceID { utils.WriteValidationErrorResponse(w, "Unknown section"); return }
		task.SectionID = req.SectionID
	}
	if req.Recurrence != nil {
		if req.Recurrence.Interval < 1 { utils.WriteValidationErrorResponse(w, "Recurrence interval must be at least 1"); return }
		task.Recurrence = req.Recurrence
		if task.NextDueAt == nil {
			now := time.Now()
			task.NextDueAt = &now
		}
	}

	completionToggled := false
	if req.Completed != nil && *req.Completed != task.Completed {
		task.Completed = *req.Completed
		completionToggled = true
		if task.Completed && req.SectionID == nil {
			if done, err := sectionByName(h.db, task.WorkspaceID, models.SectionCompleted); err == nil {
				task.SectionID = &done.ID
			}
		}
	}

	if err := h.db.UpdateTask(task); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update task"); return }

	if completionToggled {
		recordActivity(h.db, task.ID, user.ID, models.ActivityCompletionToggled, fmt.Sprintf("completed=%t", task.Completed))
		h.mirrorNoteCompletion(task)
	}
	if !sameSection(prevSection, task.SectionID) {
		recordActivity(h.db, task.ID, user.ID, models.ActivitySectionMoved, sectionMoveDetail(h.db, prevSection, task.SectionID))
	}

	withTags(h.db, task)
	utils.WriteSuccessResponse(w, task)
}

// mirrorNoteCompletion copies the task's completed state onto the linked
// note, if any. Failure is logged, the task update already committed.
func (h *TasksHandler) mirrorNoteCompletion(task *models.Task) {
	if task.NoteID == nil { return }
	note, err := h.db.GetNote(*task.NoteID)
	if err != nil {
		logging.Get().WithError(err).WithField("task", task.ID).Warn("Linked note missing on completion mirror")
		return
	}
	note.Completed = task.Completed
	if task.Completed {
		now := time.Now()
		note.CompletedAt = &now
	} else {
		note.CompletedAt = nil
	}
	if err := h.db.UpdateNote(note); err != nil {
		logging.Get().WithError(err).WithField("note", note.ID).Warn("Failed to mirror completion onto note")
	}
}

func sameSection(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sectionMoveDetail(db database.Store, from, to *string) string {
	name := func(id *string) string {
		if id == nil {
			return "(none)"
		}
		if s, err := db.GetSection(*id); err == nil {
			return s.Name
		}
		return *id
	}
	return fmt.Sprintf("%s -> %s", name(from), name(to))
}

// DELETE /api/tasks/{id}
// Storage objects for attachments are removed best-effort before the row
// cascade.
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	if attachments, err := h.db.ListAttachments(task.ID); err == nil {
		for _, a := range attachments {
			if err := h.objects.Delete(r.Context(), a.StoragePath); err != nil {
				logging.Get().WithError(err).WithField("attachment", a.ID).Warn("Failed to delete attachment object")
			}
		}
	}

	if err := h.db.DeleteTask(task.ID); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete task"); return }
	utils.WriteSuccessResponse(w, map[string]string{"message": "Task deleted"})
}

// GET /api/workspaces/{id}/calendar?from=RFC3339&to=RFC3339
func (h *TasksHandler) CalendarFeed(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	workspaceID := chiRoute.URLParam(r, "id")

	if _, ok := requireWorkspaceMember(w, h.db, user.ID, workspaceID); !ok { return }

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil { utils.WriteValidationErrorResponse(w, "from must be an RFC3339 timestamp"); return }
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil { utils.WriteValidationErrorResponse(w, "to must be an RFC3339 timestamp"); return }
	if to.Before(from) { utils.WriteValidationErrorResponse(w, "to must not precede from"); return }

	tasks, err := h.db.ListTasksDueBetween(workspaceID, from, to)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to load calendar feed"); return }
	utils.WriteSuccessResponse(w, tasks)
}

// ==== subtasks ====

// GET /api/tasks/{id}/subtasks
func (h *TasksHandler) ListSubtasks(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }
	subtasks, err := h.db.ListSubtasks(task.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list subtasks"); return }
	utils.WriteSuccessResponse(w, subtasks)
}

// POST /api/tasks/{id}/subtasks
func (h *TasksHandler) CreateSubtask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	var req struct {
		Title string `json:"title"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if strings.TrimSpace(req.Title) == "" { utils.WriteValidationErrorResponse(w, "Title required"); return }

	subtask := &models.Subtask{TaskID: task.ID, Title: strings.TrimSpace(req.Title), Order: h.nextSubtaskOrder(task.ID)}
	if err := h.db.CreateSubtask(subtask); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create subtask"); return }
	utils.WriteCreatedResponse(w, subtask)
}

func (h *TasksHandler) nextSubtaskOrder(taskID string) int {
	next := 0
	if existing, err := h.db.ListSubtasks(taskID); err == nil {
		for _, s := range existing {
			if s.Order >= next { next = s.Order + 1 }
		}
	}
	return next
}

// POST /api/tasks/{id}/subtasks/generate
// Nothing is inserted unless the model output parses cleanly.
func (h *TasksHandler) GenerateSubtasks(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }
	ws, err := h.db.GetWorkspace(task.WorkspaceID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to load workspace"); return }

	system := ai.SubtaskSystemPrompt(ws.Name, ws.Description, ws.Instructions)
	raw, err := h.completer.Complete(r.Context(), system, ai.SubtaskUserPrompt(task.Title, task.Description))
	if err != nil {
		logging.Get().WithError(err).WithField("task", task.ID).Error("Subtask generation failed")
		utils.WriteUpstreamErrorResponse(w, "Error al procesar respuesta de IA")
		return
	}
	titles, err := ai.ParseSubtasks(raw)
	if err != nil {
		logging.Get().WithField("task", task.ID).WithField("output", truncate(raw, 500)).Error("Subtask generation returned unparseable output")
		utils.WriteUpstreamErrorResponse(w, "Error al procesar respuesta de IA")
		return
	}

	order := h.nextSubtaskOrder(task.ID)
	created := make([]models.Subtask, 0, len(titles))
	for i, title := range titles {
		subtask := &models.Subtask{TaskID: task.ID, Title: title, Order: order + i}
		if err := h.db.CreateSubtask(subtask); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create subtasks"); return }
		created = append(created, *subtask)
	}
	utils.WriteCreatedResponse(w, created)
}

// PUT /api/subtasks/{id}
func (h *TasksHandler) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	subtask, err := h.db.GetSubtask(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Subtask not found"); return }
	if _, ok := h.requireTask(w, user.ID, subtask.TaskID); !ok { return }

	var req struct {
		Title     *string `json:"title"`
		Completed *bool   `json:"completed"`
		Order     *int    `json:"order"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" { utils.WriteValidationErrorResponse(w, "Title cannot be empty"); return }
		subtask.Title = strings.TrimSpace(*req.Title)
	}
	if req.Completed != nil { subtask.Completed = *req.Completed }
	if req.Order != nil { subtask.Order = *req.Order }

	if err := h.db.UpdateSubtask(subtask); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to update subtask"); return }
	utils.WriteSuccessResponse(w, subtask)
}

// DELETE /api/subtasks/{id}
func (h *TasksHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	subtask, err := h.db.GetSubtask(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Subtask not found"); return }
	if _, ok := h.requireTask(w, user.ID, subtask.TaskID); !ok { return }

	if err := h.db.DeleteSubtask(id); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete subtask"); return }
	utils.WriteSuccessResponse(w, map[string]string{"message": "Subtask deleted"})
}

// ==== tags ====

// POST /api/tasks/{id}/tags/{tagId}
func (h *TasksHandler) AssignTag(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }
	tagID := chiRoute.URLParam(r, "tagId")

	tag, err := h.db.GetTag(tagID)
	if err != nil || tag.WorkspaceID != task.WorkspaceID { utils.WriteNotFoundResponse(w, "Tag not found"); return }

	if err := h.db.AssignTaskTag(task.ID, tagID); err != nil {
		if err == database.ErrConflict { utils.WriteConflictResponse(w, "Tag already assigned"); return }
		utils.WriteInternalServerErrorResponse(w, "Failed to assign tag")
		return
	}
	withTags(h.db, task)
	utils.WriteSuccessResponse(w, task)
}

// DELETE /api/tasks/{id}/tags/{tagId}
func (h *TasksHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	if err := h.db.RemoveTaskTag(task.ID, chiRoute.URLParam(r, "tagId")); err != nil { utils.WriteNotFoundResponse(w, "Tag not assigned"); return }
	withTags(h.db, task)
	utils.WriteSuccessResponse(w, task)
}

// ==== assignees ====

// GET /api/tasks/{id}/assignees
func (h *TasksHandler) ListAssignees(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }
	assignees, err := h.db.ListAssignees(task.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list assignees"); return }
	utils.WriteSuccessResponse(w, assignees)
}

// POST /api/tasks/{id}/assignees
func (h *TasksHandler) Assign(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	var req struct {
		UserID string `json:"userId"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if req.UserID == "" { utils.WriteValidationErrorResponse(w, "userId required"); return }
	if _, ok := memberRole(h.db, req.UserID, task.WorkspaceID); !ok { utils.WriteValidationErrorResponse(w, "Assignee must be a workspace member"); return }

	if err := h.db.AssignTask(task.ID, req.UserID); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to assign task"); return }
	utils.WriteSuccessResponse(w, map[string]string{"message": "Task assigned"})
}

// DELETE /api/tasks/{id}/assignees/{userId}
func (h *TasksHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	if err := h.db.UnassignTask(task.ID, chiRoute.URLParam(r, "userId")); err != nil { utils.WriteNotFoundResponse(w, "Assignee not found"); return }
	utils.WriteSuccessResponse(w, map[string]string{"message": "Task unassigned"})
}

// ==== comments ====

// GET /api/tasks/{id}/comments
func (h *TasksHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }
	comments, err := h.db.ListComments(task.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list comments"); return }
	utils.WriteSuccessResponse(w, comments)
}

// POST /api/tasks/{id}/comments
func (h *TasksHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	var req struct {
		Text string `json:"text"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if strings.TrimSpace(req.Text) == "" { utils.WriteValidationErrorResponse(w, "Text required"); return }

	comment := &models.Comment{TaskID: task.ID, UserID: user.ID, Text: req.Text}
	if err := h.db.CreateComment(comment); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create comment"); return }

	recordActivity(h.db, task.ID, user.ID, models.ActivityCommentAdded, truncate(req.Text, 120))
	utils.WriteCreatedResponse(w, comment)
}

// DELETE /api/comments/{id}
// Only the author can delete their comment.
func (h *TasksHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	comment, err := h.db.GetComment(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Comment not found"); return }
	if _, ok := h.requireTask(w, user.ID, comment.TaskID); !ok { return }
	if comment.UserID != user.ID { utils.WriteForbiddenResponse(w, "Only the author can delete a comment"); return }

	if err := h.db.DeleteComment(id); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete comment"); return }
	recordActivity(h.db, comment.TaskID, user.ID, models.ActivityCommentRemoved, truncate(comment.Text, 120))
	utils.WriteSuccessResponse(w, map[string]string{"message": "Comment deleted"})
}

// ==== attachments ====

// classifyMime maps a MIME type onto the coarse attachment type.
func classifyMime(mimeType string) models.AttachmentType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.AttachmentImage
	case mimeType == "application/pdf",
		strings.HasPrefix(mimeType, "text/"),
		strings.Contains(mimeType, "word"),
		strings.Contains(mimeType, "spreadsheet"),
		strings.Contains(mimeType, "presentation"):
		return models.AttachmentDocument
	default:
		return models.AttachmentOther
	}
}

// POST /api/tasks/{id}/attachments
func (h *TasksHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }

	r.Body = http.MaxBytesReader(w, r.Body, maxAttachmentBytes)
	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil { utils.WriteValidationErrorResponse(w, "Attachment must be a multipart upload of at most 10MB"); return }
	file, header, err := r.FormFile("file")
	if err != nil { utils.WriteBadRequestResponse(w, "file field required"); return }
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to read upload"); return }
	if len(data) > maxAttachmentBytes { utils.WriteValidationErrorResponse(w, "Attachment exceeds the 10MB limit"); return }

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" { mimeType = "application/octet-stream" }

	attachment := &models.Attachment{
		TaskID:    task.ID,
		UserID:    user.ID,
		FileName:  header.Filename,
		MimeType:  mimeType,
		FileType:  classifyMime(mimeType),
		SizeBytes: int64(len(data)),
	}
	attachment.StoragePath = fmt.Sprintf("attachments/%s/%s", task.ID, header.Filename)

	if err := h.objects.Upload(r.Context(), attachment.StoragePath, mimeType, data); err != nil {
		logging.Get().WithError(err).WithField("task", task.ID).Error("Attachment upload failed")
		utils.WriteUpstreamErrorResponse(w, "Failed to store attachment")
		return
	}
	if err := h.db.CreateAttachment(attachment); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to save attachment"); return }

	recordActivity(h.db, task.ID, user.ID, models.ActivityAttachmentAdded, header.Filename)
	utils.WriteCreatedResponse(w, attachment)
}

// GET /api/tasks/{id}/attachments
// Each item carries a short-lived signed download URL.
func (h *TasksHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }
	attachments, err := h.db.ListAttachments(task.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list attachments"); return }

	type attachmentWithURL struct {
		models.Attachment
		DownloadURL string `json:"downloadUrl,omitempty"`
	}
	out := make([]attachmentWithURL, 0, len(attachments))
	for _, a := range attachments {
		item := attachmentWithURL{Attachment: a}
		if url, err := h.objects.SignedURL(r.Context(), a.StoragePath, signedURLTTL); err == nil {
			item.DownloadURL = url
		} else {
			logging.Get().WithError(err).WithField("attachment", a.ID).Warn("Failed to sign attachment URL")
		}
		out = append(out, item)
	}
	utils.WriteSuccessResponse(w, out)
}

// DELETE /api/attachments/{id}
func (h *TasksHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }
	id := chiRoute.URLParam(r, "id")

	attachment, err := h.db.GetAttachment(id)
	if err != nil { utils.WriteNotFoundResponse(w, "Attachment not found"); return }
	if _, ok := h.requireTask(w, user.ID, attachment.TaskID); !ok { return }

	if err := h.objects.Delete(r.Context(), attachment.StoragePath); err != nil {
		logging.Get().WithError(err).WithField("attachment", id).Warn("Failed to delete attachment object")
	}
	if err := h.db.DeleteAttachment(id); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to delete attachment"); return }

	recordActivity(h.db, attachment.TaskID, user.ID, models.ActivityAttachmentRemoved, attachment.FileName)
	utils.WriteSuccessResponse(w, map[string]string{"message": "Attachment deleted"})
}

// GET /api/tasks/{id}/activity
func (h *TasksHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	task, ok := h.requireTask(w, user.ID, chiRoute.URLParam(r, "id"))
	if !ok { return }
	activity, err := h.db.ListActivity(task.ID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to list activity"); return }
	utils.WriteSuccessResponse(w, activity)
}
