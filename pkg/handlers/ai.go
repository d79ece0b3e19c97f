package handlers

import (
	"net/http"
	"strings"

	"tarely-backend/pkg/ai"
	"tarely-backend/pkg/config"
	"tarely-backend/pkg/database"
	"tarely-backend/pkg/logging"
	"tarely-backend/pkg/middleware"
	"tarely-backend/pkg/models"
	"tarely-backend/pkg/utils"
)

// AIHandler handles the standalone AI bridge endpoints: free-text task
// generation and the prompt-improvement helper.
type AIHandler struct {
	config    *config.Config
	db        database.Store
	completer ai.Completer
}

func NewAIHandler(cfg *config.Config, db database.Store, completer ai.Completer) *AIHandler {
	return &AIHandler{config: cfg, db: db, completer: completer}
}

// POST /api/ai/tasks {text, workspaceId}
// Tasks are inserted only after the whole model response parses; a parse
// failure commits nothing.
func (h *AIHandler) GenerateTasks(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req struct {
		Text        string `json:"text"`
		WorkspaceID string `json:"workspaceId"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if strings.TrimSpace(req.Text) == "" { utils.WriteValidationErrorResponse(w, "Text required"); return }
	if req.WorkspaceID == "" { utils.WriteValidationErrorResponse(w, "workspaceId required"); return }
	if _, ok := requireWorkspaceMember(w, h.db, user.ID, req.WorkspaceID); !ok { return }

	ws, err := h.db.GetWorkspace(req.WorkspaceID)
	if err != nil { utils.WriteNotFoundResponse(w, "Workspace not found"); return }

	tags, err := h.db.ListTags(req.WorkspaceID)
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to load workspace tags"); return }
	tagNames := make([]string, 0, len(tags))
	tagsByName := make(map[string]string, len(tags))
	for _, t := range tags {
		tagNames = append(tagNames, t.Name)
		tagsByName[strings.ToLower(t.Name)] = t.ID
	}

	raw, err := h.completer.Complete(r.Context(), ai.TaskGenSystemPrompt(ws.Instructions, tagNames), req.Text)
	if err != nil {
		logging.Get().WithError(err).WithField("workspace", req.WorkspaceID).Error("Task generation failed")
		utils.WriteUpstreamErrorResponse(w, "Error al procesar respuesta de IA")
		return
	}
	drafts, err := ai.ParseTaskDrafts(raw, tagsByName)
	if err != nil {
		logging.Get().WithField("workspace", req.WorkspaceID).WithField("output", truncate(raw, 500)).Error("Task generation returned unparseable output")
		utils.WriteUpstreamErrorResponse(w, "Error al procesar respuesta de IA")
		return
	}

	created := make([]*models.Task, 0, len(drafts))
	for _, draft := range drafts {
		created = append(created, &models.Task{
			WorkspaceID: req.WorkspaceID,
			Title:       draft.Title,
			Description: draft.Description,
			Importance:  draft.Importance,
			DueDate:     draft.DueDate,
			Source:      models.SourceAI,
		})
	}
	if err := h.db.CreateTasks(created); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to create tasks"); return }

	for i, task := range created {
		for _, tagID := range drafts[i].TagIDs {
			if err := h.db.AssignTaskTag(task.ID, tagID); err != nil && err != database.ErrConflict {
				logging.Get().WithError(err).WithField("task", task.ID).Warn("Failed to assign suggested tag")
			}
		}
		withTags(h.db, task)
	}
	utils.WriteCreatedResponse(w, created)
}

const promptImproveSystem = `You are a prompt engineering assistant. Rewrite the user's prompt to be clearer, more specific and better structured while preserving its intent. Respond with ONLY the improved prompt text.`

// POST /api/ai/prompt {prompt}
func (h *AIHandler) ImprovePrompt(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireUser(r.Context()); err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if strings.TrimSpace(req.Prompt) == "" { utils.WriteValidationErrorResponse(w, "Prompt required"); return }

	improved, err := h.completer.Complete(r.Context(), promptImproveSystem, req.Prompt)
	if err != nil {
		logging.Get().WithError(err).Error("Prompt improvement failed")
		utils.WriteUpstreamErrorResponse(w, "Error al procesar respuesta de IA")
		return
	}
	utils.WriteSuccessResponse(w, map[string]string{"prompt": strings.TrimSpace(improved)})
}
