package handlers

import (
	"net/http"
	"time"

	"tarely-backend/pkg/calendar"
	"tarely-backend/pkg/config"
	"tarely-backend/pkg/database"
	"tarely-backend/pkg/logging"
	"tarely-backend/pkg/middleware"
	"tarely-backend/pkg/utils"
)

// CalendarHandler connects a Google account and pushes due tasks as events.
type CalendarHandler struct {
	config *config.Config
	db     database.Store
	google calendar.Service
}

func NewCalendarHandler(cfg *config.Config, db database.Store, google calendar.Service) *CalendarHandler {
	return &CalendarHandler{config: cfg, db: db, google: google}
}

// POST /api/calendar/connect {code}
func (h *CalendarHandler) Connect(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req struct {
		Code string `json:"code"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if req.Code == "" { utils.WriteValidationErrorResponse(w, "code required"); return }

	creds, err := h.google.ExchangeCode(r.Context(), req.Code)
	if err != nil {
		logging.Get().WithError(err).WithField("user", user.ID).Error("OAuth code exchange failed")
		utils.WriteUpstreamErrorResponse(w, "Failed to connect calendar")
		return
	}
	creds.UserID = user.ID

	if err := h.db.SaveCalendarCredentials(creds); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to store credentials"); return }
	utils.WriteSuccessResponse(w, map[string]interface{}{"connected": true, "expiresAt": creds.ExpiresAt})
}

// POST /api/calendar/sync {workspaceId}
// Refreshes the access token transparently when expired, then pushes every
// task with a due date in the next 30 days. Per-event failures are counted,
// not fatal.
func (h *CalendarHandler) Sync(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil { utils.WriteUnauthorizedResponse(w, "Authentication required"); return }

	var req struct {
		WorkspaceID string `json:"workspaceId"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil { utils.WriteBadRequestResponse(w, "Invalid body"); return }
	if req.WorkspaceID == "" { utils.WriteValidationErrorResponse(w, "workspaceId required"); return }
	if _, ok := requireWorkspaceMember(w, h.db, user.ID, req.WorkspaceID); !ok { return }

	creds, err := h.db.GetCalendarCredentials(user.ID)
	if err != nil { utils.WriteInvalidOperationResponse(w, "Calendar not connected"); return }

	if creds.Expired() {
		refreshed, err := h.google.RefreshAccessToken(r.Context(), creds)
		if err != nil {
			logging.Get().WithError(err).WithField("user", user.ID).Error("Calendar token refresh failed")
			utils.WriteUpstreamErrorResponse(w, "Failed to refresh calendar access")
			return
		}
		if err := h.db.SaveCalendarCredentials(refreshed); err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to store credentials"); return }
		creds = refreshed
	}

	now := time.Now()
	tasks, err := h.db.ListTasksDueBetween(req.WorkspaceID, now, now.AddDate(0, 0, 30))
	if err != nil { utils.WriteInternalServerErrorResponse(w, "Failed to load tasks"); return }

	synced, failed := 0, 0
	for _, task := range tasks {
		if task.DueDate == nil || task.Completed { continue }
		event := calendar.Event{
			Title:       task.Title,
			Description: task.Description,
			Start:       *task.DueDate,
			End:         task.DueDate.Add(time.Hour),
		}
		if err := h.google.InsertEvent(r.Context(), creds.AccessToken, event); err != nil {
			logging.Get().WithError(err).WithField("task", task.ID).Warn("Failed to push calendar event")
			failed++
			continue
		}
		synced++
	}

	utils.WriteSuccessResponse(w, map[string]int{"synced": synced, "failed": failed})
}
