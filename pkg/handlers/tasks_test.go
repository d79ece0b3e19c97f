package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"tarely-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTaskImportanceBounds(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")

	for _, bad := range []int{0, 11, -3} {
		rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/tasks", token, map[string]interface{}{
			"title": "bad", "importance": bad,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", e.errorCode(rec))
	}

	rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/tasks", token, map[string]interface{}{
		"title": "ok", "importance": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var task models.Task
	e.decode(rec, &task)
	assert.Equal(t, 10, task.Importance)
}

func TestCreateTaskDefaults(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")

	task := e.createTask(token, ws.ID, "plain")
	assert.Equal(t, 5, task.Importance)
	assert.Equal(t, models.SourceManual, task.Source)
	assert.Nil(t, task.SectionID)
	assert.False(t, task.Completed)
}

func TestCreateTaskRecurrenceInitializesNextDue(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")

	rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/tasks", token, map[string]interface{}{
		"title":      "weekly report",
		"recurrence": models.Recurrence{Frequency: "weekly", Interval: 1},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task models.Task
	e.decode(rec, &task)
	require.NotNil(t, task.NextDueAt)
	assert.WithinDuration(t, time.Now(), *task.NextDueAt, 5*time.Second)
}

func TestCompleteTaskMovesToCompletadas(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")
	done := e.sections(token, ws.ID)[1]
	task := e.createTask(token, ws.ID, "finish me")

	rec := e.do(http.MethodPut, "/api/tasks/"+task.ID, token, map[string]interface{}{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.Task
	e.decode(rec, &updated)
	assert.True(t, updated.Completed)
	require.NotNil(t, updated.SectionID)
	assert.Equal(t, done.ID, *updated.SectionID)

	// an explicit section wins over the default re-home
	pending := e.sections(token, ws.ID)[0]
	task2 := e.createTask(token, ws.ID, "other")
	rec = e.do(http.MethodPut, "/api/tasks/"+task2.ID, token, map[string]interface{}{
		"completed": true, "sectionId": pending.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	e.decode(rec, &updated)
	require.NotNil(t, updated.SectionID)
	assert.Equal(t, pending.ID, *updated.SectionID)
}

func TestCompletionTogglesRecordActivity(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")
	task := e.createTask(token, ws.ID, "audited")

	rec := e.do(http.MethodPut, "/api/tasks/"+task.ID, token, map[string]interface{}{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/api/tasks/"+task.ID+"/activity", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var activity []models.Activity
	e.decode(rec, &activity)

	kinds := make([]string, 0, len(activity))
	for _, a := range activity {
		kinds = append(kinds, a.Kind)
	}
	assert.Contains(t, kinds, models.ActivityCompletionToggled)
	assert.Contains(t, kinds, models.ActivitySectionMoved)
}

func TestBulkCreatePreservesOrderAndSkipsBadTags(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")
	tag := e.createTag(token, ws.ID, "real")

	rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/tasks/bulk", token, map[string]interface{}{
		"tasks": []map[string]interface{}{
			{"title": "first", "tagIds": []string{tag.ID, "does-not-exist"}},
			{"title": "second"},
			{"title": "third", "importance": 9},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created []models.Task
	e.decode(rec, &created)
	require.Len(t, created, 3)
	assert.Equal(t, "first", created[0].Title)
	assert.Equal(t, "second", created[1].Title)
	assert.Equal(t, "third", created[2].Title)
	assert.Equal(t, 9, created[2].Importance)
	assert.Equal(t, models.SourceAI, created[0].Source)

	require.Len(t, created[0].Tags, 1)
	assert.Equal(t, tag.ID, created[0].Tags[0].ID)
	assert.Empty(t, created[1].Tags)
}

func TestSubtaskLifecycle(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")
	task := e.createTask(token, ws.ID, "parent")

	rec := e.do(http.MethodPost, "/api/tasks/"+task.ID+"/subtasks", token, map[string]string{"title": "step 1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first models.Subtask
	e.decode(rec, &first)
	assert.Equal(t, 0, first.Order)

	rec = e.do(http.MethodPost, "/api/tasks/"+task.ID+"/subtasks", token, map[string]string{"title": "step 2"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var second models.Subtask
	e.decode(rec, &second)
	assert.Equal(t, 1, second.Order)

	rec = e.do(http.MethodPut, "/api/subtasks/"+first.ID, token, map[string]interface{}{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	e.decode(rec, &first)
	assert.True(t, first.Completed)

	rec = e.do(http.MethodDelete, "/api/subtasks/"+second.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/api/tasks/"+task.ID+"/subtasks", token, nil)
	var remaining []models.Subtask
	e.decode(rec, &remaining)
	require.Len(t, remaining, 1)
	assert.Equal(t, first.ID, remaining[0].ID)
}

func TestGenerateSubtasks(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")
	rec := e.do(http.MethodPut, "/api/workspaces/"+ws.ID, token, map[string]string{
		"description":  "Product launch planning",
		"instructions": "Prefer short, concrete steps",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	task := e.createTask(token, ws.ID, "organize launch")

	// existing subtask so generated ones continue the ordering
	rec = e.do(http.MethodPost, "/api/tasks/"+task.ID+"/subtasks", token, map[string]string{"title": "already here"})
	require.Equal(t, http.StatusCreated, rec.Code)

	e.completer.reply = `Here you go: {"subtasks":["plan venue","send invites","prepare demo"]}`
	rec = e.do(http.MethodPost, "/api/tasks/"+task.ID+"/subtasks/generate", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var generated []models.Subtask
	e.decode(rec, &generated)
	require.Len(t, generated, 3)
	assert.Equal(t, 1, generated[0].Order)
	assert.Equal(t, 3, generated[2].Order)

	// the prompt carries the workspace context alongside the task
	assert.Contains(t, e.completer.lastSystem, "Projects")
	assert.Contains(t, e.completer.lastSystem, "Product launch planning")
	assert.Contains(t, e.completer.lastSystem, "Prefer short, concrete steps")
	assert.Contains(t, e.completer.lastUser, "organize launch")
}

func TestGenerateSubtasksTruncatesAtFive(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")
	task := e.createTask(token, ws.ID, "big project")

	e.completer.reply = `{"subtasks":["a","b","c","d","e","f","g"]}`
	rec := e.do(http.MethodPost, "/api/tasks/"+task.ID+"/subtasks/generate", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var generated []models.Subtask
	e.decode(rec, &generated)
	assert.Len(t, generated, 5)
}

func TestGenerateSubtasksBadOutputInsertsNothing(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")
	task := e.createTask(token, ws.ID, "fragile")

	e.completer.reply = `{"subtasks":["only one"]}`
	rec := e.do(http.MethodPost, "/api/tasks/"+task.ID+"/subtasks/generate", token, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "UPSTREAM_ERROR", e.errorCode(rec))

	subtasks, err := e.db.ListSubtasks(task.ID)
	require.NoError(t, err)
	assert.Empty(t, subtasks)
}

func TestTaskTagAssignConflict(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")
	task := e.createTask(token, ws.ID, "tagged")
	tag := e.createTag(token, ws.ID, "urgent")

	rec := e.do(http.MethodPost, "/api/tasks/"+task.ID+"/tags/"+tag.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodPost, "/api/tasks/"+task.ID+"/tags/"+tag.ID, token, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", e.errorCode(rec))

	rec = e.do(http.MethodDelete, "/api/tasks/"+task.ID+"/tags/"+tag.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var after models.Task
	e.decode(rec, &after)
	assert.Empty(t, after.Tags)
}

func TestAssigneesMustBeMembers(t *testing.T) {
	e := newEnv(t)
	token, owner := e.register("owner@example.com")
	_, outsider := e.register("outsider@example.com")
	ws := e.createWorkspace(token, "Projects")
	task := e.createTask(token, ws.ID, "assigned")

	rec := e.do(http.MethodPost, "/api/tasks/"+task.ID+"/assignees", token, map[string]string{"userId": outsider.ID})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/api/tasks/"+task.ID+"/assignees", token, map[string]string{"userId": owner.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodGet, "/api/tasks/"+task.ID+"/assignees", token, nil)
	var assignees []string
	e.decode(rec, &assignees)
	assert.Equal(t, []string{owner.ID}, assignees)
}

func TestCommentAuthorOnlyDelete(t *testing.T) {
	e := newEnv(t)
	ownerToken, _ := e.register("owner@example.com")
	memberToken, _ := e.register("member@example.com")
	ws := e.createWorkspace(ownerToken, "Projects")

	rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/invites", ownerToken, map[string]string{"email": "member@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var invite models.WorkspaceMember
	e.decode(rec, &invite)
	rec = e.do(http.MethodPost, "/api/invites/"+invite.ID+"/respond", memberToken, map[string]bool{"accept": true})
	require.Equal(t, http.StatusOK, rec.Code)

	task := e.createTask(ownerToken, ws.ID, "discussed")
	rec = e.do(http.MethodPost, "/api/tasks/"+task.ID+"/comments", ownerToken, map[string]string{"text": "mine"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var comment models.Comment
	e.decode(rec, &comment)

	rec = e.do(http.MethodDelete, "/api/comments/"+comment.ID, memberToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodDelete, "/api/comments/"+comment.ID, ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAttachmentUploadAndClassification(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")
	task := e.createTask(token, ws.ID, "with files")

	rec := e.upload("/api/tasks/"+task.ID+"/attachments", token, "photo.png", "image/png", []byte("fake-png"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var img models.Attachment
	e.decode(rec, &img)
	assert.Equal(t, models.AttachmentImage, img.FileType)
	assert.Equal(t, int64(len("fake-png")), img.SizeBytes)

	rec = e.upload("/api/tasks/"+task.ID+"/attachments", token, "spec.pdf", "application/pdf", []byte("fake-pdf"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var doc models.Attachment
	e.decode(rec, &doc)
	assert.Equal(t, models.AttachmentDocument, doc.FileType)

	rec = e.upload("/api/tasks/"+task.ID+"/attachments", token, "data.bin", "application/octet-stream", []byte{0x01})
	require.Equal(t, http.StatusCreated, rec.Code)
	var bin models.Attachment
	e.decode(rec, &bin)
	assert.Equal(t, models.AttachmentOther, bin.FileType)

	// listing carries signed URLs
	rec = e.do(http.MethodGet, "/api/tasks/"+task.ID+"/attachments", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []struct {
		models.Attachment
		DownloadURL string `json:"downloadUrl"`
	}
	e.decode(rec, &listed)
	require.Len(t, listed, 3)
	for _, item := range listed {
		assert.NotEmpty(t, item.DownloadURL)
	}

	// delete records activity
	rec = e.do(http.MethodDelete, "/api/attachments/"+img.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/api/tasks/"+task.ID+"/activity", token, nil)
	var activity []models.Activity
	e.decode(rec, &activity)
	kinds := make(map[string]int)
	for _, a := range activity {
		kinds[a.Kind]++
	}
	assert.Equal(t, 3, kinds[models.ActivityAttachmentAdded])
	assert.Equal(t, 1, kinds[models.ActivityAttachmentRemoved])
}

func TestTaskDeleteCascades(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")
	task := e.createTask(token, ws.ID, "doomed")

	rec := e.do(http.MethodPost, "/api/tasks/"+task.ID+"/subtasks", token, map[string]string{"title": "child"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var subtask models.Subtask
	e.decode(rec, &subtask)

	rec = e.do(http.MethodDelete, "/api/tasks/"+task.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := e.db.GetSubtask(subtask.ID)
	assert.Error(t, err)
}

func TestCalendarFeedRange(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@example.com")
	ws := e.createWorkspace(token, "Projects")

	soon := time.Now().Add(24 * time.Hour)
	later := time.Now().Add(90 * 24 * time.Hour)
	for title, due := range map[string]time.Time{"soon": soon, "later": later} {
		rec := e.do(http.MethodPost, "/api/workspaces/"+ws.ID+"/tasks", token, map[string]interface{}{
			"title": title, "dueDate": due.Format(time.RFC3339),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	e.createTask(token, ws.ID, "no due date")

	from := time.Now().UTC().Format(time.RFC3339)
	to := time.Now().UTC().Add(7 * 24 * time.Hour).Format(time.RFC3339)
	rec := e.do(http.MethodGet, "/api/workspaces/"+ws.ID+"/calendar?from="+from+"&to="+to, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tasks []models.Task
	e.decode(rec, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, "soon", tasks[0].Title)

	rec = e.do(http.MethodGet, "/api/workspaces/"+ws.ID+"/calendar?from=bogus&to="+to, token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
