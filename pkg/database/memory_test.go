package database

import (
	"testing"
	"time"

	"tarely-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWorkspace(t *testing.T, db *MemoryStore) (*models.User, *models.Workspace) {
	t.Helper()
	user := &models.User{Email: "owner@example.com", Name: "Owner"}
	require.NoError(t, db.CreateUser(user))
	ws := &models.Workspace{OwnerID: user.ID, Name: "Team"}
	require.NoError(t, db.CreateWorkspace(ws))
	return user, ws
}

func TestMemoryCreateUserConflict(t *testing.T) {
	db := NewMemoryStore()
	require.NoError(t, db.CreateUser(&models.User{Email: "a@example.com"}))
	err := db.CreateUser(&models.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemoryMemberUniquePerWorkspace(t *testing.T) {
	db := NewMemoryStore()
	owner, ws := seedWorkspace(t, db)
	invitee := &models.User{Email: "b@example.com"}
	require.NoError(t, db.CreateUser(invitee))

	m := &models.WorkspaceMember{
		WorkspaceID: ws.ID, UserID: invitee.ID,
		Role: models.RoleMember, Status: models.MemberPending, InviterID: owner.ID,
	}
	require.NoError(t, db.CreateMember(m))

	again := &models.WorkspaceMember{WorkspaceID: ws.ID, UserID: invitee.ID}
	assert.ErrorIs(t, db.CreateMember(again), ErrConflict)

	m.Status = models.MemberAccepted
	require.NoError(t, db.UpdateMember(m))
	assert.ErrorIs(t, db.CreateMember(again), ErrConflict)
}

func TestMemoryCreateMemberReopensRejected(t *testing.T) {
	db := NewMemoryStore()
	owner, ws := seedWorkspace(t, db)
	invitee := &models.User{Email: "b@example.com"}
	require.NoError(t, db.CreateUser(invitee))

	m := &models.WorkspaceMember{
		WorkspaceID: ws.ID, UserID: invitee.ID,
		Role: models.RoleMember, Status: models.MemberPending, InviterID: owner.ID,
	}
	require.NoError(t, db.CreateMember(m))
	m.Status = models.MemberRejected
	require.NoError(t, db.UpdateMember(m))

	again := &models.WorkspaceMember{
		WorkspaceID: ws.ID, UserID: invitee.ID,
		Role: models.RoleMember, Status: models.MemberPending, InviterID: owner.ID,
	}
	require.NoError(t, db.CreateMember(again))
	assert.Equal(t, m.ID, again.ID)
	assert.Equal(t, models.MemberPending, again.Status)

	rows, err := db.ListMembers(ws.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMemoryTagNameUniquePerWorkspace(t *testing.T) {
	db := NewMemoryStore()
	_, ws := seedWorkspace(t, db)
	require.NoError(t, db.CreateTag(&models.Tag{WorkspaceID: ws.ID, Name: "Compras"}))
	assert.ErrorIs(t, db.CreateTag(&models.Tag{WorkspaceID: ws.ID, Name: "Compras"}), ErrConflict)

	other := &models.Workspace{OwnerID: ws.OwnerID, Name: "Other"}
	require.NoError(t, db.CreateWorkspace(other))
	assert.NoError(t, db.CreateTag(&models.Tag{WorkspaceID: other.ID, Name: "Compras"}))
}

func TestMemoryUpdateTagRenameConflict(t *testing.T) {
	db := NewMemoryStore()
	_, ws := seedWorkspace(t, db)
	require.NoError(t, db.CreateTag(&models.Tag{WorkspaceID: ws.ID, Name: "first"}))
	second := &models.Tag{WorkspaceID: ws.ID, Name: "second"}
	require.NoError(t, db.CreateTag(second))

	second.Name = "first"
	assert.ErrorIs(t, db.UpdateTag(second), ErrConflict)

	// updating a tag without renaming it must not conflict with itself
	second.Name = "second"
	second.Color = "#ff0000"
	assert.NoError(t, db.UpdateTag(second))
}

func TestMemoryAssignTaskTagConflict(t *testing.T) {
	db := NewMemoryStore()
	_, ws := seedWorkspace(t, db)
	task := &models.Task{WorkspaceID: ws.ID, Title: "t", Importance: 5}
	require.NoError(t, db.CreateTask(task))
	tag := &models.Tag{WorkspaceID: ws.ID, Name: "urgent"}
	require.NoError(t, db.CreateTag(tag))

	require.NoError(t, db.AssignTaskTag(task.ID, tag.ID))
	assert.ErrorIs(t, db.AssignTaskTag(task.ID, tag.ID), ErrConflict)

	tags, err := db.ListTaskTags(task.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "urgent", tags[0].Name)
}

func TestMemoryLinkNoteTask(t *testing.T) {
	db := NewMemoryStore()
	_, ws := seedWorkspace(t, db)
	note := &models.Note{WorkspaceID: ws.ID, Title: "Plan", Content: models.PlainDocument("plan")}
	require.NoError(t, db.CreateNote(note))

	task := &models.Task{WorkspaceID: ws.ID, Title: "Plan", Importance: 5}
	require.NoError(t, db.LinkNoteTask(note, task))

	stored, err := db.GetNote(note.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TaskID)
	assert.Equal(t, task.ID, *stored.TaskID)

	linked, err := db.GetTask(task.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.NoteID)
	assert.Equal(t, note.ID, *linked.NoteID)

	// a second link on the same note must not create another task
	assert.ErrorIs(t, db.LinkNoteTask(stored, &models.Task{WorkspaceID: ws.ID, Title: "again"}), ErrConflict)
	tasks, err := db.ListTasks(ws.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestMemoryUnlinkNoteTask(t *testing.T) {
	db := NewMemoryStore()
	_, ws := seedWorkspace(t, db)
	note := &models.Note{WorkspaceID: ws.ID, Title: "Plan", Content: models.PlainDocument("plan")}
	require.NoError(t, db.CreateNote(note))
	task := &models.Task{WorkspaceID: ws.ID, Title: "Plan", Importance: 5}
	require.NoError(t, db.LinkNoteTask(note, task))

	require.NoError(t, db.UnlinkNoteTask(note.ID))

	stored, err := db.GetNote(note.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.TaskID)

	// task survives with its back-reference cleared
	kept, err := db.GetTask(task.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.NoteID)

	assert.ErrorIs(t, db.UnlinkNoteTask(note.ID), ErrConflict)
}

func TestMemoryDeleteTaskCascades(t *testing.T) {
	db := NewMemoryStore()
	owner, ws := seedWorkspace(t, db)
	note := &models.Note{WorkspaceID: ws.ID, Title: "Plan", Content: models.PlainDocument("plan")}
	require.NoError(t, db.CreateNote(note))
	task := &models.Task{WorkspaceID: ws.ID, Title: "Plan", Importance: 5}
	require.NoError(t, db.LinkNoteTask(note, task))

	require.NoError(t, db.CreateSubtask(&models.Subtask{TaskID: task.ID, Title: "step"}))
	require.NoError(t, db.CreateComment(&models.Comment{TaskID: task.ID, UserID: owner.ID, Text: "hi"}))
	tag := &models.Tag{WorkspaceID: ws.ID, Name: "urgent"}
	require.NoError(t, db.CreateTag(tag))
	require.NoError(t, db.AssignTaskTag(task.ID, tag.ID))
	require.NoError(t, db.AssignTask(task.ID, owner.ID))

	require.NoError(t, db.DeleteTask(task.ID))

	_, err := db.GetTask(task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	subs, _ := db.ListSubtasks(task.ID)
	assert.Empty(t, subs)
	comments, _ := db.ListComments(task.ID)
	assert.Empty(t, comments)
	assignees, _ := db.ListAssignees(task.ID)
	assert.Empty(t, assignees)

	// note survives, link cleared
	stored, err := db.GetNote(note.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.TaskID)

	// tag itself lives on
	_, err = db.GetTag(tag.ID)
	assert.NoError(t, err)
}

func TestMemoryDeleteWorkspaceFansOut(t *testing.T) {
	db := NewMemoryStore()
	owner, ws := seedWorkspace(t, db)
	section := &models.Section{WorkspaceID: ws.ID, Name: "Pendientes", IsSystem: true}
	require.NoError(t, db.CreateSection(section))
	task := &models.Task{WorkspaceID: ws.ID, Title: "t", Importance: 5}
	require.NoError(t, db.CreateTask(task))
	note := &models.Note{WorkspaceID: ws.ID, Title: "n", Content: models.PlainDocument("n")}
	require.NoError(t, db.CreateNote(note))
	folder := &models.NoteFolder{WorkspaceID: ws.ID, Name: "f"}
	require.NoError(t, db.CreateFolder(folder))
	tag := &models.Tag{WorkspaceID: ws.ID, Name: "x"}
	require.NoError(t, db.CreateTag(tag))
	invitee := &models.User{Email: "m@example.com"}
	require.NoError(t, db.CreateUser(invitee))
	member := &models.WorkspaceMember{
		WorkspaceID: ws.ID, UserID: invitee.ID,
		Role: models.RoleMember, Status: models.MemberAccepted, InviterID: owner.ID,
	}
	require.NoError(t, db.CreateMember(member))

	require.NoError(t, db.DeleteWorkspace(ws.ID))

	_, err := db.GetWorkspace(ws.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetSection(section.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetTask(task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetNote(note.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetFolder(folder.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetTag(tag.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetMember(member.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDeleteFolderReparentsNotes(t *testing.T) {
	db := NewMemoryStore()
	_, ws := seedWorkspace(t, db)
	folder := &models.NoteFolder{WorkspaceID: ws.ID, Name: "f"}
	require.NoError(t, db.CreateFolder(folder))
	note := &models.Note{WorkspaceID: ws.ID, FolderID: &folder.ID, Title: "n", Content: models.PlainDocument("n")}
	require.NoError(t, db.CreateNote(note))

	require.NoError(t, db.DeleteFolder(folder.ID))

	stored, err := db.GetNote(note.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.FolderID)
}

func TestMemoryDeleteTagCascadesJoins(t *testing.T) {
	db := NewMemoryStore()
	_, ws := seedWorkspace(t, db)
	task := &models.Task{WorkspaceID: ws.ID, Title: "t", Importance: 5}
	require.NoError(t, db.CreateTask(task))
	note := &models.Note{WorkspaceID: ws.ID, Title: "n", Content: models.PlainDocument("n")}
	require.NoError(t, db.CreateNote(note))
	tag := &models.Tag{WorkspaceID: ws.ID, Name: "x"}
	require.NoError(t, db.CreateTag(tag))
	require.NoError(t, db.AssignTaskTag(task.ID, tag.ID))
	require.NoError(t, db.AssignNoteTag(note.ID, tag.ID))

	require.NoError(t, db.DeleteTag(tag.ID))

	taskTags, err := db.ListTaskTags(task.ID)
	require.NoError(t, err)
	assert.Empty(t, taskTags)
	noteTags, err := db.ListNoteTags(note.ID)
	require.NoError(t, err)
	assert.Empty(t, noteTags)
}

func TestMemoryReassignSectionTasks(t *testing.T) {
	db := NewMemoryStore()
	_, ws := seedWorkspace(t, db)
	from := &models.Section{WorkspaceID: ws.ID, Name: "Sprint", Order: 2}
	to := &models.Section{WorkspaceID: ws.ID, Name: "Pendientes", Order: 0, IsSystem: true}
	require.NoError(t, db.CreateSection(from))
	require.NoError(t, db.CreateSection(to))
	task := &models.Task{WorkspaceID: ws.ID, SectionID: &from.ID, Title: "t", Importance: 5}
	require.NoError(t, db.CreateTask(task))

	require.NoError(t, db.ReassignSectionTasks(from.ID, to.ID))

	moved, err := db.GetTask(task.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.SectionID)
	assert.Equal(t, to.ID, *moved.SectionID)
}

func TestMemoryListTasksDueBetween(t *testing.T) {
	db := NewMemoryStore()
	_, ws := seedWorkspace(t, db)
	now := time.Now()
	soon := now.Add(24 * time.Hour)
	far := now.Add(60 * 24 * time.Hour)
	require.NoError(t, db.CreateTask(&models.Task{WorkspaceID: ws.ID, Title: "soon", Importance: 5, DueDate: &soon}))
	require.NoError(t, db.CreateTask(&models.Task{WorkspaceID: ws.ID, Title: "far", Importance: 5, DueDate: &far}))
	require.NoError(t, db.CreateTask(&models.Task{WorkspaceID: ws.ID, Title: "undated", Importance: 5}))

	tasks, err := db.ListTasksDueBetween(ws.ID, now, now.AddDate(0, 0, 30))
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "soon", tasks[0].Title)
}
