package database

import (
	"errors"
	"time"

	"tarely-backend/pkg/models"
)

// Sentinel errors translated by handlers into domain responses. Postgres
// constraint violations map onto ErrConflict rather than leaking constraint
// names.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Store defines the persistence interface. Two implementations exist:
// PostgresStore (production, lib/pq) and MemoryStore (local dev and tests).
type Store interface {
	// Users
	CreateUser(user *models.User) error
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	UpdateUser(user *models.User) error
	DeleteUser(id string) error

	// Calendar credentials
	SaveCalendarCredentials(creds *models.CalendarCredentials) error
	GetCalendarCredentials(userID string) (*models.CalendarCredentials, error)

	// Workspaces
	CreateWorkspace(ws *models.Workspace) error
	GetWorkspace(id string) (*models.Workspace, error)
	UpdateWorkspace(ws *models.Workspace) error
	// DeleteWorkspace fans out: sections, tasks and their children, notes,
	// folders, tags and members all go with the workspace.
	DeleteWorkspace(id string) error
	ListWorkspacesForUser(userID string) ([]models.Workspace, error)

	// Members
	CreateMember(m *models.WorkspaceMember) error
	GetMember(id string) (*models.WorkspaceMember, error)
	GetMemberByWorkspaceAndUser(workspaceID, userID string) (*models.WorkspaceMember, error)
	ListMembers(workspaceID string) ([]models.WorkspaceMember, error)
	ListInvitesForUser(userID string) ([]models.WorkspaceMember, error)
	UpdateMember(m *models.WorkspaceMember) error
	DeleteMember(id string) error

	// Sections
	CreateSection(s *models.Section) error
	GetSection(id string) (*models.Section, error)
	ListSections(workspaceID string) ([]models.Section, error)
	UpdateSection(s *models.Section) error
	DeleteSection(id string) error
	// ReassignSectionTasks moves every task in from to the to section.
	ReassignSectionTasks(fromSectionID, toSectionID string) error

	// Tasks
	CreateTask(t *models.Task) error
	CreateTasks(tasks []*models.Task) error
	GetTask(id string) (*models.Task, error)
	ListTasks(workspaceID string) ([]models.Task, error)
	ListTasksDueBetween(workspaceID string, from, to time.Time) ([]models.Task, error)
	UpdateTask(t *models.Task) error
	// DeleteTask cascades subtasks, comments, attachments, assignees and tag
	// links, and clears the linked note's taskId if one exists.
	DeleteTask(id string) error

	// Subtasks
	CreateSubtask(s *models.Subtask) error
	GetSubtask(id string) (*models.Subtask, error)
	ListSubtasks(taskID string) ([]models.Subtask, error)
	UpdateSubtask(s *models.Subtask) error
	DeleteSubtask(id string) error

	// Task tags (join table; duplicate assignment returns ErrConflict)
	AssignTaskTag(taskID, tagID string) error
	RemoveTaskTag(taskID, tagID string) error
	ListTaskTags(taskID string) ([]models.Tag, error)

	// Assignees
	AssignTask(taskID, userID string) error
	UnassignTask(taskID, userID string) error
	ListAssignees(taskID string) ([]string, error)

	// Comments
	CreateComment(c *models.Comment) error
	GetComment(id string) (*models.Comment, error)
	ListComments(taskID string) ([]models.Comment, error)
	DeleteComment(id string) error

	// Attachments
	CreateAttachment(a *models.Attachment) error
	GetAttachment(id string) (*models.Attachment, error)
	ListAttachments(taskID string) ([]models.Attachment, error)
	DeleteAttachment(id string) error

	// Activity (append-only)
	CreateActivity(a *models.Activity) error
	ListActivity(taskID string) ([]models.Activity, error)

	// Notes
	CreateNote(n *models.Note) error
	GetNote(id string) (*models.Note, error)
	ListNotes(workspaceID string) ([]models.Note, error)
	UpdateNote(n *models.Note) error
	DeleteNote(id string) error
	// LinkNoteTask creates the task and sets both foreign keys atomically.
	LinkNoteTask(note *models.Note, task *models.Task) error
	// UnlinkNoteTask clears the note's taskId and the task's noteId; the task
	// row survives.
	UnlinkNoteTask(noteID string) error

	// Note tags
	AssignNoteTag(noteID, tagID string) error
	RemoveNoteTag(noteID, tagID string) error
	ListNoteTags(noteID string) ([]models.Tag, error)

	// Folders
	CreateFolder(f *models.NoteFolder) error
	GetFolder(id string) (*models.NoteFolder, error)
	ListFolders(workspaceID string) ([]models.NoteFolder, error)
	UpdateFolder(f *models.NoteFolder) error
	// DeleteFolder reparents contained notes to no folder.
	DeleteFolder(id string) error

	// Templates
	CreateTemplate(t *models.NoteTemplate) error
	GetTemplate(id string) (*models.NoteTemplate, error)
	ListTemplates() ([]models.NoteTemplate, error)
	DeleteTemplate(id string) error

	// Tags (name unique per workspace; duplicate returns ErrConflict)
	CreateTag(t *models.Tag) error
	GetTag(id string) (*models.Tag, error)
	ListTags(workspaceID string) ([]models.Tag, error)
	UpdateTag(t *models.Tag) error
	// DeleteTag cascades from both join tables.
	DeleteTag(id string) error

	HealthCheck() error
	Close() error
}

// Config selects the store implementation.
type Config struct {
	PostgresDSN string
	UseMemoryDB bool
	Debug       bool
}

// NewStore picks the store from configuration. Postgres when a DSN is
// configured, otherwise the in-memory store (local development only).
func NewStore(cfg Config) Store {
	if cfg.PostgresDSN != "" && !cfg.UseMemoryDB {
		return NewPostgresStore(cfg.PostgresDSN)
	}
	return NewMemoryStore()
}
