package models

import "time"

type TaskSource string

const (
	SourceManual TaskSource = "manual"
	SourceAI     TaskSource = "ai"
)

// Recurrence is a structured repeat rule attached to a task.
type Recurrence struct {
	Frequency string `json:"frequency"` // "daily", "weekly", "monthly"
	Interval  int    `json:"interval"`  // every N periods, min 1
}

// Task is the central entity: belongs to a workspace and optionally a section,
// carries tags, subtasks, assignees, comments and attachments. NoteID is the
// back-reference of the 1:1 note link.
type Task struct {
	ID          string      `json:"id" db:"id"`
	WorkspaceID string      `json:"workspaceId" db:"workspace_id"`
	SectionID   *string     `json:"sectionId" db:"section_id"` // nil means the default bucket
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description,omitempty" db:"description"`
	Importance  int         `json:"importance" db:"importance"` // 1..10
	DueDate     *time.Time  `json:"dueDate,omitempty" db:"due_date"`
	Completed   bool        `json:"completed" db:"completed"`
	Source      TaskSource  `json:"source" db:"source"`
	Recurrence  *Recurrence `json:"recurrence,omitempty" db:"recurrence"`
	NextDueAt   *time.Time  `json:"nextDueAt,omitempty" db:"next_due_at"`
	NoteID      *string     `json:"noteId,omitempty" db:"note_id"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`

	// Populated on reads, not stored on the task row itself
	Tags []Tag `json:"tags,omitempty"`
}

// TaskDraft is one item of a bulk create request (AI import path). TagIDs are
// zipped back onto created rows by index; unknown ids are skipped.
type TaskDraft struct {
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Importance  int         `json:"importance"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
	SectionID   *string     `json:"sectionId,omitempty"`
	Recurrence  *Recurrence `json:"recurrence,omitempty"`
	TagIDs      []string    `json:"tagIds,omitempty"`
}

// Subtask is an ordered child item of a task.
type Subtask struct {
	ID        string    `json:"id" db:"id"`
	TaskID    string    `json:"taskId" db:"task_id"`
	Title     string    `json:"title" db:"title"`
	Completed bool      `json:"completed" db:"completed"`
	Order     int       `json:"order" db:"position"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Comment on a task.
type Comment struct {
	ID        string    `json:"id" db:"id"`
	TaskID    string    `json:"taskId" db:"task_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Text      string    `json:"text" db:"text"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// AttachmentType is the coarse classification derived from the MIME type.
type AttachmentType string

const (
	AttachmentImage    AttachmentType = "image"
	AttachmentDocument AttachmentType = "document"
	AttachmentOther    AttachmentType = "other"
)

// Attachment is file metadata for an uploaded object; bytes live in object
// storage and are served through signed URLs.
type Attachment struct {
	ID          string         `json:"id" db:"id"`
	TaskID      string         `json:"taskId" db:"task_id"`
	UserID      string         `json:"userId" db:"user_id"`
	FileName    string         `json:"fileName" db:"file_name"`
	MimeType    string         `json:"mimeType" db:"mime_type"`
	FileType    AttachmentType `json:"fileType" db:"file_type"`
	SizeBytes   int64          `json:"sizeBytes" db:"size_bytes"`
	StoragePath string         `json:"-" db:"storage_path"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
}

// Activity kinds recorded against a task.
const (
	ActivityCommentAdded      = "comment_added"
	ActivityCommentRemoved    = "comment_removed"
	ActivityAttachmentAdded   = "attachment_added"
	ActivityAttachmentRemoved = "attachment_removed"
	ActivityCompletionToggled = "completion_toggled"
	ActivitySectionMoved      = "section_moved"
)

// Activity is an immutable audit record of a mutating action on a task.
type Activity struct {
	ID        string    `json:"id" db:"id"`
	TaskID    string    `json:"taskId" db:"task_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Kind      string    `json:"kind" db:"kind"`
	Detail    string    `json:"detail,omitempty" db:"detail"` // before/after values for display
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
