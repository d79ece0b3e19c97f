package models

import "time"

// Note is a rich-text document belonging to a workspace, optionally filed in
// a folder and optionally linked 1:1 to a task. Completed/CompletedAt mirror
// the linked task's completion state.
type Note struct {
	ID          string     `json:"id" db:"id"`
	WorkspaceID string     `json:"workspaceId" db:"workspace_id"`
	FolderID    *string    `json:"folderId" db:"folder_id"`
	Title       string     `json:"title" db:"title"` // may be empty; "Sin título" is a display fallback
	Icon        string     `json:"icon,omitempty" db:"icon"`
	Content     Document   `json:"content" db:"content"`
	PlainText   string     `json:"plainText,omitempty" db:"plain_text"`
	WordCount   int        `json:"wordCount" db:"word_count"`
	IsPinned    bool       `json:"isPinned" db:"is_pinned"`
	IsFavorite  bool       `json:"isFavorite" db:"is_favorite"`
	TaskID      *string    `json:"taskId,omitempty" db:"task_id"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completedAt" db:"completed_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`

	// Populated on reads
	Tags []Tag `json:"tags,omitempty"`
}

// NoteFolder forms a tree via ParentID. Deleting a folder reparents its notes
// to no folder; it never cascades note deletion.
type NoteFolder struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspaceId" db:"workspace_id"`
	Name        string    `json:"name" db:"name"`
	Icon        string    `json:"icon,omitempty" db:"icon"`
	Color       string    `json:"color,omitempty" db:"color"`
	ParentID    *string   `json:"parentId,omitempty" db:"parent_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// NoteTemplate seeds new notes; independent of any note after creation.
type NoteTemplate struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	Category    string    `json:"category,omitempty" db:"category"`
	Icon        string    `json:"icon,omitempty" db:"icon"`
	Content     Document  `json:"content" db:"content"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
