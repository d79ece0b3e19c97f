package models

import "time"

// Tag is a workspace-scoped label attachable to tasks and notes through
// separate join tables. Names are unique per workspace.
type Tag struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspaceId" db:"workspace_id"`
	Name        string    `json:"name" db:"name"`
	Color       string    `json:"color,omitempty" db:"color"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
