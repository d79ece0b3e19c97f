package models

import "time"

// Names of the two system sections every workspace is created with.
const (
	SectionPending   = "Pendientes"
	SectionCompleted = "Completadas"
)

// Section is an ordered bucket of tasks within a workspace. System sections
// ("Pendientes", "Completadas") can never be deleted.
type Section struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspaceId" db:"workspace_id"`
	Name        string    `json:"name" db:"name"`
	Icon        string    `json:"icon,omitempty" db:"icon"`
	Color       string    `json:"color,omitempty" db:"color"`
	Order       int       `json:"order" db:"position"`
	IsSystem    bool      `json:"isSystem" db:"is_system"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
