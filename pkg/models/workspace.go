package models

import "time"

// Workspace is the top-level tenant container (owner + invited members)
type Workspace struct {
	ID           string    `json:"id" db:"id"`
	OwnerID      string    `json:"ownerId" db:"owner_id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description,omitempty" db:"description"`
	Instructions string    `json:"instructions,omitempty" db:"instructions"` // free text fed to AI prompts
	Icon         string    `json:"icon,omitempty" db:"icon"`
	Color        string    `json:"color,omitempty" db:"color"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

type MemberStatus string

const (
	MemberPending  MemberStatus = "pending"
	MemberAccepted MemberStatus = "accepted"
	MemberRejected MemberStatus = "rejected"
)

// WorkspaceMember relates a user to a workspace. At most one row per
// (workspace, user) pair; created pending by an invite and resolved by the
// invitee. A rejected row is reopened by a later invite.
type WorkspaceMember struct {
	ID          string       `json:"id" db:"id"`
	WorkspaceID string       `json:"workspaceId" db:"workspace_id"`
	UserID      string       `json:"userId" db:"user_id"`
	Role        MemberRole   `json:"role" db:"role"`
	Status      MemberStatus `json:"status" db:"status"`
	InviterID   string       `json:"inviterId,omitempty" db:"inviter_id"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" db:"updated_at"`
}
