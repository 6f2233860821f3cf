package models

import "time"

// Permission is the access level carried by a share
type Permission string

const (
	// PermissionView grants read-only access
	PermissionView Permission = "view"
	// PermissionEdit grants read-write access
	PermissionEdit Permission = "edit"
)

// Valid reports whether p is a known permission level
func (p Permission) Valid() bool {
	return p == PermissionView || p == PermissionEdit
}

// Share is a grant of access to one entity for one non-owner. The backing
// column for EntityID varies per kind (template_id, plan_id, ...); queries
// alias it to entity_id.
type Share struct {
	ID               string     `db:"id" json:"id"`
	EntityID         string     `db:"entity_id" json:"entity_id"`
	SharedWithUserID string     `db:"shared_with_user_id" json:"shared_with_user_id"`
	SharedByUserID   string     `db:"shared_by_user_id" json:"shared_by_user_id"`
	PermissionLevel  Permission `db:"permission_level" json:"permission_level"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// SharedUser is the denormalized projection of a share row joined with the
// recipient's identity, produced by a store procedure
type SharedUser struct {
	UserID          string     `db:"user_id" json:"user_id"`
	UserName        string     `db:"user_name" json:"user_name"`
	UserEmail       string     `db:"user_email" json:"user_email"`
	PermissionLevel Permission `db:"permission_level" json:"permission_level"`
	SharedAt        time.Time  `db:"shared_at" json:"shared_at"`
}

// ShareCandidate is a user resolved by the search procedure as a possible
// share recipient
type ShareCandidate struct {
	ID    string `db:"id" json:"id"`
	Email string `db:"email" json:"email"`
	Name  string `db:"name" json:"name"`
}

// ShareRequest grants access to an entity
type ShareRequest struct {
	Email      string     `json:"email" validate:"required"`
	Permission Permission `json:"permission" validate:"required,oneof=view edit"`
}

// UpdateSharePermissionRequest changes the level of an existing share
type UpdateSharePermissionRequest struct {
	Permission Permission `json:"permission" validate:"required,oneof=view edit"`
}
