package models

import "time"

// Category labels line items and expenses. Categories are per-user but are
// not shareable and carry no line items of their own.
type Category struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Color     string    `db:"color" json:"color"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (c Category) RecordID() string           { return c.ID }
func (c Category) RecordOwnerID() string      { return c.UserID }
func (c Category) RecordCreatedAt() time.Time { return c.CreatedAt }

// CreateCategoryRequest creates a new category
type CreateCategoryRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// UpdateCategoryRequest patches a category; nil fields are left unchanged
type UpdateCategoryRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}
