package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Template is a reusable expense template owned by one user
type Template struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (t Template) RecordID() string           { return t.ID }
func (t Template) RecordOwnerID() string      { return t.UserID }
func (t Template) RecordCreatedAt() time.Time { return t.CreatedAt }

// TemplateItem is a line item belonging to exactly one template. Items are
// always replaced as a batch, never patched individually.
type TemplateItem struct {
	ID         string          `db:"id" json:"id"`
	TemplateID string          `db:"template_id" json:"template_id"`
	Name       string          `db:"name" json:"name"`
	CategoryID string          `db:"category_id" json:"category_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// CreateTemplateRequest creates a new template
type CreateTemplateRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateTemplateRequest patches a template; nil fields are left unchanged
type UpdateTemplateRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// ItemInput is one line item in a batch replace
type ItemInput struct {
	Name       string          `json:"name" validate:"required,max=100"`
	CategoryID string          `json:"category_id" validate:"required,uuid"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
}

// ReplaceItemsRequest replaces an entity's line items as a batch
type ReplaceItemsRequest struct {
	Items []ItemInput `json:"items" validate:"dive"`
}
