package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a spend recorded against a plan and/or category
type Expense struct {
	ID         string          `db:"id" json:"id"`
	UserID     string          `db:"user_id" json:"user_id"`
	PlanID     *string         `db:"plan_id" json:"plan_id,omitempty"`
	CategoryID string          `db:"category_id" json:"category_id"`
	Name       string          `db:"name" json:"name"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	SpentAt    time.Time       `db:"spent_at" json:"spent_at"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

func (e Expense) RecordID() string           { return e.ID }
func (e Expense) RecordOwnerID() string      { return e.UserID }
func (e Expense) RecordCreatedAt() time.Time { return e.CreatedAt }

// CreateExpenseRequest records a new expense
type CreateExpenseRequest struct {
	Name       string          `json:"name" validate:"required,max=200"`
	PlanID     *string         `json:"plan_id" validate:"omitempty,uuid"`
	CategoryID string          `json:"category_id" validate:"required,uuid"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
	SpentAt    time.Time       `json:"spent_at" validate:"required"`
}

// UpdateExpenseRequest patches an expense; nil fields are left unchanged
type UpdateExpenseRequest struct {
	Name       *string          `json:"name" validate:"omitempty,max=200"`
	PlanID     *string          `json:"plan_id" validate:"omitempty,uuid"`
	CategoryID *string          `json:"category_id" validate:"omitempty,uuid"`
	Amount     *decimal.Decimal `json:"amount"`
	SpentAt    *time.Time       `json:"spent_at"`
}

// ExpenseFilter narrows historical expense listings
type ExpenseFilter struct {
	From       *time.Time
	To         *time.Time
	CategoryID *string
	PlanID     *string
}
