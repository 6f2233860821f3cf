package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Plan is a spending plan for a period, owned by one user
type Plan struct {
	ID          string          `db:"id" json:"id"`
	UserID      string          `db:"user_id" json:"user_id"`
	Name        string          `db:"name" json:"name"`
	StartDate   time.Time       `db:"start_date" json:"start_date"`
	EndDate     time.Time       `db:"end_date" json:"end_date"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

func (p Plan) RecordID() string           { return p.ID }
func (p Plan) RecordOwnerID() string      { return p.UserID }
func (p Plan) RecordCreatedAt() time.Time { return p.CreatedAt }

// PlanItem is a line item belonging to exactly one plan
type PlanItem struct {
	ID         string          `db:"id" json:"id"`
	PlanID     string          `db:"plan_id" json:"plan_id"`
	Name       string          `db:"name" json:"name"`
	CategoryID string          `db:"category_id" json:"category_id"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// CreatePlanRequest creates a new plan
type CreatePlanRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	StartDate   time.Time       `json:"start_date" validate:"required"`
	EndDate     time.Time       `json:"end_date" validate:"required"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// UpdatePlanRequest patches a plan; nil fields are left unchanged
type UpdatePlanRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=100"`
	StartDate   *time.Time       `json:"start_date"`
	EndDate     *time.Time       `json:"end_date"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
}
