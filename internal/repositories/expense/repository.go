package expense

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/sharing"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Config is the kind descriptor expenses are persisted under. Expenses are
// historical records: never shared, no line items.
var Config = sharing.Config{
	Table:            "expenses",
	TypeName:         "Expense",
	OwnerColumn:      "user_id",
	UniqueConstraint: "expenses_pkey",
}

// CategoryTotal is one category's spend over a filtered expense set.
type CategoryTotal struct {
	CategoryID string          `db:"category_id" json:"category_id"`
	Total      decimal.Decimal `db:"total" json:"total"`
}

// Repository persists expenses.
type Repository struct {
	svc    *sharing.Service[models.Expense, sharing.NoItems]
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) (*Repository, error) {
	svc, err := sharing.NewService[models.Expense, sharing.NoItems](db, logger, Config)
	if err != nil {
		return nil, err
	}
	return &Repository{svc: svc, db: db, logger: logger}, nil
}

func (r *Repository) Create(ctx context.Context, userID string, req models.CreateExpenseRequest) (models.Expense, error) {
	ctx, span := tracing.StartSpan(ctx, "expense.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	return r.svc.Create(ctx, models.Expense{
		ID:         uuid.New().String(),
		UserID:     userID,
		PlanID:     req.PlanID,
		CategoryID: req.CategoryID,
		Name:       req.Name,
		Amount:     req.Amount,
		SpentAt:    req.SpentAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func (r *Repository) Update(ctx context.Context, id string, req models.UpdateExpenseRequest) (models.Expense, error) {
	ctx, span := tracing.StartSpan(ctx, "expense.Repository.Update")
	defer span.End()

	set := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.PlanID != nil {
		set["plan_id"] = *req.PlanID
	}
	if req.CategoryID != nil {
		set["category_id"] = *req.CategoryID
	}
	if req.Amount != nil {
		set["amount"] = *req.Amount
	}
	if req.SpentAt != nil {
		set["spent_at"] = *req.SpentAt
	}
	return r.svc.Update(ctx, id, set)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.svc.Delete(ctx, id)
}

// Get fetches one expense for the given caller. Expenses are never shared,
// so only the owner is admitted.
func (r *Repository) Get(ctx context.Context, id, userID string) (*models.Expense, error) {
	row, err := r.svc.GetWithItems(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return &row.Entity, nil
}

// List returns the user's expenses matching the filter, most recent spend
// first.
func (r *Repository) List(ctx context.Context, userID string, filter models.ExpenseFilter) ([]models.Expense, error) {
	ctx, span := tracing.StartSpan(ctx, "expense.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "user_id", "plan_id", "category_id", "name", "amount", "spent_at", "created_at", "updated_at")
	sb.From(Config.Table)
	sb.Where(sb.Equal(Config.OwnerColumn, userID))
	applyFilter(sb, filter)
	sb.OrderBy("spent_at DESC")
	query, args := sb.Build()

	expenses := []models.Expense{}
	if err := r.db.SelectContext(ctx, &expenses, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"userId": userID,
		}).Error("failed to list expenses")
		return nil, err
	}
	return expenses, nil
}

// TotalsByCategory sums the user's filtered expenses per category.
func (r *Repository) TotalsByCategory(ctx context.Context, userID string, filter models.ExpenseFilter) ([]CategoryTotal, error) {
	ctx, span := tracing.StartSpan(ctx, "expense.Repository.TotalsByCategory")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("category_id", "SUM(amount) AS total")
	sb.From(Config.Table)
	sb.Where(sb.Equal(Config.OwnerColumn, userID))
	applyFilter(sb, filter)
	sb.GroupBy("category_id")
	sb.OrderBy("total DESC")
	query, args := sb.Build()

	totals := []CategoryTotal{}
	if err := r.db.SelectContext(ctx, &totals, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"userId": userID,
		}).Error("failed to total expenses by category")
		return nil, err
	}
	return totals, nil
}

func applyFilter(sb *database.SelectBuilder, filter models.ExpenseFilter) {
	if filter.From != nil {
		sb.Where(sb.GreaterEqualThan("spent_at", *filter.From))
	}
	if filter.To != nil {
		sb.Where(sb.LessEqualThan("spent_at", *filter.To))
	}
	if filter.CategoryID != nil {
		sb.Where(sb.Equal("category_id", *filter.CategoryID))
	}
	if filter.PlanID != nil {
		sb.Where(sb.Equal("plan_id", *filter.PlanID))
	}
}
