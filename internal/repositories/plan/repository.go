package plan

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/sharing"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Config is the kind descriptor plans are persisted under.
var Config = sharing.Config{
	Table:                 "plans",
	TypeName:              "Plan",
	OwnerColumn:           "user_id",
	UniqueConstraint:      "plans_user_id_name_key",
	ShareTable:            "shared_plans",
	ShareForeignKeyColumn: "plan_id",
	SharedUsersProcedure:  "get_plan_shared_users",
	ItemsTable:            "plan_items",
	ItemsForeignKeyColumn: "plan_id",
}

// Repository persists spending plans and their line items.
type Repository struct {
	svc    *sharing.Service[models.Plan, models.PlanItem]
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) (*Repository, error) {
	svc, err := sharing.NewService[models.Plan, models.PlanItem](db, logger, Config)
	if err != nil {
		return nil, err
	}
	return &Repository{svc: svc, db: db, logger: logger}, nil
}

// UseShareLock serializes share mutations across replicas.
func (r *Repository) UseShareLock(lock sharing.Locker) {
	r.svc.UseShareLock(lock)
}

func (r *Repository) Create(ctx context.Context, userID string, req models.CreatePlanRequest) (models.Plan, error) {
	ctx, span := tracing.StartSpan(ctx, "plan.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	return r.svc.Create(ctx, models.Plan{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        req.Name,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		TotalAmount: req.TotalAmount,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (r *Repository) Update(ctx context.Context, id string, req models.UpdatePlanRequest) (models.Plan, error) {
	ctx, span := tracing.StartSpan(ctx, "plan.Repository.Update")
	defer span.End()

	set := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.StartDate != nil {
		set["start_date"] = *req.StartDate
	}
	if req.EndDate != nil {
		set["end_date"] = *req.EndDate
	}
	if req.TotalAmount != nil {
		set["total_amount"] = *req.TotalAmount
	}
	return r.svc.Update(ctx, id, set)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.svc.Delete(ctx, id)
}

// Get fetches one plan with its items for the given caller, applying
// owner-or-recipient access rules. Returns nil when the plan does not exist.
func (r *Repository) Get(ctx context.Context, id, userID string) (*sharing.EntityWithItems[models.Plan, models.PlanItem], error) {
	return r.svc.GetWithItems(ctx, id, userID)
}

// List returns the user's own plans and the plans shared with them, newest
// first.
func (r *Repository) List(ctx context.Context, userID string) ([]sharing.WithPermission[models.Plan], error) {
	return r.svc.ListWithPermissions(ctx, userID)
}

// ListForPeriod returns the user's own plans whose period overlaps
// [from, to], earliest start first.
func (r *Repository) ListForPeriod(ctx context.Context, userID string, from, to time.Time) ([]models.Plan, error) {
	ctx, span := tracing.StartSpan(ctx, "plan.Repository.ListForPeriod")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("id", "user_id", "name", "start_date", "end_date", "total_amount", "created_at", "updated_at")
	sb.From(Config.Table)
	sb.Where(
		sb.Equal(Config.OwnerColumn, userID),
		sb.LessEqualThan("start_date", to),
		sb.GreaterEqualThan("end_date", from),
	)
	sb.OrderBy("start_date ASC")
	query, args := sb.Build()

	plans := []models.Plan{}
	if err := r.db.SelectContext(ctx, &plans, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"userId": userID,
		}).Error("failed to list plans for period")
		return nil, err
	}
	return plans, nil
}

// ReplaceItems swaps a plan's line items for the given batch and returns the
// new rows.
func (r *Repository) ReplaceItems(ctx context.Context, planID string, inputs []models.ItemInput) ([]models.PlanItem, error) {
	ctx, span := tracing.StartSpan(ctx, "plan.Repository.ReplaceItems")
	defer span.End()

	existing, err := r.svc.ItemIDs(ctx, planID)
	if err != nil {
		return nil, err
	}
	if err := r.svc.DeleteItems(ctx, existing); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	items := make([]models.PlanItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, models.PlanItem{
			ID:         uuid.New().String(),
			PlanID:     planID,
			Name:       in.Name,
			CategoryID: in.CategoryID,
			Amount:     in.Amount,
			CreatedAt:  now,
		})
	}
	if err := r.svc.CreateItems(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repository) SharedUsers(ctx context.Context, id string) ([]models.SharedUser, error) {
	return r.svc.SharedUsers(ctx, id)
}

func (r *Repository) Share(ctx context.Context, id, userQuery string, permission models.Permission, sharedBy string) error {
	return r.svc.Share(ctx, id, userQuery, permission, sharedBy)
}

func (r *Repository) Unshare(ctx context.Context, id, recipientID string) error {
	return r.svc.Unshare(ctx, id, recipientID)
}

func (r *Repository) UpdateSharePermission(ctx context.Context, id, recipientID string, permission models.Permission) error {
	return r.svc.UpdateSharePermission(ctx, id, recipientID, permission)
}
