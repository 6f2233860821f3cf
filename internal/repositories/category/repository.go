package category

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

// Config is the kind descriptor categories are persisted under. Categories
// cannot be shared and carry no line items.
var Config = sharing.Config{
	Table:            "categories",
	TypeName:         "Category",
	OwnerColumn:      "user_id",
	UniqueConstraint: "categories_user_id_name_key",
}

// Repository persists expense categories.
type Repository struct {
	svc    *sharing.Service[models.Category, sharing.NoItems]
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) (*Repository, error) {
	svc, err := sharing.NewService[models.Category, sharing.NoItems](db, logger, Config)
	if err != nil {
		return nil, err
	}
	return &Repository{svc: svc, logger: logger}, nil
}

func (r *Repository) Create(ctx context.Context, userID string, req models.CreateCategoryRequest) (models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "category.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	return r.svc.Create(ctx, models.Category{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      req.Name,
		Color:     req.Color,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (r *Repository) Update(ctx context.Context, id string, req models.UpdateCategoryRequest) (models.Category, error) {
	ctx, span := tracing.StartSpan(ctx, "category.Repository.Update")
	defer span.End()

	set := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Color != nil {
		set["color"] = *req.Color
	}
	return r.svc.Update(ctx, id, set)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.svc.Delete(ctx, id)
}

// Get fetches one category for the given caller. Categories are never
// shared, so only the owner is admitted.
func (r *Repository) Get(ctx context.Context, id, userID string) (*models.Category, error) {
	row, err := r.svc.GetWithItems(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return &row.Entity, nil
}

// List returns the user's own categories, newest first.
func (r *Repository) List(ctx context.Context, userID string) ([]models.Category, error) {
	return r.svc.ListOwned(ctx, userID)
}
