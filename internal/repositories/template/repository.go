package template

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

// Config is the kind descriptor templates are persisted under.
var Config = sharing.Config{
	Table:                 "templates",
	TypeName:              "Template",
	OwnerColumn:           "user_id",
	UniqueConstraint:      "templates_user_id_name_key",
	ShareTable:            "shared_templates",
	ShareForeignKeyColumn: "template_id",
	SharedUsersProcedure:  "get_template_shared_users",
	ItemsTable:            "template_items",
	ItemsForeignKeyColumn: "template_id",
}

// Repository persists expense templates and their line items. All access
// decisions live in the sharing service; this facade only converts requests
// to rows.
type Repository struct {
	svc    *sharing.Service[models.Template, models.TemplateItem]
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) (*Repository, error) {
	svc, err := sharing.NewService[models.Template, models.TemplateItem](db, logger, Config)
	if err != nil {
		return nil, err
	}
	return &Repository{svc: svc, logger: logger}, nil
}

// UseShareLock serializes share mutations across replicas.
func (r *Repository) UseShareLock(lock sharing.Locker) {
	r.svc.UseShareLock(lock)
}

func (r *Repository) Create(ctx context.Context, userID string, req models.CreateTemplateRequest) (models.Template, error) {
	ctx, span := tracing.StartSpan(ctx, "template.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	return r.svc.Create(ctx, models.Template{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (r *Repository) Update(ctx context.Context, id string, req models.UpdateTemplateRequest) (models.Template, error) {
	ctx, span := tracing.StartSpan(ctx, "template.Repository.Update")
	defer span.End()

	set := map[string]any{"updated_at": time.Now().UTC()}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	return r.svc.Update(ctx, id, set)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.svc.Delete(ctx, id)
}

// Get fetches one template with its items for the given caller, applying
// owner-or-recipient access rules. Returns nil when the template does not
// exist.
func (r *Repository) Get(ctx context.Context, id, userID string) (*sharing.EntityWithItems[models.Template, models.TemplateItem], error) {
	return r.svc.GetWithItems(ctx, id, userID)
}

// List returns the user's own templates and the templates shared with them,
// newest first.
func (r *Repository) List(ctx context.Context, userID string) ([]sharing.WithPermission[models.Template], error) {
	return r.svc.ListWithPermissions(ctx, userID)
}

// ReplaceItems swaps a template's line items for the given batch and returns
// the new rows. The delete and insert run as separate statements; each batch
// is a single statement.
func (r *Repository) ReplaceItems(ctx context.Context, templateID string, inputs []models.ItemInput) ([]models.TemplateItem, error) {
	ctx, span := tracing.StartSpan(ctx, "template.Repository.ReplaceItems")
	defer span.End()

	existing, err := r.svc.ItemIDs(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if err := r.svc.DeleteItems(ctx, existing); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	items := make([]models.TemplateItem, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, models.TemplateItem{
			ID:         uuid.New().String(),
			TemplateID: templateID,
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
