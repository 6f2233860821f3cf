package plan

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/plan"
	clovercontext "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/routes/respond"
	"github.com/Ramsey-B/clover/pkg/sharing"
)

var validate = validator.New()

const kind = "plan"

// Register registers plan routes
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.PUT("/:id", Update)
	g.DELETE("/:id", Delete)
	g.PUT("/:id/items", ReplaceItems)
	g.GET("/:id/shared-users", SharedUsers)
	g.POST("/:id/share", Share)
	g.PUT("/:id/share/:userId", UpdateSharePermission)
	g.DELETE("/:id/share/:userId", Unshare)
}

// List returns the caller's plans and plans shared with them. With both
// `from` and `to` query parameters (RFC 3339) it instead returns the
// caller's own plans overlapping that period.
func List(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)

	ctx, repo, err := ectoinject.GetContext[*plan.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	fromParam := c.QueryParam("from")
	toParam := c.QueryParam("to")
	if fromParam != "" && toParam != "" {
		from, err := time.Parse(time.RFC3339, fromParam)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "from must be RFC 3339")
		}
		to, err := time.Parse(time.RFC3339, toParam)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "to must be RFC 3339")
		}

		plans, err := repo.ListForPeriod(ctx, userID, from, to)
		if err != nil {
			return respond.Error(err)
		}
		return c.JSON(http.StatusOK, plans)
	}

	start := time.Now()
	plans, err := repo.List(ctx, userID)
	if err != nil {
		return respond.Error(err)
	}
	metrics.ListDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	return c.JSON(http.StatusOK, plans)
}

// Get returns one plan with its items
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*plan.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	got, err := repo.Get(ctx, id, userID)
	if err != nil {
		if isDenied(err) {
			metrics.AccessDeniedTotal.WithLabelValues(kind).Inc()
		}
		return respond.Error(err)
	}
	if got == nil {
		return respond.NotFound(kind)
	}

	return c.JSON(http.StatusOK, got)
}

// Create creates a new plan owned by the caller
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)

	var req models.CreatePlanRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.EndDate.Before(req.StartDate) {
		return httperror.NewHTTPError(http.StatusBadRequest, "end_date must not precede start_date")
	}

	ctx, repo, err := ectoinject.GetContext[*plan.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, userID, req)
	if err != nil {
		metrics.EntityOperationsTotal.WithLabelValues(kind, "create", "error").Inc()
		return respond.Error(err)
	}
	metrics.EntityOperationsTotal.WithLabelValues(kind, "create", "success").Inc()

	emit(ctx, events.EntityCreated, created)

	return c.JSON(http.StatusCreated, created)
}

// Update patches a plan
func Update(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	var req models.UpdatePlanRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*plan.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.Update(ctx, id, req)
	if err != nil {
		metrics.EntityOperationsTotal.WithLabelValues(kind, "update", "error").Inc()
		return respond.Error(err)
	}
	metrics.EntityOperationsTotal.WithLabelValues(kind, "update", "success").Inc()

	emit(ctx, events.EntityUpdated, updated)

	return c.JSON(http.StatusOK, updated)
}

// Delete removes a plan
func Delete(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*plan.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, id); err != nil {
		metrics.EntityOperationsTotal.WithLabelValues(kind, "delete", "error").Inc()
		return respond.Error(err)
	}
	metrics.EntityOperationsTotal.WithLabelValues(kind, "delete", "success").Inc()

	emit(ctx, events.EntityDeleted, models.Plan{ID: id, UserID: userID})

	return c.NoContent(http.StatusNoContent)
}

// ReplaceItems swaps a plan's line items for the submitted batch
func ReplaceItems(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var req models.ReplaceItemsRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*plan.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	items, err := repo.ReplaceItems(ctx, id, req.Items)
	if err != nil {
		metrics.EntityOperationsTotal.WithLabelValues(kind, "replace_items", "error").Inc()
		return respond.Error(err)
	}
	metrics.EntityOperationsTotal.WithLabelValues(kind, "replace_items", "success").Inc()

	return c.JSON(http.StatusOK, items)
}

// SharedUsers returns everyone the plan is shared with
func SharedUsers(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*plan.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	users, err := repo.SharedUsers(ctx, id)
	if err != nil {
		return respond.Error(err)
	}

	return c.JSON(http.StatusOK, users)
}

// Share grants another user access to the plan
func Share(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)
	id := c.Param("id")

	var req models.ShareRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*plan.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Share(ctx, id, req.Email, req.Permission, userID); err != nil {
		metrics.ShareMutationsTotal.WithLabelValues(kind, "share", "error").Inc()
		return respond.Error(err)
	}
	metrics.ShareMutationsTotal.WithLabelValues(kind, "share", "success").Inc()

	emitShare(ctx, events.EntityShared, id, userID, req.Email, string(req.Permission))

	return c.NoContent(http.StatusCreated)
}

// UpdateSharePermission changes an existing share's permission level
func UpdateSharePermission(c echo.Context) error {
	ctx := c.Request().Context()
	actorID := clovercontext.GetUserID(ctx)
	id := c.Param("id")
	targetID := c.Param("userId")

	var req models.UpdateSharePermissionRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*plan.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.UpdateSharePermission(ctx, id, targetID, req.Permission); err != nil {
		metrics.ShareMutationsTotal.WithLabelValues(kind, "update_permission", "error").Inc()
		return respond.Error(err)
	}
	metrics.ShareMutationsTotal.WithLabelValues(kind, "update_permission", "success").Inc()

	emitShare(ctx, events.EntityPermissionChanged, id, actorID, targetID, string(req.Permission))

	return c.NoContent(http.StatusNoContent)
}

// Unshare revokes a user's access to the plan
func Unshare(c echo.Context) error {
	ctx := c.Request().Context()
	actorID := clovercontext.GetUserID(ctx)
	id := c.Param("id")
	targetID := c.Param("userId")

	ctx, repo, err := ectoinject.GetContext[*plan.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Unshare(ctx, id, targetID); err != nil {
		metrics.ShareMutationsTotal.WithLabelValues(kind, "unshare", "error").Inc()
		return respond.Error(err)
	}
	metrics.ShareMutationsTotal.WithLabelValues(kind, "unshare", "success").Inc()

	emitShare(ctx, events.EntityUnshared, id, actorID, targetID, "")

	return c.NoContent(http.StatusNoContent)
}

func isDenied(err error) bool {
	var denied *sharing.AccessDeniedError
	return errors.As(err, &denied)
}

func emit(ctx context.Context, eventType string, row models.Plan) {
	ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx)
	if err != nil {
		return
	}
	emitter.EmitEntityChanged(ctx, eventType, kind, row.ID, row.UserID, row)
}

func emitShare(ctx context.Context, eventType, entityID, actorID, targetID, permission string) {
	ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx)
	if err != nil {
		return
	}
	emitter.EmitShareMutation(ctx, eventType, kind, entityID, actorID, targetID, permission)
}
