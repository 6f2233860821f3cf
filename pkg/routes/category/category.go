package category

import (
	"context"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/category"
	clovercontext "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/routes/respond"
	"github.com/Ramsey-B/clover/pkg/sharing"
)

var validate = validator.New()

const kind = "category"

// Register registers category routes. Categories have no share surface.
func Register(g *echo.Group) {
	g.GET("", List)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.PUT("/:id", Update)
	g.DELETE("/:id", Delete)
}

// List returns the caller's categories
func List(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)

	ctx, repo, err := ectoinject.GetContext[*category.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	categories, err := repo.List(ctx, userID)
	if err != nil {
		return respond.Error(err)
	}

	return c.JSON(http.StatusOK, categories)
}

// Get returns one category
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*category.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	got, err := repo.Get(ctx, id, userID)
	if err != nil {
		var denied *sharing.AccessDeniedError
		if errors.As(err, &denied) {
			metrics.AccessDeniedTotal.WithLabelValues(kind).Inc()
		}
		return respond.Error(err)
	}
	if got == nil {
		return respond.NotFound(kind)
	}

	return c.JSON(http.StatusOK, got)
}

// Create creates a new category owned by the caller
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)

	var req models.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*category.Repository](ctx)
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

// Update patches a category
func Update(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var req models.UpdateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*category.Repository](ctx)
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

// Delete removes a category
func Delete(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*category.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, id); err != nil {
		metrics.EntityOperationsTotal.WithLabelValues(kind, "delete", "error").Inc()
		return respond.Error(err)
	}
	metrics.EntityOperationsTotal.WithLabelValues(kind, "delete", "success").Inc()

	emit(ctx, events.EntityDeleted, models.Category{ID: id, UserID: userID})

	return c.NoContent(http.StatusNoContent)
}

func emit(ctx context.Context, eventType string, row models.Category) {
	ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx)
	if err != nil {
		return
	}
	emitter.EmitEntityChanged(ctx, eventType, kind, row.ID, row.UserID, row)
}
