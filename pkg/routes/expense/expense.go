package expense

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/internal/repositories/expense"
	clovercontext "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/routes/respond"
	"github.com/Ramsey-B/clover/pkg/sharing"
)

var validate = validator.New()

const kind = "expense"

// Register registers expense routes. Expenses are historical records: no
// share surface, no line items.
func Register(g *echo.Group) {
	g.GET("", List)
	g.GET("/totals", TotalsByCategory)
	g.POST("", Create)
	g.GET("/:id", Get)
	g.PUT("/:id", Update)
	g.DELETE("/:id", Delete)
}

// parseFilter reads the optional from/to/category_id/plan_id query
// parameters. Dates are RFC 3339.
func parseFilter(c echo.Context) (models.ExpenseFilter, error) {
	var filter models.ExpenseFilter

	if v := c.QueryParam("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, httperror.NewHTTPError(http.StatusBadRequest, "from must be RFC 3339")
		}
		filter.From = &from
	}
	if v := c.QueryParam("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, httperror.NewHTTPError(http.StatusBadRequest, "to must be RFC 3339")
		}
		filter.To = &to
	}
	if v := c.QueryParam("category_id"); v != "" {
		filter.CategoryID = &v
	}
	if v := c.QueryParam("plan_id"); v != "" {
		filter.PlanID = &v
	}
	return filter, nil
}

// List returns the caller's expenses matching the query filters
func List(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)

	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*expense.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	expenses, err := repo.List(ctx, userID, filter)
	if err != nil {
		return respond.Error(err)
	}

	return c.JSON(http.StatusOK, expenses)
}

// TotalsByCategory returns per-category spend totals for the filtered set
func TotalsByCategory(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)

	filter, err := parseFilter(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*expense.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	totals, err := repo.TotalsByCategory(ctx, userID, filter)
	if err != nil {
		return respond.Error(err)
	}

	return c.JSON(http.StatusOK, totals)
}

// Get returns one expense
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*expense.Repository](ctx)
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

// Create records a new expense for the caller
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)

	var req models.CreateExpenseRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*expense.Repository](ctx)
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

// Update patches an expense
func Update(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var req models.UpdateExpenseRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*expense.Repository](ctx)
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

// Delete removes an expense
func Delete(c echo.Context) error {
	ctx := c.Request().Context()
	userID := clovercontext.GetUserID(ctx)
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*expense.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, id); err != nil {
		metrics.EntityOperationsTotal.WithLabelValues(kind, "delete", "error").Inc()
		return respond.Error(err)
	}
	metrics.EntityOperationsTotal.WithLabelValues(kind, "delete", "success").Inc()

	emit(ctx, events.EntityDeleted, models.Expense{ID: id, UserID: userID})

	return c.NoContent(http.StatusNoContent)
}

func emit(ctx context.Context, eventType string, row models.Expense) {
	ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx)
	if err != nil {
		return
	}
	emitter.EmitEntityChanged(ctx, eventType, kind, row.ID, row.UserID, row)
}
