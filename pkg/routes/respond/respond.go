// Package respond maps service errors to HTTP error responses.
package respond

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"

	"github.com/Ramsey-B/clover/pkg/sharing"
)

// Error translates a repository error into an httperror understood by the
// central error handler. Duplicate names and duplicate shares map to 409,
// denied access to 403, unknown users and missing rows to 404, unsupported
// operations to 400. Anything else stays a bare 500 so backend detail never
// leaks to clients.
func Error(err error) error {
	var dup *sharing.DuplicateNameError
	if errors.As(err, &dup) {
		return httperror.NewHTTPError(http.StatusConflict, dup.Error())
	}

	var already *sharing.AlreadySharedError
	if errors.As(err, &already) {
		return httperror.NewHTTPError(http.StatusConflict, already.Error())
	}

	var denied *sharing.AccessDeniedError
	if errors.As(err, &denied) {
		return httperror.NewHTTPError(http.StatusForbidden, denied.Error())
	}

	var notFound *sharing.UserNotFoundError
	if errors.As(err, &notFound) {
		return httperror.NewHTTPError(http.StatusNotFound, notFound.Error())
	}

	if errors.Is(err, sharing.ErrSharingUnsupported) || errors.Is(err, sharing.ErrItemsUnsupported) {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if errors.Is(err, sql.ErrNoRows) {
		return httperror.NewHTTPError(http.StatusNotFound, "not found")
	}

	return httperror.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

// NotFound is the response for a single-entity read that matched no row.
func NotFound(typeName string) error {
	return httperror.NewHTTPError(http.StatusNotFound, typeName+" not found")
}
