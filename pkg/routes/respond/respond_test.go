package respond

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/sharing"
)

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "duplicate name conflicts",
			err:        &sharing.DuplicateNameError{TypeName: "Template"},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "duplicate share conflicts",
			err:        &sharing.AlreadySharedError{TypeName: "Plan"},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "denied access is forbidden",
			err:        &sharing.AccessDeniedError{TypeName: "Template"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "unknown share target is not found",
			err:        &sharing.UserNotFoundError{Query: "nobody"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unsupported sharing is a bad request",
			err:        sharing.ErrSharingUnsupported,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported items is a bad request",
			err:        sharing.ErrItemsUnsupported,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing row is not found",
			err:        sql.ErrNoRows,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "wrapped service errors still map",
			err:        fmt.Errorf("share failed: %w", &sharing.AlreadySharedError{TypeName: "Plan"}),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "store errors stay opaque",
			err:        errors.New("pq: connection reset"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Error(tt.err)

			require.True(t, httperror.IsHTTPError(err), "expected HTTP error, got: %v", err)
			assert.Equal(t, tt.wantStatus, httperror.GetStatusCode(err))
		})
	}
}

func TestErrorHidesStoreDetail(t *testing.T) {
	err := Error(errors.New("pq: password authentication failed for user postgres"))

	require.True(t, httperror.IsHTTPError(err))
	assert.NotContains(t, err.Error(), "postgres")
}

func TestNotFound(t *testing.T) {
	err := NotFound("template")

	require.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}
