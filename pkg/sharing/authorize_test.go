package sharing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestAuthorize(t *testing.T) {
	editShare := &models.Share{
		EntityID:         "entity-1",
		SharedWithUserID: "user-2",
		PermissionLevel:  models.PermissionEdit,
	}
	viewShare := &models.Share{
		EntityID:         "entity-1",
		SharedWithUserID: "user-2",
		PermissionLevel:  models.PermissionView,
	}

	tests := []struct {
		name     string
		ownerID  string
		callerID string
		share    *models.Share
		want     Grant
	}{
		{
			name:     "owner is admitted without a share row",
			ownerID:  "user-1",
			callerID: "user-1",
			share:    nil,
			want:     Grant{Decision: DecisionOwner},
		},
		{
			name:     "owner decision ignores an existing share row",
			ownerID:  "user-1",
			callerID: "user-1",
			share:    viewShare,
			want:     Grant{Decision: DecisionOwner},
		},
		{
			name:     "recipient gets the share's permission level",
			ownerID:  "user-1",
			callerID: "user-2",
			share:    editShare,
			want:     Grant{Decision: DecisionShared, Permission: models.PermissionEdit},
		},
		{
			name:     "view share grants view only",
			ownerID:  "user-1",
			callerID: "user-2",
			share:    viewShare,
			want:     Grant{Decision: DecisionShared, Permission: models.PermissionView},
		},
		{
			name:     "non-owner without a share is denied",
			ownerID:  "user-1",
			callerID: "user-3",
			share:    nil,
			want:     Grant{Decision: DecisionDenied},
		},
		{
			name:     "empty caller never matches an empty owner",
			ownerID:  "",
			callerID: "",
			share:    nil,
			want:     Grant{Decision: DecisionDenied},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Authorize(tt.ownerID, tt.callerID, tt.share)
			assert.Equal(t, tt.want, got)
		})
	}
}
