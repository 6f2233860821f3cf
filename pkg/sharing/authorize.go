package sharing

import "github.com/Ramsey-B/clover/pkg/models"

// Decision is the outcome of an access check on a single entity.
type Decision int

const (
	// DecisionDenied means the caller is neither the owner nor a share
	// recipient
	DecisionDenied Decision = iota
	// DecisionOwner means the caller owns the entity
	DecisionOwner
	// DecisionShared means the caller holds a share on the entity
	DecisionShared
)

// Grant carries an access decision together with the effective permission
// level. Permission is only meaningful for DecisionShared; owners hold full
// access implicitly.
type Grant struct {
	Decision   Decision
	Permission models.Permission
}

// Authorize decides access for callerID on an entity owned by ownerID.
// share is the share row for (entity, caller) when one exists, nil otherwise.
// Ownership never requires a share row, and a share row never elevates a
// non-owner beyond its own permission level.
func Authorize(ownerID, callerID string, share *models.Share) Grant {
	if callerID != "" && callerID == ownerID {
		return Grant{Decision: DecisionOwner}
	}
	if share != nil {
		return Grant{Decision: DecisionShared, Permission: share.PermissionLevel}
	}
	return Grant{Decision: DecisionDenied}
}
