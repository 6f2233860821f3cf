package sharing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var (
	// ErrSharingUnsupported is returned when a share operation is invoked on
	// an entity kind with no share table configured
	ErrSharingUnsupported = errors.New("sharing is not supported for this entity kind")
	// ErrItemsUnsupported is returned when an item batch operation is
	// invoked on an entity kind with no items table configured
	ErrItemsUnsupported = errors.New("line items are not supported for this entity kind")
)

// DuplicateNameError reports a store uniqueness violation on the entity
// kind's configured name constraint
type DuplicateNameError struct {
	TypeName string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a %s with this name already exists", strings.ToLower(e.TypeName))
}

// AccessDeniedError reports a non-owner read with no matching share
type AccessDeniedError struct {
	TypeName string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("you do not have access to this %s", strings.ToLower(e.TypeName))
}

// UserNotFoundError reports that share-target resolution yielded no candidate
type UserNotFoundError struct {
	Query string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("no user found matching %q", e.Query)
}

// AlreadySharedError reports an attempt to share an entity with a user who
// already holds a share on it
type AlreadySharedError struct {
	TypeName string
}

func (e *AlreadySharedError) Error() string {
	return fmt.Sprintf("this %s is already shared with that user", strings.ToLower(e.TypeName))
}

const uniqueViolation = pq.ErrorCode("23505")

// translateConflict maps a uniqueness violation on the configured constraint
// to a DuplicateNameError. Every other store error passes through unmodified
// so callers can inspect backend detail.
func translateConflict(err error, constraint, typeName string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == constraint {
		return &DuplicateNameError{TypeName: typeName}
	}
	return err
}
