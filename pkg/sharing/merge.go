package sharing

import (
	"sort"

	"github.com/Ramsey-B/clover/pkg/models"
)

// WithPermission wraps an entity row with the caller's relationship to it.
// IsShared is set on owned rows, PermissionLevel on shared rows; the unset
// field is omitted from the JSON form.
type WithPermission[R Record] struct {
	Entity          R                  `json:"entity"`
	IsShared        *bool              `json:"is_shared,omitempty"`
	PermissionLevel *models.Permission `json:"permission_level,omitempty"`
}

// MergeByCreatedAt combines owned and shared rows into one list ordered by
// creation time, newest first. The sort is stable, so rows with equal
// timestamps keep their owned-before-shared order, and zero timestamps sink
// to the end.
func MergeByCreatedAt[R Record](owned, shared []WithPermission[R]) []WithPermission[R] {
	merged := make([]WithPermission[R], 0, len(owned)+len(shared))
	merged = append(merged, owned...)
	merged = append(merged, shared...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Entity.RecordCreatedAt().After(merged[j].Entity.RecordCreatedAt())
	})
	return merged
}
