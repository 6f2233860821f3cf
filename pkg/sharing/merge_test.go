package sharing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/models"
)

type testRecord struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time
}

func (r testRecord) RecordID() string           { return r.ID }
func (r testRecord) RecordOwnerID() string      { return r.OwnerID }
func (r testRecord) RecordCreatedAt() time.Time { return r.CreatedAt }

func ownedAt(id string, at time.Time) WithPermission[testRecord] {
	isShared := false
	return WithPermission[testRecord]{
		Entity:   testRecord{ID: id, CreatedAt: at},
		IsShared: &isShared,
	}
}

func sharedAt(id string, at time.Time) WithPermission[testRecord] {
	perm := models.PermissionView
	return WithPermission[testRecord]{
		Entity:          testRecord{ID: id, CreatedAt: at},
		PermissionLevel: &perm,
	}
}

func mergedIDs(list []WithPermission[testRecord]) []string {
	ids := make([]string, 0, len(list))
	for _, e := range list {
		ids = append(ids, e.Entity.ID)
	}
	return ids
}

func TestMergeByCreatedAt(t *testing.T) {
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	t.Run("newest first across both inputs", func(t *testing.T) {
		owned := []WithPermission[testRecord]{
			ownedAt("o-old", base.Add(-2*time.Hour)),
			ownedAt("o-new", base.Add(3*time.Hour)),
		}
		shared := []WithPermission[testRecord]{
			sharedAt("s-mid", base),
		}

		got := MergeByCreatedAt(owned, shared)

		assert.Equal(t, []string{"o-new", "s-mid", "o-old"}, mergedIDs(got))
	})

	t.Run("equal timestamps keep owned before shared", func(t *testing.T) {
		owned := []WithPermission[testRecord]{ownedAt("o-1", base)}
		shared := []WithPermission[testRecord]{sharedAt("s-1", base)}

		got := MergeByCreatedAt(owned, shared)

		assert.Equal(t, []string{"o-1", "s-1"}, mergedIDs(got))
	})

	t.Run("zero timestamps sort last", func(t *testing.T) {
		owned := []WithPermission[testRecord]{ownedAt("o-zero", time.Time{})}
		shared := []WithPermission[testRecord]{sharedAt("s-1", base)}

		got := MergeByCreatedAt(owned, shared)

		assert.Equal(t, []string{"s-1", "o-zero"}, mergedIDs(got))
	})

	t.Run("both empty yields empty non-nil list", func(t *testing.T) {
		got := MergeByCreatedAt[testRecord](nil, nil)

		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("relationship markers survive the merge", func(t *testing.T) {
		owned := []WithPermission[testRecord]{ownedAt("o-1", base.Add(time.Hour))}
		shared := []WithPermission[testRecord]{sharedAt("s-1", base)}

		got := MergeByCreatedAt(owned, shared)

		assert.Len(t, got, 2)
		assert.NotNil(t, got[0].IsShared)
		assert.Nil(t, got[0].PermissionLevel)
		assert.Nil(t, got[1].IsShared)
		assert.NotNil(t, got[1].PermissionLevel)
	})
}
