package sharing

import (
	"context"
	"database/sql"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeCtxKey string

// fakeTxStamp marks the context a fakeDB returns from GetTx, standing in
// for the open-transaction marker the real handle sets.
const fakeTxStamp = fakeCtxKey("fake-tx-open")

// fakeDB serves canned rows so read paths can run without a store.
type fakeDB struct {
	record testRecord
	tx     *fakeTx
}

func (f *fakeDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	if d, ok := dest.(*testRecord); ok {
		*d = f.record
		return nil
	}
	return sql.ErrNoRows
}

func (f *fakeDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}

func (f *fakeDB) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	return nil, nil
}

func (f *fakeDB) NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error) {
	return nil, nil
}

func (f *fakeDB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, nil
}

func (f *fakeDB) PingContext(ctx context.Context) error { return nil }
func (f *fakeDB) Close() error                          { return nil }

func (f *fakeDB) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	return context.WithValue(ctx, fakeTxStamp, true), f.tx, nil
}

// fakeTx records commit/rollback calls and serves a canned share row.
type fakeTx struct {
	share       *models.Share
	committed   bool
	rollbackCtx context.Context
}

func (f *fakeTx) IsOpen() bool { return !f.committed }

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	f.rollbackCtx = ctx
	return nil
}

func (f *fakeTx) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	if d, ok := dest.(*models.Share); ok && f.share != nil {
		*d = *f.share
		return nil
	}
	return sql.ErrNoRows
}

func (f *fakeTx) Get(dest any, query string, args ...any) error {
	return f.GetContext(context.Background(), dest, query, args...)
}

func (f *fakeTx) Exec(query string, args ...any) (sql.Result, error) { return nil, nil }

func (f *fakeTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}

func (f *fakeTx) Select(dest any, query string, args ...any) error { return nil }

func (f *fakeTx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

func (f *fakeTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}

func (f *fakeTx) QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row {
	return nil
}

func (f *fakeTx) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	return nil, nil
}

func (f *fakeTx) Rebind(query string) string { return query }

func TestResolveCandidate(t *testing.T) {
	alice := models.ShareCandidate{ID: "u-1", Email: "alice@example.com", Name: "Alice"}
	alison := models.ShareCandidate{ID: "u-2", Email: "alison@example.com", Name: "Alison"}

	tests := []struct {
		name       string
		candidates []models.ShareCandidate
		query      string
		want       *models.ShareCandidate
	}{
		{
			name:       "no candidates resolves to nil",
			candidates: nil,
			query:      "alice@example.com",
			want:       nil,
		},
		{
			name:       "exact email match wins over earlier candidates",
			candidates: []models.ShareCandidate{alison, alice},
			query:      "alice@example.com",
			want:       &alice,
		},
		{
			name:       "email match is case insensitive",
			candidates: []models.ShareCandidate{alison, alice},
			query:      "ALICE@Example.COM",
			want:       &alice,
		},
		{
			name:       "falls back to the first candidate",
			candidates: []models.ShareCandidate{alison, alice},
			query:      "ali",
			want:       &alison,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveCandidate(tt.candidates, tt.query)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.ShareForeignKeyColumn = ""

	svc, err := NewService[testRecord, NoItems](nil, testLogger(), cfg)

	assert.Nil(t, svc)
	assert.ErrorContains(t, err, "explicit foreign key column")
}

// the capability guards run before any store access, so a nil handle proves
// the guard fires first
func TestServiceCapabilityGuards(t *testing.T) {
	ctx := context.Background()

	cfg := validConfig()
	cfg.ShareTable = ""
	cfg.ShareForeignKeyColumn = ""
	cfg.SharedUsersProcedure = ""
	cfg.ItemsTable = ""
	cfg.ItemsForeignKeyColumn = ""

	svc, err := NewService[testRecord, NoItems](nil, testLogger(), cfg)
	require.NoError(t, err)

	t.Run("listing requires share support", func(t *testing.T) {
		_, err := svc.ListWithPermissions(ctx, "user-1")
		assert.ErrorIs(t, err, ErrSharingUnsupported)
	})

	t.Run("shared users requires share support", func(t *testing.T) {
		_, err := svc.SharedUsers(ctx, "entity-1")
		assert.ErrorIs(t, err, ErrSharingUnsupported)
	})

	t.Run("share requires share support", func(t *testing.T) {
		err := svc.Share(ctx, "entity-1", "alice@example.com", models.PermissionView, "user-1")
		assert.ErrorIs(t, err, ErrSharingUnsupported)
	})

	t.Run("unshare requires share support", func(t *testing.T) {
		err := svc.Unshare(ctx, "entity-1", "user-2")
		assert.ErrorIs(t, err, ErrSharingUnsupported)
	})

	t.Run("permission update requires share support", func(t *testing.T) {
		err := svc.UpdateSharePermission(ctx, "entity-1", "user-2", models.PermissionEdit)
		assert.ErrorIs(t, err, ErrSharingUnsupported)
	})

	t.Run("item batch insert requires item support", func(t *testing.T) {
		err := svc.CreateItems(ctx, []NoItems{{}})
		assert.ErrorIs(t, err, ErrItemsUnsupported)
	})

	t.Run("item batch delete requires item support", func(t *testing.T) {
		err := svc.DeleteItems(ctx, []string{"item-1"})
		assert.ErrorIs(t, err, ErrItemsUnsupported)
	})

	t.Run("item id listing requires item support", func(t *testing.T) {
		_, err := svc.ItemIDs(ctx, "entity-1")
		assert.ErrorIs(t, err, ErrItemsUnsupported)
	})
}

func TestGetWithItemsOnUnsharedKind(t *testing.T) {
	ctx := context.Background()

	cfg := validConfig()
	cfg.ShareTable = ""
	cfg.ShareForeignKeyColumn = ""
	cfg.SharedUsersProcedure = ""
	cfg.ItemsTable = ""
	cfg.ItemsForeignKeyColumn = ""

	db := &fakeDB{record: testRecord{ID: "e-1", OwnerID: "u-1"}}
	svc, err := NewService[testRecord, NoItems](db, testLogger(), cfg)
	require.NoError(t, err)

	t.Run("owner reads with no permission level", func(t *testing.T) {
		got, err := svc.GetWithItems(ctx, "e-1", "u-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.PermissionLevel)
	})

	t.Run("non-owner read is sharing-unsupported, not denied", func(t *testing.T) {
		_, err := svc.GetWithItems(ctx, "e-1", "u-2")
		assert.ErrorIs(t, err, ErrSharingUnsupported)
	})
}

func TestShareInsertRollsBackOnExistingGrant(t *testing.T) {
	ctx := context.Background()

	tx := &fakeTx{share: &models.Share{
		ID:               "s-1",
		EntityID:         "e-1",
		SharedWithUserID: "u-2",
		PermissionLevel:  models.PermissionView,
	}}
	db := &fakeDB{tx: tx}

	svc, err := NewService[testRecord, NoItems](db, testLogger(), validConfig())
	require.NoError(t, err)

	err = svc.insertShare(ctx, "e-1", "u-2", models.PermissionView, "u-1")

	var already *AlreadySharedError
	require.ErrorAs(t, err, &already)
	assert.False(t, tx.committed)

	// the rollback must run with the ctx from before the tx was opened so
	// it closes the tx this call began instead of no-oping on the open marker
	require.NotNil(t, tx.rollbackCtx)
	assert.Nil(t, tx.rollbackCtx.Value(fakeTxStamp))
}

func TestEmptyItemBatchesAreNoOps(t *testing.T) {
	ctx := context.Background()

	// nil handle again: an empty batch must return before touching the store
	svc, err := NewService[testRecord, NoItems](nil, testLogger(), validConfig())
	require.NoError(t, err)

	assert.NoError(t, svc.CreateItems(ctx, nil))
	assert.NoError(t, svc.DeleteItems(ctx, nil))
}
