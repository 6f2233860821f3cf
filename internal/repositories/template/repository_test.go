package template

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/sharing"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestConfig(t *testing.T) {
	require.NoError(t, Config.Validate())
	assert.True(t, Config.Shareable())
	assert.True(t, Config.HasItems())
}

// setupDB connects to the migrated test database named by
// CLOVER_TEST_DATABASE_URL, skipping when it is not configured.
func setupDB(t *testing.T) database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := os.Getenv("CLOVER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CLOVER_TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return database.NewDatabaseInstance(db, testLogger())
}

func seedUser(t *testing.T, db database.DB, email, name string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.ExecContext(context.Background(),
		"INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)",
		id, email, name, time.Now().UTC())
	require.NoError(t, err)
	return id
}

func TestTemplateSharingLifecycle(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	repo, err := NewRepository(db, testLogger())
	require.NoError(t, err)

	suffix := uuid.New().String()[:8]
	ownerEmail := fmt.Sprintf("owner-%s@clover.test", suffix)
	recipientEmail := fmt.Sprintf("recipient-%s@clover.test", suffix)
	ownerID := seedUser(t, db, ownerEmail, "Owner "+suffix)
	recipientID := seedUser(t, db, recipientEmail, "Recipient "+suffix)

	created, err := repo.Create(ctx, ownerID, models.CreateTemplateRequest{
		Name:        "Groceries " + suffix,
		Description: "weekly groceries",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	t.Run("duplicate name for the same owner is rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, ownerID, models.CreateTemplateRequest{
			Name: "Groceries " + suffix,
		})
		var dup *sharing.DuplicateNameError
		assert.ErrorAs(t, err, &dup)
	})

	t.Run("the same name under another owner is allowed", func(t *testing.T) {
		other, err := repo.Create(ctx, recipientID, models.CreateTemplateRequest{
			Name: "Groceries " + suffix,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Delete(ctx, other.ID))
	})

	t.Run("owner reads without a share row", func(t *testing.T) {
		got, err := repo.Get(ctx, created.ID, ownerID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, created.ID, got.Entity.ID)
		assert.Nil(t, got.PermissionLevel)
	})

	t.Run("non-recipient is denied", func(t *testing.T) {
		_, err := repo.Get(ctx, created.ID, recipientID)
		var denied *sharing.AccessDeniedError
		assert.ErrorAs(t, err, &denied)
	})

	t.Run("items are replaced as a batch", func(t *testing.T) {
		categoryID := seedCategory(t, db, ownerID, "Food "+suffix)
		items, err := repo.ReplaceItems(ctx, created.ID, []models.ItemInput{
			{Name: "Milk", CategoryID: categoryID, Amount: decimal.NewFromFloat(4.50)},
			{Name: "Bread", CategoryID: categoryID, Amount: decimal.NewFromFloat(3.25)},
		})
		require.NoError(t, err)
		require.Len(t, items, 2)

		got, err := repo.Get(ctx, created.ID, ownerID)
		require.NoError(t, err)
		assert.Len(t, got.Items, 2)

		replaced, err := repo.ReplaceItems(ctx, created.ID, []models.ItemInput{
			{Name: "Eggs", CategoryID: categoryID, Amount: decimal.NewFromFloat(6.00)},
		})
		require.NoError(t, err)
		require.Len(t, replaced, 1)

		got, err = repo.Get(ctx, created.ID, ownerID)
		require.NoError(t, err)
		require.Len(t, got.Items, 1)
		assert.Equal(t, "Eggs", got.Items[0].Name)
	})

	t.Run("sharing an unknown user fails", func(t *testing.T) {
		err := repo.Share(ctx, created.ID, "nobody-"+suffix+"@clover.test", models.PermissionView, ownerID)
		var notFound *sharing.UserNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("share grants the recipient access", func(t *testing.T) {
		require.NoError(t, repo.Share(ctx, created.ID, recipientEmail, models.PermissionView, ownerID))

		got, err := repo.Get(ctx, created.ID, recipientID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NotNil(t, got.PermissionLevel)
		assert.Equal(t, models.PermissionView, *got.PermissionLevel)
	})

	t.Run("sharing twice with the same user is rejected", func(t *testing.T) {
		err := repo.Share(ctx, created.ID, recipientEmail, models.PermissionEdit, ownerID)
		var already *sharing.AlreadySharedError
		assert.ErrorAs(t, err, &already)
	})

	t.Run("roster lists the recipient", func(t *testing.T) {
		users, err := repo.SharedUsers(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, recipientID, users[0].UserID)
		assert.Equal(t, models.PermissionView, users[0].PermissionLevel)
	})

	t.Run("combined listing annotates both sides", func(t *testing.T) {
		ownerList, err := repo.List(ctx, ownerID)
		require.NoError(t, err)
		require.NotEmpty(t, ownerList)
		require.NotNil(t, ownerList[0].IsShared)
		assert.True(t, *ownerList[0].IsShared)

		recipientList, err := repo.List(ctx, recipientID)
		require.NoError(t, err)
		require.Len(t, recipientList, 1)
		require.NotNil(t, recipientList[0].PermissionLevel)
		assert.Equal(t, models.PermissionView, *recipientList[0].PermissionLevel)
	})

	t.Run("permission update applies to the existing share", func(t *testing.T) {
		require.NoError(t, repo.UpdateSharePermission(ctx, created.ID, recipientID, models.PermissionEdit))

		got, err := repo.Get(ctx, created.ID, recipientID)
		require.NoError(t, err)
		require.NotNil(t, got.PermissionLevel)
		assert.Equal(t, models.PermissionEdit, *got.PermissionLevel)
	})

	t.Run("unshare revokes access and is idempotent", func(t *testing.T) {
		require.NoError(t, repo.Unshare(ctx, created.ID, recipientID))
		require.NoError(t, repo.Unshare(ctx, created.ID, recipientID))

		_, err := repo.Get(ctx, created.ID, recipientID)
		var denied *sharing.AccessDeniedError
		assert.ErrorAs(t, err, &denied)
	})

	t.Run("missing template reads as nil", func(t *testing.T) {
		got, err := repo.Get(ctx, uuid.New().String(), ownerID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func seedCategory(t *testing.T, db database.DB, userID, name string) string {
	t.Helper()
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := db.ExecContext(context.Background(),
		"INSERT INTO categories (id, user_id, name, color, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)",
		id, userID, name, "#00AA00", now, now)
	require.NoError(t, err)
	return id
}
