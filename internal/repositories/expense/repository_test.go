package expense

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
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestConfig(t *testing.T) {
	require.NoError(t, Config.Validate())
	assert.False(t, Config.Shareable())
	assert.False(t, Config.HasItems())
}

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

func TestExpenseFilters(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	repo, err := NewRepository(db, testLogger())
	require.NoError(t, err)

	suffix := uuid.New().String()[:8]
	userID := uuid.New().String()
	_, err = db.ExecContext(ctx,
		"INSERT INTO users (id, email, name, created_at) VALUES ($1, $2, $3, $4)",
		userID, fmt.Sprintf("spender-%s@clover.test", suffix), "Spender "+suffix, time.Now().UTC())
	require.NoError(t, err)

	groceries := seedCategory(t, db, userID, "Groceries "+suffix)
	travel := seedCategory(t, db, userID, "Travel "+suffix)

	jan := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)

	_, err = repo.Create(ctx, userID, models.CreateExpenseRequest{
		Name:       "weekly shop",
		CategoryID: groceries,
		Amount:     decimal.NewFromFloat(82.10),
		SpentAt:    jan,
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, userID, models.CreateExpenseRequest{
		Name:       "train ticket",
		CategoryID: travel,
		Amount:     decimal.NewFromFloat(35.00),
		SpentAt:    feb,
	})
	require.NoError(t, err)

	t.Run("unfiltered listing is most recent first", func(t *testing.T) {
		got, err := repo.List(ctx, userID, models.ExpenseFilter{})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "train ticket", got[0].Name)
		assert.Equal(t, "weekly shop", got[1].Name)
	})

	t.Run("date range filter narrows the window", func(t *testing.T) {
		from := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
		got, err := repo.List(ctx, userID, models.ExpenseFilter{From: &from})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "train ticket", got[0].Name)
	})

	t.Run("category filter", func(t *testing.T) {
		got, err := repo.List(ctx, userID, models.ExpenseFilter{CategoryID: &groceries})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "weekly shop", got[0].Name)
	})

	t.Run("totals group by category", func(t *testing.T) {
		totals, err := repo.TotalsByCategory(ctx, userID, models.ExpenseFilter{})
		require.NoError(t, err)
		require.Len(t, totals, 2)
		assert.Equal(t, groceries, totals[0].CategoryID)
		assert.True(t, totals[0].Total.Equal(decimal.NewFromFloat(82.10)))
	})

	t.Run("another user sees nothing", func(t *testing.T) {
		got, err := repo.List(ctx, uuid.New().String(), models.ExpenseFilter{})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func seedCategory(t *testing.T, db database.DB, userID, name string) string {
	t.Helper()
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := db.ExecContext(context.Background(),
		"INSERT INTO categories (id, user_id, name, color, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)",
		id, userID, name, "#0055FF", now, now)
	require.NoError(t, err)
	return id
}
