package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/saas-billing/internal/migrations"
	"github.com/magabrotheeeer/saas-billing/internal/models"
)

func setupTestDatabase(t *testing.T) *Storage {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(storage.Close)

	root, err := filepath.Abs("../..")
	require.NoError(t, err)
	require.NoError(t, migrations.RunPool(storage.Pool, filepath.Join(root, "migrations")))
	require.NoError(t, storage.CheckDatabaseReady(ctx))

	return storage
}

func TestIntegration_CustomerUpsert(t *testing.T) {
	storage := setupTestDatabase(t)
	ctx := context.Background()

	first, err := storage.UpsertCustomer(ctx, models.CustomerUpsert{
		UserID: "user-1", BillingCustomerID: "cus_1", Email: "a@example.com", Name: "Alice",
	})
	require.NoError(t, err)

	second, err := storage.UpsertCustomer(ctx, models.CustomerUpsert{
		UserID: "user-1", BillingCustomerID: "cus_1", Email: "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice@example.com", second.Email)
	assert.Equal(t, "Alice", second.Name)

	byBilling, err := storage.GetCustomerByBillingID(ctx, "cus_1")
	require.NoError(t, err)
	require.NotNil(t, byBilling)
	assert.Equal(t, "user-1", byBilling.UserID)
}

func TestIntegration_SubscriptionLifecycle(t *testing.T) {
	storage := setupTestDatabase(t)
	ctx := context.Background()

	in := models.SubscriptionUpsert{
		UserID: "user-1", BillingSubscriptionID: "sub_1", PriceID: "price_1", ProductID: "prod_1",
		Status: "active", CurrentPeriodEnd: 1000,
	}
	created, err := storage.UpsertSubscription(ctx, in)
	require.NoError(t, err)

	in.UserID = "someone-else"
	in.Status = "past_due"
	in.CurrentPeriodEnd = 2000
	in.CancelAtPeriodEnd = true
	updated, err := storage.UpsertSubscription(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "user-1", updated.UserID)
	assert.Equal(t, "past_due", updated.Status)
	assert.Equal(t, int64(2000), updated.CurrentPeriodEnd)
	assert.True(t, updated.CancelAtPeriodEnd)

	list, err := storage.ListSubscriptionsByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	owner, err := storage.RemoveSubscription(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", owner)

	owner, err = storage.RemoveSubscription(ctx, "sub_1")
	require.NoError(t, err)
	assert.Empty(t, owner)

	got, err := storage.GetSubscriptionByBillingID(ctx, "sub_1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
