package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
	"github.com/magabrotheeeer/venture-billing/internal/migrations"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
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
				WithStartupTimeout(time.Minute),
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
	t.Cleanup(func() { _ = storage.Close() })

	path, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	_, err = migrations.Run(storage.DB, path)
	require.NoError(t, err)
	return storage
}

// TestDataFactory создает тестовые данные.
type TestDataFactory struct {
	storage *Storage
	seq     int
}

// NewTestDataFactory создает фабрику.
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser регистрирует пользователя с ролью и возвращает UID.
func (f *TestDataFactory) CreateUser(t *testing.T, email string, role roles.Role) string {
	t.Helper()
	id, err := f.storage.RegisterUser(context.Background(), models.User{
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
	})
	require.NoError(t, err)
	return id
}

// CreatePendingPayment создает pending платеж и возвращает его.
func (f *TestDataFactory) CreatePendingPayment(t *testing.T, userID string, pType models.PaymentType, gw models.Gateway) *models.PaymentRecord {
	t.Helper()
	f.seq++
	ref := models.NewReference(pType, userID, time.Now().Add(time.Duration(f.seq)*time.Millisecond))
	_, err := f.storage.CreatePayment(context.Background(), models.PaymentRecord{
		UserID:    userID,
		Amount:    decimal.RequireFromString("16005"),
		AmountUSD: decimal.RequireFromString("10"),
		Currency:  "NGN",
		Type:      pType,
		Gateway:   gw,
		Reference: ref,
		GatewayMetadata: models.GatewayMetadata{
			Rate: "1600.5",
		},
	})
	require.NoError(t, err)
	p, err := f.storage.GetPaymentByReference(context.Background(), ref)
	require.NoError(t, err)
	return p
}
