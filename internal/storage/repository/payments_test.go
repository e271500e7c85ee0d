package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/venture-billing/internal/lib/roles"
	"github.com/magabrotheeeer/venture-billing/internal/models"
)

func TestStorage_CompletePayment_AppliesOneUnlock(t *testing.T) {
	storage := setupTestDatabase(t)
	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	tests := []struct {
		name  string
		role  roles.Role
		pType models.PaymentType
		check func(t *testing.T, userID string)
	}{
		{
			name:  "setup fee",
			role:  roles.Founder,
			pType: models.PaymentSetupFee,
			check: func(t *testing.T, userID string) {
				u, err := storage.GetUser(ctx, userID)
				require.NoError(t, err)
				assert.True(t, u.SetupPaid)
			},
		},
		{
			name:  "talent marketplace fee",
			role:  roles.Talent,
			pType: models.PaymentTalentMarketplaceFee,
			check: func(t *testing.T, userID string) {
				paid, err := storage.GetProfileFeePaid(ctx, userID, roles.Talent)
				require.NoError(t, err)
				assert.True(t, paid)
				u, err := storage.GetUser(ctx, userID)
				require.NoError(t, err)
				assert.False(t, u.SetupPaid)
			},
		},
		{
			name:  "hirer platform fee",
			role:  roles.Hirer,
			pType: models.PaymentHirerPlatformFee,
			check: func(t *testing.T, userID string) {
				p, err := storage.GetHirerProfile(ctx, userID)
				require.NoError(t, err)
				assert.True(t, p.FeePaid)
				assert.True(t, p.Verified)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := factory.CreateUser(t, tt.name+"@example.com", tt.role)
			p := factory.CreatePendingPayment(t, userID, tt.pType, models.GatewayPaystack)

			ok, err := storage.CompletePayment(ctx, p.ID, models.GatewayMetadata{CompletedBy: "webhook", ProviderRef: "ps_1"})
			require.NoError(t, err)
			assert.True(t, ok)
			tt.check(t, userID)

			got, err := storage.GetPaymentByReference(ctx, p.Reference)
			require.NoError(t, err)
			assert.Equal(t, models.PaymentCompleted, got.Status)
			assert.NotNil(t, got.CompletedAt)
			assert.Equal(t, "webhook", got.GatewayMetadata.CompletedBy)
			assert.Equal(t, "1600.5", got.GatewayMetadata.Rate, "metadata is merged, not replaced")
		})
	}
}

func TestStorage_CompletePayment_ConcurrentExactlyOnce(t *testing.T) {
	storage := setupTestDatabase(t)
	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	userID := factory.CreateUser(t, "race@example.com", roles.Founder)
	p := factory.CreatePendingPayment(t, userID, models.PaymentSetupFee, models.GatewayStripe)

	const workers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := storage.CompletePayment(ctx, p.ID, models.GatewayMetadata{CompletedBy: "webhook"})
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	_, err := storage.GetPendingPaymentByReference(ctx, p.Reference)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestStorage_TerminalStatesAreFinal(t *testing.T) {
	storage := setupTestDatabase(t)
	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	userID := factory.CreateUser(t, "terminal@example.com", roles.Founder)

	completed := factory.CreatePendingPayment(t, userID, models.PaymentSetupFee, models.GatewayStripe)
	ok, err := storage.CompletePayment(ctx, completed.ID, models.GatewayMetadata{})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = storage.FailPayment(ctx, completed.ID, models.GatewayMetadata{Error: "late failure"})
	require.NoError(t, err)
	assert.False(t, ok)

	failed := factory.CreatePendingPayment(t, userID, models.PaymentSetupFee, models.GatewayStripe)
	ok, err = storage.FailPayment(ctx, failed.ID, models.GatewayMetadata{Error: "timeout"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = storage.CompletePayment(ctx, failed.ID, models.GatewayMetadata{})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := storage.GetPaymentByReference(ctx, failed.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentFailed, got.Status)
	assert.Equal(t, "timeout", got.GatewayMetadata.Error)
}

func TestStorage_CreatePayment_DuplicateReference(t *testing.T) {
	storage := setupTestDatabase(t)
	ctx := context.Background()
	factory := NewTestDataFactory(storage)
	userID := factory.CreateUser(t, "dup@example.com", roles.Founder)
	p := factory.CreatePendingPayment(t, userID, models.PaymentSetupFee, models.GatewayStripe)

	_, err := storage.CreatePayment(ctx, *p)
	require.ErrorIs(t, err, models.ErrValidation)

	list, err := storage.ListPaymentsByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
