package integration

import (
	"context"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AsukuOnukaba/tingle-sub000/internal/subscription"
	"github.com/AsukuOnukaba/tingle-sub000/internal/transfer"
	"github.com/AsukuOnukaba/tingle-sub000/internal/wallet"
)

func TestSubscribe_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	database := setupTestDB(t)
	defer database.Close()

	cleanDatabase(t, database)

	ctx := context.Background()
	walletRepo := wallet.NewRepository(database)
	subRepo := subscription.NewRepository(database)

	fees, err := transfer.NewFeeSchedule(0.30, 0.20, 0.15)
	require.NoError(t, err)
	transfers := transfer.NewService(walletRepo, fees, nil, 0)
	svc := subscription.NewService(subRepo, transfers, nil)

	fanID := createTestUser(t, database, "fan@test.com", "Fan User", "fan")
	creatorID := createTestUser(t, database, "creator@test.com", "Creator User", "creator")

	_, err = walletRepo.Credit(ctx, fanID, 1_000_000, "topup:int-sub", wallet.CategoryTopUp, "wallet top-up")
	require.NoError(t, err)

	plan, err := subRepo.CreatePlan(ctx, creatorID, "Backstage", 500_000, 30)
	require.NoError(t, err)

	resp, err := svc.Subscribe(ctx, fanID, plan.ID)
	require.NoError(t, err)
	require.True(t, resp.Subscription.Current(time.Now()))
	assert.Equal(t, int64(500_000), resp.AmountKobo)
	assert.Equal(t, int64(100_000), resp.FeeKobo)

	// Fan paid gross, creator received net of the 20% platform fee.
	fanWallet, err := walletRepo.GetOrCreateWallet(ctx, fanID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), fanWallet.BalanceKobo)

	creatorWallet, err := walletRepo.GetOrCreateWallet(ctx, creatorID)
	require.NoError(t, err)
	assert.Equal(t, int64(400_000), creatorWallet.BalanceKobo)

	firstExpiry := resp.Subscription.ExpiresAt

	// Renewing extends the same row rather than inserting a second one.
	renewal, err := svc.Subscribe(ctx, fanID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Subscription.ID, renewal.Subscription.ID)
	assert.True(t, renewal.Subscription.ExpiresAt.After(firstExpiry))

	subs, err := subRepo.ListBySubscriber(ctx, fanID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
}

func TestSubscribe_InsufficientBalanceLeavesNoGrant_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	database := setupTestDB(t)
	defer database.Close()

	cleanDatabase(t, database)

	ctx := context.Background()
	walletRepo := wallet.NewRepository(database)
	subRepo := subscription.NewRepository(database)

	fees, err := transfer.NewFeeSchedule(0.30, 0.20, 0.15)
	require.NoError(t, err)
	transfers := transfer.NewService(walletRepo, fees, nil, 0)
	svc := subscription.NewService(subRepo, transfers, nil)

	fanID := createTestUser(t, database, "fan@test.com", "Fan User", "fan")
	creatorID := createTestUser(t, database, "creator@test.com", "Creator User", "creator")

	plan, err := subRepo.CreatePlan(ctx, creatorID, "Backstage", 500_000, 30)
	require.NoError(t, err)

	_, err = svc.Subscribe(ctx, fanID, plan.ID)
	require.ErrorIs(t, err, wallet.ErrInsufficientBalance)

	active, err := subRepo.HasActive(ctx, fanID, creatorID)
	require.NoError(t, err)
	assert.False(t, active)
}
