package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSubscriptionMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewRepository(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func subscriptionColumns() []string {
	return []string{"id", "subscriber_id", "creator_id", "plan_id", "amount_paid", "is_active", "expires_at", "created_at", "updated_at"}
}

func TestGrantUpserts(t *testing.T) {
	repo, mock := setupSubscriptionMock(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO subscriptions`).
		WithArgs(42, 7, 3, int64(500000), 30).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns()).
			AddRow(1, 42, 7, 3, int64(500000), true, now.AddDate(0, 0, 30), now, now))

	sub, err := repo.Grant(context.Background(), 42, 7, 3, 500000, 30)

	require.NoError(t, err)
	assert.True(t, sub.IsActive)
	assert.Equal(t, 3, sub.PlanID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBySubscriberAndCreator_FlipsLapsedRow(t *testing.T) {
	repo, mock := setupSubscriptionMock(t)
	now := time.Now()

	// Lazy expiry runs before the read.
	mock.ExpectExec(`UPDATE subscriptions`).
		WithArgs(42, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT`).
		WithArgs(42, 7).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns()).
			AddRow(1, 42, 7, 3, int64(500000), false, now.Add(-time.Hour), now.AddDate(0, 0, -31), now))

	sub, err := repo.GetBySubscriberAndCreator(context.Background(), 42, 7)

	require.NoError(t, err)
	assert.False(t, sub.IsActive)
	assert.False(t, sub.Current(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBySubscriberAndCreator_NoRowIsNil(t *testing.T) {
	repo, mock := setupSubscriptionMock(t)

	mock.ExpectExec(`UPDATE subscriptions`).
		WithArgs(42, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT`).
		WithArgs(42, 7).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns()))

	sub, err := repo.GetBySubscriberAndCreator(context.Background(), 42, 7)

	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestDeactivate(t *testing.T) {
	repo, mock := setupSubscriptionMock(t)

	t.Run("active row deactivated", func(t *testing.T) {
		mock.ExpectExec(`UPDATE subscriptions`).
			WithArgs(42, 7).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.Deactivate(context.Background(), 42, 7)

		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("nothing to deactivate", func(t *testing.T) {
		mock.ExpectExec(`UPDATE subscriptions`).
			WithArgs(42, 8).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.Deactivate(context.Background(), 42, 8)

		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestHasActive(t *testing.T) {
	repo, mock := setupSubscriptionMock(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(42, 7).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.HasActive(context.Background(), 42, 7)

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExpireLapsed(t *testing.T) {
	repo, mock := setupSubscriptionMock(t)

	mock.ExpectExec(`UPDATE subscriptions`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	flipped, err := repo.ExpireLapsed(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), flipped)
}
