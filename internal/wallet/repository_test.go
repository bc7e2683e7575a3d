package wallet

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWalletMock(t *testing.T) (*Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	closer := func() { sqlxDB.Close() }
	return repo, mock, closer
}

func walletRows(id, userID int, balance int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "balance_kobo", "currency", "created_at", "updated_at"}).
		AddRow(id, userID, balance, "NGN", time.Now(), time.Now())
}

func transactionColumns() []string {
	return []string{"id", "wallet_id", "user_id", "type", "category", "amount_kobo", "balance_after", "reference", "description", "status", "created_at"}
}

func expectNoPriorReference(mock sqlmock.Sqlmock, reference string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + selectTransactionColumns + " FROM wallet_transactions WHERE reference = $1")).
		WithArgs(reference).
		WillReturnError(sql.ErrNoRows)
}

func TestGetOrCreateWallet_WhenNotExists(t *testing.T) {
	repo, mock, closer := setupWalletMock(t)
	defer closer()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM wallets WHERE user_id = $1")).
		WithArgs(10).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectQuery("INSERT INTO wallets").
		WithArgs(10).
		WillReturnRows(walletRows(5, 10, 0))

	w, err := repo.GetOrCreateWallet(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 5, w.ID)
	assert.Equal(t, int64(0), w.BalanceKobo)
}

func TestDebit_Success(t *testing.T) {
	repo, mock, closer := setupWalletMock(t)
	defer closer()

	mock.ExpectBegin()
	expectNoPriorReference(mock, "tip:abc:debit")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, balance_kobo, currency, created_at, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE")).
		WithArgs(20).
		WillReturnRows(walletRows(7, 20, 500000))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets SET balance_kobo = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs(int64(400000), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("INSERT INTO wallet_transactions").
		WithArgs(7, 20, TypeDebit, CategoryTipSent, int64(100000), int64(400000), "tip:abc:debit", "tip to creator").
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(1, 7, 20, TypeDebit, CategoryTipSent, 100000, 400000, "tip:abc:debit", "tip to creator", StatusCompleted, time.Now()))

	mock.ExpectCommit()

	txn, err := repo.Debit(context.Background(), 20, 100000, "tip:abc:debit", CategoryTipSent, "tip to creator")
	require.NoError(t, err)
	assert.Equal(t, TypeDebit, txn.Type)
	assert.Equal(t, int64(400000), txn.BalanceAfter)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebit_InsufficientBalance(t *testing.T) {
	repo, mock, closer := setupWalletMock(t)
	defer closer()

	mock.ExpectBegin()
	expectNoPriorReference(mock, "ref3")

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(20).
		WillReturnRows(walletRows(7, 20, 5000))

	mock.ExpectRollback()

	txn, err := repo.Debit(context.Background(), 20, 10000, "ref3", CategoryPurchase, "")
	require.Error(t, err)
	assert.Nil(t, txn)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	var insufficient *InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(5000), insufficient.Shortfall())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebit_ReplaysDuplicateReference(t *testing.T) {
	repo, mock, closer := setupWalletMock(t)
	defer closer()

	mock.ExpectBegin()

	// Prior transaction with same reference already exists: return it,
	// apply nothing.
	mock.ExpectQuery(regexp.QuoteMeta("WHERE reference = $1")).
		WithArgs("ref1").
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(9, 7, 20, TypeDebit, CategoryPurchase, 10000, 90000, "ref1", "", StatusCompleted, time.Now()))

	mock.ExpectRollback()

	txn, err := repo.Debit(context.Background(), 20, 10000, "ref1", CategoryPurchase, "")
	require.NoError(t, err)
	assert.Equal(t, 9, txn.ID)
	assert.Equal(t, int64(90000), txn.BalanceAfter)
	assert.True(t, txn.Replayed, "duplicate reference must be flagged as a replay")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDebit_UniqueViolationRaceReplays(t *testing.T) {
	repo, mock, closer := setupWalletMock(t)
	defer closer()

	mock.ExpectBegin()
	expectNoPriorReference(mock, "ref1")

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(20).
		WillReturnRows(walletRows(7, 20, 100000))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(int64(90000), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// A concurrent request with the same reference won the insert race.
	mock.ExpectQuery("INSERT INTO wallet_transactions").
		WillReturnError(&pq.Error{Code: "23505"})

	// The loser re-reads the winner's row outside the open transaction,
	// then the deferred rollback fires.
	mock.ExpectQuery(regexp.QuoteMeta("WHERE reference = $1")).
		WithArgs("ref1").
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(11, 7, 20, TypeDebit, CategoryPurchase, 10000, 90000, "ref1", "", StatusCompleted, time.Now()))

	mock.ExpectRollback()

	txn, err := repo.Debit(context.Background(), 20, 10000, "ref1", CategoryPurchase, "")
	require.NoError(t, err)
	assert.Equal(t, 11, txn.ID)
	assert.True(t, txn.Replayed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredit_ProvisionsWalletOnFirstUse(t *testing.T) {
	repo, mock, closer := setupWalletMock(t)
	defer closer()

	mock.ExpectBegin()
	expectNoPriorReference(mock, "topup:ref-1")

	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(33).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectQuery("INSERT INTO wallets").
		WithArgs(33).
		WillReturnRows(walletRows(12, 33, 0))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE wallets")).
		WithArgs(int64(250000), 12).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("INSERT INTO wallet_transactions").
		WithArgs(12, 33, TypeCredit, CategoryTopUp, int64(250000), int64(250000), "topup:ref-1", "card top-up").
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(2, 12, 33, TypeCredit, CategoryTopUp, 250000, 250000, "topup:ref-1", "card top-up", StatusCompleted, time.Now()))

	mock.ExpectCommit()

	txn, err := repo.Credit(context.Background(), 33, 250000, "topup:ref-1", CategoryTopUp, "card top-up")
	require.NoError(t, err)
	assert.Equal(t, int64(250000), txn.BalanceAfter)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_RejectsInvalidInput(t *testing.T) {
	repo, _, closer := setupWalletMock(t)
	defer closer()

	_, err := repo.Debit(context.Background(), 1, 0, "ref", CategoryPurchase, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = repo.Debit(context.Background(), 1, -50, "ref", CategoryPurchase, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = repo.Credit(context.Background(), 1, 100, "", CategoryTopUp, "")
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestFindTransactionByReference_NotFoundIsNil(t *testing.T) {
	repo, mock, closer := setupWalletMock(t)
	defer closer()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE reference = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	txn, err := repo.FindTransactionByReference(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, txn)
}

func TestListTransactionsRepository(t *testing.T) {
	repo, mock, closer := setupWalletMock(t)
	defer closer()

	mock.ExpectQuery("SELECT .+ FROM wallet_transactions").
		WithArgs(20, 50, 0).
		WillReturnRows(sqlmock.NewRows(transactionColumns()).
			AddRow(2, 7, 20, TypeCredit, CategoryTipReceived, 70000, 270000, "tip:abc:credit", "", StatusCompleted, time.Now()).
			AddRow(1, 7, 20, TypeCredit, CategoryTopUp, 200000, 200000, "topup:1", "", StatusCompleted, time.Now().Add(-time.Hour)))

	txs, err := repo.ListTransactions(context.Background(), 20, 0, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "tip:abc:credit", txs[0].Reference)
}

func TestInsufficientBalanceErrorUnwraps(t *testing.T) {
	err := &InsufficientBalanceError{BalanceKobo: 5000, AmountKobo: 10000}
	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	assert.Equal(t, int64(5000), err.Shortfall())
	assert.Contains(t, err.Error(), "5000")
}

// Folding a transaction history through balance_after must reproduce each
// snapshot from the prior one plus/minus the amount.
func TestTransactionChainReplays(t *testing.T) {
	history := []Transaction{
		{Type: TypeCredit, AmountKobo: 500000, BalanceAfter: 500000},
		{Type: TypeDebit, AmountKobo: 100000, BalanceAfter: 400000},
		{Type: TypeCredit, AmountKobo: 70000, BalanceAfter: 470000},
		{Type: TypeDebit, AmountKobo: 470000, BalanceAfter: 0},
	}

	var balance int64
	for _, txn := range history {
		if txn.Type == TypeCredit {
			balance += txn.AmountKobo
		} else {
			balance -= txn.AmountKobo
		}
		require.Equal(t, txn.BalanceAfter, balance)
		require.GreaterOrEqual(t, balance, int64(0))
	}
}
