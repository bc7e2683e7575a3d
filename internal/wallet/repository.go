package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

const selectTransactionColumns = `id, wallet_id, user_id, type, category, amount_kobo, balance_after, reference, description, status, created_at`

// Repository is the only code path allowed to change a wallet's balance.
// Every mutation runs as a single database transaction: idempotency lookup,
// row lock, balance check, balance update, ledger append.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetOrCreateWallet(ctx context.Context, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w, `SELECT * FROM wallets WHERE user_id = $1`, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = r.db.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = wallets.updated_at
		 RETURNING id, user_id, balance_kobo, currency, created_at, updated_at`,
		userID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// Debit removes amountKobo from the user's balance. It fails with an
// InsufficientBalanceError when the balance cannot cover the amount, and
// replays the prior result when the reference was already applied.
func (r *Repository) Debit(ctx context.Context, userID int, amountKobo int64, reference, category, description string) (*Transaction, error) {
	return r.apply(ctx, userID, amountKobo, TypeDebit, reference, category, description)
}

// Credit adds amountKobo to the user's balance, with the same idempotency
// rule as Debit. There is no insufficient-balance case.
func (r *Repository) Credit(ctx context.Context, userID int, amountKobo int64, reference, category, description string) (*Transaction, error) {
	return r.apply(ctx, userID, amountKobo, TypeCredit, reference, category, description)
}

func (r *Repository) apply(ctx context.Context, userID int, amountKobo int64, txType, reference, category, description string) (*Transaction, error) {
	if amountKobo <= 0 {
		return nil, ErrInvalidAmount
	}
	if reference == "" {
		return nil, ErrInvalidReference
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// A retry with a reference that already landed is a success replay,
	// never a second application.
	prior := &Transaction{}
	err = tx.GetContext(ctx, prior,
		`SELECT `+selectTransactionColumns+` FROM wallet_transactions WHERE reference = $1`,
		reference,
	)
	if err == nil {
		prior.Replayed = true
		return prior, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	w, err := lockWallet(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	var newBalance int64
	if txType == TypeDebit {
		if w.BalanceKobo < amountKobo {
			return nil, &InsufficientBalanceError{BalanceKobo: w.BalanceKobo, AmountKobo: amountKobo}
		}
		newBalance = w.BalanceKobo - amountKobo
	} else {
		newBalance = w.BalanceKobo + amountKobo
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE wallets SET balance_kobo = $1, updated_at = NOW() WHERE id = $2`,
		newBalance, w.ID,
	)
	if err != nil {
		return nil, err
	}

	txn := &Transaction{}
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO wallet_transactions (wallet_id, user_id, type, category, amount_kobo, balance_after, reference, description, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'completed')
		 RETURNING `+selectTransactionColumns,
		w.ID, userID, txType, category, amountKobo, newBalance, reference, description,
	).StructScan(txn)
	if err != nil {
		if isUniqueViolation(err) {
			return r.findByReference(ctx, reference)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return r.findByReference(ctx, reference)
		}
		return nil, err
	}

	return txn, nil
}

// lockWallet takes the per-wallet row lock that serializes concurrent
// mutations, provisioning a zero-balance wallet when none exists yet.
func lockWallet(ctx context.Context, tx *sqlx.Tx, userID int) (*Wallet, error) {
	w := &Wallet{}
	err := tx.QueryRowxContext(ctx,
		`SELECT id, user_id, balance_kobo, currency, created_at, updated_at
		 FROM wallets
		 WHERE user_id = $1
		 FOR UPDATE`,
		userID,
	).StructScan(w)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = tx.QueryRowxContext(ctx,
		`INSERT INTO wallets (user_id)
		 VALUES ($1)
		 RETURNING id, user_id, balance_kobo, currency, created_at, updated_at`,
		userID,
	).StructScan(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

func (r *Repository) findByReference(ctx context.Context, reference string) (*Transaction, error) {
	txn := &Transaction{}
	err := r.db.GetContext(ctx, txn,
		`SELECT `+selectTransactionColumns+` FROM wallet_transactions WHERE reference = $1`,
		reference,
	)
	if err != nil {
		return nil, err
	}
	txn.Replayed = true
	return txn, nil
}

// FindTransactionByReference reports whether a reference has already been
// applied. Used by webhook handlers to short-circuit redeliveries.
func (r *Repository) FindTransactionByReference(ctx context.Context, reference string) (*Transaction, error) {
	txn, err := r.findByReference(ctx, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *Repository) ListTransactions(ctx context.Context, userID int, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs,
		`SELECT `+selectTransactionColumns+`
		 FROM wallet_transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}

	return txs, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
