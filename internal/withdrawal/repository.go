package withdrawal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

const selectRequestColumns = `
	id, user_id, amount_kobo, commission, net_amount, reference, status,
	transfer_code, bank_code, account_number, error_message, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, userID int, amountKobo, commission, netAmount int64, reference, bankCode, accountNumber string) (*Request, error) {
	query := `
		INSERT INTO withdrawal_requests (user_id, amount_kobo, commission, net_amount, reference, bank_code, account_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + selectRequestColumns

	var req Request
	err := r.db.GetContext(ctx, &req, query, userID, amountKobo, commission, netAmount, reference, bankCode, accountNumber)
	if err != nil {
		return nil, err
	}

	return &req, nil
}

func (r *Repository) GetByReference(ctx context.Context, reference string) (*Request, error) {
	query := `
		SELECT ` + selectRequestColumns + `
		FROM withdrawal_requests
		WHERE reference = $1
	`

	var req Request
	err := r.db.GetContext(ctx, &req, query, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &req, nil
}

// MarkProcessing attaches the gateway's transfer code once the payout has
// been accepted. Only a pending row can move to processing.
func (r *Repository) MarkProcessing(ctx context.Context, reference, transferCode string) (bool, error) {
	query := `
		UPDATE withdrawal_requests
		SET status = 'processing', transfer_code = $2, updated_at = NOW()
		WHERE reference = $1 AND status = 'pending'
	`

	return r.guardedUpdate(ctx, query, reference, transferCode)
}

// Finalize moves an in-flight request to completed or failed. The status
// guard makes webhook replays and the sweep racing each other harmless: the
// first finalizer wins, later ones see zero rows.
func (r *Repository) Finalize(ctx context.Context, reference, status, errorMessage string) (bool, error) {
	query := `
		UPDATE withdrawal_requests
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE reference = $1 AND status IN ('pending', 'processing')
	`

	return r.guardedUpdate(ctx, query, reference, status, errorMessage)
}

func (r *Repository) ListByUser(ctx context.Context, userID int) ([]Request, error) {
	query := `
		SELECT ` + selectRequestColumns + `
		FROM withdrawal_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var requests []Request
	err := r.db.SelectContext(ctx, &requests, query, userID)
	if err != nil {
		return nil, err
	}

	return requests, nil
}

// ListInFlightOlderThan returns requests the webhook never finalized, for
// the reconciliation sweep.
func (r *Repository) ListInFlightOlderThan(ctx context.Context, age time.Duration) ([]Request, error) {
	query := `
		SELECT ` + selectRequestColumns + `
		FROM withdrawal_requests
		WHERE status IN ('pending', 'processing')
		  AND created_at < NOW() - make_interval(secs => $1)
		ORDER BY created_at ASC
	`

	var requests []Request
	err := r.db.SelectContext(ctx, &requests, query, age.Seconds())
	if err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *Repository) guardedUpdate(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}
