package purchase

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Grant records the entitlement. ON CONFLICT DO NOTHING makes a replayed
// grant a no-op; the existing row is re-read so callers always get the row
// that actually holds.
func (r *Repository) Grant(ctx context.Context, buyerID, contentID int, pricePaid int64) (*Purchase, error) {
	query := `
		INSERT INTO purchases (buyer_id, content_id, price_paid)
		VALUES ($1, $2, $3)
		ON CONFLICT (buyer_id, content_id) DO NOTHING
		RETURNING id, buyer_id, content_id, price_paid, created_at
	`

	var p Purchase
	err := r.db.GetContext(ctx, &p, query, buyerID, contentID, pricePaid)
	if errors.Is(err, sql.ErrNoRows) {
		return r.GetByBuyerAndContent(ctx, buyerID, contentID)
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *Repository) GetByBuyerAndContent(ctx context.Context, buyerID, contentID int) (*Purchase, error) {
	query := `
		SELECT id, buyer_id, content_id, price_paid, created_at
		FROM purchases
		WHERE buyer_id = $1 AND content_id = $2
	`

	var p Purchase
	err := r.db.GetContext(ctx, &p, query, buyerID, contentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *Repository) ListByBuyer(ctx context.Context, buyerID int) ([]Purchase, error) {
	query := `
		SELECT id, buyer_id, content_id, price_paid, created_at
		FROM purchases
		WHERE buyer_id = $1
		ORDER BY created_at DESC
	`

	var purchases []Purchase
	err := r.db.SelectContext(ctx, &purchases, query, buyerID)
	if err != nil {
		return nil, err
	}

	return purchases, nil
}

func (r *Repository) HasPurchased(ctx context.Context, buyerID, contentID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM purchases
			WHERE buyer_id = $1 AND content_id = $2
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, buyerID, contentID)
	if err != nil {
		return false, err
	}

	return exists, nil
}
