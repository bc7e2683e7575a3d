package content

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

func (r *Repository) CreateItem(ctx context.Context, creatorID int, title, mediaURL string, priceKobo int64) (*Item, error) {
	query := `
		INSERT INTO content_items (creator_id, title, media_url, price_kobo)
		VALUES ($1, $2, $3, $4)
		RETURNING id, creator_id, title, media_url, price_kobo, created_at
	`

	var item Item
	err := r.db.GetContext(ctx, &item, query, creatorID, title, mediaURL, priceKobo)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *Repository) GetItemByID(ctx context.Context, id int) (*Item, error) {
	query := `
		SELECT id, creator_id, title, media_url, price_kobo, created_at
		FROM content_items
		WHERE id = $1
	`

	var item Item
	err := r.db.GetContext(ctx, &item, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *Repository) ListByCreator(ctx context.Context, creatorID int) ([]Item, error) {
	query := `
		SELECT id, creator_id, title, media_url, price_kobo, created_at
		FROM content_items
		WHERE creator_id = $1
		ORDER BY created_at DESC
	`

	var items []Item
	err := r.db.SelectContext(ctx, &items, query, creatorID)
	if err != nil {
		return nil, err
	}

	return items, nil
}
