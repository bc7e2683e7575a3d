package subscription

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

const selectSubscriptionColumns = `
	id, subscriber_id, creator_id, plan_id, amount_paid, is_active,
	expires_at, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreatePlan(ctx context.Context, creatorID int, name string, priceKobo int64, durationDays int) (*Plan, error) {
	query := `
		INSERT INTO plans (creator_id, name, price_kobo, duration_days)
		VALUES ($1, $2, $3, $4)
		RETURNING id, creator_id, name, price_kobo, duration_days, created_at
	`

	var plan Plan
	err := r.db.GetContext(ctx, &plan, query, creatorID, name, priceKobo, durationDays)
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *Repository) GetPlanByID(ctx context.Context, id int) (*Plan, error) {
	query := `
		SELECT id, creator_id, name, price_kobo, duration_days, created_at
		FROM plans
		WHERE id = $1
	`

	var plan Plan
	err := r.db.GetContext(ctx, &plan, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *Repository) ListPlansByCreator(ctx context.Context, creatorID int) ([]Plan, error) {
	query := `
		SELECT id, creator_id, name, price_kobo, duration_days, created_at
		FROM plans
		WHERE creator_id = $1
		ORDER BY price_kobo ASC
	`

	var plans []Plan
	err := r.db.SelectContext(ctx, &plans, query, creatorID)
	if err != nil {
		return nil, err
	}

	return plans, nil
}

// Grant upserts the (subscriber, creator) row. A first subscription starts
// from now; a renewal extends the unexpired remainder, so paying early never
// loses days. Re-running the same grant after a crash only extends again if
// the payment leg also re-ran, which the ledger's reference idempotency
// prevents.
func (r *Repository) Grant(ctx context.Context, subscriberID, creatorID, planID int, amountPaid int64, durationDays int) (*Subscription, error) {
	query := `
		INSERT INTO subscriptions (subscriber_id, creator_id, plan_id, amount_paid, is_active, expires_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW() + make_interval(days => $5))
		ON CONFLICT (subscriber_id, creator_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			amount_paid = EXCLUDED.amount_paid,
			is_active = TRUE,
			expires_at = GREATEST(subscriptions.expires_at, NOW()) + make_interval(days => $5),
			updated_at = NOW()
		RETURNING ` + selectSubscriptionColumns

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, subscriberID, creatorID, planID, amountPaid, durationDays)
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

// GetBySubscriberAndCreator reads the pair's row, lazily flipping is_active
// off when the expiry has passed. Returns nil when no row exists.
func (r *Repository) GetBySubscriberAndCreator(ctx context.Context, subscriberID, creatorID int) (*Subscription, error) {
	expire := `
		UPDATE subscriptions
		SET is_active = FALSE, updated_at = NOW()
		WHERE subscriber_id = $1 AND creator_id = $2
		  AND is_active AND expires_at <= NOW()
	`
	if _, err := r.db.ExecContext(ctx, expire, subscriberID, creatorID); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + selectSubscriptionColumns + `
		FROM subscriptions
		WHERE subscriber_id = $1 AND creator_id = $2
	`

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, subscriberID, creatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

// ListBySubscriber returns all of a user's subscriptions, expired ones
// flipped inactive first so callers never see a stale is_active.
func (r *Repository) ListBySubscriber(ctx context.Context, subscriberID int) ([]Subscription, error) {
	expire := `
		UPDATE subscriptions
		SET is_active = FALSE, updated_at = NOW()
		WHERE subscriber_id = $1
		  AND is_active AND expires_at <= NOW()
	`
	if _, err := r.db.ExecContext(ctx, expire, subscriberID); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + selectSubscriptionColumns + `
		FROM subscriptions
		WHERE subscriber_id = $1
		ORDER BY expires_at DESC
	`

	var subs []Subscription
	err := r.db.SelectContext(ctx, &subs, query, subscriberID)
	if err != nil {
		return nil, err
	}

	return subs, nil
}

// Deactivate turns off auto-access immediately. The row is kept so the pair's
// history and a later re-subscribe both work.
func (r *Repository) Deactivate(ctx context.Context, subscriberID, creatorID int) (bool, error) {
	query := `
		UPDATE subscriptions
		SET is_active = FALSE, updated_at = NOW()
		WHERE subscriber_id = $1 AND creator_id = $2 AND is_active
	`

	res, err := r.db.ExecContext(ctx, query, subscriberID, creatorID)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// HasActive answers entitlement checks without flipping expired rows, so it
// stays a cheap read on hot paths.
func (r *Repository) HasActive(ctx context.Context, subscriberID, creatorID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE subscriber_id = $1 AND creator_id = $2
			  AND is_active AND expires_at > NOW()
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, subscriberID, creatorID)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// ExpireLapsed flips every overdue row inactive. The cron sweep calls this so
// rows nobody reads still converge.
func (r *Repository) ExpireLapsed(ctx context.Context) (int64, error) {
	query := `
		UPDATE subscriptions
		SET is_active = FALSE, updated_at = NOW()
		WHERE is_active AND expires_at <= NOW()
	`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
