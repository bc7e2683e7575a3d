package subscription

import "time"

// Plan is a creator-defined subscription offer. Price is in kobo, duration in
// whole days.
type Plan struct {
	ID           int       `db:"id" json:"id"`
	CreatorID    int       `db:"creator_id" json:"creator_id"`
	Name         string    `db:"name" json:"name"`
	PriceKobo    int64     `db:"price_kobo" json:"price_kobo"`
	DurationDays int       `db:"duration_days" json:"duration_days"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Subscription is the single row per (subscriber, creator) pair. Renewals
// extend expires_at in place instead of inserting new rows.
type Subscription struct {
	ID           int       `db:"id" json:"id"`
	SubscriberID int       `db:"subscriber_id" json:"subscriber_id"`
	CreatorID    int       `db:"creator_id" json:"creator_id"`
	PlanID       int       `db:"plan_id" json:"plan_id"`
	AmountPaid   int64     `db:"amount_paid" json:"amount_paid"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Current reports whether the subscription entitles access right now.
// Rows past their expiry may still carry is_active=true until a read or the
// sweep flips them.
func (s *Subscription) Current(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}

type CreatePlanRequest struct {
	Name         string `json:"name" binding:"required"`
	PriceKobo    int64  `json:"price_kobo" binding:"required,gt=0"`
	DurationDays int    `json:"duration_days" binding:"required,gt=0"`
}

type SubscribeRequest struct {
	PlanID int `json:"plan_id" binding:"required,gt=0"`
}

type SubscribeResponse struct {
	Subscription *Subscription `json:"subscription"`
	Reference    string        `json:"reference"`
	AmountKobo   int64         `json:"amount_kobo"`
	FeeKobo      int64         `json:"fee_kobo"`
}
