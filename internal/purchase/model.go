package purchase

import "time"

// Purchase is a permanent entitlement to one content item. The unique
// (buyer, content) pair means buying twice can never charge twice.
type Purchase struct {
	ID        int       `db:"id" json:"id"`
	BuyerID   int       `db:"buyer_id" json:"buyer_id"`
	ContentID int       `db:"content_id" json:"content_id"`
	PricePaid int64     `db:"price_paid" json:"price_paid"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type BuyResponse struct {
	Purchase  *Purchase `json:"purchase"`
	Reference string    `json:"reference,omitempty"`
	FeeKobo   int64     `json:"fee_kobo"`
	// AlreadyOwned is true when the buyer held the entitlement before this
	// call; no money moved.
	AlreadyOwned bool `json:"already_owned"`
}
