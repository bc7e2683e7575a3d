package content

import "time"

// Item is a priced piece of creator media. PriceKobo of zero means the item
// is free to every authenticated user.
type Item struct {
	ID        int       `db:"id" json:"id"`
	CreatorID int       `db:"creator_id" json:"creator_id"`
	Title     string    `db:"title" json:"title"`
	MediaURL  string    `db:"media_url" json:"media_url,omitempty"`
	PriceKobo int64     `db:"price_kobo" json:"price_kobo"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type CreateItemRequest struct {
	Title     string `json:"title" binding:"required"`
	MediaURL  string `json:"media_url"`
	PriceKobo int64  `json:"price_kobo" binding:"min=0"`
}
