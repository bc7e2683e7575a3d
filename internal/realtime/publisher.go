package realtime

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AsukuOnukaba/tingle-sub000/internal/logger"
)

// BalanceEvent is pushed to the UI after a successful wallet mutation. It is
// advisory: clients must re-fetch the authoritative balance before basing a
// new spend decision on it.
type BalanceEvent struct {
	UserID      int       `json:"user_id"`
	BalanceKobo int64     `json:"balance_kobo"`
	Reference   string    `json:"reference"`
	Category    string    `json:"category"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher fans balance events out over redis pub/sub, one channel per user.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(redisAddr string) *Publisher {
	return &Publisher{
		client: redis.NewClient(&redis.Options{Addr: redisAddr}),
	}
}

// NewPublisherWithClient is used by tests to inject a mock client.
func NewPublisherWithClient(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func channelFor(userID int) string {
	return "wallet:" + strconv.Itoa(userID)
}

// PublishBalance never fails the calling operation: a lost notification is
// recoverable by the client's next fetch, a failed ledger write is not.
func (p *Publisher) PublishBalance(ctx context.Context, userID int, balanceKobo int64, reference, category string) {
	event := BalanceEvent{
		UserID:      userID,
		BalanceKobo: balanceKobo,
		Reference:   reference,
		Category:    category,
		OccurredAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to marshal balance event", "error", err)
		return
	}

	if err := p.client.Publish(ctx, channelFor(userID), payload).Err(); err != nil {
		logger.Error("failed to publish balance event", "user_id", userID, "error", err)
	}
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
