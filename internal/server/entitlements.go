package server

import (
	"context"

	"github.com/AsukuOnukaba/tingle-sub000/internal/content"
	"github.com/AsukuOnukaba/tingle-sub000/internal/purchase"
	"github.com/AsukuOnukaba/tingle-sub000/internal/subscription"
)

// entitlementChecker answers content gating: a viewer sees paid media when
// they bought the item or hold an active subscription to its creator.
type entitlementChecker struct {
	purchases     *purchase.Repository
	subscriptions *subscription.Repository
}

func (e *entitlementChecker) HasAccess(ctx context.Context, viewerID int, item *content.Item) (bool, error) {
	bought, err := e.purchases.HasPurchased(ctx, viewerID, item.ID)
	if err != nil {
		return false, err
	}
	if bought {
		return true, nil
	}

	return e.subscriptions.HasActive(ctx, viewerID, item.CreatorID)
}
