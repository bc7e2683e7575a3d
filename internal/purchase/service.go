package purchase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/AsukuOnukaba/tingle-sub000/internal/content"
	"github.com/AsukuOnukaba/tingle-sub000/internal/logger"
	"github.com/AsukuOnukaba/tingle-sub000/internal/metrics"
	"github.com/AsukuOnukaba/tingle-sub000/internal/transfer"
)

var (
	ErrContentNotFound = errors.New("content item not found")
	ErrOwnContent      = errors.New("cannot buy your own content")
)

// Store is the persistence slice Buy needs, satisfied by *Repository.
type Store interface {
	Grant(ctx context.Context, buyerID, contentID int, pricePaid int64) (*Purchase, error)
	GetByBuyerAndContent(ctx context.Context, buyerID, contentID int) (*Purchase, error)
}

// Catalog resolves the item being bought, satisfied by *content.Repository.
type Catalog interface {
	GetItemByID(ctx context.Context, id int) (*content.Item, error)
}

// Transferer moves the price from buyer to creator, satisfied by
// *transfer.Service.
type Transferer interface {
	Transfer(ctx context.Context, payerID, payeeID int, grossKobo int64, category, reference, description string) (*transfer.Result, error)
}

type Service struct {
	repo      Store
	catalog   Catalog
	transfers Transferer
}

func NewService(repo Store, catalog Catalog, transfers Transferer) *Service {
	return &Service{repo: repo, catalog: catalog, transfers: transfers}
}

// Buy charges the buyer the item price and grants a permanent entitlement.
// An existing entitlement short-circuits before any money moves; free items
// are granted without touching the ledger.
func (s *Service) Buy(ctx context.Context, buyerID, contentID int) (*BuyResponse, error) {
	item, err := s.catalog.GetItemByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrContentNotFound
	}
	if item.CreatorID == buyerID {
		return nil, ErrOwnContent
	}

	existing, err := s.repo.GetByBuyerAndContent(ctx, buyerID, contentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &BuyResponse{Purchase: existing, AlreadyOwned: true}, nil
	}

	if item.PriceKobo == 0 {
		granted, err := s.repo.Grant(ctx, buyerID, contentID, 0)
		if err != nil {
			return nil, err
		}
		metrics.RecordPurchaseGrant()
		return &BuyResponse{Purchase: granted}, nil
	}

	reference := "buy:" + uuid.NewString()
	description := fmt.Sprintf("purchase of %q", item.Title)
	result, err := s.transfers.Transfer(ctx, buyerID, item.CreatorID, item.PriceKobo, transfer.CategoryPurchase, reference, description)
	if err != nil {
		return nil, err
	}

	granted, err := s.repo.Grant(ctx, buyerID, contentID, item.PriceKobo)
	if err != nil {
		logger.Error("purchase grant failed after payment",
			"buyer_id", buyerID, "content_id", contentID, "reference", reference, "error", err)
		return nil, fmt.Errorf("payment %s settled but grant failed: %w", reference, err)
	}
	metrics.RecordPurchaseGrant()

	return &BuyResponse{
		Purchase:  granted,
		Reference: reference,
		FeeKobo:   result.FeeKobo,
	}, nil
}
