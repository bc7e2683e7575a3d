package content

import (
	"context"
	"errors"
)

var (
	ErrItemNotFound = errors.New("content item not found")
	ErrInvalidPrice = errors.New("invalid content price")
)

// Entitlements answers whether a viewer may see a paid item's media. The
// concrete check lives with the purchase and subscription stores; wiring it
// in as an interface keeps the catalog free of ledger imports.
type Entitlements interface {
	HasAccess(ctx context.Context, viewerID int, item *Item) (bool, error)
}

// Store is the catalog persistence the service depends on, satisfied by
// *Repository.
type Store interface {
	CreateItem(ctx context.Context, creatorID int, title, mediaURL string, priceKobo int64) (*Item, error)
	GetItemByID(ctx context.Context, id int) (*Item, error)
	ListByCreator(ctx context.Context, creatorID int) ([]Item, error)
}

type Service interface {
	CreateItem(ctx context.Context, creatorID int, req CreateItemRequest) (*Item, error)
	GetItem(ctx context.Context, viewerID, itemID int) (*Item, error)
	ListByCreator(ctx context.Context, viewerID, creatorID int) ([]Item, error)
}

type service struct {
	repo         Store
	entitlements Entitlements
}

func NewService(repo Store, entitlements Entitlements) Service {
	return &service{
		repo:         repo,
		entitlements: entitlements,
	}
}

func (s *service) CreateItem(ctx context.Context, creatorID int, req CreateItemRequest) (*Item, error) {
	if req.PriceKobo < 0 {
		return nil, ErrInvalidPrice
	}
	return s.repo.CreateItem(ctx, creatorID, req.Title, req.MediaURL, req.PriceKobo)
}

// GetItem returns the item with its media URL blanked unless the viewer is
// entitled to it. The row itself is always visible so fans can see what a
// purchase would unlock.
func (s *service) GetItem(ctx context.Context, viewerID, itemID int) (*Item, error) {
	item, err := s.repo.GetItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return s.gate(ctx, viewerID, item)
}

func (s *service) ListByCreator(ctx context.Context, viewerID, creatorID int) ([]Item, error) {
	items, err := s.repo.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	for i := range items {
		gated, err := s.gate(ctx, viewerID, &items[i])
		if err != nil {
			return nil, err
		}
		items[i] = *gated
	}

	return items, nil
}

func (s *service) gate(ctx context.Context, viewerID int, item *Item) (*Item, error) {
	if item.PriceKobo == 0 || item.CreatorID == viewerID {
		return item, nil
	}

	allowed := false
	if s.entitlements != nil {
		var err error
		allowed, err = s.entitlements.HasAccess(ctx, viewerID, item)
		if err != nil {
			return nil, err
		}
	}

	if !allowed {
		locked := *item
		locked.MediaURL = ""
		return &locked, nil
	}
	return item, nil
}
