package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AsukuOnukaba/tingle-sub000/internal/logger"
	"github.com/AsukuOnukaba/tingle-sub000/internal/metrics"
	"github.com/AsukuOnukaba/tingle-sub000/internal/transfer"
)

var (
	ErrPlanNotFound = errors.New("plan not found")
	ErrOwnPlan      = errors.New("cannot subscribe to your own plan")
)

// Store is the persistence slice Subscribe needs, satisfied by *Repository.
type Store interface {
	GetPlanByID(ctx context.Context, id int) (*Plan, error)
	GetBySubscriberAndCreator(ctx context.Context, subscriberID, creatorID int) (*Subscription, error)
	Grant(ctx context.Context, subscriberID, creatorID, planID int, amountPaid int64, durationDays int) (*Subscription, error)
}

// Transferer moves the plan price from fan to creator, satisfied by
// *transfer.Service.
type Transferer interface {
	Transfer(ctx context.Context, payerID, payeeID int, grossKobo int64, category, reference, description string) (*transfer.Result, error)
}

// Receipts delivers a best-effort confirmation once access is granted.
type Receipts interface {
	SendSubscriptionReceipt(ctx context.Context, userID int, planName string, amountKobo int64, expiresAt time.Time)
}

type Service struct {
	repo      Store
	transfers Transferer
	receipts  Receipts
}

func NewService(repo Store, transfers Transferer, receipts Receipts) *Service {
	return &Service{repo: repo, transfers: transfers, receipts: receipts}
}

// Subscribe charges the fan the plan price and grants (or extends) access.
// Payment settles first; the entitlement is only ever written for money that
// actually moved.
func (s *Service) Subscribe(ctx context.Context, subscriberID, planID int) (*SubscribeResponse, error) {
	plan, err := s.repo.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	if plan.CreatorID == subscriberID {
		return nil, ErrOwnPlan
	}

	existing, err := s.repo.GetBySubscriberAndCreator(ctx, subscriberID, plan.CreatorID)
	if err != nil {
		return nil, err
	}

	reference := "sub:" + uuid.NewString()
	description := fmt.Sprintf("subscription to plan %q", plan.Name)
	result, err := s.transfers.Transfer(ctx, subscriberID, plan.CreatorID, plan.PriceKobo, transfer.CategorySubscription, reference, description)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.Grant(ctx, subscriberID, plan.CreatorID, plan.ID, plan.PriceKobo, plan.DurationDays)
	if err != nil {
		// The money has moved but the entitlement write failed. Surface
		// the reference so the grant can be replayed by support.
		logger.Error("subscription grant failed after payment",
			"subscriber_id", subscriberID, "plan_id", plan.ID, "reference", reference, "error", err)
		return nil, fmt.Errorf("payment %s settled but grant failed: %w", reference, err)
	}

	kind := "new"
	if existing != nil {
		kind = "renewal"
	}
	metrics.RecordSubscriptionGrant(kind)

	if s.receipts != nil {
		s.receipts.SendSubscriptionReceipt(ctx, subscriberID, plan.Name, plan.PriceKobo, sub.ExpiresAt)
	}

	return &SubscribeResponse{
		Subscription: sub,
		Reference:    reference,
		AmountKobo:   plan.PriceKobo,
		FeeKobo:      result.FeeKobo,
	}, nil
}
