package transfer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Categories name the money movements the orchestrator serves. Each owns its
// fee rate so the schedule is auditable in one place instead of scattered
// across call sites.
const (
	CategoryTip          = "tip"
	CategorySubscription = "subscription"
	CategoryPurchase     = "purchase"
)

// FeeSchedule maps transfer categories to platform fee rates in [0, 1).
type FeeSchedule struct {
	rates map[string]decimal.Decimal
}

func NewFeeSchedule(tipRate, subscriptionRate, purchaseRate float64) (*FeeSchedule, error) {
	schedule := &FeeSchedule{rates: make(map[string]decimal.Decimal, 3)}
	for category, rate := range map[string]float64{
		CategoryTip:          tipRate,
		CategorySubscription: subscriptionRate,
		CategoryPurchase:     purchaseRate,
	} {
		if rate < 0 || rate >= 1 {
			return nil, fmt.Errorf("fee rate for %s must be in [0, 1), got %v", category, rate)
		}
		schedule.rates[category] = decimal.NewFromFloat(rate)
	}
	return schedule, nil
}

// Rate returns the platform cut for a category. Unknown categories take no fee.
func (s *FeeSchedule) Rate(category string) decimal.Decimal {
	return s.rates[category]
}

// Fee computes the platform cut of a gross amount in kobo, rounded half-up.
// All amount arithmetic stays in integer minor units; decimals exist only for
// this one multiplication.
func Fee(grossKobo int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(grossKobo).Mul(rate).Round(0).IntPart()
}
