package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/AsukuOnukaba/tingle-sub000/internal/logger"
	"github.com/AsukuOnukaba/tingle-sub000/internal/metrics"
	"github.com/AsukuOnukaba/tingle-sub000/internal/wallet"
)

var (
	ErrSamePartyTransfer = errors.New("payer and payee must differ")
	ErrTransferFailed    = errors.New("transfer failed")
)

// BalanceMutator is the slice of the wallet repository the orchestrator
// needs: the two operations that may change a balance, plus the reference
// lookup that keeps failed transfers from being re-run.
type BalanceMutator interface {
	Debit(ctx context.Context, userID int, amountKobo int64, reference, category, description string) (*wallet.Transaction, error)
	Credit(ctx context.Context, userID int, amountKobo int64, reference, category, description string) (*wallet.Transaction, error)
	FindTransactionByReference(ctx context.Context, reference string) (*wallet.Transaction, error)
}

// BalancePublisher pushes advisory balance events after mutations.
type BalancePublisher interface {
	PublishBalance(ctx context.Context, userID int, balanceKobo int64, reference, category string)
}

// Result holds the two ledger entries of one completed transfer. Both share
// the caller's reference as correlation id.
type Result struct {
	PayerTx *wallet.Transaction `json:"payer_tx"`
	PayeeTx *wallet.Transaction `json:"payee_tx"`
	FeeKobo int64               `json:"fee_kobo"`
	NetKobo int64               `json:"net_kobo"`
}

// Service composes a debit and a credit, minus the platform fee, into one
// logical money movement for tips, subscriptions and content purchases.
type Service struct {
	wallets        BalanceMutator
	fees           *FeeSchedule
	publisher      BalancePublisher
	platformUserID int
}

func NewService(wallets BalanceMutator, fees *FeeSchedule, publisher BalancePublisher, platformUserID int) *Service {
	return &Service{
		wallets:        wallets,
		fees:           fees,
		publisher:      publisher,
		platformUserID: platformUserID,
	}
}

// Transfer moves grossKobo from payer to payee at the category's fee rate.
// The debit always lands before the credit is attempted; a failed credit is
// compensated with a full reversal to the payer so no funds are left in
// limbo. A duplicate of a completed transfer replays the prior outcome
// without side effects; a reference that was reversed stays failed.
func (s *Service) Transfer(ctx context.Context, payerID, payeeID int, grossKobo int64, category, reference, description string) (*Result, error) {
	if payerID == payeeID {
		return nil, ErrSamePartyTransfer
	}
	if grossKobo <= 0 {
		return nil, wallet.ErrInvalidAmount
	}

	rate := s.fees.Rate(category)
	feeKobo := Fee(grossKobo, rate)
	netKobo := grossKobo - feeKobo

	// A reversal entry means this reference already failed and the payer
	// was made whole. Retrying the legs from here would replay the debit
	// as a no-op and then pay the payee with money nobody spent, so the
	// reference is dead: the caller must retry under a fresh one.
	reversal, err := s.wallets.FindTransactionByReference(ctx, reference+":reversal")
	if err != nil {
		return nil, err
	}
	if reversal != nil {
		metrics.RecordTransfer(category, "failed_replay", grossKobo)
		return nil, fmt.Errorf("%w: reference %s was already reversed", ErrTransferFailed, reference)
	}

	payerTx, err := s.wallets.Debit(ctx, payerID, grossKobo, reference+":debit", payerCategory(category), description)
	if err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			metrics.RecordInsufficientBalance()
			metrics.RecordTransfer(category, "rejected", grossKobo)
		}
		return nil, err
	}

	payeeTx, err := s.wallets.Credit(ctx, payeeID, netKobo, reference+":credit", payeeCategory(category), description)
	if err != nil {
		// The payer is already debited; reverse in full and report the
		// transfer failed rather than leaving funds in limbo.
		reversalTx, compErr := s.wallets.Credit(ctx, payerID, grossKobo, reference+":reversal", wallet.CategoryReversal, "reversal of failed transfer")
		if compErr != nil {
			logger.Error("transfer compensation failed",
				"payer_id", payerID, "reference", reference, "error", compErr)
			metrics.RecordTransfer(category, "compensation_failed", grossKobo)
			return nil, fmt.Errorf("%w: credit failed and compensation failed: %v", ErrTransferFailed, compErr)
		}
		s.publish(ctx, payerID, reversalTx, reference+":reversal")
		metrics.RecordTransfer(category, "compensated", grossKobo)
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	result := &Result{
		PayerTx: payerTx,
		PayeeTx: payeeTx,
		FeeKobo: feeKobo,
		NetKobo: netKobo,
	}

	// Both legs replayed: an absorbed double-submit. The first pass already
	// collected the fee, published and counted this transfer.
	if payerTx.Replayed && payeeTx.Replayed {
		return result, nil
	}

	if s.platformUserID != 0 && feeKobo > 0 {
		// Fee collection is best effort: the transfer itself is already
		// complete and must not unwind over the platform's own wallet.
		if _, feeErr := s.wallets.Credit(ctx, s.platformUserID, feeKobo, reference+":fee", wallet.CategoryPlatformFee, description); feeErr != nil {
			logger.Error("platform fee credit failed", "reference", reference, "error", feeErr)
		}
	}

	s.publish(ctx, payerID, payerTx, reference+":debit")
	s.publish(ctx, payeeID, payeeTx, reference+":credit")
	metrics.RecordTransfer(category, "completed", grossKobo)

	return result, nil
}

func (s *Service) publish(ctx context.Context, userID int, txn *wallet.Transaction, reference string) {
	if s.publisher == nil || txn == nil {
		return
	}
	s.publisher.PublishBalance(ctx, userID, txn.BalanceAfter, reference, txn.Category)
}

func payerCategory(category string) string {
	switch category {
	case CategoryTip:
		return wallet.CategoryTipSent
	case CategorySubscription:
		return wallet.CategorySubscription
	default:
		return wallet.CategoryPurchase
	}
}

func payeeCategory(category string) string {
	if category == CategoryTip {
		return wallet.CategoryTipReceived
	}
	return wallet.CategoryEarning
}
