package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AsukuOnukaba/tingle-sub000/internal/logger"
	"github.com/AsukuOnukaba/tingle-sub000/internal/metrics"
	"github.com/AsukuOnukaba/tingle-sub000/internal/paystack"
	"github.com/AsukuOnukaba/tingle-sub000/internal/transfer"
	"github.com/AsukuOnukaba/tingle-sub000/internal/wallet"
)

var ErrAmountTooSmall = errors.New("withdrawal amount does not cover the commission")

// Store is the persistence slice the service needs, satisfied by *Repository.
type Store interface {
	Create(ctx context.Context, userID int, amountKobo, commission, netAmount int64, reference, bankCode, accountNumber string) (*Request, error)
	GetByReference(ctx context.Context, reference string) (*Request, error)
	MarkProcessing(ctx context.Context, reference, transferCode string) (bool, error)
	Finalize(ctx context.Context, reference, status, errorMessage string) (bool, error)
	ListInFlightOlderThan(ctx context.Context, age time.Duration) ([]Request, error)
}

// BalanceMutator is the wallet slice the service needs, satisfied by
// *wallet.Repository.
type BalanceMutator interface {
	Debit(ctx context.Context, userID int, amountKobo int64, reference, category, description string) (*wallet.Transaction, error)
	Credit(ctx context.Context, userID int, amountKobo int64, reference, category, description string) (*wallet.Transaction, error)
}

// Gateway is the payout slice of the Paystack client.
type Gateway interface {
	CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error)
	InitiateTransfer(ctx context.Context, recipientCode string, amountKobo int64, reference, reason string) (*paystack.Transfer, error)
	VerifyTransfer(ctx context.Context, reference string) (*paystack.Transfer, error)
}

// Receipts delivers a best-effort notification once a payout settles.
type Receipts interface {
	SendWithdrawalReceipt(ctx context.Context, userID int, reference string, netKobo int64)
}

type Service struct {
	repo           Store
	wallets        BalanceMutator
	gateway        Gateway
	receipts       Receipts
	commission     decimal.Decimal
	platformUserID int
	pendingAge     time.Duration
}

func NewService(repo Store, wallets BalanceMutator, gateway Gateway, receipts Receipts, commissionRate float64, platformUserID int, pendingAge time.Duration) *Service {
	return &Service{
		repo:           repo,
		wallets:        wallets,
		gateway:        gateway,
		receipts:       receipts,
		commission:     decimal.NewFromFloat(commissionRate),
		platformUserID: platformUserID,
		pendingAge:     pendingAge,
	}
}

// Request debits the gross amount up front, records a pending request, and
// hands the net payout to the gateway. Any failure before the gateway holds
// the money refunds the debit in full; once the transfer is in flight the
// webhook or the sweep decides the outcome.
func (s *Service) Request(ctx context.Context, userID int, req CreateRequest) (*Request, error) {
	if req.AmountKobo <= 0 {
		return nil, wallet.ErrInvalidAmount
	}

	commission := transfer.Fee(req.AmountKobo, s.commission)
	netAmount := req.AmountKobo - commission
	if netAmount <= 0 {
		return nil, ErrAmountTooSmall
	}

	reference := "wd:" + uuid.NewString()
	if _, err := s.wallets.Debit(ctx, userID, req.AmountKobo, reference+":debit", wallet.CategoryWithdrawal, "withdrawal to bank account"); err != nil {
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			metrics.RecordWithdrawal("rejected")
		}
		return nil, err
	}

	row, err := s.repo.Create(ctx, userID, req.AmountKobo, commission, netAmount, reference, req.BankCode, req.AccountNumber)
	if err != nil {
		s.refund(ctx, userID, req.AmountKobo, reference)
		return nil, err
	}

	recipientCode, err := s.gateway.CreateRecipient(ctx, req.AccountName, req.AccountNumber, req.BankCode)
	if err != nil {
		return s.failAndRefund(ctx, row, "recipient creation failed: "+err.Error())
	}

	payout, err := s.gateway.InitiateTransfer(ctx, recipientCode, netAmount, reference, "wallet withdrawal")
	if err != nil {
		return s.failAndRefund(ctx, row, "transfer initiation failed: "+err.Error())
	}

	if _, err := s.repo.MarkProcessing(ctx, reference, payout.TransferCode); err != nil {
		// The payout is already with the gateway; the sweep will pick the
		// row up and reconcile it by reference.
		logger.Error("failed to mark withdrawal processing", "reference", reference, "error", err)
	} else {
		row.Status = StatusProcessing
		row.TransferCode = payout.TransferCode
	}

	metrics.RecordWithdrawal("initiated")
	return row, nil
}

// HandleTransferEvent finalizes a request from a gateway webhook. The
// status-guarded update means only one event flips the row; redeliveries
// matching the settled status re-issue the idempotent money leg so a crash
// after the flip cannot strand it.
func (s *Service) HandleTransferEvent(ctx context.Context, eventType string, data paystack.TransferEventData) error {
	row, err := s.repo.GetByReference(ctx, data.Reference)
	if err != nil {
		return err
	}
	if row == nil {
		logger.Warn("transfer event for unknown reference", "reference", data.Reference, "event", eventType)
		return nil
	}

	switch eventType {
	case paystack.EventTransferSuccess:
		return s.complete(ctx, row)
	case paystack.EventTransferFailed, paystack.EventTransferReversed:
		reason := data.Reason
		if reason == "" {
			reason = eventType
		}
		return s.fail(ctx, row, reason)
	default:
		return nil
	}
}

// Sweep reconciles in-flight requests the webhook never finalized. Requests
// with a transfer code are verified against the gateway; pending rows that
// never reached the gateway are failed and refunded.
func (s *Service) Sweep(ctx context.Context) error {
	rows, err := s.repo.ListInFlightOlderThan(ctx, s.pendingAge)
	if err != nil {
		return err
	}

	for i := range rows {
		row := &rows[i]
		if row.TransferCode == "" {
			if err := s.fail(ctx, row, "payout was never initiated"); err != nil {
				logger.Error("sweep failed to fail stale withdrawal", "reference", row.Reference, "error", err)
			}
			continue
		}

		payout, err := s.gateway.VerifyTransfer(ctx, row.Reference)
		if err != nil {
			logger.Error("sweep verification failed", "reference", row.Reference, "error", err)
			continue
		}

		switch payout.Status {
		case "success":
			err = s.complete(ctx, row)
		case "failed", "reversed":
			err = s.fail(ctx, row, "gateway reported "+payout.Status)
		default:
			// Still in flight at the gateway; leave it for the next run.
		}
		if err != nil {
			logger.Error("sweep finalization failed", "reference", row.Reference, "error", err)
		}
	}

	return nil
}

func (s *Service) complete(ctx context.Context, row *Request) error {
	finalized, err := s.repo.Finalize(ctx, row.Reference, StatusCompleted, "")
	if err != nil {
		return err
	}
	if !finalized {
		// An earlier event flipped the row. If it landed on completed,
		// re-issue the idempotent commission credit in case that attempt
		// crashed between the finalize and the credit.
		if s.hasStatus(ctx, row.Reference, StatusCompleted) {
			s.collectCommission(ctx, row)
		}
		return nil
	}

	s.collectCommission(ctx, row)
	if s.receipts != nil {
		s.receipts.SendWithdrawalReceipt(ctx, row.UserID, row.Reference, row.NetAmount)
	}

	metrics.RecordWithdrawal("completed")
	logger.Info("withdrawal completed", "reference", row.Reference, "user_id", row.UserID, "net_kobo", row.NetAmount)
	return nil
}

func (s *Service) fail(ctx context.Context, row *Request, reason string) error {
	finalized, err := s.repo.Finalize(ctx, row.Reference, StatusFailed, reason)
	if err != nil {
		return err
	}
	if !finalized {
		// Already finalized elsewhere. When the row is failed the refund
		// must still go out: a crash between the finalize and the refund
		// would otherwise strand the debit forever, since finalized rows
		// never re-enter the sweep. The :refund reference keeps the
		// repeat harmless.
		if s.hasStatus(ctx, row.Reference, StatusFailed) {
			s.refund(ctx, row.UserID, row.AmountKobo, row.Reference)
		}
		return nil
	}

	s.refund(ctx, row.UserID, row.AmountKobo, row.Reference)
	metrics.RecordWithdrawal("failed")
	logger.Info("withdrawal failed", "reference", row.Reference, "user_id", row.UserID, "reason", reason)
	return nil
}

func (s *Service) hasStatus(ctx context.Context, reference, status string) bool {
	current, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		logger.Error("failed to re-read finalized withdrawal", "reference", reference, "error", err)
		return false
	}
	return current != nil && current.Status == status
}

func (s *Service) collectCommission(ctx context.Context, row *Request) {
	if s.platformUserID == 0 || row.Commission <= 0 {
		return
	}
	if _, err := s.wallets.Credit(ctx, s.platformUserID, row.Commission, row.Reference+":fee", wallet.CategoryPlatformFee, "withdrawal commission"); err != nil {
		logger.Error("commission credit failed", "reference", row.Reference, "error", err)
	}
}

// refund returns the gross debit. The :refund reference makes the credit
// idempotent, so a crash between Finalize and here is recovered by simply
// calling refund again.
func (s *Service) refund(ctx context.Context, userID int, amountKobo int64, reference string) {
	if _, err := s.wallets.Credit(ctx, userID, amountKobo, reference+":refund", wallet.CategoryRefund, "withdrawal refund"); err != nil {
		logger.Error("withdrawal refund failed", "reference", reference, "user_id", userID, "error", err)
	}
}

func (s *Service) failAndRefund(ctx context.Context, row *Request, reason string) (*Request, error) {
	if err := s.fail(ctx, row, reason); err != nil {
		logger.Error("failed to record withdrawal failure", "reference", row.Reference, "error", err)
	}
	return nil, fmt.Errorf("withdrawal %s failed: %s", row.Reference, reason)
}
