package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AsukuOnukaba/tingle-sub000/internal/api"
	"github.com/AsukuOnukaba/tingle-sub000/internal/logger"
	"github.com/AsukuOnukaba/tingle-sub000/internal/metrics"
	"github.com/AsukuOnukaba/tingle-sub000/internal/paystack"
	"github.com/AsukuOnukaba/tingle-sub000/internal/user"
	"github.com/AsukuOnukaba/tingle-sub000/internal/wallet"
)

// Verifier checks the gateway's HMAC signature, satisfied by
// *paystack.Client.
type Verifier interface {
	VerifySignature(body []byte, signature string) bool
}

// Creditor is the wallet slice the top-up webhook needs.
type Creditor interface {
	Credit(ctx context.Context, userID int, amountKobo int64, reference, category, description string) (*wallet.Transaction, error)
}

// UserFinder resolves the gateway's customer email to an account.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
}

// PayoutFinalizer applies transfer.* events, satisfied by
// *withdrawal.Service.
type PayoutFinalizer interface {
	HandleTransferEvent(ctx context.Context, eventType string, data paystack.TransferEventData) error
}

// BalancePublisher pushes the advisory balance event after a top-up credit.
type BalancePublisher interface {
	PublishBalance(ctx context.Context, userID int, balanceKobo int64, reference, category string)
}

// WebhookHandler receives Paystack events. Signature-checked, idempotent,
// and always acknowledged once accepted so the gateway stops retrying.
type WebhookHandler struct {
	verifier    Verifier
	wallets     Creditor
	users       UserFinder
	withdrawals PayoutFinalizer
	publisher   BalancePublisher
}

func NewWebhookHandler(verifier Verifier, wallets Creditor, users UserFinder, withdrawals PayoutFinalizer, publisher BalancePublisher) *WebhookHandler {
	return &WebhookHandler{
		verifier:    verifier,
		wallets:     wallets,
		users:       users,
		withdrawals: withdrawals,
		publisher:   publisher,
	}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "unreadable body"})
		return
	}

	if !h.verifier.VerifySignature(body, c.GetHeader("x-paystack-signature")) {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "invalid signature"})
		return
	}

	var event paystack.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "malformed event"})
		return
	}

	ctx := c.Request.Context()
	switch event.Event {
	case paystack.EventChargeSuccess:
		h.handleCharge(ctx, event.Data)
	case paystack.EventTransferSuccess, paystack.EventTransferFailed, paystack.EventTransferReversed:
		h.handleTransfer(ctx, event.Event, event.Data)
	default:
		logger.Debug("ignoring webhook event", "event", event.Event)
	}

	// Processing errors are logged, not returned: a retried event replays
	// against idempotent operations, so acknowledging is always safe.
	c.JSON(http.StatusOK, api.MessageResponse{Message: "ok"})
}

func (h *WebhookHandler) handleCharge(ctx context.Context, data json.RawMessage) {
	var charge paystack.ChargeEventData
	if err := json.Unmarshal(data, &charge); err != nil {
		logger.Error("malformed charge event", "error", err)
		return
	}
	if charge.Status != "success" || charge.Amount <= 0 {
		return
	}

	account, err := h.users.FindByEmail(ctx, charge.Customer.Email)
	if err != nil {
		logger.Error("top-up for unknown customer", "email", charge.Customer.Email, "reference", charge.Reference, "error", err)
		return
	}

	txn, err := h.wallets.Credit(ctx, account.ID, charge.Amount, charge.Reference, wallet.CategoryTopUp, "card top-up")
	if err != nil {
		logger.Error("top-up credit failed", "user_id", account.ID, "reference", charge.Reference, "error", err)
		return
	}
	if txn.Replayed {
		// Redelivered event absorbed by the ledger; already counted.
		return
	}

	metrics.RecordTopUp()
	if h.publisher != nil {
		h.publisher.PublishBalance(ctx, account.ID, txn.BalanceAfter, charge.Reference, wallet.CategoryTopUp)
	}
	logger.Info("top-up credited", "user_id", account.ID, "reference", charge.Reference, "amount_kobo", charge.Amount)
}

func (h *WebhookHandler) handleTransfer(ctx context.Context, eventType string, data json.RawMessage) {
	var transferData paystack.TransferEventData
	if err := json.Unmarshal(data, &transferData); err != nil {
		logger.Error("malformed transfer event", "error", err)
		return
	}

	if err := h.withdrawals.HandleTransferEvent(ctx, eventType, transferData); err != nil {
		logger.Error("transfer event handling failed", "reference", transferData.Reference, "error", err)
	}
}
