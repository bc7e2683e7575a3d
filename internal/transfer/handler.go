package transfer

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AsukuOnukaba/tingle-sub000/internal/api"
	"github.com/AsukuOnukaba/tingle-sub000/internal/auth"
	"github.com/AsukuOnukaba/tingle-sub000/internal/logger"
	"github.com/AsukuOnukaba/tingle-sub000/internal/wallet"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type TipRequest struct {
	CreatorID  int    `json:"creator_id" binding:"required,gt=0"`
	AmountKobo int64  `json:"amount_kobo" binding:"required,gt=0"`
	Message    string `json:"message"`
}

type TipResponse struct {
	Reference    string `json:"reference"`
	GrossKobo    int64  `json:"gross_kobo"`
	NetKobo      int64  `json:"net_kobo"`
	FeeKobo      int64  `json:"fee_kobo"`
	BalanceAfter int64  `json:"balance_after"`
}

// Tip moves money from the authenticated fan to a creator in chat.
// Double-submits are absorbed by the ledger's reference idempotency.
func (h *Handler) Tip(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "creator_id and a positive amount_kobo are required"})
		return
	}

	reference := "tip:" + uuid.NewString()
	result, err := h.service.Transfer(c.Request.Context(), userID, req.CreatorID, req.AmountKobo, CategoryTip, reference, req.Message)
	if err != nil {
		RespondTransferError(c, err)
		return
	}

	c.JSON(http.StatusOK, TipResponse{
		Reference:    reference,
		GrossKobo:    req.AmountKobo,
		NetKobo:      result.NetKobo,
		FeeKobo:      result.FeeKobo,
		BalanceAfter: result.PayerTx.BalanceAfter,
	})
}

// RespondTransferError maps orchestrator errors onto HTTP statuses for all
// transfer-backed endpoints (tips, subscriptions, purchases).
func RespondTransferError(c *gin.Context, err error) {
	var insufficient *wallet.InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":          "insufficient balance",
			"shortfall_kobo": insufficient.Shortfall(),
		})
	case errors.Is(err, ErrSamePartyTransfer), errors.Is(err, wallet.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrTransferFailed):
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "transfer failed, your balance has been restored"})
	default:
		logger.Error("transfer error", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "transfer failed"})
	}
}
