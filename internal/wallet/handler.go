package wallet

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AsukuOnukaba/tingle-sub000/internal/api"
	"github.com/AsukuOnukaba/tingle-sub000/internal/auth"
	"github.com/AsukuOnukaba/tingle-sub000/internal/logger"
	"github.com/AsukuOnukaba/tingle-sub000/internal/paystack"
)

type Handler struct {
	repo        *Repository
	gateway     *paystack.Client
	callbackURL string
}

func NewHandler(repo *Repository, gateway *paystack.Client, callbackURL string) *Handler {
	return &Handler{
		repo:        repo,
		gateway:     gateway,
		callbackURL: callbackURL,
	}
}

type TopUpRequest struct {
	AmountKobo int64 `json:"amount_kobo" binding:"required,gt=0"`
}

type TopUpResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	Reference        string `json:"reference"`
}

func (h *Handler) GetBalance(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	w, err := h.repo.GetOrCreateWallet(c.Request.Context(), userID)
	if err != nil {
		logger.Error("failed to load wallet", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load wallet"})
		return
	}

	c.JSON(http.StatusOK, w)
}

// TopUp starts a card top-up: it reserves a ledger reference and hands the
// client a hosted checkout URL. The wallet is only credited once the
// charge.success webhook confirms payment under the same reference.
func (h *Handler) TopUp(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "amount_kobo must be positive"})
		return
	}

	email := c.GetString("user_email")
	reference := "topup:" + uuid.NewString()

	checkout, err := h.gateway.InitializeTransaction(c.Request.Context(), email, req.AmountKobo, reference, h.callbackURL)
	if err != nil {
		logger.Error("failed to initialize top-up", "user_id", userID, "error", err)
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "failed to initialize payment"})
		return
	}

	c.JSON(http.StatusOK, TopUpResponse{
		AuthorizationURL: checkout.AuthorizationURL,
		Reference:        checkout.Reference,
	})
}

func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := h.repo.ListTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		logger.Error("failed to load transactions", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, txs)
}
