package withdrawal

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AsukuOnukaba/tingle-sub000/internal/api"
	"github.com/AsukuOnukaba/tingle-sub000/internal/auth"
	"github.com/AsukuOnukaba/tingle-sub000/internal/wallet"
)

type Handler struct {
	service *Service
	repo    *Repository
}

func NewHandler(service *Service, repo *Repository) *Handler {
	return &Handler{service: service, repo: repo}
}

// Request starts a payout to the authenticated user's bank account.
func (h *Handler) Request(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	row, err := h.service.Request(ctx, userID, req)
	if err != nil {
		var insufficient *wallet.InsufficientBalanceError
		switch {
		case errors.As(err, &insufficient):
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":          "insufficient balance",
				"shortfall_kobo": insufficient.Shortfall(),
			})
		case errors.Is(err, ErrAmountTooSmall), errors.Is(err, wallet.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "withdrawal could not be initiated, your balance has been restored"})
		}
		return
	}

	c.JSON(http.StatusAccepted, row)
}

// List returns the authenticated user's withdrawal history.
func (h *Handler) List(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	ctx := c.Request.Context()
	rows, err := h.repo.ListByUser(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to fetch withdrawals"})
		return
	}

	c.JSON(http.StatusOK, rows)
}
