package purchase

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AsukuOnukaba/tingle-sub000/internal/api"
	"github.com/AsukuOnukaba/tingle-sub000/internal/auth"
	"github.com/AsukuOnukaba/tingle-sub000/internal/transfer"
)

type Handler struct {
	service *Service
	repo    *Repository
}

func NewHandler(service *Service, repo *Repository) *Handler {
	return &Handler{service: service, repo: repo}
}

// Buy purchases a content item for the authenticated user.
func (h *Handler) Buy(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	contentID, err := strconv.Atoi(c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid content id"})
		return
	}

	ctx := c.Request.Context()
	resp, err := h.service.Buy(ctx, userID, contentID)
	if err != nil {
		switch {
		case errors.Is(err, ErrContentNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "content item not found"})
		case errors.Is(err, ErrOwnContent):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "cannot buy your own content"})
		default:
			transfer.RespondTransferError(c, err)
		}
		return
	}

	if resp.AlreadyOwned {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListPurchases returns the authenticated user's entitlements, newest first.
func (h *Handler) ListPurchases(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	ctx := c.Request.Context()
	purchases, err := h.repo.ListByBuyer(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to fetch purchases"})
		return
	}

	c.JSON(http.StatusOK, purchases)
}
