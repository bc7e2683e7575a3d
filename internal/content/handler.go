package content

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AsukuOnukaba/tingle-sub000/internal/api"
	"github.com/AsukuOnukaba/tingle-sub000/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateItem lets a creator publish a priced media item. The creator role is
// enforced by route middleware.
func (h *Handler) CreateItem(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	item, err := h.service.CreateItem(ctx, userID, req)
	if err != nil {
		if errors.Is(err, ErrInvalidPrice) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "price_kobo must not be negative"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to create content item"})
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetItem(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	itemID, err := strconv.Atoi(c.Param("itemID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid content id"})
		return
	}

	ctx := c.Request.Context()
	item, err := h.service.GetItem(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "content item not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to fetch content item"})
		return
	}

	c.JSON(http.StatusOK, item)
}

// ListByCreator returns a creator's catalog. Paid items the viewer is not
// entitled to come back with an empty media_url.
func (h *Handler) ListByCreator(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	creatorID, err := strconv.Atoi(c.Query("creator_id"))
	if err != nil || creatorID <= 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "creator_id query parameter is required"})
		return
	}

	ctx := c.Request.Context()
	items, err := h.service.ListByCreator(ctx, userID, creatorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to fetch content"})
		return
	}

	c.JSON(http.StatusOK, items)
}
