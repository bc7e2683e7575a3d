package subscription

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

// CreatePlan lets a creator publish a subscription offer. Creator role is
// enforced by route middleware.
func (h *Handler) CreatePlan(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	plan, err := h.repo.CreatePlan(ctx, userID, req.Name, req.PriceKobo, req.DurationDays)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to create plan"})
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// ListPlans returns a creator's plans, cheapest first.
func (h *Handler) ListPlans(c *gin.Context) {
	creatorID, err := strconv.Atoi(c.Query("creator_id"))
	if err != nil || creatorID <= 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "creator_id query parameter is required"})
		return
	}

	ctx := c.Request.Context()
	plans, err := h.repo.ListPlansByCreator(ctx, creatorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to fetch plans"})
		return
	}

	c.JSON(http.StatusOK, plans)
}

// Subscribe charges the authenticated fan for a plan and grants access.
func (h *Handler) Subscribe(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "plan_id is required"})
		return
	}

	ctx := c.Request.Context()
	resp, err := h.service.Subscribe(ctx, userID, req.PlanID)
	if err != nil {
		switch {
		case errors.Is(err, ErrPlanNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "plan not found"})
		case errors.Is(err, ErrOwnPlan):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "cannot subscribe to your own plan"})
		default:
			transfer.RespondTransferError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListSubscriptions returns the authenticated user's subscriptions.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	ctx := c.Request.Context()
	subs, err := h.repo.ListBySubscriber(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to fetch subscriptions"})
		return
	}

	c.JSON(http.StatusOK, subs)
}

// Unsubscribe deactivates the caller's subscription to a creator. No refund
// is issued; access simply stops renewing.
func (h *Handler) Unsubscribe(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	creatorID, err := strconv.Atoi(c.Param("creatorID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid creator id"})
		return
	}

	ctx := c.Request.Context()
	deactivated, err := h.repo.Deactivate(ctx, userID, creatorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to unsubscribe"})
		return
	}
	if !deactivated {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "no active subscription to this creator"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "unsubscribed"})
}
