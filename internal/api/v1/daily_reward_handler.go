package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gameshop-hub/internal/api/middleware"
	"gameshop-hub/internal/api/response"
	"gameshop-hub/internal/service"
)

type DailyRewardHandler struct {
	rewardService *service.DailyRewardService
}

type claimDailyRewardRequest struct {
	Email string `json:"email" binding:"required"`
}

func NewDailyRewardHandler(rewardService *service.DailyRewardService) *DailyRewardHandler {
	return &DailyRewardHandler{rewardService: rewardService}
}

func RegisterDailyRewardRoutes(group *gin.RouterGroup, rewardService *service.DailyRewardService) {
	if rewardService == nil {
		return
	}

	handler := NewDailyRewardHandler(rewardService)
	rewards := group.Group("/rewards/daily")
	rewards.GET("/status", handler.Status)
	rewards.POST(
		"/claim",
		middleware.RateLimitByJSONField("email", 10, time.Minute),
		handler.Claim,
	)
}

func (h *DailyRewardHandler) Status(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "email is required")
		return
	}

	status, err := h.rewardService.Status(c.Request.Context(), email)
	if err != nil {
		handleDailyRewardError(c, err)
		return
	}

	response.Success(c, status)
}

func (h *DailyRewardHandler) Claim(c *gin.Context) {
	var req claimDailyRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	claim, err := h.rewardService.Claim(c.Request.Context(), req.Email)
	if err != nil {
		handleDailyRewardError(c, err)
		return
	}

	response.Success(c, claim)
}

func handleDailyRewardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDailyRewardDisabled):
		response.Fail(c, http.StatusForbidden, response.ErrRewardsDisabled, "daily rewards are disabled")
	case errors.Is(err, service.ErrAlreadyClaimedToday):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyClaimed, "already claimed today")
	case errors.Is(err, service.ErrCustomerNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCustomerNotFound, "customer not found")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
