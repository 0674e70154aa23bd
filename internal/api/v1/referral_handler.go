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

type ReferralHandler struct {
	referralService *service.ReferralService
}

type applyReferralRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

func NewReferralHandler(referralService *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

func RegisterReferralRoutes(group *gin.RouterGroup, referralService *service.ReferralService) {
	if referralService == nil {
		return
	}

	handler := NewReferralHandler(referralService)
	referral := group.Group("/referral")
	referral.GET("/code", handler.Code)
	referral.GET("/history", handler.History)
	referral.POST(
		"/apply",
		middleware.RateLimit("ip", 10, time.Minute),
		middleware.RateLimitByJSONField("email", 5, time.Minute),
		handler.Apply,
	)
}

func (h *ReferralHandler) Code(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "email is required")
		return
	}

	info, err := h.referralService.Code(c.Request.Context(), email)
	if err != nil {
		handleReferralError(c, err)
		return
	}

	response.Success(c, info)
}

func (h *ReferralHandler) Apply(c *gin.Context) {
	var req applyReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	result, err := h.referralService.Apply(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		handleReferralError(c, err)
		return
	}

	response.Success(c, result)
}

func (h *ReferralHandler) History(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "email is required")
		return
	}

	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	referrals, total, err := h.referralService.History(c.Request.Context(), email, pageToOffset(page, pageSize))
	if err != nil {
		handleReferralError(c, err)
		return
	}

	response.Paginated(c, referrals, page, pageSize, total)
}

func handleReferralError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrReferralDisabled):
		response.Fail(c, http.StatusForbidden, response.ErrReferralDisabled, "referral program is disabled")
	case errors.Is(err, service.ErrInvalidReferralCode):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidCode, "invalid referral code")
	case errors.Is(err, service.ErrSelfReferral):
		response.Fail(c, http.StatusBadRequest, response.ErrSelfReferral, "cannot use own referral code")
	case errors.Is(err, service.ErrAlreadyReferred):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyReferred, "referral code already used")
	case errors.Is(err, service.ErrNotNewCustomer):
		response.Fail(c, http.StatusBadRequest, response.ErrNotNewCustomer, "referral codes are only for new customers")
	case errors.Is(err, service.ErrCustomerNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCustomerNotFound, "customer not found")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
