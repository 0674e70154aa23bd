package internalapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gameshop-hub/internal/api/middleware"
	"gameshop-hub/internal/api/response"
	inputsanitize "gameshop-hub/internal/api/sanitize"
	"gameshop-hub/internal/model"
	"gameshop-hub/internal/service"
	cryptoutil "gameshop-hub/pkg/crypto"
)

// PaymentHandler receives payment gateway callbacks. Gateways
// authenticate with an HMAC token derived from their service id and
// the shared secret, never with an admin session.
type PaymentHandler struct {
	orderService *service.OrderService
	secret       string
}

type paymentNotifyRequest struct {
	OrderID       string  `json:"order_id" binding:"required"`
	PaymentMethod *string `json:"payment_method"`
	Reference     *string `json:"reference"`
}

func NewPaymentHandler(orderService *service.OrderService, secret string) *PaymentHandler {
	return &PaymentHandler{orderService: orderService, secret: strings.TrimSpace(secret)}
}

func RegisterPaymentInternalRoutes(router gin.IRoutes, orderService *service.OrderService, secret string) {
	handler := NewPaymentHandler(orderService, secret)
	router.POST(
		"/api/internal/payments/notify",
		middleware.RateLimitByHeader("X-Service-ID", 60, time.Minute),
		handler.Notify,
	)
}

func (h *PaymentHandler) Notify(c *gin.Context) {
	if h.orderService == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal, "service unavailable")
		return
	}

	serviceID := strings.TrimSpace(c.GetHeader("X-Service-ID"))
	serviceToken := strings.TrimSpace(c.GetHeader("X-Service-Token"))
	if serviceID == "" || serviceToken == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	if !cryptoutil.VerifyInternalHMACToken(serviceID, serviceToken, h.secret) {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req paymentNotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	orderID, err := uuid.Parse(strings.TrimSpace(req.OrderID))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid order_id")
		return
	}

	note := "payment confirmed by " + inputsanitize.Text(serviceID)
	if req.Reference != nil {
		if ref := inputsanitize.Text(*req.Reference); ref != "" {
			note += " (ref " + ref + ")"
		}
	}

	updatedBy := serviceID
	result, err := h.orderService.UpdateStatus(
		c.Request.Context(),
		orderID,
		model.OrderStatusConfirmed,
		&note,
		&updatedBy,
	)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrOrderNotFound, "order not found")
			return
		}
		if errors.Is(err, service.ErrInsufficientBalance) {
			response.Fail(c, http.StatusBadRequest, response.ErrInsufficientCredits, "reserved credits no longer covered")
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "handle payment notify failed")
		return
	}

	response.Success(c, result)
}
