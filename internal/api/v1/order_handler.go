package v1

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
	"gameshop-hub/internal/repository"
	"gameshop-hub/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

type updateOrderStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Note   *string `json:"note"`
}

type attachPaymentRequest struct {
	ScreenshotURL string  `json:"screenshot_url" binding:"required"`
	PaymentMethod *string `json:"payment_method"`
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func RegisterOrderRoutes(group *gin.RouterGroup, orderService *service.OrderService) {
	if orderService == nil {
		return
	}

	handler := NewOrderHandler(orderService)
	orders := group.Group("/orders")

	orders.POST(
		"/",
		middleware.RateLimit("ip", 10, time.Minute),
		handler.Create,
	)
	orders.GET("/", handler.ListMine)
	orders.GET("/:id", handler.Get)
	orders.POST("/:id/payment", handler.AttachPayment)

	admin := orders.Group("")
	admin.Use(middleware.JWTAuth())
	admin.GET("/all", handler.ListAll)
	admin.PATCH("/:id/status", middleware.AuditLog("order.update_status", "order"), handler.UpdateStatus)
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	req.CustomerName = inputsanitize.Text(req.CustomerName)
	req.CustomerPhone = inputsanitize.Text(req.CustomerPhone)
	req.Remark = inputsanitize.TextPtr(req.Remark)

	order, err := h.orderService.Create(c.Request.Context(), req)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	response.Success(c, order)
}

// ListMine returns the orders belonging to one customer email. The
// storefront has no customer login, so the email itself is the key.
func (h *OrderHandler) ListMine(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "email is required")
		return
	}

	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	filter := repository.OrderListFilter{
		CustomerEmail: &email,
		Pagination:    pageToOffset(page, pageSize),
	}

	orders, total, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	response.Paginated(c, orders, page, pageSize, total)
}

func (h *OrderHandler) ListAll(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	filter := repository.OrderListFilter{
		Pagination: pageToOffset(page, pageSize),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := model.OrderStatus(strings.ToLower(raw))
		if !status.Valid() {
			response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid status")
			return
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(c.Query("email")); raw != "" {
		filter.CustomerEmail = &raw
	}

	orders, total, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	response.Paginated(c, orders, page, pageSize, total)
}

func (h *OrderHandler) Get(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid id")
		return
	}

	order, history, err := h.orderService.Get(c.Request.Context(), orderID)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	response.Success(c, gin.H{"order": order, "history": history})
}

func (h *OrderHandler) AttachPayment(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid id")
		return
	}

	var req attachPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	result, err := h.orderService.AttachPaymentScreenshot(
		c.Request.Context(),
		orderID,
		inputsanitize.Text(req.ScreenshotURL),
		inputsanitize.TextPtr(req.PaymentMethod),
	)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	response.Success(c, result)
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid id")
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	status := model.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid status")
		return
	}

	updatedBy := claims.Username
	result, err := h.orderService.UpdateStatus(
		c.Request.Context(),
		orderID,
		status,
		inputsanitize.TextPtr(req.Note),
		&updatedBy,
	)
	if err != nil {
		handleOrderError(c, err)
		return
	}

	response.Success(c, result)
}

func handleOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrOrderNotFound, "order not found")
	case errors.Is(err, service.ErrInsufficientBalance):
		response.Fail(c, http.StatusBadRequest, response.ErrInsufficientCredits, "insufficient credit balance")
	case errors.Is(err, service.ErrCustomerNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCustomerNotFound, "customer not found")
	case errors.Is(err, service.ErrInvalidOrderInput):
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
