package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"gameshop-hub/internal/api/middleware"
	"gameshop-hub/internal/api/response"
	inputsanitize "gameshop-hub/internal/api/sanitize"
	"gameshop-hub/internal/service"
)

type CreditHandler struct {
	creditService *service.CreditService
}

type adjustCreditRequest struct {
	Email  string          `json:"email" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason"`
}

func NewCreditHandler(creditService *service.CreditService) *CreditHandler {
	return &CreditHandler{creditService: creditService}
}

func RegisterCreditRoutes(group *gin.RouterGroup, creditService *service.CreditService) {
	if creditService == nil {
		return
	}

	handler := NewCreditHandler(creditService)
	credits := group.Group("/credits")

	credits.GET("/balance", middleware.RateLimit("ip", 60, time.Minute), handler.Balance)
	credits.GET("/summary", handler.Summary)
	credits.GET("/logs", handler.Logs)
	credits.POST(
		"/adjust",
		middleware.JWTAuth(),
		middleware.AuditLog("credits.adjust", "customer"),
		handler.Adjust,
	)
}

func (h *CreditHandler) Balance(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "email is required")
		return
	}

	balance, err := h.creditService.Balance(c.Request.Context(), email)
	if err != nil {
		handleCreditServiceError(c, err)
		return
	}

	response.Success(c, gin.H{"email": email, "balance": balance})
}

func (h *CreditHandler) Summary(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "email is required")
		return
	}

	summary, err := h.creditService.Summary(c.Request.Context(), email)
	if err != nil {
		handleCreditServiceError(c, err)
		return
	}

	response.Success(c, summary)
}

func (h *CreditHandler) Logs(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "email is required")
		return
	}

	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	entries, total, err := h.creditService.Logs(c.Request.Context(), email, pageToOffset(page, pageSize))
	if err != nil {
		handleCreditServiceError(c, err)
		return
	}

	response.Paginated(c, entries, page, pageSize, total)
}

func (h *CreditHandler) Adjust(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	var req adjustCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	entry, err := h.creditService.AdminAdjust(
		c.Request.Context(),
		req.Email,
		req.Amount,
		inputsanitize.Text(req.Reason),
		claimsUserID(claims),
	)
	if err != nil {
		handleCreditServiceError(c, err)
		return
	}

	response.Success(c, entry)
}

func handleCreditServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCustomerNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCustomerNotFound, "customer not found")
	case errors.Is(err, service.ErrInsufficientBalance):
		response.Fail(c, http.StatusBadRequest, response.ErrInsufficientCredits, "insufficient credit balance")
	case errors.Is(err, service.ErrInvalidCreditInput):
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
