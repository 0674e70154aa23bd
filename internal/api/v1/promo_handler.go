package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gameshop-hub/internal/api/middleware"
	"gameshop-hub/internal/api/response"
	inputsanitize "gameshop-hub/internal/api/sanitize"
	"gameshop-hub/internal/service"
)

type PromoHandler struct {
	promoService *service.PromoService
}

type validatePromoRequest struct {
	Code     string          `json:"code" binding:"required"`
	Subtotal decimal.Decimal `json:"subtotal" binding:"required"`
	Email    *string         `json:"email"`
}

func NewPromoHandler(promoService *service.PromoService) *PromoHandler {
	return &PromoHandler{promoService: promoService}
}

func RegisterPromoRoutes(group *gin.RouterGroup, promoService *service.PromoService) {
	if promoService == nil {
		return
	}

	handler := NewPromoHandler(promoService)
	promos := group.Group("/promos")
	promos.POST(
		"/validate",
		middleware.RateLimit("ip", 30, time.Minute),
		handler.Validate,
	)

	admin := promos.Group("")
	admin.Use(middleware.JWTAuth())
	admin.GET("/", handler.List)
	admin.POST("/", middleware.AuditLog("promo_code.create", "promo_code"), handler.Create)
	admin.PUT("/:id", middleware.AuditLog("promo_code.update", "promo_code"), handler.Update)
	admin.DELETE("/:id", middleware.AuditLog("promo_code.delete", "promo_code"), handler.Delete)
}

func (h *PromoHandler) Validate(c *gin.Context) {
	var req validatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	validation, err := h.promoService.Validate(
		c.Request.Context(),
		inputsanitize.Text(req.Code),
		req.Subtotal,
		req.Email,
	)
	if err != nil {
		handlePromoError(c, err)
		return
	}

	response.Success(c, validation)
}

func (h *PromoHandler) List(c *gin.Context) {
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

	promos, err := h.promoService.List(c.Request.Context(), pageToOffset(page, pageSize))
	if err != nil {
		handlePromoError(c, err)
		return
	}

	response.Success(c, promos)
}

func (h *PromoHandler) Create(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	var input service.PromoCodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}
	input.Code = inputsanitize.Text(input.Code)

	promo, err := h.promoService.Create(c.Request.Context(), claimsUserID(claims), input)
	if err != nil {
		handlePromoError(c, err)
		return
	}

	response.Success(c, promo)
}

func (h *PromoHandler) Update(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	promoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid id")
		return
	}

	var input service.PromoCodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}
	input.Code = inputsanitize.Text(input.Code)

	promo, err := h.promoService.Update(c.Request.Context(), claimsUserID(claims), promoID, input)
	if err != nil {
		handlePromoError(c, err)
		return
	}

	response.Success(c, promo)
}

func (h *PromoHandler) Delete(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	promoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid id")
		return
	}

	if err := h.promoService.Delete(c.Request.Context(), claimsUserID(claims), promoID); err != nil {
		handlePromoError(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

func handlePromoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPromoNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrPromoNotFound, "invalid or expired promo code")
	case errors.Is(err, service.ErrPromoExpired):
		response.Fail(c, http.StatusBadRequest, response.ErrPromoExpired, "promo code has expired")
	case errors.Is(err, service.ErrPromoBelowMinimum):
		response.Fail(c, http.StatusBadRequest, response.ErrPromoBelowMin, "order below promo minimum amount")
	case errors.Is(err, service.ErrPromoUsageExceeded):
		response.Fail(c, http.StatusBadRequest, response.ErrPromoUsageLimit, "promo code usage limit reached")
	case errors.Is(err, service.ErrPromoAlreadyUsed):
		response.Fail(c, http.StatusBadRequest, response.ErrPromoAlreadyUsed, "promo code already used")
	case errors.Is(err, service.ErrPromoFirstTimeOnly):
		response.Fail(c, http.StatusBadRequest, response.ErrPromoFirstBuyOnly, "promo code is for first-time buyers only")
	case errors.Is(err, service.ErrInvalidPromoInput):
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
