package v1

import (
	"errors"
	"net/http"
	"strconv"
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

type CustomerHandler struct {
	customerService *service.CustomerService
}

type registerCustomerRequest struct {
	Email string  `json:"email" binding:"required"`
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
}

type updateCustomerRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

func NewCustomerHandler(customerService *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

func RegisterCustomerRoutes(group *gin.RouterGroup, customerService *service.CustomerService) {
	if customerService == nil {
		return
	}

	handler := NewCustomerHandler(customerService)
	customers := group.Group("/customers")
	customers.POST(
		"/register",
		middleware.RateLimit("ip", 10, time.Minute),
		handler.Register,
	)
	customers.GET("/profile", handler.Profile)
	customers.PUT("/profile", handler.UpdateProfile)

	admin := customers.Group("")
	admin.Use(middleware.JWTAuth())
	admin.GET("/", handler.List)
}

func (h *CustomerHandler) Register(c *gin.Context) {
	var req registerCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	customer, err := h.customerService.Register(c.Request.Context(), service.RegisterCustomerRequest{
		Email: req.Email,
		Name:  inputsanitize.Text(req.Name),
		Phone: inputsanitize.TextPtr(req.Phone),
	})
	if err != nil {
		handleCustomerError(c, err)
		return
	}

	response.Success(c, customer)
}

func (h *CustomerHandler) Profile(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "email is required")
		return
	}

	customer, err := h.customerService.Get(c.Request.Context(), email)
	if err != nil {
		handleCustomerError(c, err)
		return
	}

	response.Success(c, customer)
}

func (h *CustomerHandler) UpdateProfile(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "email is required")
		return
	}

	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	customer, err := h.customerService.UpdateProfile(
		c.Request.Context(),
		email,
		inputsanitize.TextPtr(req.Name),
		inputsanitize.TextPtr(req.Phone),
	)
	if err != nil {
		handleCustomerError(c, err)
		return
	}

	response.Success(c, customer)
}

func (h *CustomerHandler) List(c *gin.Context) {
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

	filter := repository.CustomerListFilter{
		Pagination: pageToOffset(page, pageSize),
	}
	if raw := strings.TrimSpace(c.Query("keyword")); raw != "" {
		filter.Keyword = &raw
	}

	customers, total, err := h.customerService.List(c.Request.Context(), filter)
	if err != nil {
		handleCustomerError(c, err)
		return
	}

	response.Paginated(c, customers, page, pageSize, total)
}

func handleCustomerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCustomerNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCustomerNotFound, "customer not found")
	case errors.Is(err, service.ErrCustomerExists):
		response.Fail(c, http.StatusConflict, response.ErrCustomerExists, "customer already exists")
	case errors.Is(err, service.ErrInvalidCustomerInput):
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}

func parseIntOrDefault(raw string, def int) int {
	if strings.TrimSpace(raw) == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return def
	}
	return value
}

func isAdmin(role string) bool {
	return strings.EqualFold(role, string(model.AdminRoleAdmin))
}

func pageToOffset(page, pageSize int) repository.Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}
	return repository.Pagination{
		Limit:  int32(pageSize),
		Offset: int32((page - 1) * pageSize),
	}
}

func claimsUserID(claims *middleware.Claims) *uuid.UUID {
	if claims == nil || claims.UserID == "" {
		return nil
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil
	}
	return &id
}
