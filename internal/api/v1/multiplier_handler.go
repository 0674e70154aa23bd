package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gameshop-hub/internal/api/middleware"
	"gameshop-hub/internal/api/response"
	inputsanitize "gameshop-hub/internal/api/sanitize"
	"gameshop-hub/internal/service"
)

type MultiplierHandler struct {
	multiplierService *service.MultiplierService
}

func NewMultiplierHandler(multiplierService *service.MultiplierService) *MultiplierHandler {
	return &MultiplierHandler{multiplierService: multiplierService}
}

func RegisterMultiplierRoutes(group *gin.RouterGroup, multiplierService *service.MultiplierService) {
	if multiplierService == nil {
		return
	}

	handler := NewMultiplierHandler(multiplierService)
	events := group.Group("/multipliers")
	events.GET("/active", handler.Active)

	admin := events.Group("")
	admin.Use(middleware.JWTAuth())
	admin.GET("/", handler.List)
	admin.POST("/", middleware.AuditLog("multiplier_event.create", "multiplier_event"), handler.Create)
	admin.PUT("/:id", middleware.AuditLog("multiplier_event.update", "multiplier_event"), handler.Update)
	admin.DELETE("/:id", middleware.AuditLog("multiplier_event.delete", "multiplier_event"), handler.Delete)
}

func (h *MultiplierHandler) Active(c *gin.Context) {
	events, err := h.multiplierService.ActiveNow(c.Request.Context())
	if err != nil {
		handleMultiplierError(c, err)
		return
	}

	response.Success(c, events)
}

func (h *MultiplierHandler) List(c *gin.Context) {
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

	events, err := h.multiplierService.List(c.Request.Context(), pageToOffset(page, pageSize))
	if err != nil {
		handleMultiplierError(c, err)
		return
	}

	response.Success(c, events)
}

func (h *MultiplierHandler) Create(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	var input service.MultiplierEventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}
	input.Name = inputsanitize.Text(input.Name)

	event, err := h.multiplierService.Create(c.Request.Context(), claimsUserID(claims), input)
	if err != nil {
		handleMultiplierError(c, err)
		return
	}

	response.Success(c, event)
}

func (h *MultiplierHandler) Update(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid id")
		return
	}

	var input service.MultiplierEventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}
	input.Name = inputsanitize.Text(input.Name)

	event, err := h.multiplierService.Update(c.Request.Context(), claimsUserID(claims), eventID, input)
	if err != nil {
		handleMultiplierError(c, err)
		return
	}

	response.Success(c, event)
}

func (h *MultiplierHandler) Delete(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return
	}

	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid id")
		return
	}

	if err := h.multiplierService.Delete(c.Request.Context(), claimsUserID(claims), eventID); err != nil {
		handleMultiplierError(c, err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

func handleMultiplierError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMultiplierEventNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrEventNotFound, "multiplier event not found")
	case errors.Is(err, service.ErrInvalidMultiplierInput):
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
