package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gameshop-hub/internal/api/middleware"
	"gameshop-hub/internal/api/response"
	"gameshop-hub/internal/model"
	"gameshop-hub/internal/service"
	systemlog "gameshop-hub/pkg/logger"
)

type SettingsHandler struct {
	settingsService *service.SettingsService
	logStore        *systemlog.SystemLogStore
}

type maintenanceRequest struct {
	Enabled bool `json:"enabled"`
}

func NewSettingsHandler(settingsService *service.SettingsService, logStore *systemlog.SystemLogStore) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, logStore: logStore}
}

func RegisterSettingsRoutes(group *gin.RouterGroup, settingsService *service.SettingsService, logStore *systemlog.SystemLogStore) {
	if settingsService == nil {
		return
	}

	handler := NewSettingsHandler(settingsService, logStore)
	settings := group.Group("/settings")
	settings.Use(middleware.JWTAuth())

	settings.GET("/credits", handler.GetCreditSettings)
	settings.PUT("/credits", middleware.AuditLog("settings.update", "credit_settings"), handler.UpdateCreditSettings)
	settings.GET("/referral", handler.GetReferralSettings)
	settings.PUT("/referral", middleware.AuditLog("settings.update", "referral_settings"), handler.UpdateReferralSettings)
	settings.GET("/daily-rewards", handler.GetDailyRewardSettings)
	settings.PUT("/daily-rewards", middleware.AuditLog("settings.update", "daily_reward_settings"), handler.UpdateDailyRewardSettings)
	settings.GET("/maintenance", handler.GetMaintenance)
	settings.PUT("/maintenance", middleware.AuditLog("settings.maintenance", "store"), handler.SetMaintenance)
	settings.GET("/logs", handler.ListLogs)
}

func (h *SettingsHandler) GetCreditSettings(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}

	settings, err := h.settingsService.CreditSettings(c.Request.Context())
	if err != nil {
		handleSettingsError(c, err)
		return
	}

	response.Success(c, settings)
}

func (h *SettingsHandler) UpdateCreditSettings(c *gin.Context) {
	claims, ok := requireAdminClaims(c)
	if !ok {
		return
	}

	var settings model.CreditSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	if err := h.settingsService.UpdateCreditSettings(c.Request.Context(), claimsUserID(claims), settings); err != nil {
		handleSettingsError(c, err)
		return
	}

	response.Success(c, settings)
}

func (h *SettingsHandler) GetReferralSettings(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}

	settings, err := h.settingsService.ReferralSettings(c.Request.Context())
	if err != nil {
		handleSettingsError(c, err)
		return
	}

	response.Success(c, settings)
}

func (h *SettingsHandler) UpdateReferralSettings(c *gin.Context) {
	claims, ok := requireAdminClaims(c)
	if !ok {
		return
	}

	var settings model.ReferralSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	if err := h.settingsService.UpdateReferralSettings(c.Request.Context(), claimsUserID(claims), settings); err != nil {
		handleSettingsError(c, err)
		return
	}

	response.Success(c, settings)
}

func (h *SettingsHandler) GetDailyRewardSettings(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}

	settings, err := h.settingsService.DailyRewardSettings(c.Request.Context())
	if err != nil {
		handleSettingsError(c, err)
		return
	}

	response.Success(c, settings)
}

func (h *SettingsHandler) UpdateDailyRewardSettings(c *gin.Context) {
	claims, ok := requireAdminClaims(c)
	if !ok {
		return
	}

	var settings model.DailyRewardSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	if err := h.settingsService.UpdateDailyRewardSettings(c.Request.Context(), claimsUserID(claims), settings); err != nil {
		handleSettingsError(c, err)
		return
	}

	response.Success(c, settings)
}

func (h *SettingsHandler) GetMaintenance(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}

	response.Success(c, gin.H{"enabled": middleware.IsMaintenanceMode()})
}

func (h *SettingsHandler) SetMaintenance(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}

	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	middleware.SetMaintenanceMode(req.Enabled)
	response.Success(c, gin.H{"enabled": req.Enabled})
}

// ListLogs returns recent in-memory server logs for the admin dashboard.
func (h *SettingsHandler) ListLogs(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	if h.logStore == nil {
		response.Paginated(c, []systemlog.SystemLogEntry{}, 1, 50, 0)
		return
	}

	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 50)

	from, err := parseAuditTime(c.Query("from"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid from time")
		return
	}
	to, err := parseAuditTime(c.Query("to"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid to time")
		return
	}

	entries, total := h.logStore.QueryLogs(c.Query("level"), from, to, c.Query("keyword"), page, pageSize)
	response.Paginated(c, entries, page, pageSize, total)
}

func requireAdmin(c *gin.Context) bool {
	_, ok := requireAdminClaims(c)
	return ok
}

func requireAdminClaims(c *gin.Context) (*middleware.Claims, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return nil, false
	}
	if !isAdmin(claims.Role) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "forbidden")
		return nil, false
	}
	return claims, true
}

func handleSettingsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSettingsInput):
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}
