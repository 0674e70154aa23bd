package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gameshop-hub/internal/api/middleware"
	"gameshop-hub/internal/api/response"
	inputsanitize "gameshop-hub/internal/api/sanitize"
	"gameshop-hub/internal/model"
	"gameshop-hub/internal/service"
)

const (
	accessTokenCookieName  = "access_token"
	refreshTokenCookieName = "refresh_token"
	accessTokenTTL         = 2 * time.Hour
	refreshTokenTTL        = 7 * 24 * time.Hour
)

type AuthHandler struct {
	authService *service.AuthService
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type createAdminUserRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Email    *string `json:"email"`
	Role     string  `json:"role"`
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func RegisterAuthRoutes(group *gin.RouterGroup, authService *service.AuthService) {
	if authService == nil {
		return
	}

	handler := NewAuthHandler(authService)
	auth := group.Group("/auth")
	auth.POST(
		"/login",
		middleware.RateLimit("ip", 5, time.Minute),
		middleware.RateLimitByJSONField("username", 10, time.Minute),
		handler.Login,
	)
	auth.POST("/refresh", handler.Refresh)
	auth.POST("/logout", handler.Logout)
	auth.POST("/password", middleware.JWTAuth(), handler.ChangePassword)
	auth.GET("/me", middleware.JWTAuth(), handler.Me)
	auth.POST(
		"/users",
		middleware.JWTAuth(),
		middleware.RequireRole("admin"),
		middleware.AuditLog("admin_user.create", "admin_user"),
		handler.CreateUser,
	)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	accessToken, refreshToken, err := h.authService.Login(
		c.Request.Context(),
		inputsanitize.Text(req.Username),
		req.Password,
	)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	setSecureCookie(c, accessTokenCookieName, accessToken, int(accessTokenTTL.Seconds()))
	setSecureCookie(c, refreshTokenCookieName, refreshToken, int(refreshTokenTTL.Seconds()))

	response.Success(c, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshTokenCookieName)
	if err != nil || refreshToken == "" {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	newAccessToken, newRefreshToken, err := h.authService.RefreshToken(c.Request.Context(), refreshToken)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	setSecureCookie(c, accessTokenCookieName, newAccessToken, int(accessTokenTTL.Seconds()))
	setSecureCookie(c, refreshTokenCookieName, newRefreshToken, int(refreshTokenTTL.Seconds()))

	response.Success(c, gin.H{
		"access_token":  newAccessToken,
		"refresh_token": newRefreshToken,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(refreshTokenCookieName)
	if err := h.authService.Logout(c.Request.Context(), refreshToken); err != nil && !errors.Is(err, service.ErrRefreshTokenInvalid) {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
		return
	}

	clearCookie(c, accessTokenCookieName)
	clearCookie(c, refreshTokenCookieName)
	response.Success(c, gin.H{"message": "logout success"})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		handleAuthError(c, err)
		return
	}

	clearCookie(c, accessTokenCookieName)
	clearCookie(c, refreshTokenCookieName)
	response.Success(c, gin.H{"message": "password changed"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "unauthorized")
		return
	}

	user, err := h.authService.FindByID(c.Request.Context(), userID)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.Success(c, user)
}

func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req createAdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
		return
	}

	user, err := h.authService.CreateAdminUser(
		c.Request.Context(),
		inputsanitize.Text(req.Username),
		req.Password,
		inputsanitize.TextPtr(req.Email),
		model.AdminRole(req.Role),
	)
	if err != nil {
		handleAuthError(c, err)
		return
	}

	response.Success(c, user)
}

func handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrPasswordWrong, "username or password incorrect")
	case errors.Is(err, service.ErrAdminUserNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrCustomerNotFound, "user not found")
	case errors.Is(err, service.ErrRefreshTokenExpired):
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenExpired, "refresh token expired")
	case errors.Is(err, service.ErrRefreshTokenInvalid):
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "invalid refresh token")
	case errors.Is(err, service.ErrInvalidAdminInput):
		response.Fail(c, http.StatusBadRequest, response.ErrInternal, "invalid request")
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "internal error")
	}
}

func setSecureCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, maxAge, "/", "", true, true)
}

func clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, "", -1, "/", "", true, true)
}
