package middleware

import (
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"gameshop-hub/internal/api/response"
	jwtutil "gameshop-hub/pkg/jwt"
)

var maintenanceModeFlag atomic.Bool

func SetMaintenanceMode(enabled bool) {
	maintenanceModeFlag.Store(enabled)
}

func IsMaintenanceMode() bool {
	return maintenanceModeFlag.Load()
}

// MaintenanceMode rejects storefront traffic while the shop is closed.
// Admins keep access so they can flip the flag back off.
func MaintenanceMode() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !maintenanceModeFlag.Load() {
			c.Next()
			return
		}

		if claims, ok := GetClaims(c); ok && strings.EqualFold(claims.Role, "admin") {
			c.Next()
			return
		}
		if claims, ok := resolveClaimsFromRequest(c); ok && strings.EqualFold(claims.Role, "admin") {
			c.Set(claimsContextKey, claims)
			c.Next()
			return
		}

		response.Fail(c, 503, response.ErrStoreMaintenance, "store maintenance")
		c.Abort()
	}
}

func resolveClaimsFromRequest(c *gin.Context) (*Claims, bool) {
	if c == nil {
		return nil, false
	}

	tokenString := tokenFromRequest(c)
	if tokenString == "" {
		return nil, false
	}

	publicKey, err := loadRSAPublicKey()
	if err != nil {
		return nil, false
	}

	claims, err := jwtutil.ParseAccessToken(tokenString, publicKey)
	if err != nil || claims == nil {
		return nil, false
	}

	return claims, true
}
