package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	internalapi "gameshop-hub/internal/api/internal"
	"gameshop-hub/internal/service"
)

func RegisterInternalRoutes(
	router gin.IRoutes,
	orderService *service.OrderService,
	gatewayHMACSecret string,
) {
	secret := strings.TrimSpace(gatewayHMACSecret)
	if orderService != nil {
		internalapi.RegisterPaymentInternalRoutes(router, orderService, secret)
	}
}
