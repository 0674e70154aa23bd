package internalapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"gameshop-hub/internal/service"
	cryptoutil "gameshop-hub/pkg/crypto"
)

const testGatewaySecret = "unit-test-gateway-secret"

func setupPaymentTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	orderSvc := service.NewOrderService(nil, nil, nil, nil, nil, nil, nil, nil)
	RegisterPaymentInternalRoutes(router, orderSvc, testGatewaySecret)
	return router
}

func postPaymentNotify(router http.Handler, serviceID, token string, payload map[string]any) *httptest.ResponseRecorder {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/internal/payments/notify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if serviceID != "" {
		req.Header.Set("X-Service-ID", serviceID)
	}
	if token != "" {
		req.Header.Set("X-Service-Token", token)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPaymentNotify_MissingCredentials(t *testing.T) {
	router := setupPaymentTestRouter()

	resp := postPaymentNotify(router, "", "", map[string]any{"order_id": "x"})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestPaymentNotify_WrongToken(t *testing.T) {
	router := setupPaymentTestRouter()

	wrongToken := cryptoutil.GenerateInternalHMACToken("esewa-gateway", "some-other-secret")
	resp := postPaymentNotify(router, "esewa-gateway", wrongToken, map[string]any{"order_id": "x"})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}

func TestPaymentNotify_ValidTokenBadPayload(t *testing.T) {
	router := setupPaymentTestRouter()
	token := cryptoutil.GenerateInternalHMACToken("esewa-gateway", testGatewaySecret)

	resp := postPaymentNotify(router, "esewa-gateway", token, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for empty body, got %d", resp.Code)
	}

	resp = postPaymentNotify(router, "esewa-gateway", token, map[string]any{"order_id": "not-a-uuid"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for malformed order id, got %d", resp.Code)
	}
}
